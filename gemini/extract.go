package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFences removes markdown code fences the model sometimes wraps
// around a JSON payload, e.g. ```json ... ```.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// FirstJSONObject returns the first balanced JSON object found in s.
// Braces inside string literals are ignored. Returns an error when no
// complete object is present.
func FirstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// decodeModelJSON parses a model response into v. It first tries the
// fence-stripped text directly, then falls back to the first balanced
// JSON object inside it.
func decodeModelJSON(text string, v interface{}) error {
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	obj, err := FirstJSONObject(cleaned)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(obj), v)
}

// imageExtractor pulls an encoded image out of one possible response
// field. Extractors are tried in order; the first non-empty result wins.
type imageExtractor func(pred map[string]json.RawMessage) string

var imageExtractors = []imageExtractor{
	func(pred map[string]json.RawMessage) string { return rawString(pred["bytesBase64Encoded"]) },
	func(pred map[string]json.RawMessage) string { return rawString(pred["b64"]) },
	func(pred map[string]json.RawMessage) string { return rawString(pred["imageBytes"]) },
}

func rawString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ExtractImagePayload decodes the image bytes from an image-synthesis
// response body. The payload may appear under more than one field name;
// absence of every known field is a hard failure.
func ExtractImagePayload(body []byte) ([]byte, error) {
	var resp struct {
		Predictions []map[string]json.RawMessage `json:"predictions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis response: %v", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions in synthesis response")
	}

	for _, extract := range imageExtractors {
		if encoded := extract(resp.Predictions[0]); encoded != "" {
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image payload: %v", err)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("no image data in response")
}
