package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/lucelabs/luce-styling-api/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	defaultTextModel  = "gemini-2.5-flash-lite"
	defaultImageModel = "imagen-3.0-capability-001"

	defaultImagenEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:predict"
)

// Stage identifies which step of the orchestration pipeline failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageAnalyze  Stage = "analyze"
	StageDescribe Stage = "describe"
	StagePlan     Stage = "plan"
	StageEdit     Stage = "edit"
)

// StageError attributes a failure to the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Verdict is the outcome of the pre-analysis image validation call.
type Verdict struct {
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues"`
}

// FirstIssue returns the leading issue, or a generic fallback message.
func (v Verdict) FirstIssue() string {
	if len(v.Issues) > 0 {
		return v.Issues[0]
	}
	return "La imagen no cumple con los requisitos."
}

// ClothingDescription is the advisory output of the wardrobe intake call.
type ClothingDescription struct {
	Description string                  `json:"description"`
	Category    models.ClothingCategory `json:"category"`
}

// OutfitPlan is the structured output of the outfit planning call.
type OutfitPlan struct {
	ImagenPrompt   string         `json:"imagenPrompt"`
	SelectedColors []models.Color `json:"selectedColors"`
}

// OutfitResult is the combined output of the plan + edit sequence.
type OutfitResult struct {
	Image  []byte
	Colors []models.Color
}

// Client wraps the Gemini text models and the Imagen editing endpoint.
type Client struct {
	genai      *genai.Client
	textModel  string
	imageModel string
	apiKey     string

	httpClient *http.Client
	// ImagenEndpoint is a format string taking the image model name.
	// Overridable for tests.
	ImagenEndpoint string
}

// NewClient creates a Gemini client with the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &Client{
		genai:          gc,
		textModel:      defaultTextModel,
		imageModel:     defaultImageModel,
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: 5 * time.Minute},
		ImagenEndpoint: defaultImagenEndpoint,
	}, nil
}

// Close releases the underlying genai connection.
func (c *Client) Close() error {
	return c.genai.Close()
}

// generateText runs one GenerateContent call and concatenates the text
// parts of the first candidate.
func (c *Client) generateText(ctx context.Context, parts ...genai.Part) (string, error) {
	model := c.genai.GenerativeModel(c.textModel)
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %v", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var buf bytes.Buffer
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			buf.WriteString(string(text))
		}
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("response contains no text parts")
	}
	return buf.String(), nil
}

// ValidateImage asks the model whether the photo is usable for a color
// analysis. A transport or parse failure is an error, never a pass.
func (c *Client) ValidateImage(ctx context.Context, jpegImage []byte) (Verdict, error) {
	text, err := c.generateText(ctx, genai.Text(validationPrompt), genai.ImageData("jpeg", jpegImage))
	if err != nil {
		return Verdict{}, &StageError{Stage: StageValidate, Err: err}
	}
	verdict, err := ParseVerdict(text)
	if err != nil {
		return Verdict{}, &StageError{Stage: StageValidate, Err: err}
	}
	return verdict, nil
}

// AnalyzeImage runs the colorimetry analysis on a validated photo with
// up to 3 user-selected style tags.
func (c *Client) AnalyzeImage(ctx context.Context, jpegImage []byte, styles []string) (*models.Analysis, error) {
	if len(styles) > 3 {
		return nil, &StageError{Stage: StageAnalyze, Err: fmt.Errorf("at most 3 style tags allowed, got %d", len(styles))}
	}
	text, err := c.generateText(ctx, genai.Text(analysisPrompt(styles)), genai.ImageData("jpeg", jpegImage))
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}
	analysis, err := ParseAnalysis(text)
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}
	return analysis, nil
}

// DescribeClothing classifies a wardrobe item photo. The result is
// advisory: callers save the item even when this call fails.
func (c *Client) DescribeClothing(ctx context.Context, jpegImage []byte) (ClothingDescription, error) {
	text, err := c.generateText(ctx, genai.Text(describeClothingPrompt), genai.ImageData("jpeg", jpegImage))
	if err != nil {
		return ClothingDescription{}, &StageError{Stage: StageDescribe, Err: err}
	}
	desc, err := ParseClothingDescription(text)
	if err != nil {
		return ClothingDescription{}, &StageError{Stage: StageDescribe, Err: err}
	}
	return desc, nil
}

// PlanOutfit asks the stylist model for an image-edit instruction and a
// 3-5 color selection drawn from the user's power palette.
func (c *Client) PlanOutfit(ctx context.Context, analysis *models.Analysis, occasion models.Occasion, timeOfDay models.TimeOfDay, items []models.ClothingItem) (OutfitPlan, error) {
	if !occasion.IsValid() {
		return OutfitPlan{}, &StageError{Stage: StagePlan, Err: fmt.Errorf("unknown occasion %q", occasion)}
	}
	if !timeOfDay.IsValid() {
		return OutfitPlan{}, &StageError{Stage: StagePlan, Err: fmt.Errorf("unknown time of day %q", timeOfDay)}
	}

	text, err := c.generateText(ctx, genai.Text(planningPrompt(analysis, occasion, timeOfDay, items)))
	if err != nil {
		return OutfitPlan{}, &StageError{Stage: StagePlan, Err: err}
	}
	plan, err := ParsePlan(text)
	if err != nil {
		return OutfitPlan{}, &StageError{Stage: StagePlan, Err: err}
	}
	return plan, nil
}

// EditOutfitImage invokes the image-editing model with the plan's
// instruction against a durable, addressable reference to the user's
// base photo. The fixed fidelity directives are always appended.
func (c *Client) EditOutfitImage(ctx context.Context, prompt, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, &StageError{Stage: StageEdit, Err: fmt.Errorf("image editing requires an addressable base image")}
	}

	body, err := json.Marshal(map[string]interface{}{
		"instances": []map[string]interface{}{
			{
				"prompt": prompt + fidelityDirectives,
				"image":  map[string]string{"uri": imageURL},
			},
		},
		"parameters": map[string]interface{}{
			"sampleCount":      1,
			"aspectRatio":      "9:16",
			"personGeneration": "allow_adult",
		},
	})
	if err != nil {
		return nil, &StageError{Stage: StageEdit, Err: err}
	}

	url := fmt.Sprintf(c.ImagenEndpoint, c.imageModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &StageError{Stage: StageEdit, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StageError{Stage: StageEdit, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &StageError{Stage: StageEdit, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StageError{Stage: StageEdit, Err: &googleapi.Error{
			Code: resp.StatusCode,
			Body: string(respBody),
		}}
	}

	image, err := ExtractImagePayload(respBody)
	if err != nil {
		return nil, &StageError{Stage: StageEdit, Err: err}
	}
	return image, nil
}

// GenerateOutfit sequences the planning and image-editing calls.
// Failures carry the stage that produced them.
func (c *Client) GenerateOutfit(ctx context.Context, analysis *models.Analysis, occasion models.Occasion, timeOfDay models.TimeOfDay, items []models.ClothingItem, imageURL string) (*OutfitResult, error) {
	plan, err := c.PlanOutfit(ctx, analysis, occasion, timeOfDay, items)
	if err != nil {
		return nil, err
	}

	image, err := c.EditOutfitImage(ctx, plan.ImagenPrompt, imageURL)
	if err != nil {
		return nil, err
	}

	return &OutfitResult{Image: image, Colors: plan.SelectedColors}, nil
}

// ParseVerdict parses the validation response.
func ParseVerdict(text string) (Verdict, error) {
	var v Verdict
	if err := decodeModelJSON(text, &v); err != nil {
		return Verdict{}, fmt.Errorf("failed to parse validation response: %v", err)
	}
	return v, nil
}

// ParseAnalysis parses and shape-checks the analysis response. Any
// deviation from the fixed color cardinalities is a hard failure.
func ParseAnalysis(text string) (*models.Analysis, error) {
	var a models.Analysis
	if err := decodeModelJSON(text, &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %v", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ParseClothingDescription parses the wardrobe intake response.
func ParseClothingDescription(text string) (ClothingDescription, error) {
	var d ClothingDescription
	if err := decodeModelJSON(text, &d); err != nil {
		return ClothingDescription{}, fmt.Errorf("failed to parse clothing description: %v", err)
	}
	if !d.Category.IsValid() {
		return ClothingDescription{}, fmt.Errorf("unknown clothing category %q", d.Category)
	}
	return d, nil
}

// ParsePlan parses the planning response. The color selection must hold
// 3 to 5 entries; out-of-range selections are surfaced, not clamped.
func ParsePlan(text string) (OutfitPlan, error) {
	var p OutfitPlan
	if err := decodeModelJSON(text, &p); err != nil {
		return OutfitPlan{}, fmt.Errorf("failed to parse outfit plan: %v", err)
	}
	if p.ImagenPrompt == "" {
		return OutfitPlan{}, fmt.Errorf("outfit plan has no image prompt")
	}
	if n := len(p.SelectedColors); n < 3 || n > 5 {
		return OutfitPlan{}, fmt.Errorf("expected 3-5 selected colors, got %d", n)
	}
	return p, nil
}
