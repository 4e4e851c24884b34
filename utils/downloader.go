package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MirrorImageToS3 downloads an image from a URL and re-uploads it under
// the given object key, so a transient or third-party URL becomes a
// durable reference in our own bucket. Returns the object key.
func MirrorImageToS3(ctx context.Context, url, objectKey string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return UploadFileToS3(ctx, bytes.NewReader(bodyBytes), objectKey, contentType)
}
