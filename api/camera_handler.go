package api

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/lucelabs/luce-styling-api/camera"
	"github.com/lucelabs/luce-styling-api/utils"
)

// maxImageUpload caps uploaded image payloads at 10MB.
const maxImageUpload = 10 << 20

// readImageUpload reads an uploaded image from a multipart field or,
// when the request is not multipart, from the raw body.
func readImageUpload(r *http.Request, field string) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageUpload); err != nil {
			return nil, fmt.Errorf("error parsing form data: %v", err)
		}
		file, _, err := r.FormFile(field)
		if err != nil {
			return nil, fmt.Errorf("missing %q file field: %v", field, err)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxImageUpload))
	}

	return io.ReadAll(io.LimitReader(r.Body, maxImageUpload))
}

// FrameCheckResponse reports the quality gate for one sampled frame.
type FrameCheckResponse struct {
	AvgLuminance float64 `json:"avg_luminance"`
	LightOk      bool    `json:"light_ok"`
}

// FrameCheckHandler scores the lighting of a single frame. Browser
// clients without local pixel access post their downsampled preview
// frames here on the capture screen.
func FrameCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := readImageUpload(r, "frame")
	if err != nil {
		utils.RespondError(w, nil, err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		utils.RespondError(w, nil, "Could not decode frame image", http.StatusBadRequest)
		return
	}

	v := camera.Luminance(img)
	utils.RespondJSON(w, http.StatusOK, FrameCheckResponse{
		AvgLuminance: v,
		LightOk:      camera.LightOk(v),
	})
}
