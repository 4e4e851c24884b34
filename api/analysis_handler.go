package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lucelabs/luce-styling-api/utils"
)

// ValidateImageHandler runs the pre-analysis quality judgment on a
// captured or uploaded photo. A negative verdict is a normal outcome
// (200 with isValid=false); only transport/service failures are errors.
// Absence of a definitive positive verdict never proceeds to analysis.
func ValidateImageHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Validate Image API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := readImageUpload(r, "image")
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	verdict, err := AI.ValidateImage(r.Context(), data)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Validation call failed: %v", err))
		utils.RespondError(w, nil, "Error al validar la imagen. Inténtalo de nuevo.", http.StatusBadGateway)
		return
	}

	if verdict.IsValid {
		utils.AddToLogMessage(&logMessageBuilder, "Image accepted for analysis")
	} else {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Image rejected: %s", verdict.FirstIssue()))
	}
	utils.RespondJSON(w, http.StatusOK, verdict)
}

// AnalyzeHandler runs the colorimetry analysis on a validated photo and
// persists both the durable base photo and the analysis through the
// user's state store. The photo is uploaded before the analysis record
// ever references it.
func AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Analyze API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	data, err := readImageUpload(r, "image")
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	var styles []string
	if r.MultipartForm != nil {
		styles = r.MultipartForm.Value["styles"]
	}
	if len(styles) > 3 {
		utils.RespondError(w, &logMessageBuilder, "At most 3 style tags allowed", http.StatusBadRequest)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Analyzing image for %s with styles %v", s.UID(), styles))

	analysis, err := AI.AnalyzeImage(r.Context(), data, styles)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Analysis failed: %v", err))
		utils.RespondError(w, nil, "Error en el análisis. Inténtalo de nuevo.", http.StatusBadGateway)
		return
	}

	// Durable reference first, then the records that point at it.
	imageKey, err := s.SetUserImage(r.Context(), data)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to store user image: %v", err), http.StatusInternalServerError)
		return
	}
	if err := s.SetStyles(styles); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}
	s.SetAnalysis(analysis)

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Analysis complete: season=%s", analysis.Season))

	imageURL, _ := utils.GetPresignedURL(r.Context(), imageKey)
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis":   analysis,
		"user_image": imageURL,
	})
}
