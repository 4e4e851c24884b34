package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
	"google.golang.org/api/googleapi"
)

// isQuotaError reports whether an upstream failure is a rate/quota
// rejection. REST calls surface *googleapi.Error; gRPC-backed SDK calls
// carry a RESOURCE_EXHAUSTED status in the message.
func isQuotaError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota")
}

// GenerateOutfitRequest selects the context for an outfit simulation.
type GenerateOutfitRequest struct {
	Occasion    models.Occasion  `json:"occasion"`
	Time        models.TimeOfDay `json:"time"`
	ClothingIDs []string         `json:"clothing_ids,omitempty"`
}

// GenerateOutfitHandler runs the plan + edit-image sequence for the
// signed-in user. Preconditions are checked before any model call: an
// analysis must exist and the base photo must already be a durable
// reference. Only one generation may be in flight per user; a second
// request is rejected with 409 while the first is running.
func GenerateOutfitHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Generate Outfit API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GenerateOutfitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if !req.Occasion.IsValid() {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Unknown occasion %q", req.Occasion), http.StatusBadRequest)
		return
	}
	if !req.Time.IsValid() {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Unknown time of day %q", req.Time), http.StatusBadRequest)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	// Fail fast on preconditions before any network call.
	analysis := s.Analysis()
	if analysis == nil {
		utils.RespondError(w, &logMessageBuilder, "No analysis available; run the color analysis first", http.StatusPreconditionFailed)
		return
	}
	imageKey := s.UserImageKey()
	if imageKey == "" {
		utils.RespondError(w, &logMessageBuilder, "No base photo available; capture or upload one first", http.StatusPreconditionFailed)
		return
	}

	if !s.TryBeginGeneration() {
		utils.RespondError(w, &logMessageBuilder, "A generation is already in progress", http.StatusConflict)
		return
	}
	defer s.EndGeneration()

	items := s.ClothesByID(req.ClothingIDs)
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Generating outfit: occasion=%s time=%s items=%d", req.Occasion, req.Time, len(items)))

	// The editing model needs an addressable input, not an inline
	// payload: hand it a presigned URL of the durable base photo.
	imageURL, err := utils.GetPresignedURL(r.Context(), imageKey)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to resolve base photo: %v", err), http.StatusInternalServerError)
		return
	}

	// The heavy model calls get their own deadline, detached from the
	// request context: an abandoned request must not cancel a paid call
	// half way through.
	genCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := AI.GenerateOutfit(genCtx, analysis, req.Occasion, req.Time, items, imageURL)
	if err != nil {
		stage := "generate"
		var stageErr *gemini.StageError
		if errors.As(err, &stageErr) {
			stage = string(stageErr.Stage)
		}
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Generation failed at %s stage: %v", stage, err))
		if isQuotaError(err) {
			utils.RespondError(w, nil, "Quota exceeded. Please try again later.", http.StatusTooManyRequests)
		} else {
			utils.RespondError(w, nil, fmt.Sprintf("Outfit generation failed at the %s stage", stage), http.StatusBadGateway)
		}
		return
	}

	// Stage the result durably so the client can favorite it by key.
	resultID := uuid.New().String()
	resultKey := utils.FavoriteImageKey(s.UID(), resultID)
	if _, err := utils.UploadFileToS3(genCtx, bytes.NewReader(result.Image), resultKey, "image/jpeg"); err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to store generated image: %v", err), http.StatusInternalServerError)
		return
	}

	resultURL, _ := utils.GetPresignedURL(r.Context(), resultKey)
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Outfit generated: %s", resultKey))

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        resultID,
		"image_key": resultKey,
		"image_url": resultURL,
		"colors":    result.Colors,
		"occasion":  req.Occasion,
		"time":      req.Time,
	})
}
