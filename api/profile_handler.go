package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lucelabs/luce-styling-api/store"
	"github.com/lucelabs/luce-styling-api/utils"
)

// ProfileHandler serves the signed-in user's styling profile: GET
// returns the in-memory state (the single source of truth for display
// surfaces), PUT applies a partial edit to the analysis record.
func ProfileHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Profile API]")

	switch r.Method {
	case http.MethodGet:
		getProfile(w, r, &logMessageBuilder)
	case http.MethodPut:
		updateProfile(w, r, &logMessageBuilder)
	default:
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func getProfile(w http.ResponseWriter, r *http.Request, logger *strings.Builder) {
	s, ok := userStore(w, r, logger)
	if !ok {
		return
	}

	profile := s.Snapshot()

	userImageURL := ""
	if profile.UserImageKey != "" {
		if url, err := utils.GetPresignedURL(r.Context(), profile.UserImageKey); err == nil {
			userImageURL = url
		}
	}

	utils.AddToLogMessage(logger, fmt.Sprintf("Profile fetched for %s", s.UID()))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"profile":        profile,
		"user_image_url": userImageURL,
	})
}

func updateProfile(w http.ResponseWriter, r *http.Request, logger *strings.Builder) {
	s, ok := userStore(w, r, logger)
	if !ok {
		return
	}

	var patch store.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondError(w, logger, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.UpdateProfile(patch); err != nil {
		utils.RespondError(w, logger, err.Error(), http.StatusBadRequest)
		return
	}

	utils.AddToLogMessage(logger, fmt.Sprintf("Profile updated for %s", s.UID()))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Profile updated",
		"analysis": s.Analysis(),
	})
}

// StylesHandler replaces the user's selected style tags (at most 3).
func StylesHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Styles API]")

	if r.Method != http.MethodPut {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Styles []string `json:"styles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	if err := s.SetStyles(req.Styles); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Styles updated"})
}
