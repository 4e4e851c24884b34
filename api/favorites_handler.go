package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
)

// ToggleFavoriteRequest identifies the outfit to toggle. A new favorite
// references its image either by object key (from a generate response)
// or by URL, which gets mirrored into the user's namespace first.
type ToggleFavoriteRequest struct {
	ID       string `json:"id"`
	ImageKey string `json:"image_key,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Occasion string `json:"occasion,omitempty"`
}

// ToggleFavoriteHandler adds or removes a favorite by id. Toggling is
// symmetric: present removes, absent inserts after the image is durable.
func ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Toggle Favorite API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ToggleFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	item := models.FavoriteItem{
		ID:       req.ID,
		ImageKey: req.ImageKey,
		Occasion: req.Occasion,
	}

	// A URL-only favorite is mirrored into our bucket so the collection
	// never depends on an expiring or third-party location.
	if item.ImageKey == "" && req.ImageURL != "" {
		key, err := utils.MirrorImageToS3(r.Context(), req.ImageURL, utils.FavoriteImageKey(s.UID(), item.ID))
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to store favorite image: %v", err), http.StatusInternalServerError)
			return
		}
		item.ImageKey = key
	}

	added, err := s.ToggleFavorite(r.Context(), item, nil)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Favorite %s now present=%v", item.ID, added))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        item.ID,
		"favorited": added,
	})
}

// FavoriteFeedbackRequest records like/dislike on a saved outfit.
type FavoriteFeedbackRequest struct {
	ID       string `json:"id"`
	Feedback string `json:"feedback"`
}

// FavoriteFeedbackHandler sets like/dislike feedback on a favorite.
func FavoriteFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Favorite Feedback API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FavoriteFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		utils.RespondError(w, &logMessageBuilder, "id is required", http.StatusBadRequest)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	if err := s.SetFeedback(req.ID, req.Feedback); err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Feedback saved"})
}

// favoriteView is a favorite with a display URL resolved from its key.
type favoriteView struct {
	models.FavoriteItem
	ImageURL string `json:"image_url"`
}

// ListFavoritesHandler returns the favorites grouped by occasion, newest
// first within each group, with presigned image URLs.
func ListFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := userStore(w, r, nil)
	if !ok {
		return
	}

	favorites := s.Favorites()
	keys := make([]string, len(favorites))
	for i, f := range favorites {
		keys[i] = f.ImageKey
	}
	urls := utils.PresignImageURLs(r.Context(), keys)

	groups := make(map[string][]favoriteView)
	for i, f := range favorites {
		occasion := f.Occasion
		if occasion == "" {
			occasion = "otros"
		}
		groups[occasion] = append(groups[occasion], favoriteView{FavoriteItem: f, ImageURL: urls[i]})
	}

	for _, views := range groups {
		sort.Slice(views, func(i, j int) bool {
			return views[i].Timestamp > views[j].Timestamp
		})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"favorites": groups,
		"total":     len(favorites),
	})
}
