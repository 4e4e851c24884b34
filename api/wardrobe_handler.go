package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
)

// AddClothingHandler uploads a garment photo, asks the model for a
// description and category, and saves the item. The AI description is
// advisory: when the call fails the item is saved with whatever the
// user typed (possibly nothing) and the description stays editable.
func AddClothingHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Add Clothing API]")

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

	description := r.FormValue("description")
	category := models.ClothingCategory(r.FormValue("category"))

	if description == "" || category == "" {
		desc, err := AI.DescribeClothing(r.Context(), data)
		if err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Describe stage failed (advisory): %v", err))
		} else {
			if description == "" {
				description = desc.Description
			}
			if category == "" {
				category = desc.Category
			}
		}
	}
	if category == "" {
		category = models.CategoryOther
	}
	if !category.IsValid() {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Unknown category %q", category), http.StatusBadRequest)
		return
	}

	item, err := s.AddClothingItem(r.Context(), data, category, description)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to save clothing item: %v", err), http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Added clothing item %s (%s)", item.ID, item.Category))

	imageURL, _ := utils.GetPresignedURL(r.Context(), item.ImageKey)
	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"item":      item,
		"image_url": imageURL,
	})
}

// ListClothingHandler returns the wardrobe with presigned image URLs.
func ListClothingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s, ok := userStore(w, r, nil)
	if !ok {
		return
	}

	items := s.Clothes()
	type clothingView struct {
		models.ClothingItem
		ImageURL string `json:"image_url"`
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.ImageKey
	}
	urls := utils.PresignImageURLs(r.Context(), keys)

	views := make([]clothingView, 0, len(items))
	for i, item := range items {
		views = append(views, clothingView{ClothingItem: item, ImageURL: urls[i]})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

// RemoveClothingHandler deletes a wardrobe item by id
// (DELETE /wardrobe/{id}).
func RemoveClothingHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Remove Clothing API]")

	if r.Method != http.MethodDelete {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/wardrobe/")
	if id == "" || strings.Contains(id, "/") {
		utils.RespondError(w, &logMessageBuilder, "Item id is required", http.StatusBadRequest)
		return
	}

	s, ok := userStore(w, r, &logMessageBuilder)
	if !ok {
		return
	}

	s.RemoveClothingItem(id)
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Removed clothing item %s", id))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Item removed"})
}
