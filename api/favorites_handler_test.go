package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/store"
)

type stubDocs struct {
	profile *models.Profile
}

func (d stubDocs) Load(ctx context.Context, uid string) (*models.Profile, error) {
	return d.profile, nil
}

func (d stubDocs) Merge(ctx context.Context, uid string, fields map[string]interface{}) error {
	return nil
}

type stubBlobs struct{}

func (stubBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func authedRequest(method, target, uid string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(context.WithValue(req.Context(), userIDKey, uid))
}

func TestListFavoritesGroupedByOccasion(t *testing.T) {
	Init(store.NewRegistry(stubDocs{profile: &models.Profile{
		UID: "u1",
		Favorites: []models.FavoriteItem{
			{ID: "a", ImageKey: "https://cdn.example.com/a.jpg", Occasion: "gala", Timestamp: 1},
			{ID: "b", ImageKey: "https://cdn.example.com/b.jpg", Occasion: "gala", Timestamp: 2},
			{ID: "c", ImageKey: "https://cdn.example.com/c.jpg", Timestamp: 3},
		},
	}}, stubBlobs{}), nil)

	rec := httptest.NewRecorder()
	ListFavoritesHandler(rec, authedRequest(http.MethodGet, "/favorites", "u1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Favorites map[string][]struct {
			ID       string `json:"id"`
			ImageURL string `json:"image_url"`
		} `json:"favorites"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d", resp.Total)
	}

	gala := resp.Favorites["gala"]
	if len(gala) != 2 || gala[0].ID != "b" || gala[1].ID != "a" {
		t.Fatalf("gala group not newest-first: %+v", gala)
	}
	otros := resp.Favorites["otros"]
	if len(otros) != 1 || otros[0].ID != "c" {
		t.Fatalf("unbucketed favorite not under otros: %+v", otros)
	}
	if gala[0].ImageURL != "https://cdn.example.com/b.jpg" {
		t.Fatalf("http image reference must pass through unchanged, got %q", gala[0].ImageURL)
	}
}

func TestListClothingResolvesImageURLs(t *testing.T) {
	Init(store.NewRegistry(stubDocs{profile: &models.Profile{
		UID: "u1",
		Clothes: []models.ClothingItem{
			{ID: "c1", ImageKey: "https://cdn.example.com/c1.jpg", Category: models.CategorySuperior},
		},
	}}, stubBlobs{}), nil)

	rec := httptest.NewRecorder()
	ListClothingHandler(rec, authedRequest(http.MethodGet, "/wardrobe", "u1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Items []struct {
			ID       string `json:"id"`
			ImageURL string `json:"image_url"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ImageURL != "https://cdn.example.com/c1.jpg" {
		t.Fatalf("items = %+v", resp.Items)
	}
}
