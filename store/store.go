package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
)

// Documents is the remote document backend. Merge must apply a
// non-destructive partial update: fields not present in the map stay
// untouched on the remote side.
type Documents interface {
	Load(ctx context.Context, uid string) (*models.Profile, error)
	Merge(ctx context.Context, uid string, fields map[string]interface{}) error
}

// Blobs is the binary asset backend. Upload must complete before the
// resulting key is ever written to a document field.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

const persistTimeout = 10 * time.Second

// ProfilePatch is a partial update to the analysis record. Nil fields
// are left unchanged.
type ProfilePatch struct {
	Age         *int     `json:"age,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Gender      *string  `json:"gender,omitempty"`
	BodyType    *string  `json:"bodyType,omitempty"`
	Glasses     *string  `json:"glasses,omitempty"`
	Features    *string  `json:"features,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// UserStore is the in-memory source of truth for one signed-in user,
// kept consistent with the remote document. Mutations update memory
// synchronously and persist the affected field asynchronously with merge
// semantics. Persistence is best-effort: a failed write is logged, the
// in-memory state is not rolled back. Rapid successive mutations to the
// same field can complete out of order remotely; the last write to
// complete wins.
type UserStore struct {
	uid   string
	docs  Documents
	blobs Blobs

	mu             sync.Mutex
	userImageKey   string
	selectedStyles []string
	analysis       *models.Analysis
	clothes        []models.ClothingItem
	favorites      []models.FavoriteItem

	generating bool

	persists sync.WaitGroup
}

// NewUserStore creates an empty store for uid. Call Load to populate it
// from the remote document.
func NewUserStore(uid string, docs Documents, blobs Blobs) *UserStore {
	return &UserStore{uid: uid, docs: docs, blobs: blobs}
}

// UID returns the owning user id.
func (s *UserStore) UID() string { return s.uid }

// Load fetches the remote document once and populates whatever subset of
// fields is present. A missing document leaves the store empty.
func (s *UserStore) Load(ctx context.Context) error {
	profile, err := s.docs.Load(ctx, s.uid)
	if err != nil {
		return fmt.Errorf("failed to load profile for %s: %w", s.uid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if profile == nil {
		return nil
	}
	if profile.UserImageKey != "" {
		s.userImageKey = profile.UserImageKey
	}
	if profile.SelectedStyles != nil {
		s.selectedStyles = profile.SelectedStyles
	}
	if profile.Analysis != nil {
		s.analysis = profile.Analysis
	}
	if profile.Clothes != nil {
		s.clothes = profile.Clothes
	}
	if profile.Favorites != nil {
		s.favorites = profile.Favorites
	}
	return nil
}

// persist writes one field group to the remote document in the
// background.
func (s *UserStore) persist(fields map[string]interface{}) {
	s.persists.Add(1)
	go func() {
		defer s.persists.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.docs.Merge(ctx, s.uid, fields); err != nil {
			log.Printf("Failed to persist %v for user %s: %v", fieldNames(fields), s.uid, err)
		}
	}()
}

func fieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	return names
}

// Flush waits for all in-flight persistence calls. Used by logout and
// graceful shutdown.
func (s *UserStore) Flush() {
	s.persists.Wait()
}

// Snapshot returns a copy of the current in-memory profile.
func (s *UserStore) Snapshot() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Profile{
		UID:            s.uid,
		UserImageKey:   s.userImageKey,
		SelectedStyles: append([]string(nil), s.selectedStyles...),
		Analysis:       s.analysis,
		Clothes:        append([]models.ClothingItem(nil), s.clothes...),
		Favorites:      append([]models.FavoriteItem(nil), s.favorites...),
	}
}

// UserImageKey returns the durable key of the base photo, if any.
func (s *UserStore) UserImageKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userImageKey
}

// SetUserImage uploads the base photo and records its durable key. The
// upload happens before the key touches memory or the document, so a raw
// inline image is never the only durable representation.
func (s *UserStore) SetUserImage(ctx context.Context, jpegImage []byte) (string, error) {
	key := utils.UserImageKey(s.uid)
	if err := s.blobs.Upload(ctx, key, jpegImage, "image/jpeg"); err != nil {
		return "", fmt.Errorf("failed to upload user image: %w", err)
	}

	s.mu.Lock()
	s.userImageKey = key
	s.mu.Unlock()

	s.persist(map[string]interface{}{"user_image_key": key})
	return key, nil
}

// Analysis returns the current analysis, or nil.
func (s *UserStore) Analysis() *models.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// SetAnalysis replaces the analysis record.
func (s *UserStore) SetAnalysis(a *models.Analysis) {
	s.mu.Lock()
	s.analysis = a
	s.mu.Unlock()
	s.persist(map[string]interface{}{"analysis": a})
}

// SetStyles replaces the selected style tags (at most 3).
func (s *UserStore) SetStyles(styles []string) error {
	if len(styles) > 3 {
		return fmt.Errorf("at most 3 style tags allowed, got %d", len(styles))
	}
	s.mu.Lock()
	s.selectedStyles = append([]string(nil), styles...)
	s.mu.Unlock()
	s.persist(map[string]interface{}{"selected_styles": styles})
	return nil
}

// UpdateProfile merges a partial edit into the analysis record.
func (s *UserStore) UpdateProfile(patch ProfilePatch) error {
	s.mu.Lock()
	if s.analysis == nil {
		s.mu.Unlock()
		return fmt.Errorf("no analysis to update")
	}

	updated := *s.analysis
	if patch.Age != nil {
		updated.Age = *patch.Age
	}
	if patch.Weight != nil {
		updated.Weight = *patch.Weight
	}
	if patch.Height != nil {
		updated.Height = *patch.Height
	}
	if patch.Gender != nil {
		updated.Gender = *patch.Gender
	}
	if patch.BodyType != nil {
		updated.BodyType = *patch.BodyType
	}
	if patch.Glasses != nil {
		updated.Glasses = *patch.Glasses
	}
	if patch.Features != nil {
		updated.Features = *patch.Features
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	s.analysis = &updated
	snapshot := s.analysis
	s.mu.Unlock()

	s.persist(map[string]interface{}{"analysis": snapshot})
	return nil
}

// Clothes returns a copy of the wardrobe collection.
func (s *UserStore) Clothes() []models.ClothingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ClothingItem(nil), s.clothes...)
}

// ClothesByID returns the wardrobe items matching the given ids,
// preserving wardrobe order.
func (s *UserStore) ClothesByID(ids []string) []models.ClothingItem {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ClothingItem
	for _, item := range s.clothes {
		if wanted[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// AddClothingItem uploads the garment image and appends the item to the
// wardrobe. The description may be empty when the describe stage failed;
// saving is never blocked on it.
func (s *UserStore) AddClothingItem(ctx context.Context, jpegImage []byte, category models.ClothingCategory, description string) (models.ClothingItem, error) {
	if !category.IsValid() {
		return models.ClothingItem{}, fmt.Errorf("unknown clothing category %q", category)
	}

	item := models.ClothingItem{
		ID:          uuid.New().String(),
		Category:    category,
		Description: description,
		Timestamp:   time.Now().UnixMilli(),
	}
	item.ImageKey = utils.ClothingImageKey(s.uid, item.ID)

	if err := s.blobs.Upload(ctx, item.ImageKey, jpegImage, "image/jpeg"); err != nil {
		return models.ClothingItem{}, fmt.Errorf("failed to upload clothing image: %w", err)
	}

	s.mu.Lock()
	s.clothes = append(s.clothes, item)
	snapshot := append([]models.ClothingItem(nil), s.clothes...)
	s.mu.Unlock()

	s.persist(map[string]interface{}{"my_clothes": snapshot})
	return item, nil
}

// RemoveClothingItem deletes a wardrobe item by id. Removing an absent
// id is a no-op.
func (s *UserStore) RemoveClothingItem(id string) {
	s.mu.Lock()
	kept := s.clothes[:0:0]
	for _, item := range s.clothes {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.clothes = kept
	snapshot := append([]models.ClothingItem(nil), s.clothes...)
	s.mu.Unlock()

	s.persist(map[string]interface{}{"my_clothes": snapshot})
}

// Favorites returns a copy of the favorites collection.
func (s *UserStore) Favorites() []models.FavoriteItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FavoriteItem(nil), s.favorites...)
}

// ToggleFavorite is idempotent by id: present removes, absent inserts.
// An insert with raw image bytes uploads them first so only a durable
// key reaches the collection. Returns whether the item is now present.
func (s *UserStore) ToggleFavorite(ctx context.Context, item models.FavoriteItem, jpegImage []byte) (bool, error) {
	s.mu.Lock()
	if s.hasFavoriteLocked(item.ID) {
		kept := s.favorites[:0:0]
		for _, f := range s.favorites {
			if f.ID != item.ID {
				kept = append(kept, f)
			}
		}
		s.favorites = kept
		snapshot := append([]models.FavoriteItem(nil), s.favorites...)
		s.mu.Unlock()

		s.persist(map[string]interface{}{"favorites": snapshot})
		return false, nil
	}
	s.mu.Unlock()

	// The upload happens outside the lock; the insert below re-checks so
	// two racing inserts of the same id cannot both land.
	if item.ImageKey == "" {
		if len(jpegImage) == 0 {
			return false, fmt.Errorf("favorite has neither a durable image key nor image data")
		}
		key := utils.FavoriteImageKey(s.uid, item.ID)
		if err := s.blobs.Upload(ctx, key, jpegImage, "image/jpeg"); err != nil {
			return false, fmt.Errorf("failed to upload favorite image: %w", err)
		}
		item.ImageKey = key
	}
	if item.Timestamp == 0 {
		item.Timestamp = time.Now().UnixMilli()
	}

	s.mu.Lock()
	if s.hasFavoriteLocked(item.ID) {
		s.mu.Unlock()
		return true, nil
	}
	s.favorites = append(s.favorites, item)
	snapshot := append([]models.FavoriteItem(nil), s.favorites...)
	s.mu.Unlock()

	s.persist(map[string]interface{}{"favorites": snapshot})
	return true, nil
}

func (s *UserStore) hasFavoriteLocked(id string) bool {
	for _, f := range s.favorites {
		if f.ID == id {
			return true
		}
	}
	return false
}

// SetFeedback records like/dislike feedback on a favorite.
func (s *UserStore) SetFeedback(id, feedback string) error {
	if feedback != "like" && feedback != "dislike" {
		return fmt.Errorf("feedback must be like or dislike, got %q", feedback)
	}

	s.mu.Lock()
	found := false
	for i := range s.favorites {
		if s.favorites[i].ID == id {
			s.favorites[i].Feedback = feedback
			found = true
			break
		}
	}
	snapshot := append([]models.FavoriteItem(nil), s.favorites...)
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("favorite %s not found", id)
	}
	s.persist(map[string]interface{}{"favorites": snapshot})
	return nil
}

// TryBeginGeneration claims the per-user generation slot. Only one
// outfit generation may be in flight per user; callers that get false
// must reject the request.
func (s *UserStore) TryBeginGeneration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return false
	}
	s.generating = true
	return true
}

// EndGeneration releases the generation slot.
func (s *UserStore) EndGeneration() {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
}

// Reset clears every in-memory collection. Called on logout so nothing
// of a previous identity survives.
func (s *UserStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userImageKey = ""
	s.selectedStyles = nil
	s.analysis = nil
	s.clothes = nil
	s.favorites = nil
	s.generating = false
}
