package models

// ClothingCategory is the fixed classification for wardrobe items
type ClothingCategory string

const (
	CategorySuperior    ClothingCategory = "superior"
	CategoryInferior    ClothingCategory = "inferior"
	CategoryShoes       ClothingCategory = "shoes"
	CategoryAccessories ClothingCategory = "accessories"
	CategoryOther       ClothingCategory = "other"
)

// IsValid reports whether c is one of the known categories.
func (c ClothingCategory) IsValid() bool {
	switch c {
	case CategorySuperior, CategoryInferior, CategoryShoes, CategoryAccessories, CategoryOther:
		return true
	}
	return false
}

// ClothingItem represents one garment in the user's wardrobe.
// ImageKey is the S3 object key, never an inline payload.
type ClothingItem struct {
	ID          string           `bson:"id" json:"id"`
	ImageKey    string           `bson:"image_key" json:"image_key"`
	Category    ClothingCategory `bson:"category" json:"category"`
	Description string           `bson:"description" json:"description"`
	Timestamp   int64            `bson:"timestamp" json:"timestamp"`
}
