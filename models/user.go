package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID         string             `bson:"uid" json:"uid"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"` // Password is not returned in JSON
	PhotoURL    string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	Provider    string             `bson:"provider" json:"provider"` // "google" or "password"
	Status      string             `bson:"status" json:"status"`     // pending, verified, active
	OTP         string             `bson:"otp,omitempty" json:"-"`   // OTP for email verification
	LastLoginAt time.Time          `bson:"last_login_at" json:"last_login_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Profile is the per-user styling document kept in the "profiles"
// collection, merge-updated one field group at a time. Every field is
// independently optional; image fields hold S3 object keys only.
type Profile struct {
	UID            string         `bson:"uid" json:"uid"`
	Email          string         `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName    string         `bson:"display_name,omitempty" json:"display_name,omitempty"`
	PhotoURL       string         `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	UserImageKey   string         `bson:"user_image_key,omitempty" json:"user_image_key,omitempty"`
	SelectedStyles []string       `bson:"selected_styles,omitempty" json:"selected_styles,omitempty"`
	Analysis       *Analysis      `bson:"analysis,omitempty" json:"analysis,omitempty"`
	Clothes        []ClothingItem `bson:"my_clothes,omitempty" json:"my_clothes,omitempty"`
	Favorites      []FavoriteItem `bson:"favorites,omitempty" json:"favorites,omitempty"`
	LastLogin      int64          `bson:"last_login,omitempty" json:"last_login,omitempty"`
}
