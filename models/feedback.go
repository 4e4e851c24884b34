package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feedback represents user feedback about the app
type Feedback struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID         string             `bson:"uid" json:"uid"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Message     string             `bson:"message" json:"message"`
	ContactBack bool               `bson:"contact_back" json:"contact_back"`
	ImageKeys   []string           `bson:"image_keys,omitempty" json:"image_keys,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
