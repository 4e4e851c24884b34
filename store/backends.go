package store

import (
	"bytes"
	"context"
	"time"

	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const profilesCollection = "profiles"

// mongoDocuments stores one profile document per uid, merge-updated with
// $set so untouched fields survive every write.
type mongoDocuments struct{}

// NewMongoDocuments returns the MongoDB-backed document store.
func NewMongoDocuments() Documents {
	return mongoDocuments{}
}

func (mongoDocuments) Load(ctx context.Context, uid string) (*models.Profile, error) {
	collection := utils.GetCollection(profilesCollection)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var profile models.Profile
	err := collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (mongoDocuments) Merge(ctx context.Context, uid string, fields map[string]interface{}) error {
	collection := utils.GetCollection(profilesCollection)

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	_, err := collection.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

// s3Blobs uploads binary assets through the shared S3 client.
type s3Blobs struct{}

// NewS3Blobs returns the S3-backed blob store.
func NewS3Blobs() Blobs {
	return s3Blobs{}
}

func (s3Blobs) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := utils.UploadFileToS3(ctx, bytes.NewReader(data), key, contentType)
	return err
}
