package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedbackHandler handles app feedback submission. Attached screenshots
// go to S3; when the user asks to be contacted back, support gets an
// email.
func FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	logMessageBuilder := strings.Builder{}
	utils.AddToLogMessage(&logMessageBuilder, "[Feedback API]")
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")
	message := r.FormValue("message")
	contactBack := r.FormValue("contact_back") == "true"

	if name == "" || email == "" || message == "" {
		utils.RespondError(w, &logMessageBuilder, "Name, email, and message are required", http.StatusBadRequest)
		return
	}

	var imageKeys []string
	files := r.MultipartForm.File["files"]
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Error opening file %s", file.Filename), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		ext := filepath.Ext(file.Filename)
		objectKey := fmt.Sprintf("feedback/%s/%s%s", uid, uuid.New().String(), ext)

		key, err := utils.UploadFileToS3(r.Context(), f, objectKey, file.Header.Get("Content-Type"))
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Error uploading file %s", file.Filename), http.StatusInternalServerError)
			return
		}
		imageKeys = append(imageKeys, key)
	}

	feedback := models.Feedback{
		ID:          primitive.NewObjectID(),
		UID:         uid,
		Name:        name,
		Email:       email,
		Message:     message,
		ContactBack: contactBack,
		ImageKeys:   imageKeys,
		CreatedAt:   time.Now(),
	}

	collection := utils.GetCollection("feedbacks")
	if _, err := collection.InsertOne(context.TODO(), feedback); err != nil {
		utils.RespondError(w, &logMessageBuilder, "Error saving feedback", http.StatusInternalServerError)
		return
	}

	if contactBack {
		if err := utils.SendEmail("Soporte Luce", "support@lucestyle.app", "Nueva solicitud de contacto",
			fmt.Sprintf("%s (%s) pide contacto:\n\n%s", name, email, message),
			fmt.Sprintf("<p><strong>%s</strong> (%s) pide contacto:</p><p>%s</p>", name, email, message)); err != nil {
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Failed to notify support: %v", err))
		}
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{"message": "Feedback submitted successfully"})
}
