package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lucelabs/luce-styling-api/config"
	"github.com/lucelabs/luce-styling-api/models"
	"github.com/lucelabs/luce-styling-api/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func getOauthConfig() *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  config.GoogleRedirectURL,
		ClientID:     config.GoogleClientID,
		ClientSecret: config.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleLoginHandler handles the login request by redirecting to Google
func GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Google Login API]")

	oauthConfig := getOauthConfig()
	// State should be randomized for security in production
	url := oauthConfig.AuthCodeURL("random-state")

	utils.AddToLogMessage(&logMessageBuilder, "Redirecting to Google Auth")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// googleUserInfo is the subset of the userinfo response we keep.
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleCallbackHandler exchanges the OAuth code, upserts the user
// record and issues a session token. The styling profile itself loads
// lazily on the first authenticated request.
func GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Google Callback API]")

	state := r.FormValue("state")
	if state != "random-state" {
		utils.RespondError(w, &logMessageBuilder, "State invalid", http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	if code == "" {
		utils.RespondError(w, &logMessageBuilder, "Code not found", http.StatusBadRequest)
		return
	}

	oauthConfig := getOauthConfig()
	token, err := oauthConfig.Exchange(context.Background(), code)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to exchange token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to get user info: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Failed to read user info: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var info googleUserInfo
	if err := json.Unmarshal(content, &info); err != nil || info.ID == "" {
		utils.RespondError(w, &logMessageBuilder, "Unexpected user info response", http.StatusInternalServerError)
		return
	}

	uid := "google:" + info.ID
	now := time.Now()

	collection := utils.GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = collection.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$set": bson.M{
				"uid":           uid,
				"name":          info.Name,
				"email":         info.Email,
				"photo_url":     info.Picture,
				"provider":      "google",
				"status":        "active",
				"last_login_at": now,
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to save user: %v", err), http.StatusInternalServerError)
		return
	}

	sessionToken, err := utils.GenerateToken(uid)
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, fmt.Sprintf("Failed to generate token: %v", err), http.StatusInternalServerError)
		return
	}

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Google login successful for %s", uid))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   sessionToken,
		"user": models.User{
			UID:      uid,
			Name:     info.Name,
			Email:    info.Email,
			PhotoURL: info.Picture,
			Provider: "google",
			Status:   "active",
		},
	})
}

// LogoutHandler drops the user's in-memory state entirely. A later
// sign-in by any identity starts from its own remote document.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Logout API]")

	if r.Method != http.MethodPost {
		utils.RespondError(w, &logMessageBuilder, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uid, err := GetUserIDFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, "Unauthorized", http.StatusUnauthorized)
		return
	}

	Stores.Remove(uid)
	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Logged out %s", uid))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
