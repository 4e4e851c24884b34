package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/lucelabs/luce-styling-api/api"
	"github.com/lucelabs/luce-styling-api/config"
	"github.com/lucelabs/luce-styling-api/gemini"
	"github.com/lucelabs/luce-styling-api/store"
	"github.com/lucelabs/luce-styling-api/utils"
)

func main() {
	config.LoadConfig()

	// Initialize MongoDB
	if err := utils.ConnectMongo(config.MongoURI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer utils.DisconnectMongo()

	// Initialize S3
	if err := utils.InitS3(); err != nil {
		log.Fatalf("Failed to initialize S3: %v", err)
	}

	// Initialize Gemini
	ai, err := gemini.NewClient(context.Background(), config.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer ai.Close()

	api.Init(store.NewRegistry(store.NewMongoDocuments(), store.NewS3Blobs()), ai)

	// CORS Middleware
	corsMiddleware := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Auth
	http.HandleFunc("/auth/google/login", corsMiddleware(api.GoogleLoginHandler))
	http.HandleFunc("/auth/google/callback", corsMiddleware(api.GoogleCallbackHandler))
	http.HandleFunc("/auth/signup", corsMiddleware(api.SignupHandler))
	http.HandleFunc("/auth/verify-otp", corsMiddleware(api.VerifyOTPHandler))
	http.HandleFunc("/auth/login", corsMiddleware(api.LoginHandler))
	http.HandleFunc("/auth/logout", corsMiddleware(api.AuthMiddleware(api.LogoutHandler)))

	// Capture and analysis pipeline
	http.HandleFunc("/camera/frame-check", corsMiddleware(api.FrameCheckHandler))
	http.HandleFunc("/analysis/validate", corsMiddleware(api.AuthMiddleware(api.ValidateImageHandler)))
	http.HandleFunc("/analysis/analyze", corsMiddleware(api.AuthMiddleware(api.AnalyzeHandler)))

	// Profile
	http.HandleFunc("/profile", corsMiddleware(api.AuthMiddleware(api.ProfileHandler)))
	http.HandleFunc("/profile/styles", corsMiddleware(api.AuthMiddleware(api.StylesHandler)))

	// Wardrobe
	http.HandleFunc("/wardrobe", corsMiddleware(api.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			api.AddClothingHandler(w, r)
			return
		}
		api.ListClothingHandler(w, r)
	})))
	http.HandleFunc("/wardrobe/", corsMiddleware(api.AuthMiddleware(api.RemoveClothingHandler)))

	// Favorites
	http.HandleFunc("/favorites", corsMiddleware(api.AuthMiddleware(api.ListFavoritesHandler)))
	http.HandleFunc("/favorites/toggle", corsMiddleware(api.AuthMiddleware(api.ToggleFavoriteHandler)))
	http.HandleFunc("/favorites/feedback", corsMiddleware(api.AuthMiddleware(api.FavoriteFeedbackHandler)))

	// Outfit simulation
	http.HandleFunc("/outfit/generate", corsMiddleware(api.AuthMiddleware(api.GenerateOutfitHandler)))

	// Feedback
	http.HandleFunc("/feedback", corsMiddleware(api.AuthMiddleware(api.FeedbackHandler)))

	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	port := config.Port
	fmt.Printf("Server starting on port %s...\n", port)
	if err := http.ListenAndServe(":"+port, utils.LatencyMiddleware(http.DefaultServeMux)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
