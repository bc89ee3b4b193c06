package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"movieverse/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	favoritesHandler *handlers.FavoritesHandler,
	usersHandler *handlers.UsersHandler,
	metadataHandler *handlers.MetadataHandler,
	syncHandler *handlers.SyncHandler,
	settingsHandler *handlers.SettingsHandler,
	verifier handlers.TokenVerifier,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Auth routes
	api.HandleFunc("/users/signup", usersHandler.Signup).Methods(http.MethodPost)
	api.HandleFunc("/users/signup", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/users/login", usersHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/users/login", handleOptions).Methods(http.MethodOptions)

	// Favorites routes. The clear route must come before the movie id
	// route: mux matches in registration order and "clear" would otherwise
	// be captured as a movie id.
	api.HandleFunc("/favorites", favoritesHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/favorites", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/update-posters/{userId}", favoritesHandler.UpdatePosters).Methods(http.MethodPost)
	api.HandleFunc("/favorites/update-posters/{userId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{userId}", favoritesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{userId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{userId}/check/{movieId}", favoritesHandler.Check).Methods(http.MethodGet)
	api.HandleFunc("/favorites/{userId}/check/{movieId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{userId}/cleanup-duplicates", favoritesHandler.CleanupDuplicates).Methods(http.MethodPost)
	api.HandleFunc("/favorites/{userId}/cleanup-duplicates", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{userId}/clear", favoritesHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/favorites/{userId}/clear", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{userId}/{movieId}", favoritesHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/favorites/{userId}/{movieId}", handleOptions).Methods(http.MethodOptions)

	// Sync routes
	api.HandleFunc("/sync/{userId}", syncHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/sync/{userId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/sync/{userId}/replay", syncHandler.Replay).Methods(http.MethodPost)
	api.HandleFunc("/sync/{userId}/replay", handleOptions).Methods(http.MethodOptions)

	// Metadata discovery routes
	api.HandleFunc("/metadata/trending", metadataHandler.Trending).Methods(http.MethodGet)
	api.HandleFunc("/metadata/trending", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/search", metadataHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/metadata/search", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/movies/{movieId}", metadataHandler.MovieDetails).Methods(http.MethodGet)
	api.HandleFunc("/metadata/movies/{movieId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/anime/search", metadataHandler.AnimeSearch).Methods(http.MethodGet)
	api.HandleFunc("/metadata/anime/search", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/anime/top", metadataHandler.TopAnime).Methods(http.MethodGet)
	api.HandleFunc("/metadata/anime/top", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/anime/{malId}", metadataHandler.AnimeDetails).Methods(http.MethodGet)
	api.HandleFunc("/metadata/anime/{malId}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/metadata/trailer", metadataHandler.Trailer).Methods(http.MethodGet)
	api.HandleFunc("/metadata/trailer", handleOptions).Methods(http.MethodOptions)

	// Settings routes hold API keys, so they require a signed-in user.
	api.HandleFunc("/settings", handlers.RequireAuth(verifier, settingsHandler.GetSettings)).Methods(http.MethodGet)
	api.HandleFunc("/settings", handlers.RequireAuth(verifier, settingsHandler.PutSettings)).Methods(http.MethodPut)
	api.HandleFunc("/settings", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/settings/cache/clear", handlers.RequireAuth(verifier, settingsHandler.ClearMetadataCache)).Methods(http.MethodPost)
	api.HandleFunc("/settings/cache/clear", handleOptions).Methods(http.MethodOptions)
}
