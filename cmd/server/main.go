// @title           Skrytka Plików API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skrytka-plikow/internal/api"
	"skrytka-plikow/internal/config"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/storage"
	"skrytka-plikow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	_ "skrytka-plikow/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Nie można wczytać konfiguracji", zap.Error(err))
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		logger.Fatal("Nie można połączyć się z bazą danych", zap.Error(err))
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		logger.Fatal("Nie można pingować bazy danych", zap.Error(err))
	}
	logger.Info("Pomyślnie połączono z bazą danych")

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("Nie można zainicjować local storage", zap.Error(err))
	}
	logger.Info("Pliki będą przechowywane lokalnie", zap.String("path", cfg.Storage.Path))

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	store := database.NewStore(dbpool)
	server := api.NewServer(cfg, store, localStorage, wsHub, logger)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(server.RequestLogger)
	r.Use(api.MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Skrytka plików działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", server.LoginHandler)
	r.Get("/logout", server.LogoutHandler)
	r.Post("/api/v1/auth/register", server.RegisterHandler)
	r.Post("/api/v1/auth/token", server.TokenHandler)

	// Pobieranie siedzi poza /api/v1, żeby linki z maili były krótkie.
	r.With(server.AuthMiddleware).Get("/download/{storedFilename}", server.DownloadFileHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)
		r.Get("/me", server.GetCurrentUserHandler)
		r.Post("/files", server.UploadFileHandler)
		r.Get("/files", server.ListOwnedFilesHandler)
		r.Get("/files/received", server.ListReceivedFilesHandler)
		r.Delete("/files/{fileId}", server.DeleteFileHandler)
		r.Get("/events", server.GetEventsHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(server.AdminMiddleware)
			r.Get("/users", server.ListUsersHandler)
			r.Get("/files", server.ListAllFilesHandler)
			r.Patch("/users/{userId}", server.UpdateUserHandler)
			r.Delete("/users/{userId}", server.DeleteUserHandler)
			r.Delete("/files/{fileId}", server.PurgeFileHandler)
		})
	})

	// Brak Read/WriteTimeout: transfery dużych plików bywają dłuższe niż
	// jakikolwiek rozsądny limit, nagłówki pilnuje ReadHeaderTimeout.
	srv := &http.Server{
		Addr:              cfg.AppHost,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Uruchamianie serwera", zap.String("addr", cfg.AppHost))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Nie można uruchomić serwera", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Otrzymano sygnał zakończenia, zamykanie serwera")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Błąd przy zamykaniu serwera", zap.Error(err))
	}
	logger.Info("Serwer zakończył pracę")
}
