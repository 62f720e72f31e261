package api

import (
	"skrytka-plikow/internal/config"
	"skrytka-plikow/internal/database"
	"skrytka-plikow/internal/storage"
	"skrytka-plikow/internal/websocket"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	store    *database.Store
	storage  *storage.LocalStorage
	wsHub    *websocket.Hub
	logger   *zap.Logger
	validate *validator.Validate
}

func NewServer(cfg *config.Config, store *database.Store, storage *storage.LocalStorage, wsHub *websocket.Hub, logger *zap.Logger) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		storage:  storage,
		wsHub:    wsHub,
		logger:   logger,
		validate: validator.New(),
	}
}
