package api

import (
	"net/http"
	"skrytka-plikow/internal/auth"
	"skrytka-plikow/internal/websocket"

	"go.uber.org/zap"
)

// ServeWsHandler wpina przeglądarkę do huba powiadomień. Token idzie w query,
// bo przeglądarkowe API websocketów nie pozwala ustawić nagłówka. Bramka jest
// ta sama co w AuthMiddleware: ważny token, istniejący i aktywny użytkownik.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		unauthorized(w)
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		unauthorized(w)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("Nie udało się pobrać użytkownika dla połączenia ws", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		unauthorized(w)
		return
	}
	if !user.IsActive {
		http.Error(w, "Inactive user", http.StatusForbidden)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Nie udało się podnieść połączenia websocket", zap.Error(err))
		return
	}

	client := websocket.NewClient(s.wsHub, conn, user.ID)
	s.wsHub.Register <- client

	go client.ReadPump()
	go client.WritePump()
}
