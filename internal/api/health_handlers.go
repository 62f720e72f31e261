package api

import (
	"net/http"

	"go.uber.org/zap"
)

// @Summary      Health check
// @Description  Reports whether the service and its database are reachable.
// @Tags         health
// @Produce      json
// @Success      200  {string}  string "{\"status\":\"ok\"}"
// @Failure      503  {string}  string "database unreachable"
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		s.logger.Error("Health check nie przeszedł", zap.Error(err))
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
