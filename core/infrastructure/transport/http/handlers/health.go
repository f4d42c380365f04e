package handlers

import (
	"net/http"

	"github.com/semlayer/semlayer/core/infrastructure/transport/http/dto"
)

// Heartbeat reports that the server is up
func Heartbeat(version string) http.HandlerFunc {
	h := NewBaseHandler("http:heartbeat")
	return func(w http.ResponseWriter, r *http.Request) {
		h.WriteSuccess(w, dto.HealthResponse{Healthy: true, Version: version})
	}
}
