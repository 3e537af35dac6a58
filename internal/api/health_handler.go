package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/kotoba-api/internal/api/shared"
)

// Health handles GET /health. It does not touch the stores.
func Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}
