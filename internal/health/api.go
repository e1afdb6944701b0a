package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Api struct {
	statusService *Service
}

func NewApi(statusService *Service) *Api {
	return &Api{
		statusService: statusService,
	}
}

func (api *Api) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.statusService.IsShuttingDown() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "shutting down"}); err != nil {
			slog.Error("failed to encode health response", "err", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("failed to encode health response", "err", err)
	}
}
