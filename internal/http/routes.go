package httpx

import (
	"log/slog"
	"net/http"

	"github.com/miked5167/directory-wizard/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Provisioner *service.ProvisionerService
	Status      *service.StatusService
	Logger      *slog.Logger // optional
}

// NewRouter creates and configures the API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	handlers := &ProvisionHandlers{
		Provisioner: services.Provisioner,
		Status:      services.Status,
	}

	mux.HandleFunc("POST /api/tenants/{id}/provision", handlers.Provision)
	mux.HandleFunc("GET /api/jobs/{id}/status", handlers.GetStatus)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", handlers.Cancel)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	return mux
}
