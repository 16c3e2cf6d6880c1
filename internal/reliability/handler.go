package reliability

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/verity/pkg/handlers"
	"github.com/JaimeStill/verity/pkg/routes"
)

// Handler exposes read-only diagnostics over a Store.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a Handler for the given store.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("handler", "reliability"),
	}
}

// Routes returns the route group definition for reliability endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reliability",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Stats},
			{Method: "GET", Pattern: "/weights", Handler: h.Weights},
		},
	}
}

// Stats returns the feedback counts and derived weight of every metric with feedback.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Weights returns the current metric weight map. Metrics absent from the map weigh 1.0.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	weights, err := h.store.Weights(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, weights)
}
