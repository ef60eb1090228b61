package handlers

import (
	"net/http"

	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// SlotsHandler serves slot availability lookups.
type SlotsHandler struct {
	ledger *ledger.Ledger
	logger *logging.Logger
}

// NewSlotsHandler creates a slots handler.
func NewSlotsHandler(l *ledger.Ledger, logger *logging.Logger) *SlotsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotsHandler{ledger: l, logger: logger}
}

// List returns known slots, optionally filtered by ?department=.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	slots := h.ledger.ListSlots(r.Context(), department)
	writeJSON(w, http.StatusOK, map[string]any{
		"slots": slots,
		"count": len(slots),
	})
}
