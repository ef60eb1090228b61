package handlers

import (
	"net/http"

	"github.com/cliniccall/cliniccall-ai/internal/urgent"
	"github.com/cliniccall/cliniccall-ai/pkg/logging"
)

// UrgentCasesHandler exposes escalated cases to clinical staff.
type UrgentCasesHandler struct {
	store  *urgent.Store
	logger *logging.Logger
}

// NewUrgentCasesHandler creates an urgent cases handler.
func NewUrgentCasesHandler(store *urgent.Store, logger *logging.Logger) *UrgentCasesHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &UrgentCasesHandler{store: store, logger: logger}
}

// List returns all urgent cases, newest first.
func (h *UrgentCasesHandler) List(w http.ResponseWriter, r *http.Request) {
	cases := h.store.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"cases": cases,
		"count": len(cases),
	})
}
