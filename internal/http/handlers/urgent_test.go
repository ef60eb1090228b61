package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/triage"
	"github.com/cliniccall/cliniccall-ai/internal/urgent"
)

func TestListUrgentCases(t *testing.T) {
	store := urgent.NewStore()
	store.Create(context.Background(), "p1", triage.Result{
		Severity: triage.SeverityEmergency,
		Summary:  "Chest pain reported.",
		Escalate: true,
	}, "I'm having chest pain")

	h := NewUrgentCasesHandler(store, nil)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/urgent-cases", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Cases []urgent.Case `json:"cases"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, triage.SeverityEmergency, resp.Cases[0].Severity)
}
