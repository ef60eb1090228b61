package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/ledger"
)

func TestListSlotsFiltersByDepartment(t *testing.T) {
	l := ledger.New(nil)
	l.SeedDefaults()
	h := NewSlotsHandler(l, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/slots?department=Dermatology", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slots []ledger.Slot `json:"slots"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Slots)
	assert.Equal(t, len(resp.Slots), resp.Count)
	for _, s := range resp.Slots {
		assert.Equal(t, "Dermatology", s.Department)
	}
}

func TestListSlotsAll(t *testing.T) {
	l := ledger.New(nil)
	l.SeedDefaults()
	h := NewSlotsHandler(l, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/slots", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Positive(t, resp.Count)
}
