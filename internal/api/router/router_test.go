package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/http/handlers"
	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
	"github.com/cliniccall/cliniccall-ai/internal/urgent"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	l := ledger.New(nil)
	l.SeedDefaults()
	repo := patients.NewInMemoryRepository()

	return New(&Config{
		SlotsHandler:        handlers.NewSlotsHandler(l, nil),
		AppointmentsHandler: handlers.NewAppointmentsHandler(l, repo, nil, nil),
		UrgentCasesHandler:  handlers.NewUrgentCasesHandler(urgent.NewStore(), nil),
		AuthJWTSecret:       "test-secret",
		VoiceAPIToken:       "voice-token",
	})
}

func bearerToken(t *testing.T, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "staff",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSlotsRouteIsPublic(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/slots?department=Dermatology", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookRouteRequiresJWT(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/appointments/book", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no credential")

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/book", bytes.NewReader(nil))
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "invalid credential")
}

func TestBookRouteWithJWT(t *testing.T) {
	r := newTestRouter(t)

	// Find a slot through the public endpoint first.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/slots?department=Cardiology", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var slotsResp struct {
		Slots []ledger.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slotsResp))
	require.NotEmpty(t, slotsResp.Slots)

	body, _ := json.Marshal(handlers.BookRequest{
		SlotID:       slotsResp.Slots[0].ID,
		PatientName:  "Jane Doe",
		PatientPhone: "415-555-0100",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/book", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "test-secret"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUrgentCasesRouteRequiresJWT(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/urgent-cases", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/urgent-cases", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "test-secret"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVoiceBookRouteRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/appointments/voice-book", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/voice-book", bytes.NewReader(nil))
	req.Header.Set("X-Voice-Token", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVoiceBookRouteWithToken(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/slots?department=Pediatrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var slotsResp struct {
		Slots []ledger.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slotsResp))
	require.NotEmpty(t, slotsResp.Slots)

	body, _ := json.Marshal(handlers.BookRequest{
		SlotID:       slotsResp.Slots[0].ID,
		PatientName:  "Caller",
		PatientPhone: "646-555-0123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/voice-book", bytes.NewReader(body))
	req.Header.Set("X-Voice-Token", "voice-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
