package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniccall/cliniccall-ai/internal/convo"
	"github.com/cliniccall/cliniccall-ai/internal/directory"
	"github.com/cliniccall/cliniccall-ai/internal/intent"
	"github.com/cliniccall/cliniccall-ai/internal/ledger"
	"github.com/cliniccall/cliniccall-ai/internal/notify"
	"github.com/cliniccall/cliniccall-ai/internal/observability/metrics"
	"github.com/cliniccall/cliniccall-ai/internal/patients"
	"github.com/cliniccall/cliniccall-ai/internal/triage"
	"github.com/cliniccall/cliniccall-ai/internal/urgent"
)

type staticSearcher struct{}

func (staticSearcher) Search(_ context.Context, _, _ string) ([]directory.Provider, string, error) {
	return []directory.Provider{{NPI: "1", Name: "Dr. Smith"}}, "", nil
}

func newTestEngine(t *testing.T) *convo.Engine {
	t.Helper()
	store := convo.NewMemoryStore(time.Minute)
	t.Cleanup(store.Close)
	return convo.NewEngine(convo.EngineDeps{
		Classifier: intent.NewKeywordClassifier(),
		Triager:    triage.FallbackService{},
		Searcher:   staticSearcher{},
		Ledger:     ledger.New(nil),
		Patients:   patients.NewInMemoryRepository(),
		Urgent:     urgent.NewStore(),
		Notifier:   notify.NewService(notify.NewStubEmailSender(nil), nil),
		Store:      store,
		Metrics:    metrics.NewChatMetrics(prometheus.NewRegistry()),
	}, nil)
}

func TestChatHandlerTurn(t *testing.T) {
	h := NewChatHandler(newTestEngine(t), nil)

	body, _ := json.Marshal(ChatRequest{Message: "I need a dermatology appointment"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var reply convo.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.NotEmpty(t, reply.ConversationID)
	assert.Equal(t, convo.StageCollectingZip, reply.Stage)
	assert.Contains(t, reply.Message, "ZIP")
}

func TestChatHandlerRejectsEmptyMessage(t *testing.T) {
	h := NewChatHandler(newTestEngine(t), nil)

	body, _ := json.Marshal(ChatRequest{Message: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandlerRejectsBadJSON(t *testing.T) {
	h := NewChatHandler(newTestEngine(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
