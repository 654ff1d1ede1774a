package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	"underwrite/internal/fraud"
	"underwrite/internal/fraud/store/signals"
	"underwrite/internal/notify"
	"underwrite/internal/notify/mocks"
	"underwrite/internal/risk"
	"underwrite/internal/session"
	"underwrite/internal/session/service"
	"underwrite/pkg/domain"
)

type handlerFixture struct {
	router     chi.Router
	deliveries *notify.InMemoryDeliveryStore
}

func newIntakeRouter(t *testing.T) *handlerFixture {
	t.Helper()
	cat := catalog.Default()
	svc, err := service.New(
		session.NewInMemoryStore(),
		cat,
		risk.NewEngine(cat, risk.DefaultConfig()),
		fraud.NewEngine(fraud.DefaultConfig()),
		decision.NewEngine(decision.DefaultThresholds()),
		signals.NewInMemoryStore(),
	)
	if err != nil {
		t.Fatalf("failed to build session service: %v", err)
	}

	deliveries := notify.NewInMemoryDeliveryStore()
	h := New(svc, cat, deliveries, nil)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	h.Register(router)
	return &handlerFixture{router: router, deliveries: deliveries}
}

func (f *handlerFixture) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) startSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/sessions", map[string]string{"customer_ref": "cust-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 starting session, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("expected session id in response")
	}
	return resp.ID
}

// driveToReady answers every required question and verifies the required
// passport so the session reaches READY_FOR_DECISION.
func (f *handlerFixture) driveToReady(t *testing.T, id string) {
	t.Helper()
	answers := map[string]any{
		"smoker":                false,
		"chronic_conditions":    "none",
		"hospitalized_recently": false,
		"self_rating":           9,
		"date_of_birth":         "1984-06-21",
	}
	for qid, value := range answers {
		rec := f.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
			"question_id": qid,
			"value":       value,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 answering %s, got %d: %s", qid, rec.Code, rec.Body.String())
		}
	}

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/documents", map[string]any{
		"type":       "passport",
		"content":    []byte("passport scan"),
		"expires_at": time.Now().Add(24 * time.Hour),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 uploading document, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploadResp struct {
		DocumentID string          `json:"document_id"`
		Session    SessionResponse `json:"session"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&uploadResp); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/sessions/%s/documents/%s/verification", id, uploadResp.DocumentID), map[string]any{
		"verified": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying document, got %d: %s", rec.Code, rec.Body.String())
	}
	var verified SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&verified); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if verified.State != string(session.StateReadyForDecision) {
		t.Fatalf("expected READY_FOR_DECISION after verification, got %s", verified.State)
	}
}

func TestListQuestions(t *testing.T) {
	f := newIntakeRouter(t)

	rec := f.do(t, http.MethodGet, "/catalog/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing questions, got %d", rec.Code)
	}
	var all []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("failed to decode questions: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("expected published questions")
	}

	rec = f.do(t, http.MethodGet, "/catalog/questions?category=health", nil)
	var health []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode filtered questions: %v", err)
	}
	if len(health) == 0 || len(health) >= len(all) {
		t.Fatalf("expected category filter to narrow the set, got %d of %d", len(health), len(all))
	}
}

func TestStartSessionValidation(t *testing.T) {
	f := newIntakeRouter(t)

	rec := f.do(t, http.MethodPost, "/sessions", map[string]string{"customer_ref": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank customer_ref, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/sessions", map[string]string{"customer_ref": "cust-1", "kind": "renewal"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/sessions", map[string]string{"customer_ref": "cust-1", "kind": "claim"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for claim intake without claim details, got %d", rec.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	f := newIntakeRouter(t)

	rec := f.do(t, http.MethodGet, "/sessions/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/sessions/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session id, got %d", rec.Code)
	}
}

func TestSubmitAnswerFlow(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
		"question_id": "smoker",
		"value":       false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting answer, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != string(session.StateAnswering) {
		t.Fatalf("expected ANSWERING after first answer, got %s", resp.State)
	}
	if len(resp.Answers) != 1 || resp.Answers[0].QuestionID != "smoker" {
		t.Fatalf("expected recorded smoker answer, got %+v", resp.Answers)
	}

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{
		"question_id": "smoker",
		"value":       "not-a-bool",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for type mismatch, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/answers", map[string]any{"question_id": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing question_id, got %d", rec.Code)
	}
}

func TestHealthAssessment(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/health", map[string]any{
		"condition_level": 2,
		"conditions":      []string{"asthma"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting health assessment, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Health == nil || resp.Health.ConditionLevel != 2 {
		t.Fatalf("expected recorded health assessment, got %+v", resp.Health)
	}

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/health", map[string]any{"condition_level": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-scale condition level, got %d", rec.Code)
	}
}

func TestDecisionFlow(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)
	f.driveToReady(t, id)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/decision", map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 finalizing decision, got %d: %s", rec.Code, rec.Body.String())
	}
	var first DecisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatalf("failed to decode decision: %v", err)
	}
	if first.Outcome != string(decision.OutcomeAutoApprove) {
		t.Fatalf("expected AUTO_APPROVE for a clean profile, got %s", first.Outcome)
	}
	if first.AlreadyDecided {
		t.Fatal("winner must not be flagged as already decided")
	}

	// A repeat request loses the race but still gets the decision back.
	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/decision", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for repeat decision request, got %d: %s", rec.Code, rec.Body.String())
	}
	var second DecisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&second); err != nil {
		t.Fatalf("failed to decode repeat decision: %v", err)
	}
	if !second.AlreadyDecided || second.ID != first.ID {
		t.Fatalf("expected the winning decision flagged already decided, got %+v", second)
	}

	rec = f.do(t, http.MethodGet, "/sessions/"+id+"/decision", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching decision, got %d", rec.Code)
	}

	// Channel validation happens before any decision work.
	id2 := f.startSession(t)
	f.driveToReady(t, id2)
	rec = f.do(t, http.MethodPost, "/sessions/"+id2+"/decision", map[string]any{"channels": []string{"CARRIER_PIGEON"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown channel, got %d", rec.Code)
	}
}

func TestDecisionNotReady(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/decision", map[string]any{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for decision before readiness, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/sessions/"+id+"/decision", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 fetching decision before finalization, got %d", rec.Code)
	}
}

func TestOverrideAndHistory(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)
	f.driveToReady(t, id)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/decision", map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 finalizing decision, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/decision/override", map[string]any{
		"outcome": "AUTO_REJECT",
		"actor":   "underwriter-7",
		"reason":  "undisclosed condition",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 overriding decision, got %d: %s", rec.Code, rec.Body.String())
	}
	var override DecisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&override); err != nil {
		t.Fatalf("failed to decode override: %v", err)
	}
	if override.Override == nil || override.Override.Actor != "underwriter-7" {
		t.Fatalf("expected override record, got %+v", override.Override)
	}

	rec = f.do(t, http.MethodGet, "/sessions/"+id+"/decision/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching history, got %d", rec.Code)
	}
	var history []DecisionResponse
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two decisions in history, got %d", len(history))
	}
	if history[1].Rule != string(decision.RuleManualOverride) {
		t.Fatalf("expected manual_override rule on latest entry, got %s", history[1].Rule)
	}

	// Missing actor fails validation.
	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/decision/override", map[string]any{
		"outcome": "HUMAN_REVIEW",
		"reason":  "second look",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing actor, got %d", rec.Code)
	}
}

func TestAbandon(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/abandon?reason=changed+mind", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 abandoning session, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/sessions/"+id, nil)
	var resp SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if resp.State != string(session.StateAbandoned) {
		t.Fatalf("expected ABANDONED, got %s", resp.State)
	}

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/abandon", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 abandoning twice, got %d", rec.Code)
	}
}

func TestListDeliveriesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cat := catalog.Default()
	svc, err := service.New(
		session.NewInMemoryStore(),
		cat,
		risk.NewEngine(cat, risk.DefaultConfig()),
		fraud.NewEngine(fraud.DefaultConfig()),
		decision.NewEngine(decision.DefaultThresholds()),
		signals.NewInMemoryStore(),
	)
	if err != nil {
		t.Fatalf("failed to build session service: %v", err)
	}

	store := mocks.NewMockDeliveryStore(ctrl)
	store.EXPECT().
		ListBySession(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("store offline"))

	router := chi.NewRouter()
	New(svc, cat, store, nil).Register(router)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.New().String()+"/deliveries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the delivery store fails, got %d", rec.Code)
	}

	// Without a delivery store the endpoint is simply absent.
	bare := chi.NewRouter()
	New(svc, cat, nil, nil).Register(bare)
	req = httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.New().String()+"/deliveries", nil)
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without delivery tracking, got %d", rec.Code)
	}
}

func TestListDeliveries(t *testing.T) {
	f := newIntakeRouter(t)
	id := f.startSession(t)

	sessionID, err := domain.ParseSessionID(id)
	if err != nil {
		t.Fatalf("failed to parse session id: %v", err)
	}
	rec := &notify.DeliveryRecord{
		ID:          domain.NewDeliveryID(),
		DecisionID:  domain.NewDecisionID(),
		SessionID:   sessionID,
		CustomerRef: "cust-1",
		Channel:     notify.ChannelPortal,
		Status:      notify.StatusDelivered,
		Attempts:    1,
	}
	if err := f.deliveries.Save(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed delivery record: %v", err)
	}

	res := f.do(t, http.MethodGet, "/sessions/"+id+"/deliveries", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 listing deliveries, got %d", res.Code)
	}
	var out []DeliveryResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode deliveries: %v", err)
	}
	if len(out) != 1 || out[0].Channel != string(notify.ChannelPortal) {
		t.Fatalf("expected the seeded portal delivery, got %+v", out)
	}
}
