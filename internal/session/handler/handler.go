// Package handler wires the intake endpoints to the session service.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	"underwrite/internal/notify"
	"underwrite/internal/session"
	"underwrite/internal/session/service"
	"underwrite/pkg/domain"
	dErrors "underwrite/pkg/domain-errors"
	"underwrite/pkg/platform/httputil"
)

// Service defines the session operations the handler depends on.
type Service interface {
	StartSession(ctx context.Context, req service.StartIntakeRequest) (*session.Session, error)
	GetSession(ctx context.Context, id domain.SessionID) (*session.Session, error)
	SubmitAnswer(ctx context.Context, id domain.SessionID, questionID catalog.QuestionID, raw any) (*session.Session, error)
	SubmitHealthAssessment(ctx context.Context, id domain.SessionID, in service.HealthInput) (*session.Session, error)
	UploadDocument(ctx context.Context, id domain.SessionID, docType string, content []byte, expiresAt time.Time) (*session.Session, domain.DocumentID, error)
	VerifyDocument(ctx context.Context, id domain.SessionID, docID domain.DocumentID, verified bool) (*session.Session, error)
	RequestDecision(ctx context.Context, id domain.SessionID, channels []notify.Channel) (*decision.Decision, error)
	OverrideDecision(ctx context.Context, id domain.SessionID, newOutcome decision.Outcome, actor, reason string, channels []notify.Channel) (*decision.Decision, error)
	Abandon(ctx context.Context, id domain.SessionID, reason string) error
}

// Handler wires intake endpoints to the session service.
type Handler struct {
	service    Service
	catalog    *catalog.Catalog
	deliveries notify.DeliveryStore
	logger     *slog.Logger
}

// New constructs a session handler. deliveries may be nil when dispatch
// bookkeeping is not exposed.
func New(service Service, cat *catalog.Catalog, deliveries notify.DeliveryStore, logger *slog.Logger) *Handler {
	return &Handler{service: service, catalog: cat, deliveries: deliveries, logger: logger}
}

// Register mounts the intake endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/catalog/questions", h.HandleListQuestions)
	r.Post("/sessions", h.HandleStartSession)
	r.Get("/sessions/{id}", h.HandleGetSession)
	r.Post("/sessions/{id}/answers", h.HandleSubmitAnswer)
	r.Post("/sessions/{id}/health", h.HandleSubmitHealth)
	r.Post("/sessions/{id}/documents", h.HandleUploadDocument)
	r.Post("/sessions/{id}/documents/{docID}/verification", h.HandleVerifyDocument)
	r.Post("/sessions/{id}/decision", h.HandleRequestDecision)
	r.Get("/sessions/{id}/decision", h.HandleGetDecision)
	r.Get("/sessions/{id}/decision/history", h.HandleDecisionHistory)
	r.Post("/sessions/{id}/decision/override", h.HandleOverrideDecision)
	r.Post("/sessions/{id}/abandon", h.HandleAbandon)
	r.Get("/sessions/{id}/deliveries", h.HandleListDeliveries)
}

// HandleListQuestions returns the published questionnaire.
func (h *Handler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	category := catalog.Category(r.URL.Query().Get("category"))
	questions := h.catalog.QuestionSet(category)
	type questionView struct {
		ID       string   `json:"id"`
		Category string   `json:"category"`
		Type     string   `json:"type"`
		Prompt   string   `json:"prompt"`
		Required bool     `json:"required"`
		Choices  []string `json:"choices,omitempty"`
	}
	out := make([]questionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionView{
			ID:       string(q.ID),
			Category: string(q.Category),
			Type:     string(q.Type),
			Prompt:   q.Prompt,
			Required: q.Required,
			Choices:  q.Choices,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleStartSession handles POST /sessions.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	req, ok := httputil.DecodeAndPrepare[StartSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	intake := service.StartIntakeRequest{
		CustomerRef: req.CustomerRef,
		Kind:        session.IntakeKind(req.Kind),
		Device:      deviceSummary(r.UserAgent()),
	}
	if req.Claim != nil {
		intake.Claim = &session.ClaimDetails{
			Type:            req.Claim.Type,
			Amount:          req.Claim.Amount,
			PolicyStartedAt: req.Claim.PolicyStartedAt,
			FiledAt:         req.Claim.FiledAt,
		}
	}

	sess, err := h.service.StartSession(ctx, intake)
	if err != nil {
		h.logError(ctx, "failed to start session", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromSession(sess))
}

// HandleGetSession handles GET /sessions/{id}.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleSubmitAnswer handles POST /sessions/{id}/answers.
func (h *Handler) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitAnswerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.service.SubmitAnswer(ctx, id, catalog.QuestionID(req.QuestionID), req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleSubmitHealth handles POST /sessions/{id}/health.
func (h *Handler) HandleSubmitHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[HealthAssessmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.service.SubmitHealthAssessment(ctx, id, service.HealthInput{
		ConditionLevel: req.ConditionLevel,
		Conditions:     req.Conditions,
		Medications:    req.Medications,
		Allergies:      req.Allergies,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleUploadDocument handles POST /sessions/{id}/documents.
func (h *Handler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, docID, err := h.service.UploadDocument(ctx, id, req.Type, req.Content, req.ExpiresAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, struct {
		DocumentID string          `json:"document_id"`
		Session    SessionResponse `json:"session"`
	}{DocumentID: docID.String(), Session: FromSession(sess)})
}

// HandleVerifyDocument handles the external verifier callback.
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	docID, err := domain.ParseDocumentID(chi.URLParam(r, "docID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.service.VerifyDocument(ctx, id, docID, *req.Verified)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(sess))
}

// HandleRequestDecision handles POST /sessions/{id}/decision. A caller that
// loses the decision race still gets the winning decision, flagged as
// already decided.
func (h *Handler) HandleRequestDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequestDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.service.RequestDecision(ctx, id, req.ParsedChannels())
	if err != nil {
		if ade, isRace := session.AsAlreadyDecided(err); isRace && ade.Decision != nil {
			httputil.WriteJSON(w, http.StatusOK, FromDecision(ade.Decision, true))
			return
		}
		h.logError(ctx, "decision request failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDecision(d, false))
}

// HandleGetDecision handles GET /sessions/{id}/decision.
func (h *Handler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d := sess.CurrentDecision()
	if d == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session has no decision"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDecision(d, false))
}

// HandleDecisionHistory handles GET /sessions/{id}/decision/history.
func (h *Handler) HandleDecisionHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]DecisionResponse, 0, len(sess.Decisions))
	for i := range sess.Decisions {
		out = append(out, FromDecision(&sess.Decisions[i], false))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleOverrideDecision handles POST /sessions/{id}/decision/override.
func (h *Handler) HandleOverrideDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OverrideDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.service.OverrideDecision(ctx, id, decision.Outcome(req.Outcome), req.Actor, req.Reason, req.ParsedChannels())
	if err != nil {
		h.logError(ctx, "decision override failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDecision(d, false))
}

// HandleAbandon handles POST /sessions/{id}/abandon. The body is optional.
func (h *Handler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "cancelled by customer"
	}
	if err := h.service.Abandon(r.Context(), id, reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListDeliveries handles GET /sessions/{id}/deliveries.
func (h *Handler) HandleListDeliveries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if h.deliveries == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "delivery tracking is not enabled"))
		return
	}
	records, err := h.deliveries.ListBySession(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries"))
		return
	}
	out := make([]DeliveryResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, FromDelivery(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	}
}

// deviceSummary condenses the User-Agent header into the short device
// description stored as fraud context.
func deviceSummary(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	platform := parsed.Platform()
	if parsed.Mobile() {
		platform = "mobile " + platform
	}
	if parsed.Bot() {
		return fmt.Sprintf("bot %s", name)
	}
	return fmt.Sprintf("%s %s on %s (%s)", name, version, platform, parsed.OS())
}
