// Package service orchestrates the intake lifecycle: collecting answers and
// documents, driving the state machine forward, and turning a ready session
// into exactly one finalized decision.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	decisionmetrics "underwrite/internal/decision/metrics"
	"underwrite/internal/fraud"
	"underwrite/internal/notify"
	"underwrite/internal/risk"
	"underwrite/internal/session"
	sessionmetrics "underwrite/internal/session/metrics"
	"underwrite/pkg/domain"
	dErrors "underwrite/pkg/domain-errors"
	"underwrite/pkg/platform/audit"
	"underwrite/pkg/platform/sentinel"
)

// Dispatcher is the notification fan-out port. Dispatch must only be called
// for durably persisted decisions.
type Dispatcher interface {
	Dispatch(ctx context.Context, notice notify.Notice, channels []notify.Channel) ([]notify.DeliveryRecord, error)
	CancelSession(sessionID domain.SessionID)
}

// Reporter streams finalized decisions to divisional reporting.
type Reporter interface {
	PublishDecision(ctx context.Context, d *decision.Decision, customerRef string)
}

// AuditPublisher matches the audit pipeline's Emit.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns all session mutations. Stores serialize mutations per
// session, so concurrent calls on one session queue rather than race.
type Service struct {
	store          session.Store
	catalog        *catalog.Catalog
	riskEngine     *risk.Engine
	fraudEngine    *fraud.Engine
	decisionEngine *decision.Engine
	signals        fraud.SignalStore

	requiredDocs []session.DocumentType

	logger          *slog.Logger
	auditPublisher  AuditPublisher
	dispatcher      Dispatcher
	reporter        Reporter
	decisionMetrics *decisionmetrics.Metrics
	sessionMetrics  *sessionmetrics.Metrics
	tracer          trace.Tracer
	now             func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithReporter(r Reporter) Option {
	return func(s *Service) { s.reporter = r }
}

func WithDecisionMetrics(m *decisionmetrics.Metrics) Option {
	return func(s *Service) { s.decisionMetrics = m }
}

func WithSessionMetrics(m *sessionmetrics.Metrics) Option {
	return func(s *Service) { s.sessionMetrics = m }
}

// WithRequiredDocuments overrides the document types a session must have
// verified before it can be decided.
func WithRequiredDocuments(docs []session.DocumentType) Option {
	return func(s *Service) { s.requiredDocs = docs }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(
	store session.Store,
	cat *catalog.Catalog,
	riskEngine *risk.Engine,
	fraudEngine *fraud.Engine,
	decisionEngine *decision.Engine,
	signals fraud.SignalStore,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if cat == nil {
		return nil, errors.New("question catalog is required")
	}
	if riskEngine == nil || fraudEngine == nil || decisionEngine == nil {
		return nil, errors.New("risk, fraud, and decision engines are required")
	}
	if signals == nil {
		return nil, errors.New("fraud signal store is required")
	}
	s := &Service{
		store:          store,
		catalog:        cat,
		riskEngine:     riskEngine,
		fraudEngine:    fraudEngine,
		decisionEngine: decisionEngine,
		signals:        signals,
		requiredDocs:   []session.DocumentType{session.DocPassport},
		tracer:         otel.Tracer("underwrite/session"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartIntakeRequest carries everything intake start needs. Device is the
// parsed client summary recorded as fraud context.
type StartIntakeRequest struct {
	CustomerRef string
	Kind        session.IntakeKind
	Claim       *session.ClaimDetails
	Device      string
}

// StartSession opens a new intake session in CREATED.
func (s *Service) StartSession(ctx context.Context, req StartIntakeRequest) (*session.Session, error) {
	req.CustomerRef = strings.TrimSpace(req.CustomerRef)
	if req.CustomerRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "customer reference is required")
	}
	if req.Kind == "" {
		req.Kind = session.KindUnderwriting
	}
	if req.Kind != session.KindUnderwriting && req.Kind != session.KindClaim {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown intake kind %q", req.Kind)
	}
	now := s.now().UTC()
	if req.Kind == session.KindClaim {
		if req.Claim == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "claim details are required for claim intake")
		}
		if strings.TrimSpace(req.Claim.Type) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "claim type is required")
		}
		if req.Claim.Amount <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "claim amount must be positive")
		}
		if req.Claim.FiledAt.IsZero() {
			req.Claim.FiledAt = now
		}
	} else {
		req.Claim = nil
	}

	sess := &session.Session{
		ID:          domain.NewSessionID(),
		CustomerRef: req.CustomerRef,
		Kind:        req.Kind,
		Claim:       req.Claim,
		State:       session.StateCreated,
		Device:      req.Device,
		Answers:     make(map[catalog.QuestionID]session.Answer),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	// Velocity bookkeeping is best effort; a failed write must not block
	// intake.
	if err := s.signals.RecordApplication(ctx, sess.CustomerRef, now); err != nil {
		s.log(ctx, slog.LevelWarn, "failed to record application for velocity tracking",
			"session_id", sess.ID, "error", err)
	}

	s.sessionMetrics.ObserveStarted(string(sess.Kind))
	s.audit(ctx, sess, audit.Event{Action: string(audit.EventSessionStarted)})
	return sess, nil
}

// GetSession returns a snapshot of the session.
func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*session.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return sess, nil
}

// SubmitAnswer validates and records one answer. First answer moves CREATED
// to ANSWERING; resubmission overwrites; any accepted answer invalidates
// cached scores.
func (s *Service) SubmitAnswer(ctx context.Context, id domain.SessionID, questionID catalog.QuestionID, raw any) (*session.Session, error) {
	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if !sess.State.AcceptsAnswers() {
			return dErrors.Newf(dErrors.CodeInvalidState, "answers are not accepted in state %s", sess.State)
		}
		q, ok := s.catalog.Question(questionID)
		if !ok {
			return dErrors.Newf(dErrors.CodeValidation, "unknown question %q", questionID)
		}
		value, err := s.catalog.Validate(q, raw)
		if err != nil {
			return err
		}
		if sess.Answers == nil {
			sess.Answers = make(map[catalog.QuestionID]session.Answer)
		}
		sess.Answers[questionID] = session.Answer{
			QuestionID:  questionID,
			Value:       value,
			SubmittedAt: s.now().UTC(),
		}
		s.invalidateScores(sess)
		if sess.State == session.StateCreated {
			sess.State = session.StateAnswering
		}
		s.maybeAdvance(sess)
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}
	s.sessionMetrics.ObserveAnswer()
	s.audit(ctx, sess, audit.Event{
		Action: string(audit.EventAnswerSubmitted),
		Reason: string(questionID),
	})
	return sess, nil
}

// HealthInput is the customer's health self-declaration.
type HealthInput struct {
	ConditionLevel int
	Conditions     []string
	Medications    []string
	Allergies      []string
}

// SubmitHealthAssessment records the health self-declaration. Amendable
// until a decision is finalized, under the same state rules as answers.
func (s *Service) SubmitHealthAssessment(ctx context.Context, id domain.SessionID, in HealthInput) (*session.Session, error) {
	if in.ConditionLevel < 1 || in.ConditionLevel > 10 {
		return nil, dErrors.New(dErrors.CodeValidation, "condition level must be between 1 and 10")
	}
	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if !sess.State.AcceptsAnswers() {
			return dErrors.Newf(dErrors.CodeInvalidState, "health assessment is not accepted in state %s", sess.State)
		}
		sess.Health = &session.HealthAssessment{
			ConditionLevel: in.ConditionLevel,
			Conditions:     in.Conditions,
			Medications:    in.Medications,
			Allergies:      in.Allergies,
			SubmittedAt:    s.now().UTC(),
		}
		s.invalidateScores(sess)
		if sess.State == session.StateCreated {
			sess.State = session.StateAnswering
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}
	s.audit(ctx, sess, audit.Event{Action: string(audit.EventHealthSubmitted)})
	return sess, nil
}

// UploadDocument records an uploaded document with its tamper-evidence
// checksum and moves the session to DOCS_PENDING.
func (s *Service) UploadDocument(ctx context.Context, id domain.SessionID, docType string, content []byte, expiresAt time.Time) (*session.Session, domain.DocumentID, error) {
	if !session.ValidDocumentType(docType) {
		return nil, domain.DocumentID{}, dErrors.Newf(dErrors.CodeValidation, "unknown document type %q", docType)
	}
	if len(content) == 0 {
		return nil, domain.DocumentID{}, dErrors.New(dErrors.CodeValidation, "document content is required")
	}
	digest := blake2b.Sum256(content)
	docID := domain.NewDocumentID()

	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if !sess.State.AcceptsDocuments() {
			return dErrors.Newf(dErrors.CodeInvalidState, "documents are not accepted in state %s", sess.State)
		}
		sess.Documents = append(sess.Documents, session.DocumentRecord{
			ID:         docID,
			SessionID:  sess.ID,
			Type:       session.DocumentType(docType),
			UploadedAt: s.now().UTC(),
			ExpiresAt:  expiresAt,
			Checksum:   hex.EncodeToString(digest[:]),
			Status:     session.DocStatusUploaded,
		})
		s.invalidateScores(sess)
		if sess.State.CanAdvanceTo(session.StateDocsPending) {
			sess.State = session.StateDocsPending
		}
		return nil
	})
	if err != nil {
		return nil, domain.DocumentID{}, translateStoreErr(err)
	}
	s.audit(ctx, sess, audit.Event{
		Action: string(audit.EventDocumentUploaded),
		Reason: docType,
	})
	return sess, docID, nil
}

// VerifyDocument applies the external verifier's outcome. A document past
// its validity window lands on EXPIRED regardless of the reported outcome.
// When every required document reaches a terminal status and all required
// questions are answered, the session advances to READY_FOR_DECISION.
func (s *Service) VerifyDocument(ctx context.Context, id domain.SessionID, docID domain.DocumentID, verified bool) (*session.Session, error) {
	var status session.DocumentStatus
	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if sess.State.Terminal() {
			return dErrors.Newf(dErrors.CodeInvalidState, "document verification is not accepted in state %s", sess.State)
		}
		doc := sess.Document(docID)
		if doc == nil {
			return dErrors.Newf(dErrors.CodeNotFound, "document %s not found", docID)
		}
		if doc.Status != session.DocStatusUploaded {
			return dErrors.Newf(dErrors.CodeInvalidState, "document %s is %s, expected %s", docID, doc.Status, session.DocStatusUploaded)
		}
		switch {
		case doc.Expired(s.now().UTC()):
			status = session.DocStatusExpired
		case verified:
			status = session.DocStatusVerified
		default:
			status = session.DocStatusRejected
		}
		doc.Status = status
		s.invalidateScores(sess)
		s.maybeAdvance(sess)
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}
	s.sessionMetrics.ObserveDocument(string(status))
	s.audit(ctx, sess, audit.Event{
		Action:  string(audit.EventDocumentVerified),
		Outcome: string(status),
		Reason:  docID.String(),
	})
	return sess, nil
}

// RequestDecision computes the scores, evaluates the decision rules, and
// finalizes the result. Concurrent calls resolve to exactly one finalized
// Decision: the winner of the state swap persists it, every loser receives
// an AlreadyDecidedError carrying the winning Decision.
func (s *Service) RequestDecision(ctx context.Context, id domain.SessionID, channels []notify.Channel) (*decision.Decision, error) {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if snap.State == session.StateDecided {
		return nil, &session.AlreadyDecidedError{Decision: snap.CurrentDecision()}
	}
	if snap.State != session.StateReadyForDecision {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "decision requested in state %s, expected %s", snap.State, session.StateReadyForDecision)
	}

	started := s.now()
	evalCtx, span := s.tracer.Start(ctx, "decision.evaluate",
		trace.WithAttributes(attribute.String("session.id", snap.ID.String())))

	riskScore, signal, err := s.evaluate(evalCtx, snap)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}

	input := decision.Input{
		Risk:              riskScore,
		Fraud:             signal,
		DocumentsComplete: snap.MissingVerifiedDocuments(s.requiredDocs) == 0,
	}
	d := s.decisionEngine.Decide(snap.ID, input, s.now())
	span.SetAttributes(
		attribute.String("decision.outcome", string(d.Outcome)),
		attribute.String("decision.rule", d.Rule),
		attribute.Float64("risk.score", riskScore.Value),
		attribute.String("fraud.severity", signal.Severity.String()),
	)
	span.End()

	winner, err := s.store.FinalizeDecision(ctx, id, d)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, &session.AlreadyDecidedError{Decision: winner}
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "session is no longer ready for decision")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize decision")
		}
	}

	// Persist the breakdowns that produced the decision so the audit trail
	// can show why, not just what.
	if _, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		sess.Risk = &riskScore
		sess.Fraud = &signal
		return nil
	}); err != nil {
		s.log(ctx, slog.LevelWarn, "failed to persist score breakdown", "session_id", id, "error", err)
	}

	if snap.Kind == session.KindClaim && snap.Claim != nil {
		if err := s.signals.RecordClaimAmount(ctx, snap.Claim.Type, snap.Claim.Amount, s.now().UTC()); err != nil {
			s.log(ctx, slog.LevelWarn, "failed to record claim amount history", "session_id", id, "error", err)
		}
	}

	s.decisionMetrics.ObserveDecision(string(d.Outcome), d.Rule, signal.Severity.String(), s.now().Sub(started))
	s.sessionMetrics.ObserveCompleted(string(session.StateDecided))
	s.audit(ctx, snap, audit.Event{
		Action:  string(audit.EventDecisionMade),
		Outcome: string(d.Outcome),
		Rule:    d.Rule,
	})
	if s.reporter != nil {
		s.reporter.PublishDecision(ctx, d, snap.CustomerRef)
	}
	s.dispatch(ctx, d, snap.CustomerRef, channels)
	return d, nil
}

// OverrideDecision appends an override Decision on a DECIDED session. The
// superseded record stays in history untouched.
func (s *Service) OverrideDecision(ctx context.Context, id domain.SessionID, newOutcome decision.Outcome, actor, reason string, channels []notify.Channel) (*decision.Decision, error) {
	if !decision.ValidOutcome(string(newOutcome)) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown outcome %q", newOutcome)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "override actor is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "override reason is required")
	}

	var override *decision.Decision
	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if sess.State != session.StateDecided {
			return dErrors.Newf(dErrors.CodeInvalidState, "override requested in state %s, expected %s", sess.State, session.StateDecided)
		}
		prev := sess.CurrentDecision()
		if prev.Outcome == newOutcome {
			return dErrors.Newf(dErrors.CodeConflict, "decision is already %s", newOutcome)
		}
		override = decision.NewOverride(prev, newOutcome, actor, reason, s.now())
		sess.Decisions = append(sess.Decisions, *override)
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}

	s.decisionMetrics.IncrementOverrides()
	s.audit(ctx, sess, audit.Event{
		Action:  string(audit.EventDecisionOverride),
		Outcome: string(override.Outcome),
		Rule:    override.Rule,
		Reason:  reason,
		ActorID: actor,
	})
	if s.reporter != nil {
		s.reporter.PublishDecision(ctx, override, sess.CustomerRef)
	}
	s.dispatch(ctx, override, sess.CustomerRef, channels)
	return override, nil
}

// Abandon moves a non-terminal session to ABANDONED and cancels its queued
// notification dispatches.
func (s *Service) Abandon(ctx context.Context, id domain.SessionID, reason string) error {
	sess, err := s.store.Mutate(ctx, id, func(sess *session.Session) error {
		if sess.State.Terminal() {
			return dErrors.Newf(dErrors.CodeInvalidState, "session is already %s", sess.State)
		}
		sess.State = session.StateAbandoned
		return nil
	})
	if err != nil {
		return translateStoreErr(err)
	}
	if s.dispatcher != nil {
		s.dispatcher.CancelSession(id)
	}
	s.sessionMetrics.ObserveCompleted(string(session.StateAbandoned))
	s.audit(ctx, sess, audit.Event{
		Action: string(audit.EventSessionAbandoned),
		Reason: reason,
	})
	return nil
}

// evaluate runs the risk and fraud computations in parallel. Both are pure;
// only the fraud history fetch touches storage.
func (s *Service) evaluate(ctx context.Context, snap *session.Session) (risk.Score, fraud.Signal, error) {
	var (
		riskScore risk.Score
		signal    fraud.Signal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		riskScore = s.riskEngine.Compute(s.riskInput(snap))
		return nil
	})
	g.Go(func() error {
		hist, err := s.fetchHistory(gctx, snap)
		if err != nil {
			return err
		}
		signal = s.fraudEngine.Evaluate(s.fraudMetadata(snap), hist)
		return nil
	})
	if err := g.Wait(); err != nil {
		return risk.Score{}, fraud.Signal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch fraud history")
	}
	return riskScore, signal, nil
}

func (s *Service) riskInput(snap *session.Session) risk.Input {
	answers := make(map[catalog.QuestionID]catalog.AnswerValue, len(snap.Answers))
	for qid, a := range snap.Answers {
		answers[qid] = a.Value
	}
	in := risk.Input{
		Answers:                  answers,
		MissingRequiredDocuments: snap.MissingVerifiedDocuments(s.requiredDocs),
	}
	if snap.Health != nil {
		in.Health = &risk.Health{
			ConditionLevel: snap.Health.ConditionLevel,
			Conditions:     snap.Health.Conditions,
			Medications:    snap.Health.Medications,
		}
	}
	return in
}

func (s *Service) fraudMetadata(snap *session.Session) fraud.Metadata {
	meta := fraud.Metadata{
		CustomerRef:           snap.CustomerRef,
		IsClaim:               snap.Kind == session.KindClaim,
		DocumentationComplete: snap.MissingVerifiedDocuments(s.requiredDocs) == 0,
	}
	if snap.Claim != nil {
		meta.ClaimType = snap.Claim.Type
		meta.ClaimAmount = snap.Claim.Amount
		meta.PolicyStartedAt = snap.Claim.PolicyStartedAt
		meta.FiledAt = snap.Claim.FiledAt
	}
	return meta
}

func (s *Service) fetchHistory(ctx context.Context, snap *session.Session) (fraud.History, error) {
	params := s.fraudEngine.Params()
	var hist fraud.History

	count, err := s.signals.CountRecent(ctx, snap.CustomerRef, params.VelocityWindow)
	if err != nil {
		return hist, err
	}
	hist.RecentApplications = count

	if snap.Kind == session.KindClaim && snap.Claim != nil {
		avg, err := s.signals.AverageClaimAmount(ctx, snap.Claim.Type, params.AverageWindow)
		if err != nil {
			return hist, err
		}
		hist.AverageClaimAmount = avg
	}
	return hist, nil
}

// invalidateScores clears both cached breakdowns; they are always recomputed
// together before a decision.
func (s *Service) invalidateScores(sess *session.Session) {
	sess.Risk = nil
	sess.Fraud = nil
}

// maybeAdvance moves an eligible session to READY_FOR_DECISION.
func (s *Service) maybeAdvance(sess *session.Session) {
	if !sess.State.CanAdvanceTo(session.StateReadyForDecision) {
		return
	}
	if sess.EligibleForDecision(s.requiredQuestionIDs(), s.requiredDocs) {
		sess.State = session.StateReadyForDecision
	}
}

func (s *Service) requiredQuestionIDs() []catalog.QuestionID {
	required := s.catalog.Required()
	ids := make([]catalog.QuestionID, 0, len(required))
	for _, q := range required {
		ids = append(ids, q.ID)
	}
	return ids
}

func (s *Service) dispatch(ctx context.Context, d *decision.Decision, customerRef string, channels []notify.Channel) {
	if s.dispatcher == nil {
		return
	}
	if len(channels) == 0 {
		channels = notify.AllChannels()
	}
	notice := notify.Notice{
		DecisionID:  d.ID,
		SessionID:   d.SessionID,
		CustomerRef: customerRef,
		Outcome:     string(d.Outcome),
		Rule:        d.Rule,
		DecidedAt:   d.DecidedAt,
	}
	if _, err := s.dispatcher.Dispatch(ctx, notice, channels); err != nil {
		s.log(ctx, slog.LevelError, "failed to enqueue decision notifications",
			"decision_id", d.ID, "error", err)
	}
}

func (s *Service) audit(ctx context.Context, sess *session.Session, event audit.Event) {
	event.SessionID = sess.ID.String()
	event.CustomerRef = sess.CustomerRef
	event.RequestID = middleware.GetReqID(ctx)
	s.log(ctx, slog.LevelInfo, event.Action,
		"session_id", event.SessionID, "outcome", event.Outcome, "log_type", "audit")
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, args...)
	}
}

func translateStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session conflict")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "invalid session state")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
	}
}
