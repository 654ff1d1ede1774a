package session

import (
	"encoding/json"
	"fmt"
	"time"

	"underwrite/internal/decision"
	"underwrite/internal/fraud"
	"underwrite/internal/risk"
	"underwrite/pkg/domain"
)

// riskScoreJSON pins the persisted shape of risk.Score so renames in the
// engine package cannot silently corrupt stored sessions.
type riskScoreJSON struct {
	Value      float64          `json:"value"`
	Factors    []riskFactorJSON `json:"factors,omitempty"`
	ComputedAt time.Time        `json:"computed_at"`
}

type riskFactorJSON struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

func riskScoreJSONFrom(s *risk.Score) *riskScoreJSON {
	if s == nil {
		return nil
	}
	out := &riskScoreJSON{Value: s.Value, ComputedAt: s.ComputedAt}
	for _, f := range s.Factors {
		out.Factors = append(out.Factors, riskFactorJSON(f))
	}
	return out
}

func (j *riskScoreJSON) toScore() *risk.Score {
	if j == nil {
		return nil
	}
	out := &risk.Score{Value: j.Value, ComputedAt: j.ComputedAt}
	for _, f := range j.Factors {
		out.Factors = append(out.Factors, risk.Factor(f))
	}
	return out
}

type fraudSignalJSON struct {
	Severity   string    `json:"severity"`
	Rules      []string  `json:"rules,omitempty"`
	Score      float64   `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

func fraudSignalJSONFrom(s *fraud.Signal) *fraudSignalJSON {
	if s == nil {
		return nil
	}
	return &fraudSignalJSON{
		Severity:   s.Severity.String(),
		Rules:      s.Rules,
		Score:      s.Score,
		ComputedAt: s.ComputedAt,
	}
}

func (j *fraudSignalJSON) toSignal() (*fraud.Signal, error) {
	if j == nil {
		return nil, nil
	}
	sev, err := fraud.ParseSeverity(j.Severity)
	if err != nil {
		return nil, fmt.Errorf("decode fraud signal: %w", err)
	}
	return &fraud.Signal{
		Severity:   sev,
		Rules:      j.Rules,
		Score:      j.Score,
		ComputedAt: j.ComputedAt,
	}, nil
}

type decisionOverrideJSON struct {
	Original string    `json:"original"`
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type decisionJSON struct {
	ID        domain.DecisionID     `json:"id"`
	SessionID domain.SessionID      `json:"session_id"`
	Outcome   string                `json:"outcome"`
	Rule      string                `json:"rule"`
	Risk      riskScoreJSON         `json:"risk"`
	Fraud     fraudSignalJSON       `json:"fraud"`
	DecidedAt time.Time             `json:"decided_at"`
	Override  *decisionOverrideJSON `json:"override,omitempty"`
}

func decisionJSONFrom(d *decision.Decision) decisionJSON {
	out := decisionJSON{
		ID:        d.ID,
		SessionID: d.SessionID,
		Outcome:   string(d.Outcome),
		Rule:      d.Rule,
		Risk:      *riskScoreJSONFrom(&d.Risk),
		Fraud:     *fraudSignalJSONFrom(&d.Fraud),
		DecidedAt: d.DecidedAt,
	}
	if d.Override != nil {
		out.Override = &decisionOverrideJSON{
			Original: string(d.Override.Original),
			Actor:    d.Override.Actor,
			Reason:   d.Override.Reason,
			At:       d.Override.At,
		}
	}
	return out
}

func (j decisionJSON) toDecision() (*decision.Decision, error) {
	signal, err := (&j.Fraud).toSignal()
	if err != nil {
		return nil, err
	}
	out := &decision.Decision{
		ID:        j.ID,
		SessionID: j.SessionID,
		Outcome:   decision.Outcome(j.Outcome),
		Rule:      j.Rule,
		Risk:      *(&j.Risk).toScore(),
		Fraud:     *signal,
		DecidedAt: j.DecidedAt,
	}
	if j.Override != nil {
		out.Override = &decision.Override{
			Original: decision.Outcome(j.Override.Original),
			Actor:    j.Override.Actor,
			Reason:   j.Override.Reason,
			At:       j.Override.At,
		}
	}
	return out, nil
}

func marshalPayload(sess *Session) ([]byte, error) {
	body, err := json.Marshal(payload{
		Kind:      sess.Kind,
		Claim:     sess.Claim,
		Device:    sess.Device,
		Answers:   sess.Answers,
		Documents: sess.Documents,
		Health:    sess.Health,
		Risk:      riskScoreJSONFrom(sess.Risk),
		Fraud:     fraudSignalJSONFrom(sess.Fraud),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session payload: %w", err)
	}
	return body, nil
}

func unmarshalPayload(body []byte) (*Session, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unmarshal session payload: %w", err)
	}
	signal, err := p.Fraud.toSignal()
	if err != nil {
		return nil, err
	}
	return &Session{
		Kind:      p.Kind,
		Claim:     p.Claim,
		Device:    p.Device,
		Answers:   p.Answers,
		Documents: p.Documents,
		Health:    p.Health,
		Risk:      p.Risk.toScore(),
		Fraud:     signal,
	}, nil
}
