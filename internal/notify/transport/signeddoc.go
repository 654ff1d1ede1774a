// Package transport holds the channel implementations the dispatcher fans
// out to. Email and SMS gateways live outside this system; what ships here
// is the signed-document issuer, the customer portal feed, and a logging
// transport standing in for external gateways in development.
package transport

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"underwrite/internal/notify"
	dErrors "underwrite/pkg/domain-errors"
)

// DocumentSink receives the signed notice document. Production wires the
// archival service; tests capture the token.
type DocumentSink interface {
	Store(ctx context.Context, customerRef, token string) error
}

// SignedDocument issues the decision notice as a signed JWT so the customer
// (or a downstream auditor) can verify it was produced by this system and
// has not been altered.
type SignedDocument struct {
	key      []byte
	issuer   string
	validity time.Duration
	sink     DocumentSink
	now      func() time.Time
}

func NewSignedDocument(key []byte, issuer string, validity time.Duration, sink DocumentSink) *SignedDocument {
	if validity <= 0 {
		validity = 90 * 24 * time.Hour
	}
	return &SignedDocument{key: key, issuer: issuer, validity: validity, sink: sink, now: time.Now}
}

// WithClock overrides the timestamp source.
func (t *SignedDocument) WithClock(now func() time.Time) *SignedDocument {
	t.now = now
	return t
}

func (t *SignedDocument) Send(ctx context.Context, notice notify.Notice) error {
	now := t.now().UTC()
	claims := jwt.MapClaims{
		"iss":         t.issuer,
		"sub":         notice.CustomerRef,
		"iat":         now.Unix(),
		"exp":         now.Add(t.validity).Unix(),
		"decision_id": notice.DecisionID.String(),
		"session_id":  notice.SessionID.String(),
		"outcome":     notice.Outcome,
		"rule":        notice.Rule,
		"decided_at":  notice.DecidedAt.UTC().Format(time.RFC3339),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign decision notice")
	}
	return t.sink.Store(ctx, notice.CustomerRef, token)
}

// VerifyNotice parses and verifies a signed notice token, returning its
// claims. Used by the portal surface and by tests.
func VerifyNotice(token string, key []byte) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.Newf(dErrors.CodeUnauthorized, "unexpected signing method %v", tok.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid notice token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid notice token")
	}
	return claims, nil
}
