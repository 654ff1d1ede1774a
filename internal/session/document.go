package session

import (
	"time"

	"underwrite/internal/catalog"
	"underwrite/pkg/domain"
)

// DocumentType enumerates the accepted identity/medical document types.
type DocumentType string

const (
	DocPassport       DocumentType = "passport"
	DocNationalID     DocumentType = "national-id"
	DocDriverLicense  DocumentType = "driver-license"
	DocVisa           DocumentType = "visa"
	DocTravelDocument DocumentType = "travel-document"
)

// ValidDocumentType reports whether s names a known document type.
func ValidDocumentType(s string) bool {
	switch DocumentType(s) {
	case DocPassport, DocNationalID, DocDriverLicense, DocVisa, DocTravelDocument:
		return true
	}
	return false
}

// DocumentStatus tracks a document through verification.
// PENDING → UPLOADED → VERIFIED | REJECTED | EXPIRED.
type DocumentStatus string

const (
	DocStatusPending  DocumentStatus = "PENDING"
	DocStatusUploaded DocumentStatus = "UPLOADED"
	DocStatusVerified DocumentStatus = "VERIFIED"
	DocStatusRejected DocumentStatus = "REJECTED"
	DocStatusExpired  DocumentStatus = "EXPIRED"
)

// Terminal reports whether verification concluded for this document.
func (s DocumentStatus) Terminal() bool {
	return s == DocStatusVerified || s == DocStatusRejected || s == DocStatusExpired
}

// DocumentRecord tracks one uploaded document. Verification itself happens
// at an external verifier; only the outcome is recorded here.
type DocumentRecord struct {
	ID         domain.DocumentID `json:"id"`
	SessionID  domain.SessionID  `json:"session_id"`
	Type       DocumentType      `json:"type"`
	UploadedAt time.Time         `json:"uploaded_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	// Checksum is the BLAKE2b digest of the uploaded content, kept for
	// tamper-evidence across the verification hand-off.
	Checksum string         `json:"checksum"`
	Status   DocumentStatus `json:"status"`
}

// Expired reports whether the document's validity window has passed.
func (d DocumentRecord) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}

// MissingVerifiedDocuments counts required document types without a
// VERIFIED record.
func (s *Session) MissingVerifiedDocuments(required []DocumentType) int {
	missing, _ := s.requiredDocumentsStatus(required)
	return missing
}

// DocumentsTerminal reports whether every required document type has at
// least one record in a terminal verification status.
func (s *Session) DocumentsTerminal(required []DocumentType) bool {
	_, terminal := s.requiredDocumentsStatus(required)
	return terminal
}

// EligibleForDecision reports whether the session satisfies the decision
// preconditions: every required question answered and every required
// document type verified or conclusively rejected.
func (s *Session) EligibleForDecision(requiredQuestions []catalog.QuestionID, requiredDocs []DocumentType) bool {
	for _, qid := range requiredQuestions {
		if _, ok := s.Answers[qid]; !ok {
			return false
		}
	}
	return s.DocumentsTerminal(requiredDocs)
}

// requiredDocumentsStatus summarizes the session's required document types:
// how many are missing a VERIFIED record and whether every required type
// has at least one record in a terminal status.
func (s *Session) requiredDocumentsStatus(required []DocumentType) (missingVerified int, allTerminal bool) {
	allTerminal = true
	for _, rt := range required {
		verified := false
		terminal := false
		for i := range s.Documents {
			if s.Documents[i].Type != rt {
				continue
			}
			if s.Documents[i].Status == DocStatusVerified {
				verified = true
			}
			if s.Documents[i].Status.Terminal() {
				terminal = true
			}
		}
		if !verified {
			missingVerified++
		}
		if !terminal {
			allTerminal = false
		}
	}
	return missingVerified, allTerminal
}
