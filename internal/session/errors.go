package session

import (
	"errors"
	"fmt"

	"underwrite/internal/decision"
)

// AlreadyDecidedError is returned to the loser of a concurrent decision
// race. It carries the winning Decision so the caller still gets the result
// it asked for, just not authorship of it.
type AlreadyDecidedError struct {
	Decision *decision.Decision
}

func (e *AlreadyDecidedError) Error() string {
	if e.Decision == nil {
		return "session already decided"
	}
	return fmt.Sprintf("session already decided: %s by rule %s", e.Decision.Outcome, e.Decision.Rule)
}

// AsAlreadyDecided extracts an AlreadyDecidedError from the chain.
func AsAlreadyDecided(err error) (*AlreadyDecidedError, bool) {
	var ade *AlreadyDecidedError
	if errors.As(err, &ade) {
		return ade, true
	}
	return nil, false
}
