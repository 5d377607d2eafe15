package services

import (
	"fmt"
	"strings"

	"servicesync-server/models"
)

// requestTransitions is the whole request state machine. Resolved is terminal.
var requestTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.RequestStatusOpen:       {models.RequestStatusInProgress},
	models.RequestStatusInProgress: {models.RequestStatusResolved},
	models.RequestStatusResolved:   {},
}

// ValidTransitionsFrom returns the states a request may move to next.
func ValidTransitionsFrom(from models.RequestStatus) []models.RequestStatus {
	return requestTransitions[from]
}

// CanTransition reports ErrInvalidTransition unless from -> to is an edge
// of the state machine.
func CanTransition(from, to models.RequestStatus) error {
	for _, next := range requestTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s is not allowed; valid next states from %s: %s",
		ErrInvalidTransition, from, to, from, describeValidFrom(from))
}

func describeValidFrom(from models.RequestStatus) string {
	nexts := ValidTransitionsFrom(from)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
