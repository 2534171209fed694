package pricing

import (
	"fmt"
	"strings"

	"github.com/fekuna/flowershop-service/internal/model"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(s string) (Status, error) {
	for status := range transitions {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", model.NewInvalidInput("status", fmt.Sprintf("unknown status %q", s))
}

func (s Status) String() string { return string(s) }

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Locked reports whether the order's items and payment terms are frozen.
func (s Status) Locked() bool {
	return s == StatusCancelled
}

// CanTransition reports whether an order may move from s to to. Staying in
// the same state is always allowed.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}
	return nil
}
