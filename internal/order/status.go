package order

import (
	"fmt"
	"strings"
)

// allowedSources lists, per target status, the statuses an order may move
// from. Anything not listed is rejected, so COMPLETED, CANCELED and FAILED
// are terminal.
var allowedSources = map[OrderStatus][]OrderStatus{
	StatusPaid:      {StatusPending},
	StatusCompleted: {StatusPending, StatusPaid},
	StatusCanceled:  {StatusPending},
	StatusFailed:    {StatusPending},
}

func AllowedSources(to OrderStatus) []OrderStatus {
	return allowedSources[to]
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, from := range allowedSources[to] {
		if from == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCompleted, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func statusStrings(statuses []OrderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type Action string

const (
	ActionPay    Action = "pay"
	ActionView   Action = "view"
	ActionCancel Action = "cancel"
)

// AvailableActions is what the storefront may offer for an order.
func AvailableActions(o *Order) []Action {
	if o.Status != StatusPending {
		return []Action{ActionView}
	}

	actions := make([]Action, 0, 3)
	if o.Token != nil && *o.Token != "" {
		actions = append(actions, ActionPay)
	}
	return append(actions, ActionView, ActionCancel)
}
