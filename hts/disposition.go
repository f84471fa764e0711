package hts

import (
	"github.com/teranos/htsmatch/errors"
)

// Status is the review state of a stored match.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusManual   Status = "manual"
	StatusRejected Status = "rejected" // operator-assigned only
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusApproved, StatusPending, StatusManual, StatusRejected}

// ParseStatus validates a stored or user-supplied status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Wrapf(errors.ErrInvalidRequest, "unknown status %q", s)
}

// Confidence tiers.
const (
	ManualBelow        = 0.60
	DefaultAutoApprove = 0.85
)

// Policy maps confidence to status. Boundaries belong to the higher tier.
type Policy struct {
	AutoApprove float64
}

// NewPolicy validates the auto-approve threshold.
func NewPolicy(autoApprove float64) (Policy, error) {
	if autoApprove < ManualBelow || autoApprove > 1 {
		return Policy{}, errors.NewConfigError("auto-approve threshold must be within [%.2f, 1], got %v", ManualBelow, autoApprove)
	}
	return Policy{AutoApprove: autoApprove}, nil
}

// Disposition returns approved at or above the threshold, manual below
// ManualBelow and pending otherwise. It never returns rejected.
func (p Policy) Disposition(confidence float64) Status {
	switch {
	case confidence >= p.AutoApprove:
		return StatusApproved
	case confidence >= ManualBelow:
		return StatusPending
	default:
		return StatusManual
	}
}
