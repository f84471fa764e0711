package catalogsync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/match"
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeSince
	scopeIDs
)

// Scope selects which approved matches a push considers.
type Scope struct {
	kind  scopeKind
	since time.Time
	ids   []int64
}

// All is every approved match.
func All() Scope { return Scope{kind: scopeAll} }

// Since is approved matches classified at or after t.
func Since(t time.Time) Scope { return Scope{kind: scopeSince, since: t} }

// IDs is approved matches among ids. Ids that are not approved are ignored.
func IDs(ids ...int64) Scope { return Scope{kind: scopeIDs, ids: append([]int64{}, ids...)} }

func (s Scope) filter() match.ApprovedFilter {
	switch s.kind {
	case scopeSince:
		return match.ApprovedFilter{Since: s.since}
	case scopeIDs:
		return match.ApprovedFilter{IDs: s.ids}
	default:
		return match.ApprovedFilter{}
	}
}

func (s Scope) String() string {
	switch s.kind {
	case scopeSince:
		return "approved since " + s.since.Local().Format("2006-01-02 15:04")
	case scopeIDs:
		return fmt.Sprintf("approved among %d ids", len(s.ids))
	default:
		return "all approved"
	}
}

// ParseSince resolves a cutoff relative to now. It accepts Go durations
// ("24h", "90m"), days ("7d"), bare hours ("48"), dates ("2025-03-01") and
// RFC 3339 timestamps.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.Wrap(errors.ErrInvalidRequest, "empty --since value")
	}

	if hours, err := strconv.Atoi(s); err == nil && hours > 0 {
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return now.AddDate(0, 0, -n), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Wrapf(errors.ErrInvalidRequest, "cannot parse --since %q", s)
}

// ParseIDs parses a comma-separated id list such as "12,15, 20".
func ParseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "no product ids given")
	}
	return ids, nil
}
