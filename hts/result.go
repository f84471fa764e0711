package hts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/internal/util"
)

// Result is one classification. It is immutable once produced.
type Result struct {
	Code             string
	Description      string
	Confidence       float64 // in [0, 1]
	Reasoning        string
	Material         string
	AlternativeCodes []string
}

// Fallback returns the result stored when classification fails.
func Fallback() Result {
	return Result{
		Code:        FallbackCode,
		Description: "Unclassified - needs manual review",
		Confidence:  0.0,
		Reasoning:   "Automatic classification failed",
		Material:    "unknown",
	}
}

// FailureReason tags why an Outcome carries the fallback result.
type FailureReason string

const (
	FailureNone              FailureReason = ""
	FailureTransport         FailureReason = "transport"
	FailureEmptyResponse     FailureReason = "empty_response"
	FailureNoJSON            FailureReason = "no_json"
	FailureParse             FailureReason = "parse"
	FailureInvalidCode       FailureReason = "invalid_code"
	FailureInvalidConfidence FailureReason = "invalid_confidence"
)

// Usage is the token count reported by the model.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Outcome is what Classify returns: always a storable Result, plus the
// failure reason and cause when that Result is the fallback.
type Outcome struct {
	Result   Result
	Failure  FailureReason
	Err      error
	Usage    Usage
	Model    string
	Duration time.Duration
}

// IsFallback reports whether the classification failed.
func (o Outcome) IsFallback() bool {
	return o.Failure != FailureNone
}

func failed(reason FailureReason, err error) Outcome {
	return Outcome{Result: Fallback(), Failure: reason, Err: err}
}

// wireResult is the JSON object the model is asked for. Confidence and
// alternatives are kept raw so loosely typed answers can be normalized.
type wireResult struct {
	Code             string          `json:"hts_code"`
	Description      string          `json:"hts_description"`
	Confidence       json.RawMessage `json:"confidence"`
	Reasoning        string          `json:"reasoning"`
	Material         string          `json:"material"`
	AlternativeCodes json.RawMessage `json:"alternative_codes"`
}

// ParseResponse extracts and validates a Result from free model text.
func ParseResponse(text string) (Result, FailureReason, error) {
	if strings.TrimSpace(text) == "" {
		return Fallback(), FailureEmptyResponse, errors.New("model returned no text")
	}

	span, ok := ExtractJSONObject(text)
	if !ok {
		return Fallback(), FailureNoJSON, errors.Newf("no JSON object in response: %q", preview(text))
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(span), &wire); err != nil {
		return Fallback(), FailureParse, errors.Wrap(err, "decode classification JSON")
	}

	code := strings.TrimSpace(wire.Code)
	if !ValidateCode(code) {
		return Fallback(), FailureInvalidCode, errors.Newf("invalid hts_code %q", wire.Code)
	}

	confidence, err := parseConfidence(wire.Confidence)
	if err != nil {
		return Fallback(), FailureInvalidConfidence, err
	}

	return Result{
		Code:             code,
		Description:      strings.TrimSpace(wire.Description),
		Confidence:       confidence,
		Reasoning:        strings.TrimSpace(wire.Reasoning),
		Material:         strings.TrimSpace(wire.Material),
		AlternativeCodes: parseAlternatives(wire.AlternativeCodes, code),
	}, FailureNone, nil
}

// parseConfidence accepts a number or a numeric string. A missing value is 0.
func parseConfidence(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, errors.Newf("confidence %s is not a number", raw)
		}
		if value, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, errors.Newf("confidence %q is not a number", s)
		}
	}

	if value < 0 || value > 1 {
		return 0, errors.Newf("confidence %v outside [0, 1]", value)
	}
	return value, nil
}

// parseAlternatives keeps distinct non-empty strings other than primary.
// Anything that is not a list of strings yields no alternatives.
func parseAlternatives(raw json.RawMessage, primary string) []string {
	var codes []string
	if len(raw) == 0 || json.Unmarshal(raw, &codes) != nil {
		return nil
	}

	seen := map[string]bool{primary: true}
	var out []string
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// ExtractJSONObject returns the first balanced {...} span in text. Braces
// inside JSON strings are ignored.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if short := util.Truncate(s, 80); short != s {
		return short + "..."
	}
	return s
}
