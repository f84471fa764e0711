package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorTime      = "\x1b[38;5;107m"
	colorComponent = "\x1b[38;5;208m"
	colorKey       = "\x1b[38;5;109m"
	colorWarn      = "\x1b[38;5;179m"
	colorError     = "\x1b[38;5;167m"
	colorDebug     = "\x1b[38;5;244m"
)

var bufferPool = buffer.NewPool()

// minimalEncoder writes one line per entry:
//
//	13:04:35  WARN  pipeline  classification fell back  product_id=42 reason=no_json
//
// The level is omitted for info. Every field is printed as key=value; context
// fields from With come first, sorted by key.
type minimalEncoder struct {
	*zapcore.MapObjectEncoder
	color bool
}

func newMinimalEncoder(color bool) *minimalEncoder {
	return &minimalEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		color:            color,
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder(enc.color)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(enc.paint(colorTime, ent.Time.Format("15:04:05")))

	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(enc.levelString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(enc.paint(colorComponent, ent.LoggerName))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	pairs := sortedPairs(enc.Fields)
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		pairs = append(pairs, sortedPairs(m.Fields)...)
	}
	if len(pairs) > 0 {
		final.AppendString(" ")
		for _, p := range pairs {
			final.AppendString(" ")
			final.AppendString(enc.paint(colorKey, p.key))
			final.AppendString("=")
			final.AppendString(p.value)
		}
	}

	final.AppendString("\n")
	return final, nil
}

func (enc *minimalEncoder) levelString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return enc.paint(colorDebug, "DEBUG")
	case zapcore.WarnLevel:
		return enc.paint(colorBold+colorWarn, "WARN")
	default:
		return enc.paint(colorBold+colorError, level.CapitalString())
	}
}

func (enc *minimalEncoder) paint(color, s string) string {
	if !enc.color {
		return s
	}
	return color + s + colorReset
}

type pair struct {
	key   string
	value string
}

// sortedPairs flattens encoded fields. errorVerbose (stack traces from
// cockroachdb/errors) is left to the JSON output.
func sortedPairs(fields map[string]interface{}) []pair {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.HasSuffix(k, "Verbose") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, pair{key: k, value: formatValue(fields[k])})
	}
	return pairs
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]interface{}:
		pairs := sortedPairs(val)
		parts := make([]string, len(pairs))
		for i, p := range pairs {
			parts[i] = p.key + "=" + p.value
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}
