package logger

import "go.uber.org/zap/zapcore"

// Verbosity levels for the -v flag count.
const (
	VerbosityUser  = 0 // results, warnings and errors
	VerbosityInfo  = 1 // -v: per-item progress
	VerbosityDebug = 2 // -vv: prompts, raw responses, SQL-level detail
)

// VerbosityToLevel maps -v counts to zap levels.
//
//	0      -> WarnLevel
//	1      -> InfoLevel
//	2+     -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
