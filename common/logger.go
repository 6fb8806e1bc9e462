package common

import "fmt"

// LogLevel is a bitmask so a caller can enable more than one trace category
// at once, e.g. ActiveLogKindSetting = CacheTrace | PinTrace.
type LogLevel int32

const (
	TraceDetail LogLevel = 1 << iota
	Trace
	OpCall
	CacheTrace
	PinTrace
	Info
	Warn
	Error
)

// Tracef prints when logLevel intersects ActiveLogKindSetting. It is a no-op
// unless EnableDebug is set, so the bitmask check on the hot path stays cheap.
func Tracef(logLevel LogLevel, format string, a ...interface{}) {
	if EnableDebug && logLevel&ActiveLogKindSetting > 0 {
		fmt.Printf(format, a...)
	}
}
