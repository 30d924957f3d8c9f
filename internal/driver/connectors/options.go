package connectors

import (
	"math"
	"reflect"
	"time"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// Options are the recognized per-command options.
type Options struct {
	// Timeout overrides the default command timeout. Zero means unset.
	Timeout time.Duration
	// Log disables log-record creation when set to false.
	Log *bool
}

// LogEnabled reports whether a log record should be created.
func (o Options) LogEnabled() bool {
	return o.Log == nil || *o.Log
}

func (o Options) withDefaults(s Scheduler) Options {
	if o.Timeout == 0 {
		o.Timeout = s.DefaultCommandTimeout()
	}
	return o
}

// ParseOptions reads an options argument. nil yields the zero Options.
// Maps use the script keys "timeout" (milliseconds, or a time.Duration) and
// "log". ok is false when v is not an options record.
func ParseOptions(v any) (Options, bool) {
	switch o := v.(type) {
	case nil:
		return Options{}, true
	case Options:
		return o, true
	case *Options:
		if o == nil {
			return Options{}, false
		}
		return *o, true
	case map[string]any:
		return optionsFromMap(o), true
	}
	return Options{}, false
}

func optionsFromMap(m map[string]any) Options {
	var opts Options
	switch timeout := m["timeout"].(type) {
	case time.Duration:
		opts.Timeout = timeout
	default:
		if subject.IsNumber(timeout) {
			opts.Timeout = millis(timeout)
		}
	}
	if log, ok := m["log"].(bool); ok {
		opts.Log = &log
	}
	return opts
}

func millis(v any) time.Duration {
	f := reflect.ValueOf(v).Convert(reflect.TypeOf(float64(0))).Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return time.Duration(f * float64(time.Millisecond))
}

// isObjectLike reports whether v could be an options record: not nil and not
// a string, number or boolean.
func isObjectLike(v any) bool {
	if subject.IsNil(v) || subject.IsNumber(v) {
		return false
	}
	switch v.(type) {
	case string, bool:
		return false
	}
	return true
}
