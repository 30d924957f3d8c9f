package connectors

import "github.com/louisbranch/drivechain/internal/driver/subject"

// ReturnFalseIfThenable vetoes then(onFulfilled, onRejected) commands. A
// promise adopting a chain calls its Then with two callbacks; such a call
// is not a user command, so the first callback runs immediately to let the
// adopting promise settle, and the command is not queued.
func ReturnFalseIfThenable(name string, args []any) bool {
	if name == "then" && len(args) >= 2 && subject.IsCallable(args[0]) && subject.IsCallable(args[1]) {
		_, _ = subject.Call(args[0], nil)
		return false
	}
	return true
}
