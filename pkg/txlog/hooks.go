package txlog

import (
	"github.com/rzbill/txlog/pkg/log"
)

// Hooks are optional notifications invoked after the corresponding transition
// succeeded. A panicking hook is recovered and logged; it never undoes the
// transition.
type Hooks[T any] struct {
	OnOpen  func()
	OnClose func()
	OnClear func()
	// OnAppend receives the data of each appended transaction. For a
	// BatchedLog it fires when the data is buffered.
	OnAppend func(data T)
}

func fire(logger log.Logger, hook string, fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("hook panicked", log.Str("hook", hook), log.F("panic", r))
		}
	}()

	fn()
}
