package wavm

import (
	"github.com/a4a881d4/WAVM/platform"
)

// SetSignalHandler installs the process-global async-signal handler of
// last resort (spec.md §6 setSignalHandler): the final chance to observe a
// fault that reached a CatchSignals-guarded call but whose filter declined
// to handle it, called just before the fault's panic continues unwinding
// past this module's call boundary. One registration replaces any prior
// one (spec.md §5 "Signal handler installation: one global registration").
func SetSignalHandler(handler platform.SignalHandler) {
	platform.SetSignalHandler(handler)
}

// CatchRuntimeExceptions is a convenience wrapper over the signal and
// platform-exception guards of spec.md §4.C (spec.md §6
// catchRuntimeExceptions): it runs thunk and, should anything beneath it
// raise a platform exception via platform.RaisePlatformException, calls
// onException with the restored exception instead of letting it propagate.
// A signal-classified fault (an access violation, a stack overflow, a
// division fault) is not this wrapper's concern — install SetSignalHandler
// for that fault class, or use InvokeFunction/runGuarded, which already
// classify it into a RuntimeTrap.
func CatchRuntimeExceptions(thunk func(), onException func(*platform.PlatformException)) {
	platform.CatchPlatformExceptions(thunk, func(data interface{}, stack platform.CallStack) {
		onException(platform.NewPlatformException(data, stack))
	})
}
