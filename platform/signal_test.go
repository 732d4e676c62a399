package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatchSignalsClassifiesIndexOutOfRange(t *testing.T) {
	var caught Signal
	handled := CatchSignals(func() {
		var s []int
		_ = s[5]
	}, func(sig Signal, stack CallStack) bool {
		caught = sig
		require.Greater(t, stack.Len(), 0)
		return true
	})

	require.True(t, handled)
	require.Equal(t, SignalAccessViolation, caught.Kind)
}

func TestCatchSignalsClassifiesIntegerDivideByZero(t *testing.T) {
	var caught Signal
	handled := CatchSignals(func() {
		a, b := 1, 0
		_ = a / b
	}, func(sig Signal, stack CallStack) bool {
		caught = sig
		return true
	})

	require.True(t, handled)
	require.Equal(t, SignalIntDivideByZeroOrOverflow, caught.Kind)
}

func TestCatchSignalsReturnsUnhandledWhenFilterDeclines(t *testing.T) {
	require.Panics(t, func() {
		CatchSignals(func() {
			var s []int
			_ = s[5]
		}, func(sig Signal, stack CallStack) bool {
			return false
		})
	})
}

func TestCatchSignalsDoesNotInterceptOrdinaryPanics(t *testing.T) {
	require.PanicsWithValue(t, "not a fault", func() {
		CatchSignals(func() {
			panic("not a fault")
		}, func(sig Signal, stack CallStack) bool {
			return true
		})
	})
}

func TestCatchSignalsRunsThunkToCompletionWithoutFault(t *testing.T) {
	ran := false
	handled := CatchSignals(func() {
		ran = true
	}, func(sig Signal, stack CallStack) bool {
		t.Fatal("filter should not be called when thunk does not fault")
		return true
	})
	require.True(t, ran)
	require.False(t, handled)
}

func TestRaisePlatformExceptionRoundTripsData(t *testing.T) {
	type payload struct{ Code int }
	want := &payload{Code: 42}

	var got interface{}
	var stack CallStack
	CatchPlatformExceptions(func() {
		RaisePlatformException(want)
	}, func(data interface{}, s CallStack) {
		got = data
		stack = s
	})

	require.Same(t, want, got)
	require.Greater(t, stack.Len(), 0)
}

func TestCatchPlatformExceptionsIgnoresUnrelatedPanics(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() {
		CatchPlatformExceptions(func() {
			panic("boom")
		}, func(data interface{}, s CallStack) {
			t.Fatal("handler should not run for a non-PlatformException panic")
		})
	})
}

func TestSetSignalHandlerRunsOnUnhandledFault(t *testing.T) {
	var sawKind SignalKind
	var sawFrames int
	SetSignalHandler(func(sig Signal, stack CallStack) {
		sawKind = sig.Kind
		sawFrames = stack.Len()
	})
	defer SetSignalHandler(nil)

	require.Panics(t, func() {
		CatchSignals(func() {
			var s []int
			_ = s[5]
		}, func(sig Signal, stack CallStack) bool {
			return false
		})
	})

	require.Equal(t, SignalAccessViolation, sawKind)
	require.Greater(t, sawFrames, 0)
}

func TestSetSignalHandlerDoesNotRunWhenFilterHandles(t *testing.T) {
	called := false
	SetSignalHandler(func(sig Signal, stack CallStack) { called = true })
	defer SetSignalHandler(nil)

	handled := CatchSignals(func() {
		var s []int
		_ = s[5]
	}, func(sig Signal, stack CallStack) bool {
		return true
	})

	require.True(t, handled)
	require.False(t, called)
}

func TestNewPlatformExceptionCarriesDataAndStack(t *testing.T) {
	stack := captureCallStack(0)
	pe := NewPlatformException("payload", stack)
	require.Equal(t, "payload", pe.Data)
	require.Equal(t, stack, pe.Stack)
}

func TestDescribeInstructionPointer(t *testing.T) {
	stack := captureCallStack(0)
	require.Greater(t, stack.Len(), 0)
	desc := DescribeInstructionPointer(stack.IPs[0])
	require.NotEmpty(t, desc)
}
