package wavm

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/a4a881d4/WAVM/ir"
	"github.com/a4a881d4/WAVM/platform"
)

// ErrOutOfMemory is returned when a page reservation or commit legitimately
// fails. Unlike the errors below, it is never fatal: callers are expected to
// handle it as an ordinary failure of CreateMemory or InstantiateModule.
// GrowMemory reports a failed growth as -1 instead, and CreateTable never
// fails.
var ErrOutOfMemory = errors.New("out of memory")

// ImportRef names one entry of a Module's import list, for LinkError.
type ImportRef struct {
	ModuleName string
	ExportName string
}

func (r ImportRef) String() string { return r.ModuleName + "." + r.ExportName }

// Mismatch records an import whose resolved object type was not a subtype
// of what the importing module declared.
type Mismatch struct {
	Import ImportRef
	Want   ir.ObjectType
	Got    ir.ObjectType
}

// LinkError is built by LinkResult.Err when resolution did not fully succeed.
// It aggregates every missing import and every type mismatch found while
// walking the module's import list — linkModule never short-circuits on the
// first problem, so a host sees the whole picture in one pass.
type LinkError struct {
	MissingImports []ImportRef
	Mismatches     []Mismatch
}

func (e *LinkError) Error() string {
	var merr *multierror.Error
	for _, m := range e.MissingImports {
		merr = multierror.Append(merr, fmt.Errorf("missing import %s", m))
	}
	for _, m := range e.Mismatches {
		merr = multierror.Append(merr, fmt.Errorf("import %s: want %s, got %s", m.Import, m.Want, m.Got))
	}
	if merr == nil {
		return "link error"
	}
	return merr.Error()
}

// InstantiationTrapKind discriminates the two ways instantiate can fail
// after linking has already succeeded.
type InstantiationTrapKind uint8

const (
	TrapSegmentOutOfBounds InstantiationTrapKind = iota
	TrapStartFunctionTrap
)

func (k InstantiationTrapKind) String() string {
	switch k {
	case TrapSegmentOutOfBounds:
		return "segmentOutOfBounds"
	case TrapStartFunctionTrap:
		return "startFunctionTrap"
	default:
		return fmt.Sprintf("InstantiationTrapKind(%d)", uint8(k))
	}
}

// InstantiationTrap is returned from instantiateModule. Cause is set when
// Kind is TrapStartFunctionTrap, carrying the *RuntimeTrap the start
// function raised.
type InstantiationTrap struct {
	Kind  InstantiationTrapKind
	Cause error
}

func (e *InstantiationTrap) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("instantiation trap (%s): %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("instantiation trap (%s)", e.Kind)
}

func (e *InstantiationTrap) Unwrap() error { return e.Cause }

// RuntimeTrapKind discriminates the reasons a running function can abort.
type RuntimeTrapKind uint8

const (
	TrapAccessViolation RuntimeTrapKind = iota
	TrapStackOverflow
	TrapIntDivByZeroOrOverflow
	TrapUnreachable
	TrapIndirectCallTypeMismatch
	TrapTableOutOfBounds
	TrapMemoryOutOfBounds
	TrapUnhandledException
)

func (k RuntimeTrapKind) String() string {
	switch k {
	case TrapAccessViolation:
		return "accessViolation"
	case TrapStackOverflow:
		return "stackOverflow"
	case TrapIntDivByZeroOrOverflow:
		return "intDivByZeroOrOverflow"
	case TrapUnreachable:
		return "unreachable"
	case TrapIndirectCallTypeMismatch:
		return "indirectCallTypeMismatch"
	case TrapTableOutOfBounds:
		return "tableOutOfBounds"
	case TrapMemoryOutOfBounds:
		return "memoryOutOfBounds"
	case TrapUnhandledException:
		return "unhandledException"
	default:
		return fmt.Sprintf("RuntimeTrapKind(%d)", uint8(k))
	}
}

// RuntimeTrap is the structured value invokeFunction and the start-function
// step of instantiateModule return for an abrupt abort (spec.md §7). Detail
// carries the faulting address for TrapAccessViolation or a human-readable
// description otherwise; DataPtr is the restored payload for
// TrapUnhandledException, nil otherwise.
type RuntimeTrap struct {
	Kind    RuntimeTrapKind
	Detail  string
	DataPtr interface{}
	Stack   platform.CallStack
}

func (t *RuntimeTrap) Error() string {
	return fmt.Sprintf("runtime trap (%s): %s [%d stack frames]", t.Kind, t.Detail, t.Stack.Len())
}

// InvariantViolation marks a condition the spec treats as a bug in the
// embedder or in this module itself, never a recoverable runtime state:
// a cross-compartment reference, an unknown ObjectKind. Code in this package
// that detects one panics with *InvariantViolation rather than returning it
// (the platform package panics with a plain "BUG: ..." string instead, for
// example on an unaligned decommit) — per spec.md §7, these are never caught inside
// the module and abort the process once they reach the top.
type InvariantViolation struct {
	Message string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.Message }

func invariantViolation(format string, args ...interface{}) {
	panic(&InvariantViolation{Message: fmt.Sprintf(format, args...)})
}
