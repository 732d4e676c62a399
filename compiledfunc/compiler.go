// Package compiledfunc defines the boundary between this module's
// instantiator and the JIT compiler that turns a function's code bytes into
// something callable (spec.md §1 Non-goals: "producing or executing native
// machine code for function bodies is out of scope"; SPEC_FULL.md §4.H).
//
// StubCompiler is the one concrete Compiler this package ships: an
// interpreter over a deliberately tiny instruction set, just expressive
// enough to back the synthesized bodies the linker's StubResolver hands out
// and the constant-returning host shims used in this module's own tests.
// A production JIT backend would implement Compiler itself and never touch
// this package's interpreter.
package compiledfunc

import (
	"context"
	"errors"
	"fmt"

	"github.com/a4a881d4/WAVM/ir"
)

// CompiledFunction is an invocable function body, however it was produced.
type CompiledFunction interface {
	// Invoke calls the function with args matching its parameter types and
	// returns results matching its result types, or an error if invocation
	// trapped. Implementations must never panic across this boundary: an
	// internal fault must be recovered and returned as an error, the same
	// contract this module's teacher's engine.Call honors.
	Invoke(ctx context.Context, args []uint64) ([]uint64, error)
}

// Compiler turns a function's declared type and code bytes into a
// CompiledFunction. code's format is private to the Compiler implementation;
// the instantiator never inspects it.
type Compiler interface {
	Compile(ft ir.FunctionType, code []byte) (CompiledFunction, error)
}

// Sentinel trap errors, named the way this module's teacher names its own
// runtime error taxonomy (internal/wasm/errors.go): plain wrapped errors.Is
// targets, not a bespoke error type hierarchy.
var (
	// ErrUnreachable is returned by Invoke when the executed code reached
	// an explicit unreachable instruction.
	ErrUnreachable = errors.New("unreachable executed")
	// ErrMalformedCode is returned when code is not a well-formed program
	// in StubCompiler's instruction set — a bug in whatever produced code,
	// not a runtime condition.
	ErrMalformedCode = errors.New("malformed compiled function code")
)

// Opcode is StubCompiler's instruction set: enough to construct a constant
// result tuple or trap, and nothing else. It intentionally has no control
// flow, no memory or table access, and no calls — those belong to a real
// JIT backend, not this placeholder.
type Opcode byte

const (
	// OpUnreachable traps unconditionally.
	OpUnreachable Opcode = iota
	// OpConstI64 pushes the following 8 bytes (little-endian) onto the
	// result stack, reinterpreted as the result slot's declared type.
	OpConstI64
	// OpReturn ends execution, returning the values pushed so far in push
	// order. The count pushed must equal len(results) from Compile.
	OpReturn
)

// StubCompiler implements Compiler by interpreting Opcode programs. It is
// the Compiler the linker's StubResolver uses to synthesize bodies for
// unresolved imports (spec.md §4.F), and the one this module's own tests use
// to exercise instantiation end to end without a real JIT.
type StubCompiler struct{}

// Compile validates code as a well-formed Opcode program for ft and returns
// a CompiledFunction that interprets it on every call.
func (StubCompiler) Compile(ft ir.FunctionType, code []byte) (CompiledFunction, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty code", ErrMalformedCode)
	}
	if err := validate(code, ft.Results().Len()); err != nil {
		return nil, err
	}
	return &stubFunction{resultCount: ft.Results().Len(), code: code}, nil
}

func validate(code []byte, wantResults int) error {
	i := 0
	pushed := 0
	for i < len(code) {
		switch Opcode(code[i]) {
		case OpUnreachable:
			return nil
		case OpConstI64:
			if i+9 > len(code) {
				return fmt.Errorf("%w: truncated OpConstI64 operand", ErrMalformedCode)
			}
			i += 9
			pushed++
		case OpReturn:
			i++
			if pushed != wantResults {
				return fmt.Errorf("%w: OpReturn with %d values pushed, function declares %d results", ErrMalformedCode, pushed, wantResults)
			}
			return nil
		default:
			return fmt.Errorf("%w: unknown opcode %d at offset %d", ErrMalformedCode, code[i], i)
		}
	}
	return fmt.Errorf("%w: code does not end in OpReturn or OpUnreachable", ErrMalformedCode)
}

// stubFunction is the CompiledFunction StubCompiler.Compile returns.
type stubFunction struct {
	resultCount int
	code        []byte
}

// Invoke interprets f.code. args is accepted for interface conformance but
// unused: StubCompiler's instruction set has no way to read a parameter.
func (f *stubFunction) Invoke(ctx context.Context, args []uint64) (results []uint64, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stub function invocation faulted: %v", r)
		}
	}()

	results = make([]uint64, 0, f.resultCount)
	i := 0
	for i < len(f.code) {
		switch Opcode(f.code[i]) {
		case OpUnreachable:
			return nil, ErrUnreachable
		case OpConstI64:
			v := le64(f.code[i+1 : i+9])
			results = append(results, v)
			i += 9
		case OpReturn:
			return results, nil
		default:
			return nil, fmt.Errorf("%w: unknown opcode %d", ErrMalformedCode, f.code[i])
		}
	}
	return nil, fmt.Errorf("%w: fell off end of code", ErrMalformedCode)
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ZeroResultsCode returns a program that returns zero-valued results of the
// given count without trapping — the body StubResolver synthesizes for a
// plain function-shaped stub (spec.md §4.F).
func ZeroResultsCode(resultCount int) []byte {
	code := make([]byte, 0, resultCount*9+1)
	for i := 0; i < resultCount; i++ {
		code = append(code, byte(OpConstI64))
		code = append(code, make([]byte, 8)...)
	}
	code = append(code, byte(OpReturn))
	return code
}

// UnreachableCode returns a program that always traps — the body
// StubResolver synthesizes when the caller asked for trapping stubs
// (spec.md §4.F).
func UnreachableCode() []byte {
	return []byte{byte(OpUnreachable)}
}
