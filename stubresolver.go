package wavm

import (
	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
)

// StubResolver is the reference Resolver for sandboxed execution (spec.md
// §4.F): every import resolves, synthesized from the expected type alone.
// Function imports get a body that pushes one zero constant per result and
// returns, or a single unreachable instruction if Trap is set; other kinds
// get an empty/zeroed object of the requested shape. Resolve returns false
// only when fabricating a memory fails for lack of address space.
type StubResolver struct {
	// Compartment owns every object this resolver fabricates.
	Compartment *Compartment
	// Compiler compiles the synthesized function bodies. Defaults to
	// compiledfunc.StubCompiler{} if nil.
	Compiler compiledfunc.Compiler
	// Trap, if true, makes every synthesized function body trap via
	// unreachable instead of returning zero-valued results.
	Trap bool
	// Manifest, if non-nil, overrides the zero-valued default for specific
	// global imports, keyed by "moduleName.exportName" (cmd/wavmrun's
	// --stubs flag).
	Manifest *StubManifest
}

// StubManifest seeds specific stub import values instead of the zero-value
// default StubResolver otherwise fabricates, for reproducing a particular
// host environment without writing a real Resolver.
type StubManifest struct {
	Globals map[string]UntaggedValue
}

// Resolve implements Resolver.
func (r *StubResolver) Resolve(moduleName, exportName string, expectedType ir.ObjectType) (ok bool, obj Object) {
	debugName := moduleName + "." + exportName + ".stub"
	switch expectedType.Kind() {
	case ir.ObjectKindFunction:
		return true, r.stubFunction(expectedType.AsFunctionType(), debugName)
	case ir.ObjectKindTable:
		return true, r.Compartment.CreateTable(expectedType.AsTableType())
	case ir.ObjectKindMemory:
		m, err := r.Compartment.CreateMemory(expectedType.AsMemoryType())
		if err != nil {
			// A legitimate out-of-memory while fabricating a stub is
			// reported as an unresolved import rather than panicking:
			// StubResolver's totality promise (spec.md §8 property 7)
			// is about the shape of the request, not about available
			// address space.
			return false, nil
		}
		return true, m
	case ir.ObjectKindGlobal:
		gt := expectedType.AsGlobalType()
		val := zeroValue(gt.ValueType)
		if r.Manifest != nil {
			if seeded, ok := r.Manifest.Globals[moduleName+"."+exportName]; ok {
				val = seeded
			}
		}
		return true, r.Compartment.CreateGlobal(gt, val)
	case ir.ObjectKindExceptionType:
		et := newExceptionType(r.Compartment.ID, expectedType.AsExceptionType(), debugName)
		r.Compartment.registerExceptionType(et)
		return true, et
	default:
		invariantViolation("StubResolver.Resolve: unknown ObjectKind %s", expectedType.Kind())
		panic("unreachable")
	}
}

func (r *StubResolver) stubFunction(ft ir.FunctionType, debugName string) *Function {
	compiler := r.Compiler
	if compiler == nil {
		compiler = compiledfunc.StubCompiler{}
	}

	var code []byte
	if r.Trap {
		code = compiledfunc.UnreachableCode()
	} else {
		code = compiledfunc.ZeroResultsCode(ft.Results().Len())
	}

	compiled, err := compiler.Compile(ft, code)
	if err != nil {
		invariantViolation("StubResolver: synthesized body failed to compile: %v", err)
	}

	fn := newFunction(r.Compartment.ID, ft, compiled, debugName, nil)
	r.Compartment.registerFunction(fn)
	return fn
}

// zeroValue returns the zero-valued UntaggedValue for a value type: 0 for
// numeric types, a null reference for reference types (spec.md §4.F
// "zero globals").
func zeroValue(t ir.ValueType) UntaggedValue {
	switch t {
	case ir.ValueTypeI32:
		return I32Value(0)
	case ir.ValueTypeI64:
		return I64Value(0)
	case ir.ValueTypeF32:
		return F32Value(0)
	case ir.ValueTypeF64:
		return F64Value(0)
	case ir.ValueTypeV128:
		return V128Value([16]byte{})
	case ir.ValueTypeAnyRef, ir.ValueTypeAnyFunc, ir.ValueTypeNullRef:
		return UntaggedValue{}
	default:
		invariantViolation("zeroValue: unknown ValueType %s", t)
		panic("unreachable")
	}
}
