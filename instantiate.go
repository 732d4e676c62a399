package wavm

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
	"github.com/a4a881d4/WAVM/platform"
)

// ErrImportArityMismatch is returned by InstantiateModule when the caller
// supplied a different number of resolved imports than module declares
// (spec.md §4.G step 1, §8 property 9). No objects are allocated before
// this check runs.
var ErrImportArityMismatch = errors.New("resolved import count does not match module import count")

// InstantiateModule runs the seven-step instantiation sequence of spec.md
// §4.G: install imports, allocate local definitions, evaluate initializer
// expressions, bounds-check and apply segments, then run the start
// function. Failure at any step discards everything allocated so far and
// leaves c unchanged; success registers the new instance with c's root set.
func InstantiateModule(c *Compartment, module *ir.Module, resolvedImports []Object, debugName string, cfg *RuntimeConfig) (*ModuleInstance, error) {
	if cfg == nil {
		cfg = NewRuntimeConfig()
	}

	// Step 1: validate import arity.
	if len(resolvedImports) != len(module.Imports) {
		return nil, fmt.Errorf("%w: got %d, module declares %d", ErrImportArityMismatch, len(resolvedImports), len(module.Imports))
	}

	inst := newModuleInstance(c.ID, debugName)
	allocated := &allocationTracker{}

	// Step 2: install imports into per-kind index spaces.
	for i, imp := range module.Imports {
		obj := resolvedImports[i]
		if obj != nil {
			requireSameCompartment(c.ID, obj.CompartmentID())
		}
		switch imp.Type.Kind() {
		case ir.ObjectKindFunction:
			inst.Functions = append(inst.Functions, obj.(*Function))
		case ir.ObjectKindTable:
			inst.Tables = append(inst.Tables, obj.(*Table))
			c.clearRoot(obj)
		case ir.ObjectKindMemory:
			inst.Memories = append(inst.Memories, obj.(*Memory))
			c.clearRoot(obj)
		case ir.ObjectKindGlobal:
			inst.Globals = append(inst.Globals, obj.(*Global))
			c.clearRoot(obj)
		case ir.ObjectKindExceptionType:
			inst.ExceptionTypes = append(inst.ExceptionTypes, obj.(*ExceptionType))
		default:
			invariantViolation("InstantiateModule: unknown import ObjectKind %s", imp.Type.Kind())
		}
	}

	// Step 3: define-side allocations.
	for _, fd := range module.Functions {
		compiled, err := cfg.compiler.Compile(fd.Type, fd.Code)
		if err != nil {
			rollback(c, allocated)
			return nil, fmt.Errorf("compiling function: %w", err)
		}
		fn := newFunction(c.ID, fd.Type, compiled, debugName, inst)
		c.registerFunction(fn)
		allocated.functions = append(allocated.functions, fn)
		inst.Functions = append(inst.Functions, fn)
	}
	for _, tt := range module.Tables {
		t := c.CreateTable(tt)
		allocated.tables = append(allocated.tables, t)
		inst.Tables = append(inst.Tables, t)
		c.clearRoot(t)
	}
	for _, mt := range module.Memories {
		m, err := c.CreateMemory(mt)
		if err != nil {
			rollback(c, allocated)
			return nil, err
		}
		allocated.memories = append(allocated.memories, m)
		inst.Memories = append(inst.Memories, m)
		c.clearRoot(m)
	}
	for _, gd := range module.Globals {
		// Step 4 (globals): evaluate now, since a later global's
		// initializer can only read an *imported* global (already
		// installed above), never one defined locally in this module.
		initVal := evalConstExpr(inst, gd.Init)
		g := c.CreateGlobal(gd.Type, initVal)
		allocated.globals = append(allocated.globals, g)
		inst.Globals = append(inst.Globals, g)
		c.clearRoot(g)
	}
	for _, et := range module.ExceptionTypes {
		e := newExceptionType(c.ID, et, debugName)
		c.registerExceptionType(e)
		allocated.exceptionTypes = append(allocated.exceptionTypes, e)
		inst.ExceptionTypes = append(inst.ExceptionTypes, e)
	}

	// Step 4 (segments): evaluate element/data segment offsets.
	elemOffsets := make([]uint32, len(module.Elements))
	for i, seg := range module.Elements {
		elemOffsets[i] = evalConstExpr(inst, seg.Offset).I32()
	}
	dataOffsets := make([]uint32, len(module.Data))
	for i, seg := range module.Data {
		dataOffsets[i] = evalConstExpr(inst, seg.Offset).I32()
	}

	// Step 5: bounds-check every segment before applying any of them, so a
	// trap here leaves the instance's tables and memories untouched
	// (spec.md §8 property 10).
	for i, seg := range module.Elements {
		table := inst.Tables[seg.TableIndex]
		if uint64(elemOffsets[i])+uint64(len(seg.Init)) > table.Size() {
			rollback(c, allocated)
			Logger().Warn("instantiateModule: element segment out of bounds", zap.String("module", debugName), zap.Int("segment", i))
			return nil, &InstantiationTrap{Kind: TrapSegmentOutOfBounds}
		}
	}
	for i, seg := range module.Data {
		memory := inst.Memories[seg.MemoryIndex]
		if !memory.hasRange(uint64(dataOffsets[i]), uint64(len(seg.Init))) {
			rollback(c, allocated)
			Logger().Warn("instantiateModule: data segment out of bounds", zap.String("module", debugName), zap.Int("segment", i))
			return nil, &InstantiationTrap{Kind: TrapSegmentOutOfBounds}
		}
	}

	// Step 6: apply segments.
	for i, seg := range module.Elements {
		table := inst.Tables[seg.TableIndex]
		for j, funcIdx := range seg.Init {
			table.Set(uint64(elemOffsets[i])+uint64(j), inst.Functions[funcIdx])
		}
	}
	for i, seg := range module.Data {
		memory := inst.Memories[seg.MemoryIndex]
		memory.WriteAt(uint64(dataOffsets[i]), seg.Init)
	}

	// Register before running the start function so the instance is part of
	// the compartment's root set while its start function runs (spec.md
	// §4.G "Finalization registers the instance with the compartment root
	// set"); a start-function trap below unregisters it again and rolls back
	// its allocations like any other failed step.
	c.registerInstance(inst)

	for _, exp := range module.Exports {
		inst.Exports[exp.Name] = exportedObject(inst, exp)
	}

	// Step 7: run the start function, if any.
	if module.Start != nil {
		fn := inst.Functions[*module.Start]
		if trap := runGuarded(cfg.ctx, fn); trap != nil {
			rollback(c, allocated)
			c.mu.Lock()
			c.instances = removeAll(c.instances, []*ModuleInstance{inst})
			c.mu.Unlock()
			Logger().Warn("instantiateModule: start function trapped",
				zap.String("module", debugName), zap.Stringer("trapKind", trap.Kind))
			return nil, &InstantiationTrap{Kind: TrapStartFunctionTrap, Cause: trap}
		}
	}

	if cfg.gcAfterEveryInstantiate {
		c.CollectGarbage()
	}

	return inst, nil
}

func exportedObject(inst *ModuleInstance, exp ir.Export) Object {
	switch exp.Kind {
	case ir.ObjectKindFunction:
		return inst.Functions[exp.Index]
	case ir.ObjectKindTable:
		return inst.Tables[exp.Index]
	case ir.ObjectKindMemory:
		return inst.Memories[exp.Index]
	case ir.ObjectKindGlobal:
		return inst.Globals[exp.Index]
	case ir.ObjectKindExceptionType:
		return inst.ExceptionTypes[exp.Index]
	default:
		invariantViolation("exportedObject: unknown ObjectKind %s", exp.Kind)
		panic("unreachable")
	}
}

// allocationTracker records every object allocated during a failed
// instantiation attempt, so rollback can remove exactly those and nothing
// the compartment already held (spec.md §4.G: "failure at any step
// discards all partially-allocated objects and leaves the compartment
// unchanged").
type allocationTracker struct {
	functions      []*Function
	tables         []*Table
	memories       []*Memory
	globals        []*Global
	exceptionTypes []*ExceptionType
}

func rollback(c *Compartment, a *allocationTracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions = removeAll(c.functions, a.functions)
	c.tables = removeAll(c.tables, a.tables)
	c.globals = removeAll(c.globals, a.globals)
	c.exceptionTypes = removeAll(c.exceptionTypes, a.exceptionTypes)
	for _, m := range a.memories {
		m.free()
	}
	c.memories = removeAll(c.memories, a.memories)
}

func removeAll[T comparable](pool []T, remove []T) []T {
	if len(remove) == 0 {
		return pool
	}
	dead := make(map[T]bool, len(remove))
	for _, r := range remove {
		dead[r] = true
	}
	out := pool[:0]
	for _, p := range pool {
		if !dead[p] {
			out = append(out, p)
		}
	}
	return out
}

func evalConstExpr(inst *ModuleInstance, e ir.ConstantExpr) UntaggedValue {
	switch e.Op {
	case ir.ConstExprI32Const:
		return I32Value(uint32(e.I64))
	case ir.ConstExprI64Const:
		return I64Value(uint64(e.I64))
	case ir.ConstExprF32Const:
		return UntaggedValue{word: uint64(uint32(e.I64))}
	case ir.ConstExprF64Const:
		return UntaggedValue{word: uint64(e.I64)}
	case ir.ConstExprV128Const:
		return V128Value(e.V128)
	case ir.ConstExprRefNull:
		return UntaggedValue{}
	case ir.ConstExprGlobalGet:
		idx := int(e.I64)
		if idx < 0 || idx >= len(inst.Globals) {
			invariantViolation("evalConstExpr: global.get index %d out of bounds", idx)
		}
		return inst.Globals[idx].Get()
	default:
		invariantViolation("evalConstExpr: unknown ConstExprOp %d", e.Op)
		panic("unreachable")
	}
}

// InvokeFunction is the host-facing invokeFunction operation of spec.md §6:
// it calls fn with args inside the same signal and platform-exception guards
// runGuarded uses for the start function, so a fault in a real JIT-compiled
// body — an access violation, a genuine divide-by-zero, a raised language
// exception — is always converted to a *RuntimeTrap rather than a raw Go
// panic escaping to the host (spec.md §9: "host code never observes
// language-level exceptions from the core surface"). Every call site that
// invokes an exported function after instantiateModule must go through
// InvokeFunction rather than calling fn.Code.Invoke directly.
func InvokeFunction(ctx context.Context, fn *Function, args []uint64) ([]uint64, *RuntimeTrap) {
	var results []uint64
	var trap *RuntimeTrap
	platform.CatchPlatformExceptions(func() {
		platform.CatchSignals(func() {
			r, err := fn.Code.Invoke(ctx, args)
			if err != nil {
				trap = classifyInvokeError(err)
				return
			}
			results = r
		}, func(sig platform.Signal, stack platform.CallStack) bool {
			trap = &RuntimeTrap{Kind: signalKindToTrapKind(sig.Kind), Detail: sig.Detail, Stack: stack}
			return true
		})
	}, func(data interface{}, stack platform.CallStack) {
		trap = &RuntimeTrap{Kind: TrapUnhandledException, DataPtr: data, Stack: stack}
	})
	if trap != nil {
		Logger().Warn("invokeFunction: trapped", zap.String("function", fn.DebugName), zap.Stringer("trapKind", trap.Kind))
	}
	return results, trap
}

// runGuarded invokes fn with no arguments inside the same guards
// InvokeFunction uses, for the start-function step of instantiateModule
// (spec.md §4.G step 7, §4.C), which has no caller-supplied arguments and no
// results to report.
func runGuarded(ctx context.Context, fn *Function) *RuntimeTrap {
	_, trap := InvokeFunction(ctx, fn, nil)
	return trap
}

// classifyInvokeError turns an error returned by CompiledFunction.Invoke into
// a RuntimeTrap whose Stack is the host call stack at the point the error
// was classified.
func classifyInvokeError(err error) *RuntimeTrap {
	pcs := make([]uintptr, 64)
	stack := platform.CallStack{IPs: pcs[:runtime.Callers(2, pcs)]}
	if errors.Is(err, compiledfunc.ErrUnreachable) {
		return &RuntimeTrap{Kind: TrapUnreachable, Detail: err.Error(), Stack: stack}
	}
	return &RuntimeTrap{Kind: TrapUnhandledException, Detail: err.Error(), Stack: stack}
}

func signalKindToTrapKind(k platform.SignalKind) RuntimeTrapKind {
	switch k {
	case platform.SignalAccessViolation:
		return TrapAccessViolation
	case platform.SignalStackOverflow:
		return TrapStackOverflow
	case platform.SignalIntDivideByZeroOrOverflow:
		return TrapIntDivByZeroOrOverflow
	default:
		invariantViolation("signalKindToTrapKind: unknown SignalKind %d", k)
		panic("unreachable")
	}
}
