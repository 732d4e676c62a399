package ir

// Module is the validated intermediate representation produced by an
// external front end (the WAST parser or the WASM binary decoder — both out
// of scope for this module per spec.md §1) and consumed by the linker and
// instantiator.
//
// Adapted from tetratelabs-wazero's internal/wasm.Module section layout,
// generalized per spec.md §3/SPEC_FULL.md §3.1 to the richer type system
// this module supports: reference types, exception types, and a name→type
// import/export surface keyed on ObjectType rather than wazero's
// WebAssembly-1.0-only ExternType.
type Module struct {
	// DebugName is the module's symbolic name, used in diagnostics.
	DebugName string

	// Types is the module's interned function-type table.
	Types []FunctionType

	// Imports lists the module's imports in declared order. The linker
	// (spec.md §4.F) walks this slice and asks the Resolver for each entry.
	Imports []Import

	// Functions lists local function definitions, index-correlated with their code.
	Functions []FunctionDef

	// Tables lists local table definitions.
	Tables []TableType

	// Memories lists local memory definitions.
	Memories []MemoryType

	// Globals lists local global definitions together with their initializer expression.
	Globals []GlobalDef

	// ExceptionTypes lists local exception type definitions.
	ExceptionTypes []ExceptionType

	// Exports lists the module's exports.
	Exports []Export

	// Elements lists the module's element segments, applied in declaration order.
	Elements []ElementSegment

	// Data lists the module's data segments, applied in declaration order.
	Data []DataSegment

	// Start, if non-nil, is the index (in the function index space, which
	// begins with imported functions) of the function to run once
	// instantiation otherwise completes successfully (spec.md §4.G step 7).
	Start *uint32
}

// Import is one entry of Module.Imports: a name pair plus the type the
// importing module expects the resolved object to be a subtype of.
type Import struct {
	ModuleName string
	ExportName string
	Type       ObjectType
}

// FunctionDef is a local function definition: its signature plus an opaque
// reference to its compiled code. The code itself is produced by the JIT
// collaborator (spec.md §1 Non-goals) via the Compiler interface in the
// compiledfunc package.
type FunctionDef struct {
	Type FunctionType
	Code []byte
}

// GlobalDef is a local global definition: its type plus a constant
// initializer expression.
type GlobalDef struct {
	Type GlobalType
	Init ConstantExpr
}

// Export is one entry of Module.Exports: the name a host or importing
// module may request, the kind of object it resolves to, and the index into
// the corresponding index space (which, like Import, begins with imports
// and is followed by local definitions).
type Export struct {
	Name  string
	Kind  ObjectKind
	Index uint32
}

// ElementSegment initializes a contiguous run of a table's elements with
// function references, evaluated at instantiation time (spec.md §4.G steps 4–6).
type ElementSegment struct {
	TableIndex uint32
	Offset     ConstantExpr
	// Init holds, for each initialized slot, the function index (in the
	// function index space) that slot should reference.
	Init []uint32
}

// DataSegment initializes a contiguous run of a memory's bytes, evaluated at
// instantiation time (spec.md §4.G steps 4–6).
type DataSegment struct {
	MemoryIndex uint32
	Offset      ConstantExpr
	Init        []byte
}

// ConstExprOp is the opcode of a ConstantExpr.
type ConstExprOp uint8

const (
	ConstExprI32Const ConstExprOp = iota
	ConstExprI64Const
	ConstExprF32Const
	ConstExprF64Const
	ConstExprV128Const
	ConstExprRefNull
	// ConstExprGlobalGet reads an imported immutable global, the only
	// non-literal initializer spec.md §4.G step 4 permits.
	ConstExprGlobalGet
)

// ConstantExpr is a single-instruction initializer expression, restricted to
// constants and reads of imported immutable globals (spec.md §4.G step 4).
// A module containing anything else is not valid input to this module: that
// must be caught by module validation before the instantiator is invoked.
type ConstantExpr struct {
	Op ConstExprOp
	// I64 holds the literal payload for I32Const (sign-extended), I64Const,
	// or the bit pattern of F32Const/F64Const, or the global index for GlobalGet.
	I64 int64
	// V128 holds the 16-byte literal payload for V128Const.
	V128 [16]byte
}
