package wavm

import (
	"context"

	"github.com/a4a881d4/WAVM/compiledfunc"
)

// RuntimeConfig controls the behavior of one InstantiateModule call (it is
// passed there, not to NewCompartment), following the clone-then-override functional-option shape
// this module's teacher uses for its own RuntimeConfig.
type RuntimeConfig struct {
	ctx      context.Context
	compiler compiledfunc.Compiler
	// gcAfterEveryInstantiate, when true, makes instantiateModule run
	// collectGarbage on the target compartment just before it returns a
	// successfully instantiated module. It exists for tests and callers that
	// would rather trade throughput for a compartment that never
	// accumulates instantiation scratch; production embedders leave it
	// false and call collectGarbage on their own schedule.
	gcAfterEveryInstantiate bool
}

// defaultConfig avoids copy/pasting the same defaults at every construction site.
var defaultConfig = &RuntimeConfig{
	ctx:      context.Background(),
	compiler: compiledfunc.StubCompiler{},
}

// NewRuntimeConfig returns the default configuration: a background context
// and compiledfunc.StubCompiler as the function body compiler. Override the
// compiler via WithCompiler to plug in a real JIT backend.
func NewRuntimeConfig() *RuntimeConfig {
	return defaultConfig.clone()
}

// Context returns the context InstantiateModule passes to the start
// function. InvokeFunction always takes its context as an explicit
// argument; a caller that wants this one passes it there.
func (c *RuntimeConfig) Context() context.Context { return c.ctx }

func (c *RuntimeConfig) clone() *RuntimeConfig {
	return &RuntimeConfig{
		ctx:                     c.ctx,
		compiler:                c.compiler,
		gcAfterEveryInstantiate: c.gcAfterEveryInstantiate,
	}
}

// WithContext sets the context passed to a module's start function (see
// Context). Defaults to context.Background if ctx is nil.
func (c *RuntimeConfig) WithContext(ctx context.Context) *RuntimeConfig {
	if ctx == nil {
		ctx = context.Background()
	}
	ret := c.clone()
	ret.ctx = ctx
	return ret
}

// WithCompiler overrides the Compiler used to turn FunctionDef.Code into a
// callable compiledfunc.CompiledFunction for module-local definitions.
// StubResolver's synthesized stub bodies are compiled by its own Compiler
// field instead.
func (c *RuntimeConfig) WithCompiler(compiler compiledfunc.Compiler) *RuntimeConfig {
	ret := c.clone()
	ret.compiler = compiler
	return ret
}

// WithGCAfterEveryInstantiate enables an automatic collectGarbage call at
// the end of every instantiateModule, trading throughput for a compartment
// that never accumulates instantiation scratch across calls.
func (c *RuntimeConfig) WithGCAfterEveryInstantiate(enabled bool) *RuntimeConfig {
	ret := c.clone()
	ret.gcAfterEveryInstantiate = enabled
	return ret
}
