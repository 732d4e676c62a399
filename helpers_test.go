package wavm

import (
	"github.com/a4a881d4/WAVM/compiledfunc"
	"github.com/a4a881d4/WAVM/ir"
)

// newTestFunction registers a zero-result stub function in c, for tests
// that need a concrete Object to store in a table slot or pass as a
// resolved import without exercising the linker or instantiator themselves.
func newTestFunction(c *Compartment) *Function {
	ft := ir.InternFunctionType(ir.EmptyTuple(), ir.EmptyTuple())
	compiled, err := compiledfunc.StubCompiler{}.Compile(ft, compiledfunc.ZeroResultsCode(0))
	if err != nil {
		panic(err)
	}
	fn := newFunction(c.ID, ft, compiled, "test-function", nil)
	c.registerFunction(fn)
	return fn
}
