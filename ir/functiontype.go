package ir

import "fmt"

// FunctionType is a hash-consed pair of (results, params) TypeTuples
// (spec.md §3). Like TypeTuple, equality is pointer identity of the
// interned representative.
type FunctionType struct {
	impl *functionTypeImpl
}

type functionTypeImpl struct {
	hash    uint64
	results TypeTuple
	params  TypeTuple
	handle  uint64
}

// InternFunctionType returns the interned representative for (results, params).
func InternFunctionType(results, params TypeTuple) FunctionType {
	r := globalRegistry()
	key := fmt.Sprintf("%d:%d", results.Hash(), params.Hash()) + "|" + results.String() + "->" + params.String()

	r.mu.Lock()
	defer r.mu.Unlock()
	if impl, ok := r.funcs[key]; ok {
		return FunctionType{impl}
	}
	impl := &functionTypeImpl{
		hash:    results.Hash()*31 + params.Hash(),
		results: results,
		params:  params,
	}
	impl.handle = uint64(len(r.funcs)) + 1
	r.funcs[key] = impl
	r.byHandle[impl.handle] = impl
	return FunctionType{impl}
}

// Results returns the function's result TypeTuple.
func (f FunctionType) Results() TypeTuple { return f.impl.results }

// Params returns the function's parameter TypeTuple.
func (f FunctionType) Params() TypeTuple { return f.impl.params }

// Hash returns the precomputed hash of the function type.
func (f FunctionType) Hash() uint64 { return f.impl.hash }

// Equal reports whether two function types are the same interned representative.
func (f FunctionType) Equal(o FunctionType) bool { return f.impl == o.impl }

// IsValid reports whether f refers to an interned representative (the zero
// value of FunctionType is not valid).
func (f FunctionType) IsValid() bool { return f.impl != nil }

func (f FunctionType) String() string {
	return f.Params().String() + "->" + f.Results().String()
}

// Encoding is a pointer-sized token that round-trips back to the same
// FunctionType via Decode. It is embedded in JIT code as a signature
// fingerprint for indirect-call checks (spec.md §3, §8 property 3).
type Encoding uint64

// Encode returns f's pointer-sized encoding token.
func Encode(f FunctionType) Encoding { return Encoding(f.impl.handle) }

// Decode returns the FunctionType that e was produced from by Encode.
//
// Decode(Encode(f)) == f for every interned f (spec.md §8 property 3).
func Decode(e Encoding) (FunctionType, bool) {
	r := globalRegistry()
	r.mu.Lock()
	defer r.mu.Unlock()
	impl, ok := r.byHandle[uint64(e)]
	if !ok {
		return FunctionType{}, false
	}
	return FunctionType{impl}, true
}
