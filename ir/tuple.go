package ir

import (
	"strings"
	"sync"
)

// TypeTuple is an immutable, hash-consed sequence of value types: two tuples
// with identical element sequences share a single interned representative,
// so equality is pointer comparison (spec.md §3).
//
// The zero value is not a valid TypeTuple; use InternTuple, including with
// zero elements for the empty tuple.
type TypeTuple struct {
	impl *tupleImpl
}

type tupleImpl struct {
	hash  uint64
	elems []ValueType
}

// Len returns the number of elements in the tuple.
func (t TypeTuple) Len() int {
	if t.impl == nil {
		return 0
	}
	return len(t.impl.elems)
}

// At returns the element type at index i.
func (t TypeTuple) At(i int) ValueType { return t.impl.elems[i] }

// Elems returns the tuple's elements. Callers must not mutate the result:
// it aliases the interned representative.
func (t TypeTuple) Elems() []ValueType {
	if t.impl == nil {
		return nil
	}
	return t.impl.elems
}

// Hash returns the tuple's precomputed hash, folded from its element hashes.
func (t TypeTuple) Hash() uint64 {
	if t.impl == nil {
		return 0
	}
	return t.impl.hash
}

// Equal reports whether two tuples are the same interned representative.
func (t TypeTuple) Equal(o TypeTuple) bool { return t.impl == o.impl }

func (t TypeTuple) String() string {
	elems := t.Elems()
	if len(elems) == 1 {
		return elems[0].String()
	}
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = e.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func hashTuple(elems []ValueType) uint64 {
	// FNV-1a style fold over element bytes. The intern table itself is keyed
	// by the element bytes; this hash is exposed through Hash and folded into
	// FunctionType's hash, never as a cryptographic or cross-process value.
	var h uint64 = 14695981039346656037
	for _, e := range elems {
		h ^= uint64(e)
		h *= 1099511628211
	}
	return h
}

// typeRegistry is the process-wide intern table for TypeTuple and
// FunctionType (spec.md §4.A). Every InternTuple, InternFunctionType and
// Decode call takes r.mu, hits and misses alike; only comparing two
// already-interned values (Equal) is a lock-free pointer comparison. The
// registry itself is created with the sync.Once-guarded package-level state idiom used for
// process-wide state elsewhere in this module (see platform.PageSize,
// logging.Logger).
type typeRegistry struct {
	mu       sync.Mutex
	tuples   map[string]*tupleImpl
	funcs    map[string]*functionTypeImpl
	byHandle map[uint64]*functionTypeImpl
}

var (
	registry     *typeRegistry
	registryOnce sync.Once
)

func globalRegistry() *typeRegistry {
	registryOnce.Do(func() {
		registry = &typeRegistry{
			tuples:   make(map[string]*tupleImpl),
			funcs:    make(map[string]*functionTypeImpl),
			byHandle: make(map[uint64]*functionTypeImpl),
		}
	})
	return registry
}

func tupleKey(elems []ValueType) string {
	b := make([]byte, len(elems))
	for i, e := range elems {
		b[i] = byte(e)
	}
	return string(b)
}

// InternTuple returns the interned representative for elems. Interning is
// idempotent: InternTuple(InternTuple(x).Elems()) == InternTuple(x).
func InternTuple(elems []ValueType) TypeTuple {
	r := globalRegistry()
	key := tupleKey(elems)

	r.mu.Lock()
	defer r.mu.Unlock()
	if impl, ok := r.tuples[key]; ok {
		return TypeTuple{impl}
	}
	owned := make([]ValueType, len(elems))
	copy(owned, elems)
	impl := &tupleImpl{hash: hashTuple(owned), elems: owned}
	r.tuples[key] = impl
	return TypeTuple{impl}
}

// EmptyTuple is the interned zero-length TypeTuple.
func EmptyTuple() TypeTuple { return InternTuple(nil) }
