package wavm

import (
	"go.uber.org/zap"

	"github.com/a4a881d4/WAVM/ir"
)

// Resolver maps an import's (moduleName, exportName, expectedType) to a
// concrete object (spec.md §4.F, glossary "Resolver"). linkModule calls
// Resolve once per import, in declared order.
type Resolver interface {
	Resolve(moduleName, exportName string, expectedType ir.ObjectType) (ok bool, object Object)
}

// LinkResult is linkModule's return value: every import's resolution
// outcome, not just the first failure (spec.md §4.F).
type LinkResult struct {
	Success         bool
	ResolvedImports []Object
	MissingImports  []ImportRef
	Mismatches      []Mismatch
}

// Err returns a *LinkError describing the failure, or nil if Success.
func (r *LinkResult) Err() error {
	if r.Success {
		return nil
	}
	return &LinkError{MissingImports: r.MissingImports, Mismatches: r.Mismatches}
}

// LinkModule walks module's imports in declared order, consulting resolver
// for each, and reports the full set of problems found rather than
// stopping at the first one (spec.md §4.F).
func LinkModule(module *ir.Module, resolver Resolver) *LinkResult {
	result := &LinkResult{
		Success:         true,
		ResolvedImports: make([]Object, 0, len(module.Imports)),
	}

	for _, imp := range module.Imports {
		ok, obj := resolver.Resolve(imp.ModuleName, imp.ExportName, imp.Type)
		if !ok {
			result.Success = false
			result.MissingImports = append(result.MissingImports, ImportRef{ModuleName: imp.ModuleName, ExportName: imp.ExportName})
			result.ResolvedImports = append(result.ResolvedImports, nil)
			continue
		}
		got := asObjectType(obj)
		if !ir.IsSubtypeObject(got, imp.Type) {
			result.Success = false
			result.Mismatches = append(result.Mismatches, Mismatch{
				Import: ImportRef{ModuleName: imp.ModuleName, ExportName: imp.ExportName},
				Want:   imp.Type,
				Got:    got,
			})
			result.ResolvedImports = append(result.ResolvedImports, nil)
			continue
		}
		result.ResolvedImports = append(result.ResolvedImports, obj)
	}

	if !result.Success {
		for _, m := range result.MissingImports {
			Logger().Warn("linkModule: missing import", zap.String("import", m.String()))
		}
		for _, m := range result.Mismatches {
			Logger().Warn("linkModule: type mismatch",
				zap.String("import", m.Import.String()), zap.Stringer("want", m.Want.Kind()), zap.Stringer("got", m.Got.Kind()))
		}
	}

	return result
}
