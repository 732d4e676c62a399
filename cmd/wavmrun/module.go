package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/a4a881d4/WAVM/ir"
)

// moduleDoc is the on-disk JSON form of an ir.Module. This reference runner
// accepts JSON rather than the real Wasm binary or WAST text formats, both
// of which are out of scope for this module's core (spec.md §1 Non-goals);
// loadModule's job is entirely to turn this document into the interned,
// hash-consed ir.Module the linker and instantiator expect.
type moduleDoc struct {
	DebugName      string          `json:"debugName"`
	Types          []functionDoc   `json:"types"`
	Imports        []importDoc     `json:"imports"`
	Functions      []functionDefDoc `json:"functions"`
	Tables         []tableDoc      `json:"tables"`
	Memories       []memoryDoc     `json:"memories"`
	Globals        []globalDoc     `json:"globals"`
	ExceptionTypes []exceptionDoc  `json:"exceptionTypes"`
	Exports        []exportDoc     `json:"exports"`
	Elements       []elementDoc    `json:"elements"`
	Data           []dataDoc       `json:"data"`
	Start          *uint32         `json:"start"`
}

type functionDoc struct {
	Params  []string `json:"params"`
	Results []string `json:"results"`
}

type importDoc struct {
	ModuleName string     `json:"moduleName"`
	ExportName string     `json:"exportName"`
	Type       typeRefDoc `json:"type"`
}

// typeRefDoc is a tagged union naming which kind of ObjectType an import
// expects (exports carry a plain kind and index instead), with only the fields relevant to that kind populated.
type typeRefDoc struct {
	Kind      string   `json:"kind"`
	TypeIndex *int     `json:"typeIndex,omitempty"`
	Table     *tableDoc  `json:"table,omitempty"`
	Memory    *memoryDoc `json:"memory,omitempty"`
	Global    *globalTypeDoc `json:"global,omitempty"`
	Exception *exceptionDoc  `json:"exception,omitempty"`
}

type functionDefDoc struct {
	TypeIndex int    `json:"typeIndex"`
	Code      string `json:"code"` // base64
}

type tableDoc struct {
	Element string `json:"element"` // "anyref" | "anyfunc"
	Shared  bool   `json:"shared"`
	Min     uint64 `json:"min"`
	Max     *uint64 `json:"max"`
}

type memoryDoc struct {
	Shared bool    `json:"shared"`
	Min    uint64  `json:"min"`
	Max    *uint64 `json:"max"`
}

type globalTypeDoc struct {
	ValueType string `json:"valueType"`
	Mutable   bool   `json:"mutable"`
}

type globalDoc struct {
	globalTypeDoc
	Init constExprDoc `json:"init"`
}

type exceptionDoc struct {
	Params []string `json:"params"`
}

type exportDoc struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Index uint32 `json:"index"`
}

type elementDoc struct {
	TableIndex uint32       `json:"tableIndex"`
	Offset     constExprDoc `json:"offset"`
	Init       []uint32     `json:"init"`
}

type dataDoc struct {
	MemoryIndex uint32       `json:"memoryIndex"`
	Offset      constExprDoc `json:"offset"`
	Init        string       `json:"init"` // base64
}

type constExprDoc struct {
	Op    string `json:"op"`
	Value int64  `json:"value,omitempty"`
	V128  string `json:"v128,omitempty"` // base64, only for "v128.const"
}

func loadModule(path string) (*ir.Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module file: %w", err)
	}
	var doc moduleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing module JSON: %w", err)
	}
	return buildModule(&doc)
}

func buildModule(doc *moduleDoc) (*ir.Module, error) {
	types := make([]ir.FunctionType, len(doc.Types))
	for i, td := range doc.Types {
		params, err := valueTypeTuple(td.Params)
		if err != nil {
			return nil, fmt.Errorf("types[%d]: %w", i, err)
		}
		results, err := valueTypeTuple(td.Results)
		if err != nil {
			return nil, fmt.Errorf("types[%d]: %w", i, err)
		}
		types[i] = ir.InternFunctionType(results, params)
	}

	m := &ir.Module{DebugName: doc.DebugName, Types: types, Start: doc.Start}

	for i, id := range doc.Imports {
		ot, err := buildObjectType(id.Type, types)
		if err != nil {
			return nil, fmt.Errorf("imports[%d]: %w", i, err)
		}
		m.Imports = append(m.Imports, ir.Import{ModuleName: id.ModuleName, ExportName: id.ExportName, Type: ot})
	}

	for i, fd := range doc.Functions {
		if fd.TypeIndex < 0 || fd.TypeIndex >= len(types) {
			return nil, fmt.Errorf("functions[%d]: typeIndex %d out of range", i, fd.TypeIndex)
		}
		code, err := base64.StdEncoding.DecodeString(fd.Code)
		if err != nil {
			return nil, fmt.Errorf("functions[%d]: decoding code: %w", i, err)
		}
		m.Functions = append(m.Functions, ir.FunctionDef{Type: types[fd.TypeIndex], Code: code})
	}

	for i, td := range doc.Tables {
		tt, err := buildTableType(td)
		if err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", i, err)
		}
		m.Tables = append(m.Tables, tt)
	}

	for _, md := range doc.Memories {
		m.Memories = append(m.Memories, buildMemoryType(md))
	}

	for i, gd := range doc.Globals {
		vt, err := parseValueType(gd.ValueType)
		if err != nil {
			return nil, fmt.Errorf("globals[%d]: %w", i, err)
		}
		ce, err := buildConstExpr(gd.Init)
		if err != nil {
			return nil, fmt.Errorf("globals[%d]: %w", i, err)
		}
		m.Globals = append(m.Globals, ir.GlobalDef{Type: ir.GlobalType{ValueType: vt, Mutable: gd.Mutable}, Init: ce})
	}

	for i, ed := range doc.ExceptionTypes {
		params, err := valueTypeTuple(ed.Params)
		if err != nil {
			return nil, fmt.Errorf("exceptionTypes[%d]: %w", i, err)
		}
		m.ExceptionTypes = append(m.ExceptionTypes, ir.ExceptionType{Params: params})
	}

	for i, xd := range doc.Exports {
		kind, err := parseObjectKind(xd.Kind)
		if err != nil {
			return nil, fmt.Errorf("exports[%d]: %w", i, err)
		}
		m.Exports = append(m.Exports, ir.Export{Name: xd.Name, Kind: kind, Index: xd.Index})
	}

	for i, el := range doc.Elements {
		offset, err := buildConstExpr(el.Offset)
		if err != nil {
			return nil, fmt.Errorf("elements[%d]: %w", i, err)
		}
		m.Elements = append(m.Elements, ir.ElementSegment{TableIndex: el.TableIndex, Offset: offset, Init: el.Init})
	}

	for i, dd := range doc.Data {
		offset, err := buildConstExpr(dd.Offset)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		init, err := base64.StdEncoding.DecodeString(dd.Init)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: decoding init: %w", i, err)
		}
		m.Data = append(m.Data, ir.DataSegment{MemoryIndex: dd.MemoryIndex, Offset: offset, Init: init})
	}

	return m, nil
}

func buildObjectType(td typeRefDoc, types []ir.FunctionType) (ir.ObjectType, error) {
	switch td.Kind {
	case "function":
		if td.TypeIndex == nil || *td.TypeIndex < 0 || *td.TypeIndex >= len(types) {
			return ir.ObjectType{}, fmt.Errorf("function import: missing or out-of-range typeIndex")
		}
		return ir.NewFunctionObjectType(types[*td.TypeIndex]), nil
	case "table":
		if td.Table == nil {
			return ir.ObjectType{}, fmt.Errorf("table import: missing table descriptor")
		}
		tt, err := buildTableType(*td.Table)
		if err != nil {
			return ir.ObjectType{}, err
		}
		return ir.NewTableObjectType(tt), nil
	case "memory":
		if td.Memory == nil {
			return ir.ObjectType{}, fmt.Errorf("memory import: missing memory descriptor")
		}
		return ir.NewMemoryObjectType(buildMemoryType(*td.Memory)), nil
	case "global":
		if td.Global == nil {
			return ir.ObjectType{}, fmt.Errorf("global import: missing global descriptor")
		}
		vt, err := parseValueType(td.Global.ValueType)
		if err != nil {
			return ir.ObjectType{}, err
		}
		return ir.NewGlobalObjectType(ir.GlobalType{ValueType: vt, Mutable: td.Global.Mutable}), nil
	case "exceptionType":
		if td.Exception == nil {
			return ir.ObjectType{}, fmt.Errorf("exception import: missing exception descriptor")
		}
		params, err := valueTypeTuple(td.Exception.Params)
		if err != nil {
			return ir.ObjectType{}, err
		}
		return ir.NewExceptionObjectType(ir.ExceptionType{Params: params}), nil
	default:
		return ir.ObjectType{}, fmt.Errorf("unknown import kind %q", td.Kind)
	}
}

func buildTableType(td tableDoc) (ir.TableType, error) {
	elem, err := parseValueType(td.Element)
	if err != nil {
		return ir.TableType{}, err
	}
	return ir.TableType{Element: elem, Shared: td.Shared, Size: sizeConstraints(td.Min, td.Max)}, nil
}

func buildMemoryType(md memoryDoc) ir.MemoryType {
	return ir.MemoryType{Shared: md.Shared, Size: sizeConstraints(md.Min, md.Max)}
}

func sizeConstraints(min uint64, max *uint64) ir.SizeConstraints {
	if max == nil {
		return ir.SizeConstraints{Min: min, Max: ir.UnboundedSize}
	}
	return ir.SizeConstraints{Min: min, Max: *max}
}

func buildConstExpr(cd constExprDoc) (ir.ConstantExpr, error) {
	switch cd.Op {
	case "i32.const":
		return ir.ConstantExpr{Op: ir.ConstExprI32Const, I64: cd.Value}, nil
	case "i64.const":
		return ir.ConstantExpr{Op: ir.ConstExprI64Const, I64: cd.Value}, nil
	case "f32.const":
		return ir.ConstantExpr{Op: ir.ConstExprF32Const, I64: cd.Value}, nil
	case "f64.const":
		return ir.ConstantExpr{Op: ir.ConstExprF64Const, I64: cd.Value}, nil
	case "v128.const":
		raw, err := base64.StdEncoding.DecodeString(cd.V128)
		if err != nil || len(raw) != 16 {
			return ir.ConstantExpr{}, fmt.Errorf("v128.const: expected 16 base64-decoded bytes")
		}
		var v [16]byte
		copy(v[:], raw)
		return ir.ConstantExpr{Op: ir.ConstExprV128Const, V128: v}, nil
	case "ref.null":
		return ir.ConstantExpr{Op: ir.ConstExprRefNull}, nil
	case "global.get":
		return ir.ConstantExpr{Op: ir.ConstExprGlobalGet, I64: cd.Value}, nil
	default:
		return ir.ConstantExpr{}, fmt.Errorf("unknown const expr op %q", cd.Op)
	}
}

func valueTypeTuple(names []string) (ir.TypeTuple, error) {
	elems := make([]ir.ValueType, len(names))
	for i, n := range names {
		vt, err := parseValueType(n)
		if err != nil {
			return ir.TypeTuple{}, err
		}
		elems[i] = vt
	}
	return ir.InternTuple(elems), nil
}

func parseValueType(name string) (ir.ValueType, error) {
	switch name {
	case "i32":
		return ir.ValueTypeI32, nil
	case "i64":
		return ir.ValueTypeI64, nil
	case "f32":
		return ir.ValueTypeF32, nil
	case "f64":
		return ir.ValueTypeF64, nil
	case "v128":
		return ir.ValueTypeV128, nil
	case "anyref":
		return ir.ValueTypeAnyRef, nil
	case "anyfunc":
		return ir.ValueTypeAnyFunc, nil
	case "nullref":
		return ir.ValueTypeNullRef, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", name)
	}
}

func parseObjectKind(name string) (ir.ObjectKind, error) {
	switch name {
	case "function":
		return ir.ObjectKindFunction, nil
	case "table":
		return ir.ObjectKindTable, nil
	case "memory":
		return ir.ObjectKindMemory, nil
	case "global":
		return ir.ObjectKindGlobal, nil
	case "exceptionType":
		return ir.ObjectKindExceptionType, nil
	default:
		return 0, fmt.Errorf("unknown object kind %q", name)
	}
}
