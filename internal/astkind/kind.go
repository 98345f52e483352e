// Package astkind enumerates the closed set of go/ast node kinds and
// classifies which of them can carry a value.
package astkind

import "go/ast"

// Kind identifies the concrete type of a go/ast node.
type Kind uint8

const (
	Unknown Kind = iota

	// Expressions and type literals.
	BadExpr
	Ident
	Ellipsis
	BasicLit
	FuncLit
	CompositeLit
	ParenExpr
	SelectorExpr
	IndexExpr
	IndexListExpr
	SliceExpr
	TypeAssertExpr
	CallExpr
	StarExpr
	UnaryExpr
	BinaryExpr
	KeyValueExpr
	ArrayType
	StructType
	FuncType
	InterfaceType
	MapType
	ChanType

	// Statements.
	BadStmt
	DeclStmt
	EmptyStmt
	LabeledStmt
	ExprStmt
	SendStmt
	IncDecStmt
	AssignStmt
	GoStmt
	DeferStmt
	ReturnStmt
	BranchStmt
	BlockStmt
	IfStmt
	CaseClause
	SwitchStmt
	TypeSwitchStmt
	CommClause
	SelectStmt
	ForStmt
	RangeStmt

	// Specs and declarations.
	ImportSpec
	ValueSpec
	TypeSpec
	BadDecl
	GenDecl
	FuncDecl

	// Everything else.
	Comment
	CommentGroup
	Field
	FieldList
	File

	numKinds
)

var names = [numKinds]string{
	Unknown:        "Unknown",
	BadExpr:        "BadExpr",
	Ident:          "Ident",
	Ellipsis:       "Ellipsis",
	BasicLit:       "BasicLit",
	FuncLit:        "FuncLit",
	CompositeLit:   "CompositeLit",
	ParenExpr:      "ParenExpr",
	SelectorExpr:   "SelectorExpr",
	IndexExpr:      "IndexExpr",
	IndexListExpr:  "IndexListExpr",
	SliceExpr:      "SliceExpr",
	TypeAssertExpr: "TypeAssertExpr",
	CallExpr:       "CallExpr",
	StarExpr:       "StarExpr",
	UnaryExpr:      "UnaryExpr",
	BinaryExpr:     "BinaryExpr",
	KeyValueExpr:   "KeyValueExpr",
	ArrayType:      "ArrayType",
	StructType:     "StructType",
	FuncType:       "FuncType",
	InterfaceType:  "InterfaceType",
	MapType:        "MapType",
	ChanType:       "ChanType",
	BadStmt:        "BadStmt",
	DeclStmt:       "DeclStmt",
	EmptyStmt:      "EmptyStmt",
	LabeledStmt:    "LabeledStmt",
	ExprStmt:       "ExprStmt",
	SendStmt:       "SendStmt",
	IncDecStmt:     "IncDecStmt",
	AssignStmt:     "AssignStmt",
	GoStmt:         "GoStmt",
	DeferStmt:      "DeferStmt",
	ReturnStmt:     "ReturnStmt",
	BranchStmt:     "BranchStmt",
	BlockStmt:      "BlockStmt",
	IfStmt:         "IfStmt",
	CaseClause:     "CaseClause",
	SwitchStmt:     "SwitchStmt",
	TypeSwitchStmt: "TypeSwitchStmt",
	CommClause:     "CommClause",
	SelectStmt:     "SelectStmt",
	ForStmt:        "ForStmt",
	RangeStmt:      "RangeStmt",
	ImportSpec:     "ImportSpec",
	ValueSpec:      "ValueSpec",
	TypeSpec:       "TypeSpec",
	BadDecl:        "BadDecl",
	GenDecl:        "GenDecl",
	FuncDecl:       "FuncDecl",
	Comment:        "Comment",
	CommentGroup:   "CommentGroup",
	Field:          "Field",
	FieldList:      "FieldList",
	File:           "File",
}

// String returns the go/ast type name of the kind, e.g. "CallExpr".
func (k Kind) String() string {
	if k >= numKinds {
		return names[Unknown]
	}
	return names[k]
}

// CarriesValue reports whether nodes of this kind can denote a value and so
// hold an inferred type. Type literals, key/value pairs, placeholders and all
// statements and declarations do not.
func (k Kind) CarriesValue() bool {
	switch k {
	case Ident, BasicLit, CompositeLit, FuncLit, ParenExpr, SelectorExpr,
		IndexExpr, IndexListExpr, SliceExpr, TypeAssertExpr, CallExpr,
		StarExpr, UnaryExpr, BinaryExpr:
		return true
	}
	return false
}

// Of returns the kind of n. Node types outside the enumeration, including
// the deprecated *ast.Package, report Unknown.
func Of(n ast.Node) Kind {
	switch n.(type) {
	case *ast.BadExpr:
		return BadExpr
	case *ast.Ident:
		return Ident
	case *ast.Ellipsis:
		return Ellipsis
	case *ast.BasicLit:
		return BasicLit
	case *ast.FuncLit:
		return FuncLit
	case *ast.CompositeLit:
		return CompositeLit
	case *ast.ParenExpr:
		return ParenExpr
	case *ast.SelectorExpr:
		return SelectorExpr
	case *ast.IndexExpr:
		return IndexExpr
	case *ast.IndexListExpr:
		return IndexListExpr
	case *ast.SliceExpr:
		return SliceExpr
	case *ast.TypeAssertExpr:
		return TypeAssertExpr
	case *ast.CallExpr:
		return CallExpr
	case *ast.StarExpr:
		return StarExpr
	case *ast.UnaryExpr:
		return UnaryExpr
	case *ast.BinaryExpr:
		return BinaryExpr
	case *ast.KeyValueExpr:
		return KeyValueExpr
	case *ast.ArrayType:
		return ArrayType
	case *ast.StructType:
		return StructType
	case *ast.FuncType:
		return FuncType
	case *ast.InterfaceType:
		return InterfaceType
	case *ast.MapType:
		return MapType
	case *ast.ChanType:
		return ChanType
	case *ast.BadStmt:
		return BadStmt
	case *ast.DeclStmt:
		return DeclStmt
	case *ast.EmptyStmt:
		return EmptyStmt
	case *ast.LabeledStmt:
		return LabeledStmt
	case *ast.ExprStmt:
		return ExprStmt
	case *ast.SendStmt:
		return SendStmt
	case *ast.IncDecStmt:
		return IncDecStmt
	case *ast.AssignStmt:
		return AssignStmt
	case *ast.GoStmt:
		return GoStmt
	case *ast.DeferStmt:
		return DeferStmt
	case *ast.ReturnStmt:
		return ReturnStmt
	case *ast.BranchStmt:
		return BranchStmt
	case *ast.BlockStmt:
		return BlockStmt
	case *ast.IfStmt:
		return IfStmt
	case *ast.CaseClause:
		return CaseClause
	case *ast.SwitchStmt:
		return SwitchStmt
	case *ast.TypeSwitchStmt:
		return TypeSwitchStmt
	case *ast.CommClause:
		return CommClause
	case *ast.SelectStmt:
		return SelectStmt
	case *ast.ForStmt:
		return ForStmt
	case *ast.RangeStmt:
		return RangeStmt
	case *ast.ImportSpec:
		return ImportSpec
	case *ast.ValueSpec:
		return ValueSpec
	case *ast.TypeSpec:
		return TypeSpec
	case *ast.BadDecl:
		return BadDecl
	case *ast.GenDecl:
		return GenDecl
	case *ast.FuncDecl:
		return FuncDecl
	case *ast.Comment:
		return Comment
	case *ast.CommentGroup:
		return CommentGroup
	case *ast.Field:
		return Field
	case *ast.FieldList:
		return FieldList
	case *ast.File:
		return File
	}
	return Unknown
}
