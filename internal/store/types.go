package store

import "time"

// Module is one analyzed source file as remembered by the cache.
type Module struct {
	ID          int64
	Path        string
	PackageID   string
	Fingerprint string
	AnalyzedAt  time.Time
}

// ExprType is the inferred type of one expression, keyed by the node kind
// and its byte span within the module.
type ExprType struct {
	ID          int64
	ModuleID    int64
	Kind        string
	StartOffset int
	EndOffset   int
	TypeString  string
}

// Diagnostic is a non-fatal checker message recorded against a module.
type Diagnostic struct {
	ID       int64
	ModuleID int64
	Position string
	Message  string
}
