package database

// Atomic writes
//
// SurrealDB over the websocket RPC has no connection-scoped transactions, so
// atomicity is achieved by sending all statements in one request wrapped in
// BEGIN/COMMIT TRANSACTION. Statements are accumulated first and executed
// together; there is no isolation between Add calls.
//
//	batch := NewAtomicBatch()
//	batch.Add("UPDATE type::record($id) CONTENT $content", vars1)
//	batch.Add("UPDATE type::record($user) SET current_quest = $p", vars2)
//	batch.Execute(ctx, db)

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// TxBuilder builds a transaction query, prefixing variables per statement so
// two statements can both use $id without colliding.
type TxBuilder struct {
	statements []string
	vars       map[string]interface{}
}

// NewTxBuilder creates a new transaction builder
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{vars: make(map[string]interface{})}
}

// Add appends a statement, renaming each $name to $s<N>_name
func (tb *TxBuilder) Add(query string, vars map[string]interface{}) {
	prefix := fmt.Sprintf("s%d_", len(tb.statements)+1)

	// Longest names first so $id does not clobber $id_list.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	for _, name := range names {
		query = strings.ReplaceAll(query, "$"+name, "$"+prefix+name)
		tb.vars[prefix+name] = vars[name]
	}
	tb.statements = append(tb.statements, query)
}

// Build returns the complete transaction query and merged variables
func (tb *TxBuilder) Build() (string, map[string]interface{}) {
	if len(tb.statements) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range tb.statements {
		sb.WriteString(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	return sb.String(), tb.vars
}

// AtomicBatch runs a handful of statements that must succeed together
type AtomicBatch struct {
	builder *TxBuilder
	n       int
}

// NewAtomicBatch creates a new atomic batch
func NewAtomicBatch() *AtomicBatch {
	return &AtomicBatch{builder: NewTxBuilder()}
}

// Add adds a query to the batch
func (ab *AtomicBatch) Add(query string, vars map[string]interface{}) *AtomicBatch {
	ab.builder.Add(query, vars)
	ab.n++
	return ab
}

// Execute runs all queries as a single transaction
func (ab *AtomicBatch) Execute(ctx context.Context, db Database) error {
	query, vars := ab.builder.Build()
	if query == "" {
		return nil
	}
	return db.Execute(ctx, query, vars)
}

// Len returns the number of queries in the batch
func (ab *AtomicBatch) Len() int {
	return ab.n
}
