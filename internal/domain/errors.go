package domain

import "fmt"

// SchemaError reports a required column missing from an input table.
// It is fatal: the pipeline never silently coerces a missing column to null.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q: required column %q is missing", e.Table, e.Column)
}

// NewSchemaError builds a SchemaError for the given table and column.
func NewSchemaError(table, column string) *SchemaError {
	return &SchemaError{Table: table, Column: column}
}
