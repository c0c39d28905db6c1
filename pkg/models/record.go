// Package models provides the data models shared across the pipeline:
// records read from the warehouse or the courses API, and the schema
// metadata used to project and encode them.
package models

import "time"

// Record is a single row of data keyed by field name. Values are opaque;
// the columnar writers narrow them to concrete Arrow types at encode time.
type Record struct {
	// Data holds the field values keyed by field name.
	Data map[string]interface{}

	// Metadata carries provenance information about the record.
	Metadata RecordMetadata
}

// RecordMetadata carries provenance information for a record.
type RecordMetadata struct {
	// Source names the component that produced the record
	// (e.g. "bigquery", "edx_courses").
	Source string

	// Timestamp is when the record was read.
	Timestamp time.Time
}

// NewRecord creates a record with the given source and data.
func NewRecord(source string, data map[string]interface{}) *Record {
	return &Record{
		Data: data,
		Metadata: RecordMetadata{
			Source:    source,
			Timestamp: time.Now(),
		},
	}
}

// Schema describes the structure of a set of records.
type Schema struct {
	// Name identifies the schema (e.g. the source table name).
	Name string `json:"name"`

	// Fields defines the structure of the data, in column order.
	Fields []Field `json:"fields"`
}

// Field represents a single field in a schema.
type Field struct {
	// Name is the field identifier.
	Name string `json:"name"`

	// Type specifies the data type.
	Type FieldType `json:"type"`

	// Nullable indicates whether the field may be absent or null.
	Nullable bool `json:"nullable"`
}

// FieldType represents the data type of a field.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeDate      FieldType = "date"
	FieldTypeJSON      FieldType = "json"
	FieldTypeBinary    FieldType = "binary"
)

// FieldNames returns the names of the schema's fields in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Project returns a copy of the schema narrowed to the named fields,
// preserving the schema's own field order. Names not present in the
// schema are silently omitted.
func (s *Schema) Project(names []string) *Schema {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	projected := &Schema{Name: s.Name}
	for _, f := range s.Fields {
		if _, ok := wanted[f.Name]; ok {
			projected.Fields = append(projected.Fields, f)
		}
	}
	return projected
}
