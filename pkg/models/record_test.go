package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	record := NewRecord("bigquery", map[string]interface{}{"user_id": int64(7)})

	assert.Equal(t, "bigquery", record.Metadata.Source)
	assert.False(t, record.Metadata.Timestamp.IsZero())
	assert.Equal(t, int64(7), record.Data["user_id"])
}

func TestSchemaProject(t *testing.T) {
	schema := &Schema{
		Name: "user_info_combo",
		Fields: []Field{
			{Name: "user_id", Type: FieldTypeInt},
			{Name: "username", Type: FieldTypeString},
			{Name: "email", Type: FieldTypeString},
			{Name: "password_hash", Type: FieldTypeString},
		},
	}

	// Projection order follows the schema, not the requested names, and
	// names the schema does not carry are omitted.
	projected := schema.Project([]string{"email", "user_id", "does_not_exist"})

	require.Equal(t, []string{"user_id", "email"}, projected.FieldNames())
	assert.Equal(t, "user_info_combo", projected.Name)
	assert.Equal(t, FieldTypeInt, projected.Fields[0].Type)

	// The original schema is untouched.
	assert.Len(t, schema.Fields, 4)
}

func TestSchemaProjectEmpty(t *testing.T) {
	schema := &Schema{Name: "t", Fields: []Field{{Name: "a", Type: FieldTypeString}}}

	projected := schema.Project(nil)
	assert.Empty(t, projected.Fields)
}
