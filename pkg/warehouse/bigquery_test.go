package warehouse

import (
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/mitodl/edupipe/pkg/models"
)

func TestConvertSchema(t *testing.T) {
	schema := convertSchema("user_info_combo", bigquery.Schema{
		{Name: "user_id", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "username", Type: bigquery.StringFieldType},
		{Name: "is_staff", Type: bigquery.BooleanFieldType},
		{Name: "created", Type: bigquery.TimestampFieldType},
		{Name: "meta", Type: bigquery.JSONFieldType},
	})

	require.Len(t, schema.Fields, 5)
	assert.Equal(t, "user_info_combo", schema.Name)

	assert.Equal(t, models.FieldTypeInt, schema.Fields[0].Type)
	assert.False(t, schema.Fields[0].Nullable)
	assert.Equal(t, models.FieldTypeString, schema.Fields[1].Type)
	assert.True(t, schema.Fields[1].Nullable)
	assert.Equal(t, models.FieldTypeBool, schema.Fields[2].Type)
	assert.Equal(t, models.FieldTypeTimestamp, schema.Fields[3].Type)
	assert.Equal(t, models.FieldTypeJSON, schema.Fields[4].Type)
}

func TestConvertFieldTypeFallback(t *testing.T) {
	assert.Equal(t, models.FieldTypeString, convertFieldType(bigquery.GeographyFieldType))
}

func TestIsNotFound(t *testing.T) {
	notFound := &googleapi.Error{Code: http.StatusNotFound}
	assert.True(t, isNotFound(notFound))
	assert.True(t, isNotFound(fmt.Errorf("metadata: %w", notFound)))

	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(fmt.Errorf("plain failure")))
	assert.False(t, isNotFound(nil))
}
