package columnar

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/edupipe/pkg/models"
)

var testSchema = &models.Schema{
	Name: "events",
	Fields: []models.Field{
		{Name: "id", Type: models.FieldTypeInt, Nullable: false},
		{Name: "name", Type: models.FieldTypeString, Nullable: true},
		{Name: "active", Type: models.FieldTypeBool, Nullable: true},
		{Name: "score", Type: models.FieldTypeFloat, Nullable: true},
		{Name: "created_at", Type: models.FieldTypeTimestamp, Nullable: true},
	},
}

func testRecords() []*models.Record {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Record{
		models.NewRecord("test", map[string]interface{}{
			"id": int64(1), "name": "alpha", "active": true, "score": 1.5, "created_at": created,
		}),
		models.NewRecord("test", map[string]interface{}{
			"id": int64(2), "name": "beta", "active": false, "score": 2.5, "created_at": created.Add(time.Hour),
		}),
		models.NewRecord("test", map[string]interface{}{
			"id": int64(3), "name": nil, "active": nil, "score": nil, "created_at": nil,
		}),
	}
}

func roundTrip(t *testing.T, format Format) []*models.Record {
	t.Helper()

	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Format = format
	cfg.Schema = testSchema

	w, err := NewWriter(&buf, cfg)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecords(testRecords()))
	require.NoError(t, w.Close())
	assert.Equal(t, int64(3), w.RecordsWritten())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), &ReaderConfig{Format: format})
	require.NoError(t, err)
	defer r.Close()

	records, err := r.ReadRecords()
	require.NoError(t, err)

	schema, err := r.Schema()
	require.NoError(t, err)
	assert.Equal(t, testSchema.FieldNames(), schema.FieldNames())

	return records
}

func TestParquetRoundTrip(t *testing.T) {
	records := roundTrip(t, Parquet)
	require.Len(t, records, 3)

	assert.Equal(t, int64(1), records[0].Data["id"])
	assert.Equal(t, "alpha", records[0].Data["name"])
	assert.Equal(t, true, records[0].Data["active"])
	assert.Equal(t, 1.5, records[0].Data["score"])

	created, ok := records[0].Data["created_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, created.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))

	// Null values survive the trip as nils.
	assert.Nil(t, records[2].Data["name"])
	assert.Nil(t, records[2].Data["score"])
}

func TestArrowRoundTrip(t *testing.T) {
	records := roundTrip(t, Arrow)
	require.Len(t, records, 3)

	assert.Equal(t, int64(2), records[1].Data["id"])
	assert.Equal(t, "beta", records[1].Data["name"])
	assert.Nil(t, records[2].Data["active"])
}

func TestWriterRequiresSchema(t *testing.T) {
	var buf bytes.Buffer

	for _, format := range []Format{Parquet, Arrow} {
		_, err := NewWriter(&buf, &WriterConfig{Format: format, BatchSize: 10})
		assert.Error(t, err)
	}
}

func TestWriterBatchFlush(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultWriterConfig()
	cfg.Schema = testSchema
	cfg.BatchSize = 2 // force a mid-write flush

	w, err := NewWriter(&buf, cfg)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecords(testRecords()))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), &ReaderConfig{Format: Parquet})
	require.NoError(t, err)
	defer r.Close()

	records, err := r.ReadRecords()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "parquet", want: Parquet},
		{input: "arrow", want: Arrow},
		{input: "orc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".parquet", Extension(Parquet))
	assert.Equal(t, ".arrow", Extension(Arrow))
}
