package columnar

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/mitodl/edupipe/pkg/models"
)

// Schema conversion helpers shared by the Parquet and Arrow implementations.

func toArrowSchema(schema *models.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(schema.Fields))

	for _, field := range schema.Fields {
		arrowType, err := toArrowType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to convert field %s: %w", field.Name, err)
		}

		fields = append(fields, arrow.Field{
			Name:     field.Name,
			Type:     arrowType,
			Nullable: field.Nullable,
		})
	}

	return arrow.NewSchema(fields, nil), nil
}

func toArrowType(fieldType models.FieldType) (arrow.DataType, error) {
	switch fieldType {
	case models.FieldTypeString:
		return arrow.BinaryTypes.String, nil
	case models.FieldTypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case models.FieldTypeFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case models.FieldTypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case models.FieldTypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_ns, nil
	case models.FieldTypeDate:
		return arrow.FixedWidthTypes.Date32, nil
	case models.FieldTypeBinary:
		return arrow.BinaryTypes.Binary, nil
	case models.FieldTypeJSON:
		return arrow.BinaryTypes.String, nil // JSON as string
	default:
		return nil, fmt.Errorf("unsupported field type: %s", fieldType)
	}
}

func fromArrowSchema(name string, arrowSchema *arrow.Schema) *models.Schema {
	fields := make([]models.Field, 0, arrowSchema.NumFields())

	for i := 0; i < arrowSchema.NumFields(); i++ {
		field := arrowSchema.Field(i)

		fields = append(fields, models.Field{
			Name:     field.Name,
			Type:     fromArrowType(field.Type),
			Nullable: field.Nullable,
		})
	}

	return &models.Schema{Name: name, Fields: fields}
}

func fromArrowType(arrowType arrow.DataType) models.FieldType {
	switch arrowType.ID() {
	case arrow.BOOL:
		return models.FieldTypeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return models.FieldTypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return models.FieldTypeFloat
	case arrow.STRING, arrow.LARGE_STRING:
		return models.FieldTypeString
	case arrow.BINARY, arrow.LARGE_BINARY:
		return models.FieldTypeBinary
	case arrow.DATE32, arrow.DATE64:
		return models.FieldTypeDate
	case arrow.TIMESTAMP:
		return models.FieldTypeTimestamp
	default:
		return models.FieldTypeString
	}
}

func appendValue(builder array.Builder, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			b.Append(v)
		} else {
			b.AppendNull()
		}

	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			b.Append(int64(v))
		case int32:
			b.Append(int64(v))
		case int64:
			b.Append(v)
		default:
			b.AppendNull()
		}

	case *array.Float64Builder:
		switch v := value.(type) {
		case float32:
			b.Append(float64(v))
		case float64:
			b.Append(v)
		default:
			b.AppendNull()
		}

	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}

	case *array.TimestampBuilder:
		switch v := value.(type) {
		case time.Time:
			b.Append(arrow.Timestamp(v.UnixNano()))
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				b.Append(arrow.Timestamp(t.UnixNano()))
			} else {
				b.AppendNull()
			}
		default:
			b.AppendNull()
		}

	case *array.Date32Builder:
		switch v := value.(type) {
		case time.Time:
			b.Append(arrow.Date32FromTime(v))
		case string:
			if t, err := time.Parse("2006-01-02", v); err == nil {
				b.Append(arrow.Date32FromTime(t))
			} else {
				b.AppendNull()
			}
		default:
			b.AppendNull()
		}

	case *array.BinaryBuilder:
		switch v := value.(type) {
		case []byte:
			b.Append(v)
		case string:
			b.Append([]byte(v))
		default:
			b.AppendNull()
		}

	default:
		return fmt.Errorf("unsupported builder type: %T", builder)
	}

	return nil
}

func columnValue(col arrow.Array, rowIdx int) interface{} {
	if col.IsNull(rowIdx) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(rowIdx)
	case *array.Int64:
		return c.Value(rowIdx)
	case *array.Float64:
		return c.Value(rowIdx)
	case *array.String:
		return c.Value(rowIdx)
	case *array.Binary:
		return c.Value(rowIdx)
	case *array.Timestamp:
		return time.Unix(0, int64(c.Value(rowIdx)))
	case *array.Date32:
		return c.Value(rowIdx).ToTime()
	default:
		return nil
	}
}
