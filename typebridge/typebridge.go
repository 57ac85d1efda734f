// Package typebridge implements C1: the bridge between Arrow's columnar
// value representation and the row-oriented rowvalue.RowValue surface, in
// both directions.
package typebridge

import (
	"regexp"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/shopspring/decimal"

	"github.com/lychee-technology/querycore/qcerr"
	"github.com/lychee-technology/querycore/rowvalue"
)

// cutTrailingZeros trims a trailing run of zeros after the decimal point, or
// drops an all-zero fractional part entirely. Mirrors the original engine's
// decimal rendering exactly, including the two-alternative structure.
var cutTrailingZeros = regexp.MustCompile(`^(-?\d+\.[1-9]+)([0]+)$|^(-?\d+)(\.[0]+)$`)

func trimDecimal(s string) string {
	return cutTrailingZeros.ReplaceAllString(s, "$1$3")
}

// ColumnType summarizes an Arrow field's type into the coarse set of column
// kinds the row-value surface exposes.
type ColumnType struct {
	Kind      rowvalue.Kind
	Scale     int32
	Precision int32
}

// ArrowToColumnType summarizes an Arrow DataType into a ColumnType. Returns
// an error (qcerr, TypeTypeCoverage) for Arrow types this bridge does not
// cover, rather than panicking — callers building schema metadata can
// propagate this as an ordinary error.
func ArrowToColumnType(t arrow.DataType) (ColumnType, error) {
	switch dt := t.(type) {
	case *arrow.StringType, *arrow.LargeStringType:
		return ColumnType{Kind: rowvalue.KindString}, nil
	case *arrow.TimestampType:
		return ColumnType{Kind: rowvalue.KindTimestamp}, nil
	case *arrow.Float16Type, *arrow.Float32Type, *arrow.Float64Type:
		return ColumnType{Kind: rowvalue.KindDecimal, Scale: 10, Precision: 18}, nil
	case *arrow.Decimal128Type:
		return ColumnType{Kind: rowvalue.KindDecimal, Scale: dt.Scale, Precision: dt.Precision}, nil
	case *arrow.Decimal256Type:
		return ColumnType{Kind: rowvalue.KindDecimal, Scale: dt.Scale, Precision: dt.Precision}, nil
	case *arrow.BooleanType:
		return ColumnType{Kind: rowvalue.KindBoolean}, nil
	case *arrow.Int8Type, *arrow.Int16Type, *arrow.Int32Type, *arrow.Int64Type,
		*arrow.Uint8Type, *arrow.Uint16Type, *arrow.Uint32Type, *arrow.Uint64Type:
		return ColumnType{Kind: rowvalue.KindInt}, nil
	default:
		return ColumnType{}, qcerr.Newf(qcerr.TypeTypeCoverage, qcerr.CodeUnsupportedArrayType,
			"unsupported arrow type %s", t)
	}
}

// ConvertColumn converts a single Arrow array's values at positions
// [0, numRows) into RowValue, appending one element per row to out[i].
// Panics (via qcerr.Invariant) on an Arrow type this bridge does not cover —
// a malformed batch from the embedded engine is a programmer error, not a
// recoverable input, matching the original's panic! on an unhandled
// DataType arm. Integer columns are converted only for Int32, Int64 and
// Uint64, and floating-point columns only for Float64: Int8, Int16, Uint8,
// Uint16, Uint32, Float16 and Float32 columns panic here even though
// ArrowToColumnType summarizes them without error.
func ConvertColumn(col arrow.Array, out [][]rowvalue.RowValue) {
	numRows := col.Len()
	switch a := col.(type) {
	case *array.Uint64:
		for i := 0; i < numRows; i++ {
			out[i] = append(out[i], intOrNull(a, i, func() int64 { return int64(a.Value(i)) }))
		}
	case *array.Int64:
		for i := 0; i < numRows; i++ {
			out[i] = append(out[i], intOrNull(a, i, func() int64 { return a.Value(i) }))
		}
	case *array.Int32:
		for i := 0; i < numRows; i++ {
			out[i] = append(out[i], intOrNull(a, i, func() int64 { return int64(a.Value(i)) }))
		}
	case *array.Float64:
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			d := decimal.NewFromFloat(a.Value(i))
			out[i] = append(out[i], rowvalue.Decimal(trimDecimal(d.String())))
		}
	case *array.Decimal128:
		dt := a.DataType().(*arrow.Decimal128Type)
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			v := a.Value(i)
			d := decimal.NewFromBigInt(v.BigInt(), -dt.Scale)
			out[i] = append(out[i], rowvalue.Decimal(trimDecimal(d.String())))
		}
	case *array.Decimal256:
		dt := a.DataType().(*arrow.Decimal256Type)
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			v := a.Value(i)
			d := decimal.NewFromBigInt(v.BigInt(), -dt.Scale)
			out[i] = append(out[i], rowvalue.Decimal(trimDecimal(d.String())))
		}
	case *array.Timestamp:
		dt := a.DataType().(*arrow.TimestampType)
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			out[i] = append(out[i], rowvalue.Timestamp(toNanos(int64(a.Value(i)), dt.Unit)))
		}
	case *array.String:
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			out[i] = append(out[i], rowvalue.String(a.Value(i)))
		}
	case *array.LargeString:
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			out[i] = append(out[i], rowvalue.String(a.Value(i)))
		}
	case *array.Boolean:
		for i := 0; i < numRows; i++ {
			if a.IsNull(i) {
				out[i] = append(out[i], rowvalue.Null())
				continue
			}
			out[i] = append(out[i], rowvalue.Boolean(a.Value(i)))
		}
	default:
		panic(qcerr.Invariant(qcerr.CodeUnsupportedArrayType, "unsupported data type: %s", col.DataType()))
	}
}

func intOrNull(a arrow.Array, i int, v func() int64) rowvalue.RowValue {
	if a.IsNull(i) {
		return rowvalue.Null()
	}
	return rowvalue.Int(v())
}

func toNanos(v int64, unit arrow.TimeUnit) int64 {
	switch unit {
	case arrow.Microsecond:
		return v * 1000
	case arrow.Millisecond:
		return v * 1_000_000
	case arrow.Second:
		return v * 1_000_000_000
	default:
		return v
	}
}

// BatchToRows converts a slice of Arrow records into column metadata and a
// flattened row matrix, mirroring batch_to_dataframe: schema is taken from
// the first non-empty-columns batch, empty batches contribute no rows, and
// rows from every batch are concatenated in order.
func BatchToRows(batches []arrow.Record) ([]rowvalue.ColumnMeta, [][]rowvalue.RowValue, error) {
	var cols []rowvalue.ColumnMeta
	var allRows [][]rowvalue.RowValue

	for _, batch := range batches {
		if len(cols) == 0 {
			schema := batch.Schema()
			for _, f := range schema.Fields() {
				ct, err := ArrowToColumnType(f.Type)
				if err != nil {
					return nil, nil, err
				}
				cols = append(cols, rowvalue.ColumnMeta{
					Name:      f.Name,
					Kind:      ct.Kind,
					Scale:     ct.Scale,
					Precision: ct.Precision,
					ArrowType: f.Type.String(),
					Nullable:  f.Nullable,
				})
			}
		}
		if batch.NumRows() == 0 {
			continue
		}
		rows := make([][]rowvalue.RowValue, batch.NumRows())
		for i := range rows {
			rows[i] = make([]rowvalue.RowValue, 0, batch.NumCols())
		}
		for c := 0; c < int(batch.NumCols()); c++ {
			ConvertColumn(batch.Column(c), rows)
		}
		allRows = append(allRows, rows...)
	}
	return cols, allRows, nil
}
