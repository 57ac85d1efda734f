package planner

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/shopspring/decimal"

	"github.com/lychee-technology/querycore/qcerr"
)

type keyKind int

const (
	keyNull keyKind = iota
	keyInt
	keyDecimal
	keyTimestamp
	keyString
	keyBool
)

// rowKeyValue is the minimal comparable value used to order rows during a
// k-way merge — a leaner sibling of rowvalue.RowValue, scoped to what
// compareKeys needs rather than the full materialization surface.
type rowKeyValue struct {
	kind keyKind
	i    int64
	dec  decimal.Decimal
	s    string
	b    bool
}

func extractKey(col arrow.Array, row int) rowKeyValue {
	if col.IsNull(row) {
		return rowKeyValue{kind: keyNull}
	}
	switch a := col.(type) {
	case *array.Int64:
		return rowKeyValue{kind: keyInt, i: a.Value(row)}
	case *array.Uint64:
		return rowKeyValue{kind: keyInt, i: int64(a.Value(row))}
	case *array.Int32:
		return rowKeyValue{kind: keyInt, i: int64(a.Value(row))}
	case *array.Float64:
		return rowKeyValue{kind: keyDecimal, dec: decimal.NewFromFloat(a.Value(row))}
	case *array.Decimal128:
		dt := a.DataType().(*arrow.Decimal128Type)
		return rowKeyValue{kind: keyDecimal, dec: decimal.NewFromBigInt(a.Value(row).BigInt(), -dt.Scale)}
	case *array.Decimal256:
		dt := a.DataType().(*arrow.Decimal256Type)
		return rowKeyValue{kind: keyDecimal, dec: decimal.NewFromBigInt(a.Value(row).BigInt(), -dt.Scale)}
	case *array.Timestamp:
		return rowKeyValue{kind: keyTimestamp, i: int64(a.Value(row))}
	case *array.String:
		return rowKeyValue{kind: keyString, s: a.Value(row)}
	case *array.LargeString:
		return rowKeyValue{kind: keyString, s: a.Value(row)}
	case *array.Boolean:
		return rowKeyValue{kind: keyBool, b: a.Value(row)}
	default:
		panic(qcerr.Invariant(qcerr.CodeUnsupportedArrayType, "unsupported sort key column type: %s", col.DataType()))
	}
}

func compareKeyValue(a, b rowKeyValue) int {
	if a.kind == keyNull && b.kind == keyNull {
		return 0
	}
	if a.kind == keyNull {
		return -1
	}
	if b.kind == keyNull {
		return 1
	}
	switch a.kind {
	case keyInt, keyTimestamp:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	case keyDecimal:
		return a.dec.Cmp(b.dec)
	case keyString:
		return strings.Compare(a.s, b.s)
	case keyBool:
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func compareKeys(a, b []rowKeyValue) int {
	for i := range a {
		if c := compareKeyValue(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func newRowBuilders(mem memory.Allocator, schema *arrow.Schema) []array.Builder {
	builders := make([]array.Builder, schema.NumFields())
	for i, f := range schema.Fields() {
		builders[i] = array.NewBuilder(mem, f.Type)
	}
	return builders
}

func releaseBuilders(builders []array.Builder) {
	for _, b := range builders {
		b.Release()
	}
}

// appendRow appends the value of batch's row-th row, column by column, onto
// builders. Panics (qcerr.Invariant) on a builder type this bridge does not
// cover, matching the rest of this module's "unsupported type" panics.
func appendRow(builders []array.Builder, batch arrow.Record, row int) {
	for i, b := range builders {
		col := batch.Column(i)
		if col.IsNull(row) {
			b.AppendNull()
			continue
		}
		switch builder := b.(type) {
		case *array.Int64Builder:
			builder.Append(col.(*array.Int64).Value(row))
		case *array.Uint64Builder:
			builder.Append(col.(*array.Uint64).Value(row))
		case *array.Int32Builder:
			builder.Append(col.(*array.Int32).Value(row))
		case *array.Float64Builder:
			builder.Append(col.(*array.Float64).Value(row))
		case *array.Decimal128Builder:
			builder.Append(col.(*array.Decimal128).Value(row))
		case *array.Decimal256Builder:
			builder.Append(col.(*array.Decimal256).Value(row))
		case *array.TimestampBuilder:
			builder.Append(col.(*array.Timestamp).Value(row))
		case *array.StringBuilder:
			builder.Append(col.(*array.String).Value(row))
		case *array.LargeStringBuilder:
			builder.Append(col.(*array.LargeString).Value(row))
		case *array.BooleanBuilder:
			builder.Append(col.(*array.Boolean).Value(row))
		default:
			panic(qcerr.Invariant(qcerr.CodeUnsupportedArrayType, "unsupported column type in merge: %T", b))
		}
	}
}
