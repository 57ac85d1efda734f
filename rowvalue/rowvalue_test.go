package rowvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowValueAccessors(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.Equal(t, int64(42), Int(42).AsInt())
	assert.Equal(t, "1.5", Decimal("1.5").AsDecimal())
	assert.Equal(t, int64(1000), Timestamp(1000).AsTimestamp())
	assert.Equal(t, "hi", String("hi").AsString())
	assert.True(t, Boolean(true).AsBool())
}

func TestRowValueMarshalJSON(t *testing.T) {
	cases := []struct {
		v    RowValue
		want string
	}{
		{Null(), "null"},
		{Int(7), "7"},
		{Decimal("1.50"), `"1.50"`},
		{String("x"), `"x"`},
		{Boolean(false), "false"},
	}
	for _, c := range cases {
		data, err := json.Marshal(c.v)
		require.NoError(t, err)
		assert.JSONEq(t, c.want, string(data))
	}
}

func TestDataFrameCounts(t *testing.T) {
	df := DataFrame{
		Columns: []ColumnMeta{{Name: "id", Kind: KindInt}},
		Rows:    [][]RowValue{{Int(1)}, {Int(2)}},
	}
	assert.Equal(t, 2, df.NumRows())
	assert.Equal(t, 1, df.NumCols())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "null", KindNull.String())
	assert.Contains(t, Kind(99).String(), "unknown")
}
