package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"bytes", []byte("xy"), "xy"},
		{"int64", int64(-8888), "-8888"},
		{"int32", int32(7), "7"},
		{"float whole", float64(12), "12"},
		{"float fraction", 12.25, "12.25"},
		{"date", time.Date(8888, 8, 8, 0, 0, 0, 0, time.UTC), "8888-08-08"},
		{"timestamp", time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), "2020-01-02 03:04:05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestNumber(t *testing.T) {
	n, ok := Number("  -9999 ")
	assert.True(t, ok)
	assert.Equal(t, float64(-9999), n)

	_, ok = Number("abc")
	assert.False(t, ok)

	_, ok = Number(nil)
	assert.False(t, ok)

	n, ok = Number(int16(4))
	assert.True(t, ok)
	assert.Equal(t, float64(4), n)
}

func TestIsPopulated(t *testing.T) {
	text := Field{Name: "T", Type: FieldText, MaxLength: 50}
	flag := Field{Name: "F", Type: FieldText, MaxLength: 1}
	num := Field{Name: "N", Type: FieldDecimal}
	date := Field{Name: "D", Type: FieldDate}

	tests := []struct {
		name  string
		value any
		field Field
		want  bool
	}{
		{"text value", "abc", text, true},
		{"text NP", "NP", text, false},
		{"text blank", "  ", text, false},
		{"text nil", nil, text, false},
		{"text U on long field", "U", text, true},
		{"flag U", "U", flag, false},
		{"flag T", "T", flag, true},
		{"numeric value", 12.5, num, true},
		{"numeric zero", 0.0, num, true},
		{"numeric required sentinel", -8888.0, num, false},
		{"numeric applicable sentinel", int64(-9999), num, false},
		{"date value", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), date, true},
		{"date required sentinel", "8/8/8888", date, false},
		{"date applicable sentinel", time.Date(9999, 9, 9, 0, 0, 0, 0, time.UTC), date, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPopulated(tt.value, tt.field))
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("01", int64(1)))
	assert.True(t, Equal(-8888.0, "-8888"))
	assert.True(t, Equal("A", "A"))
	assert.False(t, Equal("A", "a"))
	assert.False(t, Equal(nil, "0"))
}

func TestDate(t *testing.T) {
	want := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []any{"2020-01-02", "1/2/2020", " 01/02/2020 ", "20200102", want} {
		got, ok := Date(in)
		require.True(t, ok, "%v", in)
		assert.True(t, want.Equal(got), "%v", in)
	}
	_, ok := Date("8/8/88888")
	assert.False(t, ok)
	_, ok = Date(nil)
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
		ok   bool
	}{
		{"numbers", int64(2), "10", -1, true},
		{"dates", "1/2/2020", "2019-12-31", 1, true},
		{"date and time value", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), "1/2/2020", 0, true},
		{"text", "B", "A", 1, true},
		{"null", nil, "A", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataset(t *testing.T) {
	ds := NewDataset("S_XS", []Field{{Name: "XS_LN_ID"}, {Name: "WTR_NM"}}, [][]any{
		{"XS1", "Creek"}, {"XS2", nil}, {"XS3", "Creek"},
	})
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 1, ds.Index("wtr_nm"))
	assert.False(t, ds.Has("EVENT_TYP"))
	assert.Nil(t, ds.Column("EVENT_TYP"))
	assert.Equal(t, []string{"Creek"}, ds.Distinct("WTR_NM"))
	assert.Equal(t, "XS2", ds.Value(1, "XS_LN_ID"))

	var empty *Dataset
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Has("X"))
}
