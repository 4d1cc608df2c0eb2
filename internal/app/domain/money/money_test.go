package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Cents
		wantErr bool
	}{
		{in: "45", want: 4500},
		{in: "45.5", want: 4550},
		{in: "0.01", want: 1},
		{in: " 500.00 ", want: 50000},
		{in: "-3.25", want: -325},
		{in: "1.005", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: true},
		{in: "150000000000000000.00", wantErr: true},
		{in: "-150000000000000000.00", wantErr: true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStringAndJSON(t *testing.T) {
	assert.Equal(t, "385.00", Cents(38500).String())
	assert.Equal(t, "0.01", Cents(1).String())

	out, err := json.Marshal(struct {
		Total Cents `json:"total"`
	}{Total: 9000})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"90.00"}`, string(out))

	var in struct {
		A Cents `json:"a"`
		B Cents `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"25.00","b":12.5}`), &in))
	assert.Equal(t, Cents(2500), in.A)
	assert.Equal(t, Cents(1250), in.B)
}

func TestUnmarshalYAML(t *testing.T) {
	var doc struct {
		Price Cents `yaml:"price"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("price: 45.0\n"), &doc))
	assert.Equal(t, Cents(4500), doc.Price)
}

func TestScan(t *testing.T) {
	var c Cents
	require.NoError(t, c.Scan(int64(4200)))
	assert.Equal(t, Cents(4200), c)
	require.NoError(t, c.Scan([]byte("125")))
	assert.Equal(t, Cents(125), c)
	assert.Error(t, c.Scan("x"))
}

func TestParseOverflowIsReported(t *testing.T) {
	_, err := Parse("150000000000000000.00")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMul(t *testing.T) {
	got, err := Cents(4500).Mul(2)
	require.NoError(t, err)
	assert.Equal(t, Cents(9000), got)
	assert.Equal(t, FromUnits(5), Cents(500))

	_, err = Cents(4500).Mul(2049638230412173)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Cents(math.MinInt64).Mul(-1)
	assert.ErrorIs(t, err, ErrOverflow)

	got, err = Cents(0).Mul(math.MaxInt32)
	require.NoError(t, err)
	assert.Equal(t, Cents(0), got)
}

func TestSum(t *testing.T) {
	got, err := Sum(4500, 2500, 1)
	require.NoError(t, err)
	assert.Equal(t, Cents(7001), got)

	_, err = Sum(math.MaxInt64, 1)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Sum(math.MinInt64, -1)
	assert.ErrorIs(t, err, ErrOverflow)
}
