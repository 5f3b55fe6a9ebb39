package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.000", true},
		{"1.0", "1.000", true},
		{"1.23", "1.230", true},
		{"1,23", "1.230", true},
		{"0.001", "0.001", true},
		{"1.0005", "1.001", true}, // half-up rounding
		{"1.2344", "1.234", true},
		{" 2.50 ", "2.500", true},
		{".5", "0.500", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.0004", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMoney(tc.in)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.out, got.Display())
		})
	}
}

func TestMoneyValidate(t *testing.T) {
	assert.NoError(t, MustMoney("0.001").Validate())
	assert.ErrorIs(t, Money{}.Validate(), ErrInvalidAmount)
}

func TestMoneyAddIsExact(t *testing.T) {
	sum := Money{}
	for range 10 {
		sum = sum.Add(MustMoney("0.1"))
	}
	assert.Equal(t, "1.000", sum.Display())
	assert.True(t, sum.Equal(MustMoney("1").Decimal))
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(MustMoney("12.5"))
	require.NoError(t, err)
	assert.JSONEq(t, `"12.5"`, string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`12.345`), &m))
	assert.Equal(t, "12.345", m.Display())
}
