package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureISO(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"empty string", "", ""},
		{"whitespace", "   ", ""},
		{"rfc3339 zulu", "2024-09-01T10:30:00Z", "2024-09-01T10:30:00Z"},
		{"rfc3339 offset", "2024-09-01T12:30:00+02:00", "2024-09-01T10:30:00Z"},
		{"datetime no zone", "2024-09-01T10:30:00", "2024-09-01T10:30:00Z"},
		{"space separated", "2024-09-01 10:30:00", "2024-09-01T10:30:00Z"},
		{"date only", "2024-09-01", "2024-09-01T00:00:00Z"},
		{"epoch seconds", float64(1725186600), "2024-09-01T10:30:00Z"},
		{"epoch millis", float64(1725186600000), "2024-09-01T10:30:00Z"},
		{"epoch string", "1725186600", "2024-09-01T10:30:00Z"},
		{"zero epoch", float64(0), ""},
		{"garbage", "not a date", ""},
		{"bool", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureISO(tt.in))
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(66.66666))
	assert.Equal(t, 80.0, Round2(80.0))
	assert.Equal(t, 33.33, Round2(100.0/3))
	assert.Equal(t, 0.0, Round2(0))
}

func TestNewGrade(t *testing.T) {
	t.Run("computes percentage", func(t *testing.T) {
		g := NewGrade(Float(8), Float(10))
		require.NotNil(t, g.Percentage)
		assert.Equal(t, 80.0, *g.Percentage)
	})

	t.Run("no percentage without score", func(t *testing.T) {
		g := NewGrade(nil, Float(10))
		assert.Nil(t, g.Percentage)
	})

	t.Run("no percentage without totalscore", func(t *testing.T) {
		g := NewGrade(Float(8), nil)
		assert.Nil(t, g.Percentage)
	})

	t.Run("no percentage for zero totalscore", func(t *testing.T) {
		g := NewGrade(Float(8), Float(0))
		assert.Nil(t, g.Percentage)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		g := NewGrade(Float(2), Float(3))
		require.NotNil(t, g.Percentage)
		assert.Equal(t, 66.67, *g.Percentage)
	})
}

func TestZeroGrade(t *testing.T) {
	g := ZeroGrade(Float(25))
	require.NotNil(t, g.Score)
	assert.Equal(t, 0.0, *g.Score)
	require.NotNil(t, g.TotalScore)
	assert.Equal(t, 25.0, *g.TotalScore)
	require.NotNil(t, g.Percentage)
	assert.Equal(t, 0.0, *g.Percentage)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, ""},
		{"string", " u42 ", "u42"},
		{"integral float", float64(42), "42"},
		{"large integral float", float64(7003001), "7003001"},
		{"fractional float", 4.5, "4.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"slice", []string{"x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.in))
		})
	}
}

func TestNumber(t *testing.T) {
	t.Run("float", func(t *testing.T) {
		n := Number(float64(9.5))
		require.NotNil(t, n)
		assert.Equal(t, 9.5, *n)
	})

	t.Run("numeric string", func(t *testing.T) {
		n := Number(" 7.25 ")
		require.NotNil(t, n)
		assert.Equal(t, 7.25, *n)
	})

	t.Run("garbage string", func(t *testing.T) {
		assert.Nil(t, Number("n/a"))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Number(nil))
	})
}
