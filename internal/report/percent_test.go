package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name  string
		done  float64
		total float64
		want  string
	}{
		{"partial", 2, 5, "40.0"},
		{"complete", 5, 5, "100.0"},
		{"untouched", 0, 5, "0.0"},
		{"zero total is undefined", 0, 0, "nan"},
		{"fractional", 1, 3, "33.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentOf(tt.done, tt.total).String())
		})
	}
}

func TestAveragePercent(t *testing.T) {
	defined := func(v float64) Percent { return PercentOf(v, 100) }

	t.Run("mean of defined values", func(t *testing.T) {
		got := AveragePercent([]Percent{defined(50), defined(100)})
		assert.Equal(t, "75.0", got.String())
	})

	t.Run("single value", func(t *testing.T) {
		got := AveragePercent([]Percent{defined(40)})
		assert.Equal(t, "40.0", got.String())
	})

	t.Run("undefined member poisons the mean", func(t *testing.T) {
		got := AveragePercent([]Percent{defined(50), {}, defined(100)})
		assert.False(t, got.Defined())
		assert.Equal(t, "nan", got.String())
	})

	t.Run("empty input is undefined", func(t *testing.T) {
		assert.False(t, AveragePercent(nil).Defined())
	})
}
