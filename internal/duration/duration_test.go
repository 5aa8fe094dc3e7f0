package duration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeconds(t *testing.T) {
	t.Run("seconds only", func(t *testing.T) {
		require.Equal(t, 45, Seconds("PT45S"))
	})

	t.Run("minutes and seconds", func(t *testing.T) {
		require.Equal(t, 90, Seconds("PT1M30S"))
	})

	t.Run("hours", func(t *testing.T) {
		require.Equal(t, 5400, Seconds("PT1H30M"))
	})

	t.Run("days", func(t *testing.T) {
		require.Equal(t, 93600, Seconds("P1DT2H"))
	})

	t.Run("missing components default to zero", func(t *testing.T) {
		require.Equal(t, 0, Seconds("PT"))
		require.Equal(t, 0, Seconds("P"))
	})

	t.Run("malformed component fails closed", func(t *testing.T) {
		require.Equal(t, 0, Seconds("PTxxS"))
		require.Equal(t, 0, Seconds(""))
		require.Equal(t, 30, Seconds("PTxxM30S"))
	})
}
