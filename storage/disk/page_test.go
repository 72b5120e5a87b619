package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	t.Run("stores values at offsets", func(t *testing.T) {
		p := NewPage(64)

		assert.NoError(t, p.SetInt(0, -17))
		assert.NoError(t, p.SetString(4, "hello"))

		n, err := p.GetInt(0)
		assert.NoError(t, err)
		assert.Equal(t, int32(-17), n)

		s, err := p.GetString(4)
		assert.NoError(t, err)
		assert.Equal(t, "hello", s)
		assert.Equal(t, 9, MaxLength(5))
	})

	t.Run("rejects out of bounds access", func(t *testing.T) {
		p := NewPage(8)

		assert.ErrorIs(t, p.SetInt(6, 1), ErrPageOffsetOutOfBounds)
		assert.ErrorIs(t, p.SetString(0, "too long"), ErrPageOffsetOutOfBounds)

		_, err := p.GetInt(-1)
		assert.ErrorIs(t, err, ErrPageOffsetOutOfBounds)
	})

	t.Run("wraps bytes without copying", func(t *testing.T) {
		buf := make([]byte, 8)
		p := NewPageFrom(buf)
		assert.NoError(t, p.SetInt(0, 1))
		assert.Equal(t, byte(1), buf[3])
	})
}
