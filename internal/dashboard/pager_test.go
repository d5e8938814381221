package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// TestPager verifies page counts and clamping
func TestPager(t *testing.T) {
	t.Run("Thirteen items make four pages", func(t *testing.T) {
		p := NewPager(ints(13), 4)
		assert.Equal(t, 4, p.Pages())
		assert.Equal(t, []int{1, 2, 3, 4}, p.Page(1))
		assert.Equal(t, []int{13}, p.Page(4))
	})

	t.Run("Exact multiple", func(t *testing.T) {
		p := NewPager(ints(8), 4)
		assert.Equal(t, 2, p.Pages())
		assert.Equal(t, []int{5, 6, 7, 8}, p.Page(2))
	})

	t.Run("Out of range pages are clamped", func(t *testing.T) {
		p := NewPager(ints(13), 4)
		assert.Equal(t, p.Page(1), p.Page(0))
		assert.Equal(t, p.Page(1), p.Page(-3))
		assert.Equal(t, []int{13}, p.Page(99))
		assert.Equal(t, 4, p.Clamp(99))
	})

	t.Run("Empty list has no pages", func(t *testing.T) {
		p := NewPager([]int{}, 4)
		assert.Equal(t, 0, p.Pages())
		assert.Equal(t, 0, p.Clamp(1))
		assert.Nil(t, p.Page(1))
	})

	t.Run("Default size", func(t *testing.T) {
		p := NewPager(ints(5), 0)
		assert.Equal(t, DefaultPageSize, p.Size())
		assert.Equal(t, 2, p.Pages())
	})
}
