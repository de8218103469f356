package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorFindAndClear(t *testing.T) {
	a := New(4)
	assert.Equal(t, 4, a.NumClear())

	f0 := a.Find()
	f1 := a.Find()
	assert.Equal(t, 0, f0)
	assert.Equal(t, 1, f1)
	assert.Equal(t, 2, a.NumClear())

	a.Clear(f0)
	assert.Equal(t, 3, a.NumClear())

	f2 := a.Find()
	assert.Equal(t, 0, f2, "Find should reuse the lowest freed index")
}

func TestAllocatorExhaustion(t *testing.T) {
	a := New(2)
	a.Find()
	a.Find()
	assert.Equal(t, -1, a.Find())
	assert.Equal(t, 0, a.NumClear())
}

func TestAllocatorClearUnallocatedPanics(t *testing.T) {
	a := New(2)
	assert.Panics(t, func() { a.Clear(0) })
}
