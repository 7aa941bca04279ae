package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	assert.True(s.Empty())
	assert.False(s.Full())

	assert.True(s.Push(0x234))
	assert.False(s.Empty())
	assert.Equal(1, s.Sp)
	assert.Equal(uint16(0x234), s.Data[0])
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(0x234)
	s.Push(0xabc)

	val, ok := s.Pop()
	assert.True(ok)
	assert.Equal(uint16(0xabc), val)
	assert.Equal(1, s.Sp)

	val, ok = s.Pop()
	assert.True(ok)
	assert.Equal(uint16(0x234), val)
	assert.Equal(0, s.Sp)
}

func TestStack_Pop_Empty(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	val, ok := s.Pop()
	assert.False(ok)
	assert.Equal(uint16(0), val)
	assert.Equal(0, s.Sp)
}

func TestStack_Peek(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(0x234)
	s.Push(0xabc)

	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(uint16(0xabc), val)
	assert.Equal(2, s.Sp)
}

func TestStack_Full(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}

	for i := 0; i < STACK_LIMIT; i++ {
		assert.False(s.Full())
		assert.True(s.Push(uint16(i)))
	}

	assert.True(s.Full())
	assert.Equal(STACK_LIMIT, s.Sp)

	// Overflow is refused, and does not disturb the top entry.
	assert.False(s.Push(0xfff))
	assert.Equal(STACK_LIMIT, s.Sp)
	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(uint16(STACK_LIMIT-1), val)
}

func TestStack_Reset(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Push(0x234)
	s.Push(0xabc)

	s.Reset()
	assert.True(s.Empty())
	assert.Equal(Stack{}, *s)
}
