package cpu

const (
	STACK_LIMIT = 16 // Maximum stack depth
)

// Stack is the fixed capacity subroutine return stack.
type Stack struct {
	Data [STACK_LIMIT]uint16
	Sp   int // Number of entries in use.
}

// Push a return address. Returns false, leaving the stack untouched, when full.
func (s *Stack) Push(value uint16) (ok bool) {
	if s.Full() {
		return
	}

	s.Data[s.Sp] = value
	s.Sp++
	return true
}

// Pop the most recent return address. ok is false when empty.
func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Sp--
	}
	return
}

// Empty is true when no addresses are on the stack.
func (s *Stack) Empty() bool {
	return s.Sp == 0
}

// Full is true when a Push would overflow.
func (s *Stack) Full() bool {
	return s.Sp == STACK_LIMIT
}

// Peek returns the most recent return address without removing it.
func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.Sp-1], true
}

// Reset empties the stack.
func (s *Stack) Reset() {
	clear(s.Data[:])
	s.Sp = 0
}
