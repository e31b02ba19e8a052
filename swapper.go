package pingpong

// Swapper tracks which of two buffers is current (safe to read) and which
// is next (being written). Swap exchanges the roles without touching the
// buffers themselves.
//
// A Swapper exclusively owns its two handles. Current and Next always
// return different slots, so a pass that binds Current as input and Next as
// output never reads and writes the same physical buffer.
type Swapper[T any] struct {
	slots  [2]T
	parity int
	swaps  uint64
}

// NewSwapper returns a Swapper with a as the current buffer and b as next.
func NewSwapper[T any](a, b T) *Swapper[T] {
	return &Swapper[T]{slots: [2]T{a, b}}
}

// Current returns the buffer holding the last committed state.
func (s *Swapper[T]) Current() T { return s.slots[s.parity] }

// Next returns the buffer the next compute pass writes.
func (s *Swapper[T]) Next() T { return s.slots[1-s.parity] }

// Swap exchanges the current and next roles.
func (s *Swapper[T]) Swap() {
	s.parity = 1 - s.parity
	s.swaps++
}

// Parity returns 0 when the first buffer is current and 1 otherwise.
// Devices use it to select a pre-built binding for the current orientation.
func (s *Swapper[T]) Parity() int { return s.parity }

// Swaps returns how many times Swap has been called.
func (s *Swapper[T]) Swaps() uint64 { return s.swaps }

// Slots returns both buffers in creation order, for resource release.
func (s *Swapper[T]) Slots() (a, b T) { return s.slots[0], s.slots[1] }
