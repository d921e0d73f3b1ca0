package jury

import "context"

// Semaphore bounds in-flight oracle calls.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore allows up to n concurrent holders, at least one.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire waits for a slot until ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (s *Semaphore) Release() {
	<-s.slots
}

// Held reports how many slots are taken.
func (s *Semaphore) Held() int {
	return len(s.slots)
}

// Size reports the slot count.
func (s *Semaphore) Size() int {
	return cap(s.slots)
}
