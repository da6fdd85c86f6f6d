package semaphore

import (
	"time"

	"github.com/insurezeal/backoffice/internal/serviceerrs"
)

// Semaphore caps the number of in-flight ledger requests.
type Semaphore struct {
	semaCh chan struct{}
}

func New(maxRequestCount uint64) *Semaphore {
	return &Semaphore{
		semaCh: make(chan struct{}, maxRequestCount),
	}
}

func (s *Semaphore) AcquireWithTimeout(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return serviceerrs.ErrSemaphoreTimeoutExceeded
	case s.semaCh <- struct{}{}:
		return nil
	}
}

func (s *Semaphore) Release() {
	<-s.semaCh
}

// ChangeMaxRequests installs a new request budget. Callers resize only
// while no worker holds or awaits the semaphore.
func (s *Semaphore) ChangeMaxRequests(newMaxRequests uint64) {
	s.semaCh = make(chan struct{}, newMaxRequests)
}
