package ingest

import (
	"context"
	"sync"
)

// sessionQueue is an unbounded FIFO of ingest jobs for one session. depth
// counts jobs accepted but not yet finished, which is what the status
// tracker reports.
type sessionQueue struct {
	mu       sync.Mutex
	jobs     []ingestJob
	inFlight int
	wake     chan struct{}
}

func newSessionQueue() *sessionQueue {
	return &sessionQueue{
		wake: make(chan struct{}, 1),
	}
}

func (q *sessionQueue) push(job ingestJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop blocks until a job is available or ctx is cancelled.
func (q *sessionQueue) pop(ctx context.Context) (ingestJob, bool) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.inFlight++
			q.mu.Unlock()
			return job, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ingestJob{}, false
		case <-q.wake:
		}
	}
}

func (q *sessionQueue) finish() {
	q.mu.Lock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	q.mu.Unlock()
}

func (q *sessionQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) + q.inFlight
}
