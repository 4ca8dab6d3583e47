package scrobbler

import "sync"

// DefaultQueueSize is the number of plays held before a forced flush.
const DefaultQueueSize = 20

// Queue is a bounded FIFO of plays waiting for submission. It lives in
// memory only; plays still queued at exit are lost.
type Queue struct {
	mu       sync.Mutex
	records  []Record
	capacity int
}

// NewQueue creates a queue holding at most capacity records.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
	}
}

// Append adds r to the tail. When the queue is already full its contents
// are drained first and returned as overflow; the caller must submit them.
// The newest record is never the one that gets pushed out.
func (q *Queue) Append(r Record) (overflow []Record) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) >= q.capacity {
		overflow = q.drainLocked()
	}
	q.records = append(q.records, r)
	return overflow
}

// Drain removes and returns every queued record, oldest first.
func (q *Queue) Drain() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.drainLocked()
}

func (q *Queue) drainLocked() []Record {
	if len(q.records) == 0 {
		return nil
	}
	out := q.records
	q.records = make([]Record, 0, q.capacity)
	return out
}

// Requeue puts records that could not be delivered back at the head,
// ahead of anything appended since they were drained. If that exceeds the
// capacity the oldest records are dropped and their count returned.
func (q *Queue) Requeue(records []Record) (dropped int) {
	if len(records) == 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]Record, 0, len(records)+len(q.records))
	merged = append(merged, records...)
	merged = append(merged, q.records...)

	if over := len(merged) - q.capacity; over > 0 {
		merged = merged[over:]
		dropped = over
	}
	q.records = merged
	return dropped
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.capacity
}
