package server

// Queue is the FIFO of servers currently believed alive, scanned from
// the front to pick a dispatch target. A record appears at most once.
type Queue struct {
	records []*Record
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a record to the back of the queue. A record already
// queued is left where it is, preserving the at-most-once invariant.
func (q *Queue) Push(rec *Record) {
	for _, r := range q.records {
		if r == rec {
			return
		}
	}
	q.records = append(q.records, rec)
}

// Front returns the preferred dispatch target, or nil if no server is
// believed alive.
func (q *Queue) Front() *Record {
	if len(q.records) == 0 {
		return nil
	}
	return q.records[0]
}

// Pop removes the front record after it has been found expired.
func (q *Queue) Pop() *Record {
	if len(q.records) == 0 {
		return nil
	}
	rec := q.records[0]
	q.records = q.records[1:]
	return rec
}

// Len returns the number of queued servers.
func (q *Queue) Len() int {
	return len(q.records)
}
