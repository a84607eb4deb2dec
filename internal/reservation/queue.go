// Package reservation implements the bounded waiting list kept for every
// book: a binary min-heap ordered by (priority, arrival).
package reservation

// DefaultCapacity is the number of pending reservations a book accepts.
const DefaultCapacity = 20

// Entry is a single pending reservation.
type Entry struct {
	Patron   int
	Priority int    // lower value wins
	Seq      uint64 // arrival order, breaks priority ties (FIFO)
}

func (e Entry) less(o Entry) bool {
	if e.Priority != o.Priority {
		return e.Priority < o.Priority
	}
	return e.Seq < o.Seq
}

// Queue is an array-backed min-heap with a fixed capacity.
// Single-writer; the caller coordinates concurrency.
type Queue struct {
	heap    []Entry
	cap     int
	nextSeq uint64
}

// New returns an empty queue holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{heap: make([]Entry, 0, capacity), cap: capacity}
}

func (q *Queue) Len() int   { return len(q.heap) }
func (q *Queue) Cap() int   { return q.cap }
func (q *Queue) Full() bool { return len(q.heap) >= q.cap }

// Push adds a reservation. It returns false and leaves the queue untouched
// when the queue is full.
func (q *Queue) Push(patron, priority int) bool {
	if q.Full() {
		return false
	}
	q.nextSeq++
	q.heap = append(q.heap, Entry{Patron: patron, Priority: priority, Seq: q.nextSeq})
	q.siftUp(len(q.heap) - 1)
	return true
}

// Peek returns the highest-precedence entry without removing it.
func (q *Queue) Peek() (Entry, bool) {
	if len(q.heap) == 0 {
		return Entry{}, false
	}
	return q.heap[0], true
}

// Pop removes and returns the highest-precedence entry.
func (q *Queue) Pop() (Entry, bool) {
	if len(q.heap) == 0 {
		return Entry{}, false
	}
	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	if last > 0 {
		q.siftDown(0)
	}
	return top, true
}

// Remove withdraws the first entry belonging to patron.
func (q *Queue) Remove(patron int) (Entry, bool) {
	idx := -1
	for i := range q.heap {
		if q.heap[i].Patron == patron {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Entry{}, false
	}
	removed := q.heap[idx]
	last := len(q.heap) - 1
	q.swap(idx, last)
	q.heap = q.heap[:last]
	if idx < last {
		// The moved element violates the heap order in at most one direction.
		if idx > 0 && q.heap[idx].less(q.heap[(idx-1)/2]) {
			q.siftUp(idx)
		} else {
			q.siftDown(idx)
		}
	}
	return removed, true
}

// Contains reports whether patron holds a pending reservation.
func (q *Queue) Contains(patron int) bool {
	for i := range q.heap {
		if q.heap[i].Patron == patron {
			return true
		}
	}
	return false
}

// Patrons lists waiting patrons in heap storage order (not priority order).
func (q *Queue) Patrons() []int {
	out := make([]int, len(q.heap))
	for i, e := range q.heap {
		out[i] = e.Patron
	}
	return out
}

// Reset drops every entry. The arrival counter keeps running.
func (q *Queue) Reset() { q.heap = q.heap[:0] }

/******************** Heap maintenance ********************/

func (q *Queue) swap(i, j int) { q.heap[i], q.heap[j] = q.heap[j], q.heap[i] }

func (q *Queue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.heap[i].less(q.heap[parent]) {
			return
		}
		q.swap(i, parent)
		i = parent
	}
}

func (q *Queue) siftDown(i int) {
	n := len(q.heap)
	for {
		smallest := i
		if l := 2*i + 1; l < n && q.heap[l].less(q.heap[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < n && q.heap[r].less(q.heap[smallest]) {
			smallest = r
		}
		if smallest == i {
			return
		}
		q.swap(i, smallest)
		i = smallest
	}
}
