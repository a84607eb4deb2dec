package catalog

// Event is one entry of the activity journal.
type Event struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	BookID int    `json:"book_id"`
	Patron *int   `json:"patron,omitempty"`
	Error  string `json:"error,omitempty"`
}

// journal is a fixed-size ring of recent events; once full, each new event
// overwrites the oldest one.
type journal struct {
	buf  []Event
	mask uint64
	head uint64 // next write
	tail uint64 // oldest retained
}

// newJournal rounds size up to a power of two. Size 0 disables the journal.
func newJournal(size int) *journal {
	if size <= 0 {
		return nil
	}
	n := uint64(1)
	for n < uint64(size) {
		n <<= 1
	}
	return &journal{buf: make([]Event, n), mask: n - 1}
}

func (j *journal) enqueue(e Event) {
	if j == nil {
		return
	}
	if j.head-j.tail == uint64(len(j.buf)) {
		j.tail++ // drop oldest
	}
	j.buf[j.head&j.mask] = e
	j.head++
}

// events returns retained events, oldest first.
func (j *journal) events() []Event {
	if j == nil {
		return nil
	}
	out := make([]Event, 0, j.head-j.tail)
	for i := j.tail; i != j.head; i++ {
		out = append(out, j.buf[i&j.mask])
	}
	return out
}
