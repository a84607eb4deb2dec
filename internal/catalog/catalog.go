// Package catalog composes the red-black index and the per-book reservation
// heaps into the library operations: insert, borrow, return, delete, lookups
// and the color-flip report.
//
// A Catalog is not safe for concurrent use; callers serialize access.
package catalog

import (
	"fmt"

	"gatorlib/internal/logging"
	"gatorlib/internal/rbtree"
	"gatorlib/internal/reservation"
)

const defaultJournalSize = 256

type Catalog struct {
	books    map[int]*book
	index    *rbtree.Tree[*book] // values alias books; the map is the owner
	capacity int
	log      logging.Logger
	journal  *journal
	seq      uint64
}

type Option func(*Catalog)

// WithReservationCapacity bounds every book's waiting list.
func WithReservationCapacity(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithJournalSize sets how many recent events Events keeps; 0 disables it.
func WithJournalSize(n int) Option {
	return func(c *Catalog) { c.journal = newJournal(n) }
}

func New(opts ...Option) *Catalog {
	c := &Catalog{
		books:    make(map[int]*book),
		index:    rbtree.New[*book](),
		capacity: reservation.DefaultCapacity,
		log:      logging.NewNop(),
		journal:  newJournal(defaultJournalSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of books.
func (c *Catalog) Len() int { return len(c.books) }

// ReservationCapacity returns the per-book waiting list bound.
func (c *Catalog) ReservationCapacity() int { return c.capacity }

// ColorFlipCount returns the index's running recolor counter.
func (c *Catalog) ColorFlipCount() uint64 { return c.index.ColorFlips() }

// Events returns the retained activity journal, oldest first.
func (c *Catalog) Events() []Event { return c.journal.events() }

// ---------------- Mutations ---------------- //

// Insert adds a book with an empty waiting list.
func (c *Catalog) Insert(id int, title, author string, available bool) error {
	if _, ok := c.books[id]; ok {
		return c.fail(bookErr("insert", id, ErrAlreadyExists))
	}
	b := newBook(id, title, author, available, c.capacity)
	c.books[id] = b
	c.index.Insert(id, b)
	c.record("insert", id, nil, nil)
	c.log.Debug("book inserted", "book", id, "available", available)
	return nil
}

// BorrowOutcome tells whether a borrow handed the book over or queued the patron.
type BorrowOutcome int

const (
	Borrowed BorrowOutcome = iota
	Reserved
)

func (o BorrowOutcome) String() string {
	if o == Reserved {
		return "reserved"
	}
	return "borrowed"
}

// Borrow lends the book to patron when it is free; otherwise it queues a
// reservation with the given priority (lower wins).
func (c *Catalog) Borrow(patron, id, priority int) (BorrowOutcome, error) {
	b, ok := c.books[id]
	if !ok {
		return 0, c.fail(patronErr("borrow", id, patron, ErrNotFound))
	}
	if b.held && b.holder == patron {
		return 0, c.fail(patronErr("borrow", id, patron, ErrAlreadyBorrowed))
	}

	if b.available && !b.held {
		b.lend(patron)
		c.record("borrow", id, &patron, nil)
		c.log.Debug("book borrowed", "book", id, "patron", patron)
		return Borrowed, nil
	}
	if b.waitlist.Full() {
		return 0, c.fail(patronErr("reserve", id, patron, ErrReservationsFull))
	}
	b.waitlist.Push(patron, priority)
	c.record("reserve", id, &patron, nil)
	c.log.Debug("book reserved", "book", id, "patron", patron, "priority", priority, "waiting", b.waitlist.Len())
	return Reserved, nil
}

// ReturnResult reports who, if anyone, received the book next.
type ReturnResult struct {
	Allotted   bool
	AllottedTo int
}

// Return takes the book back from its holder and immediately hands it to the
// highest-precedence reservation, if there is one.
func (c *Catalog) Return(patron, id int) (ReturnResult, error) {
	b, ok := c.books[id]
	if !ok {
		return ReturnResult{}, c.fail(patronErr("return", id, patron, ErrNotFound))
	}
	if !b.held || b.holder != patron {
		return ReturnResult{}, c.fail(patronErr("return", id, patron, ErrNotBorrower))
	}

	b.release()
	c.record("return", id, &patron, nil)
	c.log.Debug("book returned", "book", id, "patron", patron)

	next, ok := b.waitlist.Pop()
	if !ok {
		return ReturnResult{}, nil
	}
	b.lend(next.Patron)
	c.record("allot", id, &next.Patron, nil)
	c.log.Debug("book allotted", "book", id, "patron", next.Patron, "priority", next.Priority)
	return ReturnResult{Allotted: true, AllottedTo: next.Patron}, nil
}

// CancelReservation withdraws patron's pending reservation on the book.
func (c *Catalog) CancelReservation(patron, id int) error {
	b, ok := c.books[id]
	if !ok {
		return c.fail(patronErr("cancel", id, patron, ErrNotFound))
	}
	if _, ok := b.waitlist.Remove(patron); !ok {
		return c.fail(patronErr("cancel", id, patron, ErrNotReserved))
	}
	c.record("cancel", id, &patron, nil)
	c.log.Debug("reservation cancelled", "book", id, "patron", patron)
	return nil
}

// Delete removes the book and returns the patrons whose reservations were
// dropped, in heap storage order.
func (c *Catalog) Delete(id int) ([]int, error) {
	b, ok := c.books[id]
	if !ok {
		return nil, c.fail(bookErr("delete", id, ErrNotFound))
	}
	cancelled := b.waitlist.Patrons()
	b.waitlist.Reset()
	delete(c.books, id)
	c.index.Delete(id)
	c.record("delete", id, nil, nil)
	c.log.Debug("book deleted", "book", id, "cancelled", len(cancelled))
	return cancelled, nil
}

// ---------------- Queries ---------------- //

// Describe returns a snapshot of one book.
func (c *Catalog) Describe(id int) (Snapshot, error) {
	b, ok := c.books[id]
	if !ok {
		return Snapshot{}, bookErr("describe", id, ErrNotFound)
	}
	return b.snapshot(), nil
}

// DescribeRange returns snapshots of every book with lo <= id <= hi in
// ascending id order.
func (c *Catalog) DescribeRange(lo, hi int) []Snapshot {
	var out []Snapshot
	c.index.Range(lo, hi, func(_ int, b *book) bool {
		out = append(out, b.snapshot())
		return true
	})
	return out
}

// NearestMatch returns the book(s) closest to target: the nearer of the
// largest id below target and the smallest id at or above it, or both (lower
// first) when they are equally far. An empty catalog yields nil.
func (c *Catalog) NearestMatch(target int) []Snapshot {
	lower, higher := c.index.Closest(target)
	switch {
	case lower == nil && higher == nil:
		return nil
	case lower == nil:
		return []Snapshot{higher.Value.snapshot()}
	case higher == nil:
		return []Snapshot{lower.Value.snapshot()}
	}

	// Both differences are non-negative; unsigned arithmetic keeps them exact
	// across the whole int range.
	dLow := uint(target) - uint(lower.Key)
	dHigh := uint(higher.Key) - uint(target)
	switch {
	case dLow == dHigh:
		return []Snapshot{lower.Value.snapshot(), higher.Value.snapshot()}
	case dLow < dHigh:
		return []Snapshot{lower.Value.snapshot()}
	default:
		return []Snapshot{higher.Value.snapshot()}
	}
}

// Bounds returns the smallest and largest ids; ok is false when empty.
func (c *Catalog) Bounds() (first, last int, ok bool) {
	lo, hi := c.index.Min(), c.index.Max()
	if lo == nil {
		return 0, 0, false
	}
	return lo.Key, hi.Key, true
}

// Verify checks that the map and the index agree, that every book's lending
// state is consistent, and that the index satisfies its invariants.
func (c *Catalog) Verify() error {
	if err := c.index.Verify(); err != nil {
		return err
	}
	if n := c.index.Len(); n != len(c.books) {
		return fmt.Errorf("catalog: index holds %d books, map holds %d", n, len(c.books))
	}
	var err error
	c.index.Ascend(func(id int, b *book) bool {
		switch {
		case c.books[id] != b:
			err = fmt.Errorf("catalog: index entry %d does not match the map", id)
		case b.available && b.held:
			err = fmt.Errorf("catalog: book %d is available but held by %d", id, b.holder)
		case b.waitlist.Len() > c.capacity:
			err = fmt.Errorf("catalog: book %d has %d reservations, limit %d", id, b.waitlist.Len(), c.capacity)
		}
		return err == nil
	})
	return err
}

/*************** helpers ***************/

func (c *Catalog) record(op string, id int, patron *int, err error) {
	c.seq++
	e := Event{Seq: c.seq, Op: op, BookID: id}
	if patron != nil {
		p := *patron
		e.Patron = &p
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.journal.enqueue(e)
}

// fail journals a rejected mutation and returns its error.
func (c *Catalog) fail(err *Error) error {
	var patron *int
	if err.hasPatron {
		patron = &err.PatronID
	}
	c.record(err.Op, err.BookID, patron, err.Err)
	c.log.Debug("operation rejected", "op", err.Op, "book", err.BookID, "reason", err.Err)
	return err
}
