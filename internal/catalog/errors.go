package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for operations on an unknown book id.
	ErrNotFound = errors.New("book not found")
	// ErrAlreadyExists is returned when inserting a duplicate id.
	ErrAlreadyExists = errors.New("book already exists")
	// ErrAlreadyBorrowed is returned when a patron borrows a book they hold.
	ErrAlreadyBorrowed = errors.New("book already borrowed by this patron")
	// ErrNotBorrower is returned when someone other than the holder returns a book.
	ErrNotBorrower = errors.New("book not borrowed by this patron")
	// ErrNotReserved is returned when cancelling a reservation that does not exist.
	ErrNotReserved = errors.New("patron has no reservation")
	// ErrReservationsFull is returned when the waiting list is at capacity.
	ErrReservationsFull = errors.New("reservation list full")
)

// Kind groups errors the way callers react to them.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidState
	KindCapacityExceeded
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidState:
		return "invalid_state"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotReserved):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrAlreadyBorrowed), errors.Is(err, ErrNotBorrower):
		return KindInvalidState
	case errors.Is(err, ErrReservationsFull):
		return KindCapacityExceeded
	default:
		return KindUnknown
	}
}

// Error records the failed operation and the identifiers involved.
type Error struct {
	Op       string
	BookID   int
	PatronID int
	Err      error

	hasPatron bool
}

func (e *Error) Error() string {
	if e.hasPatron {
		return fmt.Sprintf("catalog: %s book %d patron %d: %v", e.Op, e.BookID, e.PatronID, e.Err)
	}
	return fmt.Sprintf("catalog: %s book %d: %v", e.Op, e.BookID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func bookErr(op string, book int, err error) *Error {
	return &Error{Op: op, BookID: book, Err: err}
}

func patronErr(op string, book, patron int, err error) *Error {
	return &Error{Op: op, BookID: book, PatronID: patron, Err: err, hasPatron: true}
}
