package catalog

import "gatorlib/internal/reservation"

// book is a catalog record. ID is the index key and never changes.
type book struct {
	ID     int
	Title  string
	Author string

	available bool
	holder    int
	held      bool
	waitlist  *reservation.Queue
}

func newBook(id int, title, author string, available bool, capacity int) *book {
	return &book{
		ID:        id,
		Title:     title,
		Author:    author,
		available: available,
		waitlist:  reservation.New(capacity),
	}
}

func (b *book) lend(patron int) {
	b.available = false
	b.holder = patron
	b.held = true
}

func (b *book) release() {
	b.available = true
	b.holder = 0
	b.held = false
}

// Snapshot is a read-only copy of a book's state.
type Snapshot struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Available    bool   `json:"available"`
	BorrowedBy   *int   `json:"borrowed_by"`
	Reservations []int  `json:"reservations"`
}

func (b *book) snapshot() Snapshot {
	s := Snapshot{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Available:    b.available,
		Reservations: b.waitlist.Patrons(),
	}
	if b.held {
		holder := b.holder
		s.BorrowedBy = &holder
	}
	return s
}
