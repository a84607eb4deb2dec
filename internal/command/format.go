package command

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gatorlib/internal/catalog"
)

func writeBook(w io.Writer, s catalog.Snapshot) {
	availability := "No"
	if s.Available {
		availability = "Yes"
	}
	borrowedBy := "None"
	if s.BorrowedBy != nil {
		borrowedBy = strconv.Itoa(*s.BorrowedBy)
	}
	fmt.Fprintf(w, "BookID = %d\n", s.ID)
	fmt.Fprintf(w, "Title = %s\n", s.Title)
	fmt.Fprintf(w, "Author = %s\n", s.Author)
	fmt.Fprintf(w, "Availability = %s\n", availability)
	fmt.Fprintf(w, "BorrowedBy = %s\n", borrowedBy)
	fmt.Fprintf(w, "Reservations = %s\n", intList(s.Reservations))
}

// intList renders ids as "[1, 2, 3]".
func intList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func writeDeleted(w io.Writer, id int, cancelled []int) {
	switch len(cancelled) {
	case 0:
		fmt.Fprintf(w, "Book %d is no longer available.\n", id)
	case 1:
		fmt.Fprintf(w, "Book %d is no longer available. Reservation made by Patron %d has been cancelled!\n", id, cancelled[0])
	default:
		names := make([]string, len(cancelled))
		for i, p := range cancelled {
			names[i] = "Patron " + strconv.Itoa(p)
		}
		fmt.Fprintf(w, "Book %d is no longer available. Reservations made by %s have been cancelled!\n", id, strings.Join(names, ", "))
	}
}

// writeFailure reports a rejected catalog operation in the script's wording.
func writeFailure(w io.Writer, err error) error {
	var ce *catalog.Error
	if !errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fmt.Fprintf(w, "Book %d not found in the Library.\n", ce.BookID)
	case errors.Is(err, catalog.ErrAlreadyExists):
		fmt.Fprintf(w, "Book with ID %d already exists.\n", ce.BookID)
	case errors.Is(err, catalog.ErrAlreadyBorrowed):
		fmt.Fprintf(w, "Patron %d has already borrowed Book %d.\n", ce.PatronID, ce.BookID)
	case errors.Is(err, catalog.ErrNotBorrower):
		fmt.Fprintf(w, "Book %d is not borrowed by Patron %d.\n", ce.BookID, ce.PatronID)
	case errors.Is(err, catalog.ErrReservationsFull):
		fmt.Fprintf(w, "Reservation list for Book %d is full.\n", ce.BookID)
	case errors.Is(err, catalog.ErrNotReserved):
		fmt.Fprintf(w, "Patron %d has no reservation for Book %d.\n", ce.PatronID, ce.BookID)
	default:
		return err
	}
	return nil
}
