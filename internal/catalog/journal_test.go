package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJournalBasic(t *testing.T) {
	j := newJournal(3) // rounded up to 4
	if len(j.buf) != 4 {
		t.Fatalf("expected capacity 4, got %d", len(j.buf))
	}
	for i := 1; i <= 6; i++ {
		j.enqueue(Event{Seq: uint64(i)})
	}
	var seqs []uint64
	for _, e := range j.events() {
		seqs = append(seqs, e.Seq)
	}
	if diff := cmp.Diff([]uint64{3, 4, 5, 6}, seqs); diff != "" {
		t.Errorf("retained events (-want +got):\n%s", diff)
	}
}

func TestJournalDisabled(t *testing.T) {
	c := New(WithJournalSize(0))
	c.Insert(1, "a", "b", true)
	if got := c.Events(); len(got) != 0 {
		t.Errorf("disabled journal returned %v", got)
	}
}

func TestCatalogEvents(t *testing.T) {
	c := New(WithJournalSize(8))
	c.Insert(1, "a", "b", true)
	c.Borrow(7, 1, 1)
	c.Borrow(8, 1, 1)
	c.Return(7, 1)
	c.Delete(2)

	want := []Event{
		{Seq: 1, Op: "insert", BookID: 1},
		{Seq: 2, Op: "borrow", BookID: 1, Patron: intPtr(7)},
		{Seq: 3, Op: "reserve", BookID: 1, Patron: intPtr(8)},
		{Seq: 4, Op: "return", BookID: 1, Patron: intPtr(7)},
		{Seq: 5, Op: "allot", BookID: 1, Patron: intPtr(8)},
		{Seq: 6, Op: "delete", BookID: 2, Error: "book not found"},
	}
	if diff := cmp.Diff(want, c.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}
