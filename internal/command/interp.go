package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gatorlib/internal/catalog"
	"gatorlib/internal/logging"
)

// Interpreter executes scripts against one catalog. Not safe for concurrent
// use; it inherits the catalog's single-writer contract.
type Interpreter struct {
	cat    *catalog.Catalog
	log    logging.Logger
	strict bool
	prompt io.Writer
}

type Option func(*Interpreter)

func WithLogger(l logging.Logger) Option {
	return func(in *Interpreter) { in.log = l }
}

// WithStrict makes malformed lines abort the run instead of being skipped.
func WithStrict(strict bool) Option {
	return func(in *Interpreter) { in.strict = strict }
}

// WithPrompt writes "> " to w before each line is read.
func WithPrompt(w io.Writer) Option {
	return func(in *Interpreter) { in.prompt = w }
}

func New(cat *catalog.Catalog, opts ...Option) *Interpreter {
	in := &Interpreter{cat: cat, log: logging.NewNop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Stats summarizes a run.
type Stats struct {
	Lines    int  // non-blank lines read
	Executed int  // commands dispatched
	Skipped  int  // malformed lines ignored
	Quit     bool // stopped at Quit
}

// Run executes r line by line, writing report lines to w, until Quit, end of
// input or ctx is cancelled.
func (in *Interpreter) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var st Stats
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if in.prompt != nil {
			fmt.Fprint(in.prompt, "> ")
		}
		line, more, err := readLine(br)
		if err != nil {
			return st, fmt.Errorf("read script: %w", err)
		}
		if !more {
			break
		}
		lineNo++
		cmd, ok, err := Parse(lineNo, line)
		if err == nil && !ok {
			continue
		}
		st.Lines++
		if err == nil {
			var quit bool
			quit, err = in.Exec(cmd, bw)
			if err == nil {
				st.Executed++
				if quit {
					st.Quit = true
					return st, bw.Flush()
				}
				if in.prompt != nil {
					bw.Flush()
				}
				continue
			}
		}

		var se *SyntaxError
		if !errors.As(err, &se) || in.strict {
			return st, err
		}
		st.Skipped++
		in.log.Warn("skipping malformed line", "line", se.Line, "reason", se.Msg)
	}
	return st, bw.Flush()
}

// readLine returns the next line without its terminator. Lines have no length
// limit. more is false once the input is exhausted.
func readLine(br *bufio.Reader) (line string, more bool, err error) {
	line, err = br.ReadString('\n')
	switch {
	case err == io.EOF:
		if line == "" {
			return "", false, nil
		}
	case err != nil:
		return "", false, err
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

// Exec runs a single command. quit reports whether it was Quit.
func (in *Interpreter) Exec(cmd Command, w io.Writer) (quit bool, err error) {
	h, ok := handlers[cmd.Verb]
	if !ok {
		return false, cmd.errorf("unknown command %q", cmd.Verb)
	}
	if err := cmd.arity(h.arity); err != nil {
		return false, err
	}
	in.log.Debug("exec", "line", cmd.Line, "cmd", cmd.String())
	return cmd.Verb == "Quit", h.run(in, cmd, w)
}

type handler struct {
	arity int
	run   func(in *Interpreter, cmd Command, w io.Writer) error
}

var handlers = map[string]handler{
	"InsertBook":        {4, (*Interpreter).insertBook},
	"BorrowBook":        {3, (*Interpreter).borrowBook},
	"ReturnBook":        {2, (*Interpreter).returnBook},
	"DeleteBook":        {1, (*Interpreter).deleteBook},
	"PrintBook":         {1, (*Interpreter).printBook},
	"PrintBooks":        {2, (*Interpreter).printBooks},
	"FindClosestBook":   {1, (*Interpreter).findClosestBook},
	"ColorFlipCount":    {0, (*Interpreter).colorFlipCount},
	"CancelReservation": {2, (*Interpreter).cancelReservation},
	"Quit":              {0, (*Interpreter).quit},
}

// ints converts every argument of cmd to an int.
func ints(cmd Command) ([]int, error) {
	out := make([]int, len(cmd.Args))
	for i := range cmd.Args {
		v, err := cmd.intArg(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ---------------- Handlers ---------------- //

func (in *Interpreter) insertBook(cmd Command, w io.Writer) error {
	id, err := cmd.intArg(0)
	if err != nil {
		return err
	}
	available, err := cmd.boolArg(3)
	if err != nil {
		return err
	}
	if err := in.cat.Insert(id, cmd.Args[1], cmd.Args[2], available); err != nil {
		return writeFailure(w, err)
	}
	return nil
}

func (in *Interpreter) borrowBook(cmd Command, w io.Writer) error {
	a, err := ints(cmd)
	if err != nil {
		return err
	}
	patron, id, priority := a[0], a[1], a[2]
	out, err := in.cat.Borrow(patron, id, priority)
	if err != nil {
		return writeFailure(w, err)
	}
	if out == catalog.Reserved {
		fmt.Fprintf(w, "Book %d Reserved by Patron %d\n", id, patron)
	} else {
		fmt.Fprintf(w, "Book %d Borrowed by Patron %d\n", id, patron)
	}
	return nil
}

func (in *Interpreter) returnBook(cmd Command, w io.Writer) error {
	a, err := ints(cmd)
	if err != nil {
		return err
	}
	patron, id := a[0], a[1]
	res, err := in.cat.Return(patron, id)
	if err != nil {
		return writeFailure(w, err)
	}
	fmt.Fprintf(w, "Book %d Returned by Patron %d\n", id, patron)
	if res.Allotted {
		fmt.Fprintf(w, "Book %d Allotted to Patron %d\n", id, res.AllottedTo)
	}
	return nil
}

func (in *Interpreter) deleteBook(cmd Command, w io.Writer) error {
	id, err := cmd.intArg(0)
	if err != nil {
		return err
	}
	cancelled, err := in.cat.Delete(id)
	if err != nil {
		return writeFailure(w, err)
	}
	writeDeleted(w, id, cancelled)
	return nil
}

func (in *Interpreter) printBook(cmd Command, w io.Writer) error {
	id, err := cmd.intArg(0)
	if err != nil {
		return err
	}
	s, err := in.cat.Describe(id)
	if err != nil {
		return writeFailure(w, err)
	}
	writeBook(w, s)
	return nil
}

func (in *Interpreter) printBooks(cmd Command, w io.Writer) error {
	a, err := ints(cmd)
	if err != nil {
		return err
	}
	for _, s := range in.cat.DescribeRange(a[0], a[1]) {
		writeBook(w, s)
	}
	return nil
}

func (in *Interpreter) findClosestBook(cmd Command, w io.Writer) error {
	target, err := cmd.intArg(0)
	if err != nil {
		return err
	}
	matches := in.cat.NearestMatch(target)
	if len(matches) == 0 {
		fmt.Fprintln(w, "No book found.")
		return nil
	}
	for _, s := range matches {
		writeBook(w, s)
	}
	return nil
}

func (in *Interpreter) colorFlipCount(_ Command, w io.Writer) error {
	fmt.Fprintf(w, "Color Flip Count: %d\n", in.cat.ColorFlipCount())
	return nil
}

func (in *Interpreter) cancelReservation(cmd Command, w io.Writer) error {
	a, err := ints(cmd)
	if err != nil {
		return err
	}
	patron, id := a[0], a[1]
	if err := in.cat.CancelReservation(patron, id); err != nil {
		return writeFailure(w, err)
	}
	fmt.Fprintf(w, "Reservation for Book %d by Patron %d cancelled.\n", id, patron)
	return nil
}

func (in *Interpreter) quit(_ Command, w io.Writer) error {
	fmt.Fprintln(w, "Program Terminated!!")
	return nil
}
