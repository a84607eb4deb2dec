// Package command reads the line-oriented library script format, e.g.
//
//	InsertBook(101, "Title", "Author", "Yes")
//	BorrowBook(3, 101, 1)
//	Quit()
//
// dispatches each line to the catalog and writes the report lines.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command is one parsed script line.
type Command struct {
	Line int
	Verb string
	Args []string
}

// SyntaxError describes a line that could not be executed.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Parse splits a line into verb and arguments. Arguments are separated by
// commas outside double quotes; surrounding blanks and quotes are removed.
// A blank line yields ok=false.
func Parse(lineNo int, line string) (cmd Command, ok bool, err error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Command{}, false, nil
	}
	cmd.Line = lineNo

	open := strings.IndexByte(text, '(')
	if open < 0 {
		cmd.Verb = text
		return cmd, true, nil
	}
	closing := strings.LastIndexByte(text, ')')
	if closing < open {
		return Command{}, false, &SyntaxError{Line: lineNo, Text: text, Msg: "missing closing parenthesis"}
	}
	cmd.Verb = strings.TrimSpace(text[:open])
	if cmd.Verb == "" {
		return Command{}, false, &SyntaxError{Line: lineNo, Text: text, Msg: "missing command name"}
	}

	body := text[open+1 : closing]
	if strings.TrimSpace(body) == "" {
		return cmd, true, nil
	}
	args, err := splitArgs(body)
	if err != nil {
		return Command{}, false, &SyntaxError{Line: lineNo, Text: text, Msg: err.Error()}
	}
	cmd.Args = args
	return cmd, true, nil
}

func splitArgs(body string) ([]string, error) {
	var (
		args     []string
		cur      strings.Builder
		quoted   bool
		hadQuote bool
	)
	flush := func() {
		arg := strings.TrimSpace(cur.String())
		if hadQuote {
			arg = strings.TrimSuffix(strings.TrimPrefix(arg, `"`), `"`)
		}
		args = append(args, arg)
		cur.Reset()
		hadQuote = false
	}
	for _, r := range body {
		switch {
		case r == '"':
			quoted = !quoted
			hadQuote = true
			cur.WriteRune(r)
		case r == ',' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	flush()
	return args, nil
}

/*************** argument helpers ***************/

func (c Command) arity(n int) error {
	if len(c.Args) != n {
		return c.errorf("%s expects %d argument(s), got %d", c.Verb, n, len(c.Args))
	}
	return nil
}

func (c Command) intArg(i int) (int, error) {
	v, err := strconv.Atoi(c.Args[i])
	if err != nil {
		return 0, c.errorf("argument %d of %s is not an integer: %q", i+1, c.Verb, c.Args[i])
	}
	return v, nil
}

func (c Command) boolArg(i int) (bool, error) {
	switch strings.ToLower(c.Args[i]) {
	case "yes", "true", "y":
		return true, nil
	case "no", "false", "n":
		return false, nil
	}
	return false, c.errorf("argument %d of %s is not Yes/No: %q", i+1, c.Verb, c.Args[i])
}

func (c Command) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: c.Line, Text: c.String(), Msg: fmt.Sprintf(format, args...)}
}

func (c Command) String() string {
	return c.Verb + "(" + strings.Join(c.Args, ", ") + ")"
}
