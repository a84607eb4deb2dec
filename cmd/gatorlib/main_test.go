package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testEnv struct {
	stdin  string
	vars   map[string]string
	isTerm bool
}

func execute(t *testing.T, te testEnv, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	env := environment{
		stdin:  strings.NewReader(te.stdin),
		stdout: &out,
		stderr: &errOut,
		lookup: func(k string) (string, bool) {
			v, ok := te.vars[k]
			return v, ok
		},
		isTerm: func() bool { return te.isTerm },
	}
	root := newRootCmd(env)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

const script = `InsertBook(5, "Title", "Author", "Yes")
BorrowBook(1, 5, 1)
BorrowBook(2, 5, 1)
ReturnBook(1, 5)
ColorFlipCount()
Quit()
`

const report = `Book 5 Borrowed by Patron 1
Book 5 Reserved by Patron 2
Book 5 Returned by Patron 1
Book 5 Allotted to Patron 2
Color Flip Count: 0
Program Terminated!!
`

func TestVersion(t *testing.T) {
	out, _, err := execute(t, testEnv{}, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "gatorlib dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestRunFileDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, testEnv{}, "run", input, "--log-level", "error"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(input + "_output_file.txt")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(report, string(got)); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestRunExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	output := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(input, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, testEnv{}, "run", input, "-o", output); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(report, string(got)); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestRunStdin(t *testing.T) {
	out, _, err := execute(t, testEnv{stdin: script}, "run", "--log-level", "error")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(report, out); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}
}

func TestRunInteractivePrompt(t *testing.T) {
	out, _, err := execute(t, testEnv{stdin: "ColorFlipCount()\n", isTerm: true}, "run", "--log-level", "error")
	if err != nil {
		t.Fatal(err)
	}
	if out != "> Color Flip Count: 0\n> " {
		t.Errorf("unexpected interactive output %q", out)
	}
}

func TestRunStrictFails(t *testing.T) {
	_, _, err := execute(t, testEnv{stdin: "PrintBook(nope)\n"}, "run", "--strict", "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected a line 1 syntax error, got %v", err)
	}
}

func TestRunLenientWarns(t *testing.T) {
	_, stderr, err := execute(t, testEnv{stdin: "PrintBook(nope)\n"}, "run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "[warn] skipping malformed line") {
		t.Errorf("expected a warning, got %q", stderr)
	}
}

func TestCapacityFromEnvAndFlag(t *testing.T) {
	in := `InsertBook(1, "T", "A", "No")
BorrowBook(1, 1, 1)
BorrowBook(2, 1, 1)
`
	vars := map[string]string{"GATORLIB_RESERVATION_CAPACITY": "1", "GATORLIB_LOG_LEVEL": "error"}

	out, _, err := execute(t, testEnv{stdin: in, vars: vars}, "run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(out, "Reservation list for Book 1 is full.\n") {
		t.Errorf("env capacity not applied: %q", out)
	}

	out, _, err = execute(t, testEnv{stdin: in, vars: vars}, "run", "--capacity", "2")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "is full") {
		t.Errorf("flag should override env: %q", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := execute(t, testEnv{vars: map[string]string{"GATORLIB_JOURNAL_SIZE": "many"}}, "run")
	if err == nil || !strings.Contains(err.Error(), "GATORLIB_JOURNAL_SIZE") {
		t.Fatalf("expected env error, got %v", err)
	}
	_, _, err = execute(t, testEnv{}, "run", "--log-format", "xml")
	if err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestRunMissingInput(t *testing.T) {
	_, _, err := execute(t, testEnv{}, "run", filepath.Join(t.TempDir(), "absent"))
	if err == nil || !strings.Contains(err.Error(), "open script") {
		t.Fatalf("expected open error, got %v", err)
	}
}
