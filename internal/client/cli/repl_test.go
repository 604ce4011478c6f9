package cli

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeExec) Create(context.Context) error { return f.record("create") }
func (f *fakeExec) List(context.Context) error   { return f.record("list") }
func (f *fakeExec) Search(_ context.Context, q string) error {
	return f.record("search:" + q)
}
func (f *fakeExec) Show(_ context.Context, id string) error    { return f.record("show:" + id) }
func (f *fakeExec) Decrypt(_ context.Context, id string) error { return f.record("decrypt:" + id) }
func (f *fakeExec) Check(context.Context) error                { return f.record("check") }
func (f *fakeExec) Stats(context.Context) error                { return f.record("stats") }
func (f *fakeExec) History(_ context.Context, id string) error {
	return f.record("history:" + id)
}

// capturePrint replaces printlnFn for the duration of the test.
func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_Dispatch(t *testing.T) {
	lines := capturePrint(t)

	input := strings.Join([]string{
		"help",
		"create",
		"l",
		"search red cross",
		"show relief-1",
		"decrypt relief-1",
		"",
		"check",
		"stats",
		"history",
		"history relief-1",
		"foobar",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(status)" }, rdr(input))

	assert.Equal(t, []string{
		"create", "list", "search:red cross", "show:relief-1", "decrypt:relief-1",
		"check", "stats", "history:", "history:relief-1",
	}, exec.calls)
	assert.Contains(t, *lines, helpText)
	assert.Contains(t, *lines, "Unknown command: foobar")
	assert.Contains(t, *lines, "relief (status)> ")
	assert.Equal(t, "Bye!", (*lines)[len(*lines)-1])
}

func TestRunREPL_UsageAndEOF(t *testing.T) {
	lines := capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("show\ndecrypt a b\n"))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Usage: show <id>")
	assert.Contains(t, *lines, "Usage: decrypt <id>")
}

func TestRunREPL_StopsOnCancel(t *testing.T) {
	capturePrint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "s" }, rdr("check\ncheck\n"))
	assert.Equal(t, []string{"check"}, exec.calls)
}
