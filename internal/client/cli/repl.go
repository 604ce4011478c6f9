package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Create(ctx context.Context) error
	List(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Show(ctx context.Context, id string) error
	Decrypt(ctx context.Context, id string) error
	Check(ctx context.Context) error
	Stats(ctx context.Context) error
	History(ctx context.Context, id string) error
}

const helpText = `Available commands:
  create              submit a new relief record
  (l)ist              list records
  search <text>       find records by id, organization or location
  show <id>           show one record
  decrypt <id>        decrypt and verify a record's victim count
  check               check node availability
  stats               record summary
  history [id]        local operation journal
  exit | quit         leave the program`

// runREPL reads commands from reader and dispatches them to a until input
// ends or the user types exit or quit. Handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("relief %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		arg := strings.Join(args, " ")

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "create":
			_ = a.Create(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "search":
			_ = a.Search(ctx, arg)

		case "show", "decrypt":
			if len(args) != 1 {
				printlnFn("Usage:", cmd, "<id>")
				continue
			}
			if cmd == "show" {
				_ = a.Show(ctx, args[0])
			} else {
				_ = a.Decrypt(ctx, args[0])
			}

		case "check":
			_ = a.Check(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "history":
			_ = a.History(ctx, arg)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
