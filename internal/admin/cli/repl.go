package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a stub.
type execIface interface {
	List(ctx context.Context) error
	Block(ctx context.Context, args []string) error
	Unblock(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	PurgeUnverified(ctx context.Context, args []string) error
	Register(ctx context.Context) error
	ResetRequest(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  list                       list accounts, most recent login first
  block <id...>              block accounts
  unblock <id...>            unblock accounts
  delete <id...>             delete accounts
  purge-unverified <id...>   delete the listed accounts that are still unverified
  register                   register an account on behalf of a user
  reset-request <email>      mail a password reset link
  exit | quit                leave the console`

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". Handler errors are printed and the loop goes
// on.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		fprintf(w, "accounts> ")
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			fprintln(w, helpText)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "block":
			cmdErr = a.Block(ctx, args)
		case "unblock":
			cmdErr = a.Unblock(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "purge-unverified":
			cmdErr = a.PurgeUnverified(ctx, args)
		case "register":
			cmdErr = a.Register(ctx)
		case "reset-request":
			cmdErr = a.ResetRequest(ctx, args)
		case "exit", "quit":
			fprintln(w, "Bye!")
			return
		default:
			fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fprintln(w, "Error:", cmdErr)
		}
	}
}
