package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// AccountAdmin is the part of *services.AccountService used by the console.
type AccountAdmin interface {
	RegisterAccount(ctx context.Context, in services.RegisterInput) services.Result
	RequestPasswordReset(ctx context.Context, email string) bool
	BlockAccounts(ctx context.Context, sel services.Selection) services.Result
	UnblockAccounts(ctx context.Context, sel services.Selection) services.Result
	DeleteAccounts(ctx context.Context, sel services.Selection) services.Result
	DeleteUnverifiedAccounts(ctx context.Context, sel services.Selection) services.Result
	ListAllAccounts(ctx context.Context) ([]*models.Account, error)
}

type App struct {
	svc    AccountAdmin
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(svc AccountAdmin, in io.Reader, out io.Writer) *App {
	return &App{svc: svc, reader: bufio.NewReader(in), out: out}
}

// Run starts the console and blocks until the operator leaves it.
func (a *App) Run(ctx context.Context) {
	fprintln(a.out, "Account console (type 'help' for commands)")
	runREPL(ctx, a, a.reader, a.out)
}

func (a *App) List(ctx context.Context) error {
	list, err := a.svc.ListAllAccounts(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fprintln(a.out, "No accounts.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPOSITION\tSTATUS\tLAST LOGIN\tREGISTERED")
	for _, acc := range list {
		lastLogin := "never"
		if acc.HasLoggedIn() {
			lastLogin = acc.LastLoginAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			acc.ID, acc.Name, acc.Email, acc.Position, acc.Status, lastLogin, acc.CreatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *App) Block(ctx context.Context, args []string) error {
	return a.moderate(ctx, "block", args, a.svc.BlockAccounts)
}

func (a *App) Unblock(ctx context.Context, args []string) error {
	return a.moderate(ctx, "unblock", args, a.svc.UnblockAccounts)
}

func (a *App) Delete(ctx context.Context, args []string) error {
	return a.moderate(ctx, "delete", args, a.svc.DeleteAccounts)
}

func (a *App) PurgeUnverified(ctx context.Context, args []string) error {
	return a.moderate(ctx, "purge-unverified", args, a.svc.DeleteUnverifiedAccounts)
}

// moderate runs a bulk action. No arguments at all means nothing was
// selected, which the service reports itself.
func (a *App) moderate(ctx context.Context, name string, args []string,
	action func(context.Context, services.Selection) services.Result) error {
	sel := services.NoSelection
	if len(args) > 0 {
		ids, err := ParseIDs(args)
		if err != nil {
			return err
		}
		sel = services.Select(ids...)
	}

	res := action(ctx, sel)
	if !res.Success {
		if !sel.Present() {
			fprintln(a.out, "Usage:", name, "<id...>")
		}
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	fprintln(a.out, res.Message)
	return nil
}

func (a *App) Register(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	position, err := GetSimpleText(a.reader, "Position", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	res := a.svc.RegisterAccount(ctx, services.RegisterInput{
		Name: name, Email: email, Position: position, Password: password,
	})
	if !res.Success {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	fprintln(a.out, res.Message)
	return nil
}

func (a *App) ResetRequest(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fprintln(a.out, "Usage: reset-request <email>")
		return nil
	}
	if !a.svc.RequestPasswordReset(ctx, args[0]) {
		return errors.New("failed to send reset link")
	}
	fprintln(a.out, "Reset link sent.")
	return nil
}

func fprintln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
