package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/and161185/nimbly/internal/model"
	"github.com/and161185/nimbly/internal/prefs"
	"github.com/and161185/nimbly/internal/present"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) cmdSignUp(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, confirm := *password, *password
	if pw == "" {
		var err error
		if pw, err = a.prompt("Password: "); err != nil {
			return err
		}
		if confirm, err = a.prompt("Confirm password: "); err != nil {
			return err
		}
	}
	res, err := a.auth.SignUp(ctx, *email, pw, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Welcome, %s\n", res.Email)
	return nil
}

func (a *app) cmdSignIn(ctx context.Context, args []string) error {
	fs := a.flags("signin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw := *password
	if pw == "" && *email != "" {
		var err error
		if pw, err = a.prompt("Password: "); err != nil {
			return err
		}
	}
	res, err := a.auth.SignIn(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s\n", res.Email)
	return nil
}

func (a *app) cmdMagicLink(ctx context.Context, args []string) error {
	fs := a.flags("magic-link")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.auth.RequestMagicLink(ctx, *email)
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "Check your email for a sign-in link."
	}
	fmt.Fprintln(a.stdout, msg)
	fmt.Fprintln(a.stdout, "Then run: nimbly verify -token <token from the link>")
	return nil
}

func (a *app) cmdVerify(ctx context.Context, args []string) error {
	fs := a.flags("verify")
	token := fs.String("token", "", "token from the magic link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.auth.VerifyMagicLink(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s\n", res.Email)
	return nil
}

// cmdSignOut only forgets the local token; see service.Auth.SignOut.
func (a *app) cmdSignOut(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *app) cmdWhoAmI(ctx context.Context) error {
	u, err := a.guard.Require(ctx)
	if err != nil {
		return err
	}
	printJSON(a.stdout, u)
	return nil
}

func (a *app) cmdReceipts(ctx context.Context, args []string) error {
	fs := a.flags("receipts")
	offset := fs.Int("offset", 0, "skip this many receipts")
	limit := fs.Int("limit", 0, "page size (default 20, max 100)")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.guard.Require(ctx); err != nil {
		return err
	}
	page, err := a.receipts.List(ctx, *offset, *limit)
	if err != nil {
		return a.guard.Observe(ctx, err)
	}
	if *asJSON {
		printJSON(a.stdout, page)
		return nil
	}
	if len(page.Receipts) == 0 {
		fmt.Fprintln(a.stdout, "No receipts yet. Upload one with: nimbly upload -file <path>")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTORE\tDATE\tTOTAL\tSTATUS")
	for _, r := range present.ReceiptRows(page.Receipts) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Store, r.Date, r.Amount, r.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d-%d of %d\n", page.Offset+1, page.Offset+len(page.Receipts), page.Total)
	return nil
}

func (a *app) cmdReceipt(ctx context.Context, args []string) error {
	fs := a.flags("receipt")
	id := fs.String("id", "", "receipt id")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.guard.Require(ctx); err != nil {
		return err
	}
	d, err := a.receipts.Get(ctx, *id)
	if err != nil {
		return a.guard.Observe(ctx, err)
	}
	if *asJSON {
		printJSON(a.stdout, d)
		return nil
	}
	printReceipt(a.stdout, d)
	return nil
}

func printReceipt(w io.Writer, d *model.ReceiptDetail) {
	fmt.Fprintf(w, "%s\n%s · %s · %s\n", present.StoreName(d.StoreName), present.Date(d.PurchaseDate),
		present.Amount(d.TotalAmount), present.StatusLabel(d.ParseStatus))
	if d.ParseError != nil && d.ParseStatus == model.ParseFailed {
		fmt.Fprintf(w, "note: %s\n", *d.ParseError)
	}
	if len(d.LineItems) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nITEM\tQTY\tTOTAL")
	for _, li := range d.LineItems {
		qty := "1"
		if li.Quantity != nil {
			qty = fmt.Sprint(li.Quantity.Float())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", li.ProductName, qty, present.Money(li.TotalPrice))
	}
	_ = tw.Flush()
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	path := fs.String("file", "", "receipt image, PDF or text file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("need -file")
	}
	if _, err := a.guard.Require(ctx); err != nil {
		return err
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := a.receipts.Upload(ctx, *path, f)
	if err != nil {
		return a.guard.Observe(ctx, err)
	}
	fmt.Fprintf(a.stdout, "Uploaded %s (%s)\n", res.ReceiptID, res.Status)
	return nil
}

func (a *app) cmdInsights(ctx context.Context, args []string) error {
	fs := a.flags("insights")
	asJSON := fs.Bool("json", false, "print raw JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.guard.Require(ctx); err != nil {
		return err
	}
	list, err := a.receipts.Insights(ctx)
	if err != nil {
		return a.guard.Observe(ctx, err)
	}
	if *asJSON {
		printJSON(a.stdout, list)
		return nil
	}
	if len(list.Insights) == 0 {
		msg := "No insights yet."
		if list.Message != nil && *list.Message != "" {
			msg = *list.Message
		}
		fmt.Fprintln(a.stdout, msg)
		return nil
	}
	for _, in := range list.Insights {
		fmt.Fprintf(a.stdout, "* %s (%s confidence)\n  %s\n", in.Title, in.Confidence, in.Description)
	}
	return nil
}

func (a *app) cmdTheme(ctx context.Context, args []string) error {
	var (
		th  prefs.Theme
		err error
	)
	switch {
	case len(args) == 0:
		th, err = a.prefs.Theme(ctx)
	case args[0] == "toggle":
		th, err = a.prefs.ToggleTheme(ctx)
	default:
		th, err = prefs.ParseTheme(args[0])
		if err == nil {
			err = a.prefs.SetTheme(ctx, th)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, th)
	return nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
