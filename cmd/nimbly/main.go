// Command nimbly is the command-line client for the Nimbly receipts service.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/api"
	"github.com/and161185/nimbly/internal/config"
	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/logger"
	"github.com/and161185/nimbly/internal/prefs"
	"github.com/and161185/nimbly/internal/service"
	"github.com/and161185/nimbly/internal/session"
	"github.com/and161185/nimbly/internal/storage/backend"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe is the one line printed for a failed command.
func describe(err error) string {
	if errors.Is(err, errs.ErrUnauthenticated) {
		return "Not signed in. Run `nimbly signin` (or `nimbly magic-link`) first."
	}
	var in *service.InputError
	if _, ok := api.AsError(err); ok || errors.As(err, &in) || errors.Is(err, errs.ErrTransport) ||
		errors.Is(err, errs.ErrBusy) || errors.Is(err, errs.ErrBadResponse) {
		return "Error: " + service.UserMessage(err)
	}
	return "Error: " + err.Error()
}

func usage(w io.Writer) {
	fmt.Fprint(w, `nimbly CLI
Usage:
  nimbly [-api URL] [-store KIND] [-store-path PATH] <cmd> [args]

Commands:
  version
  signup     -email <email> [-password <pw>]      (prompts when omitted)
  signin     -email <email> [-password <pw>]
  magic-link -email <email>                        (emails a sign-in link)
  verify     -token <token>                        (completes a magic link)
  signout
  whoami
  receipts   [-offset N] [-limit N] [-json]
  receipt    -id <receipt id> [-json]
  upload     -file <path>
  insights   [-json]
  theme      [light|dark|toggle]
`)
}

// app is the wired client for one invocation.
type app struct {
	stdin          io.Reader
	lines          *bufio.Scanner
	stdout, stderr io.Writer

	guard    *session.Guard
	auth     *service.Auth
	receipts *service.Receipts
	prefs    *prefs.Prefs
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(config.CLIDefaults)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("nimbly", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	apiURL := fs.String("api", cfg.APIURL, "backend base URL")
	storeKind := fs.String("store", cfg.Storage.Kind, "storage backend: file, sqlite, memory, redis, postgres")
	storePath := fs.String("store-path", cfg.Storage.Path, "file store directory or sqlite database")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return errUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "nimbly %s (%s)\n", version, buildDate)
		return nil
	}

	log, err := logger.NewConsole(*logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg.Storage.Kind = *storeKind
	cfg.Storage.Path = *storePath
	store, closeStore, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	tokens := session.NewTokenStore(store)
	client := api.New(*apiURL, tokens,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(log))
	validator := session.NewValidator(tokens, log)

	a := &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		guard:    session.NewGuard(validator, tokens, log),
		auth:     service.NewAuth(client, tokens, log),
		receipts: service.NewReceipts(client),
		prefs:    prefs.New(store),
	}

	switch cmd {
	case "signup":
		return a.cmdSignUp(ctx, rest)
	case "signin", "login":
		return a.cmdSignIn(ctx, rest)
	case "magic-link":
		return a.cmdMagicLink(ctx, rest)
	case "verify":
		return a.cmdVerify(ctx, rest)
	case "signout", "logout":
		return a.cmdSignOut(ctx)
	case "whoami":
		return a.cmdWhoAmI(ctx)
	case "receipts":
		return a.cmdReceipts(ctx, rest)
	case "receipt":
		return a.cmdReceipt(ctx, rest)
	case "upload":
		return a.cmdUpload(ctx, rest)
	case "insights":
		return a.cmdInsights(ctx, rest)
	case "theme":
		return a.cmdTheme(ctx, rest)
	}
	usage(stderr)
	return errUsage
}
