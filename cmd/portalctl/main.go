// Command portalctl drives the portal session core from a terminal. Sessions
// persist in a local SQLite file, so a login survives between invocations.
//
//	portalctl login -email admin@crec.edu -password admin123
//	portalctl verify -key FAB-ACTIVE-001
//	portalctl whoami
//	portalctl get /api/admin/courses
//	portalctl logout -as all
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/crec-session/credstore/sqlitestore"
	"github.com/jrsteele09/crec-session/httpclient"
	"github.com/jrsteele09/crec-session/internal/config"
	"github.com/jrsteele09/crec-session/portal"
	"github.com/jrsteele09/crec-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: portalctl [-server URL] <command> [flags]

commands:
  login   -email E -password P   log in to the admin back-office
  verify  -key K                 verify a FabLab member access key
  whoami                         show both sessions
  get     [-as admin|fablab] P   GET an API path with the session's token
  logout  [-as admin|fablab|all] end a session
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg := config.New()
	global := flag.NewFlagSet("portalctl", flag.ExitOnError)
	serverURL := global.String("server", cfg.GetBaseURL(), "portal backend base URL")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serverURL, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "portalctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, serverURL, command string, args []string) error {
	p, err := open(ctx, cfg, serverURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("closing session store")
		}
	}()
	p.Resume()

	switch command {
	case "login":
		return login(ctx, p, args)
	case "verify":
		return verify(ctx, p, args)
	case "whoami":
		return whoami(p)
	case "get":
		return get(ctx, p, args)
	case "logout":
		return logout(p, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

// open builds the portal against the remote backend. The in-memory store is
// useless across invocations, so it is swapped for the SQLite file.
func open(ctx context.Context, cfg config.Config, serverURL string) (*portal.Portal, error) {
	opts := []portal.Option{
		portal.WithRemote(serverURL),
		portal.WithNavigator(session.NavigatorFunc(func(route string) {
			fmt.Fprintf(os.Stderr, "session ended, log in again at %s\n", route)
		})),
	}
	if cfg.GetStoreBackend() == config.StoreBackendMemory {
		backend, err := sqlitestore.Open(ctx, cfg.GetStorePath())
		if err != nil {
			return nil, err
		}
		opts = append(opts, portal.WithBackend(backend))
	}
	return portal.New(ctx, cfg, opts...)
}

func login(ctx context.Context, p *portal.Portal, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", os.Getenv("PORTAL_PASSWORD"), "admin password (or PORTAL_PASSWORD)")
	_ = fs.Parse(args)

	user, err := p.Admin.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s), session expires %s\n",
		user.Email, user.Role, p.Admin.Snapshot().ExpiresAt.Local().Format(time.Kitchen))
	return nil
}

func verify(ctx context.Context, p *portal.Portal, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	key := fs.String("key", "", "FabLab access key")
	_ = fs.Parse(args)

	member, err := p.FabLab.VerifySubscription(ctx, *key)
	if err != nil {
		return err
	}
	fmt.Printf("verified %s (%s tier), can reserve: %t\n", member.Name, member.Tier, p.FabLab.CanMakeReservation())
	return nil
}

func whoami(p *portal.Portal) error {
	out := map[string]any{
		"admin":  p.Admin.Snapshot(),
		"fablab": p.FabLab.Snapshot(),
		"capabilities": map[string]bool{
			"admin":          p.Admin.HasCapability(),
			"fablab.reserve": p.FabLab.CanMakeReservation(),
		},
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func get(ctx context.Context, p *portal.Portal, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	as := fs.String("as", "admin", "session to use: admin or fablab")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("get needs exactly one path")
	}

	var client *httpclient.Client
	switch *as {
	case "admin":
		client = p.Admin.Client()
	case "fablab":
		client = p.FabLab.Client()
	default:
		return fmt.Errorf("unknown session %q", *as)
	}

	resp, err := client.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	fmt.Printf("%s\n%s\n", resp.Status, body)
	if resp.StatusCode >= http.StatusBadRequest {
		return &httpclient.StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func logout(p *portal.Portal, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	as := fs.String("as", "all", "session to end: admin, fablab or all")
	_ = fs.Parse(args)

	switch *as {
	case "admin":
		p.Admin.Logout()
	case "fablab":
		p.FabLab.Logout()
	case "all":
		p.Admin.Logout()
		p.FabLab.Logout()
	default:
		return fmt.Errorf("unknown session %q", *as)
	}
	return nil
}
