package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-client/backend"
	"github.com/jrsteele09/go-session-client/credentials"
	"github.com/jrsteele09/go-session-client/credentials/filekv"
	"github.com/jrsteele09/go-session-client/credentials/kvfake"
	"github.com/jrsteele09/go-session-client/credentials/rediskv"
	"github.com/jrsteele09/go-session-client/internal/config"
	"github.com/jrsteele09/go-session-client/internal/logging"
	"github.com/jrsteele09/go-session-client/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const usage = `usage: sessionctl [-quiet] <command> [args]

commands:
  status                       initialize and print the session state
  token                        print a valid access token, refreshing if needed
  login <access> <refresh>     install a token pair
  dev-login <username> [role]  sign in against the dev backend
  refresh                      force a refresh token exchange
  logout                       clear the session
  watch [-interval d] [-metrics addr]
                               keep the session fresh and serve metrics
`

func main() {
	quiet := flag.Bool("quiet", false, "skip the banner")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *quiet, flag.Arg(0), flag.Args()[1:])
	stop()
	if err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "sessionctl: %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, quiet bool, command string, args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.SetGlobal(logging.New(c.GetLogLevel(), c.GetEnv()))
	if !quiet {
		displayAppname(c.GetAppName())
	}

	kv, closeKV, err := openKV(ctx, c)
	if err != nil {
		return err
	}
	defer closeKV()

	registry := prometheus.NewRegistry()
	store := credentials.NewStore(kv, credentials.WithLogger(log.Logger))
	app := &cli{
		config:   c,
		store:    store,
		registry: registry,
		out:      os.Stdout,
		manager: session.New(
			store,
			backend.NewClient(c.GetBaseURL(), backend.WithPaths(c.GetRefreshPath(), c.GetIdentityPath())),
			session.WithLogger(log.Logger),
			session.WithTimeout(c.GetRequestTimeout()),
			session.WithMetrics(session.NewMetrics(registry)),
			session.WithNavigator(session.NavigatorFunc(func() {
				fmt.Fprintln(os.Stderr, "signed out: run `sessionctl login` or `sessionctl dev-login` to sign in")
			})),
		),
	}
	return app.dispatch(ctx, command, args)
}

// openKV builds the credential backend selected by STORE_BACKEND.
func openKV(ctx context.Context, c config.StorageConfig) (credentials.KV, func(), error) {
	switch c.GetStoreBackend() {
	case config.StoreRedis:
		client, err := rediskv.Dial(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB())
		if err != nil {
			return nil, nil, err
		}
		return rediskv.New(client, c.GetRedisPrefix()), func() { _ = client.Close() }, nil
	case config.StoreMemory:
		log.Warn().Msg("memory credential store: the session ends with this process")
		return kvfake.NewFakeKV(), func() {}, nil
	default:
		kv, err := filekv.New(c.GetStorePath(), c.GetStoreSecret(), filekv.WithLogger(log.With().Str("component", "filekv").Logger()))
		if err != nil {
			return nil, nil, err
		}
		return kv, func() {}, nil
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
