package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Gustavo032/leankeep-api-guard/internal/auth"
	"github.com/Gustavo032/leankeep-api-guard/internal/cli"
	"github.com/Gustavo032/leankeep-api-guard/internal/config"
	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
	"github.com/Gustavo032/leankeep-api-guard/internal/session"
	"github.com/Gustavo032/leankeep-api-guard/internal/transport"
	"github.com/Gustavo032/leankeep-api-guard/pkg/logging"
)

// rootFlags are the persistent flags of the root command.
type rootFlags struct {
	ConfigPath string
	Debug      bool
	LogFormat  string
	Output     cli.CommandFlags
}

// App wires the session, transport and controllers for one process. The
// console reuses a single App across many command invocations.
type App struct {
	flags rootFlags

	cfg         config.Config
	store       *session.Store
	fileStorage *session.FileStorage
	client      *transport.Client
	auth        *auth.Controller
	domain      *domain.Client

	ready   bool
	inREPL  bool
	stdout  io.Writer
	stderr  io.Writer
	logOut  io.Writer
	doer    transport.Doer
	now     func() time.Time
	closers []func() error
}

func newApp() *App {
	return &App{
		logOut: os.Stderr,
		now:    time.Now,
	}
}

// init loads configuration and builds the session once per process.
func (a *App) init() error {
	if a.ready {
		return nil
	}

	cfg, err := config.LoadConfig(a.flags.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.initLogging()

	storage, err := a.buildStorage()
	if err != nil {
		return err
	}

	defaults := session.DefaultState()
	defaults.AuthHost = cfg.AuthHost
	defaults.APIHost = cfg.APIHost
	a.store = session.New(storage, session.WithDefaults(defaults), session.WithClock(a.now))
	a.store.RestoreFromStorage()

	doer := a.doer
	if doer == nil {
		doer = transport.NewHTTPDoer(
			transport.WithTimeout(cfg.RequestTimeout),
			transport.WithUserAgent("lkp/"+GetVersion()),
		)
	}
	a.client = transport.NewClient(a.store, doer)
	a.auth = auth.NewController(a.store, a.client, auth.WithClock(a.now))
	a.domain = domain.NewClient(a.store, a.client)

	a.ready = true
	return nil
}

func (a *App) initLogging() {
	level, ok := logging.ParseLevel(a.cfg.LogLevel)
	if !ok || a.cfg.LogLevel == "" {
		level = logging.LevelWarn
	}
	if a.flags.Debug {
		level = logging.LevelDebug
	}

	format := logging.FormatText
	if strings.EqualFold(a.flags.LogFormat, string(logging.FormatJSON)) {
		format = logging.FormatJSON
	}
	logging.Init(level, a.logOut, format)
}

func (a *App) buildStorage() (session.Storage, error) {
	sc := a.cfg.Storage
	switch sc.Backend {
	case config.StorageMemory:
		return session.NewMemoryStorage(), nil
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		logging.Debug("App", "Using redis session storage at %s", sc.RedisAddr)
		return session.NewRedisStorage(rdb, sc.RedisPrefix, sc.RedisTTL), nil
	default:
		fs, err := session.NewFileStorage(sc.Dir)
		if err != nil {
			return nil, &config.ConfigurationError{
				FilePath:  sc.Dir,
				ErrorType: "storage",
				Message:   "cannot prepare session directory",
				Details:   err.Error(),
				Err:       err,
			}
		}
		a.fileStorage = fs
		return fs, nil
	}
}

// Close releases backend connections.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logging.Debug("App", "close: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) out() io.Writer {
	if a.stdout != nil {
		return a.stdout
	}
	return os.Stdout
}

func (a *App) errOut() io.Writer {
	if a.stderr != nil {
		return a.stderr
	}
	return os.Stderr
}

// requireAuth fails with exit code 2 when no usable token is held. A token
// with an unknown expiry counts as expired.
func (a *App) requireAuth() error {
	host := a.store.Snapshot().AuthHost
	tok := a.store.Token()
	if tok == nil {
		return &cli.AuthRequiredError{Host: host}
	}
	if tok.Expiry.IsZero() || !a.now().Before(tok.Expiry) {
		return &cli.AuthExpiredError{Host: host, CanRefresh: tok.RefreshToken != ""}
	}
	return nil
}

// printer builds the output printer for cmd honoring the session's redact
// mode.
func (a *App) printer(cmd *cobra.Command) (*cli.Printer, error) {
	return a.flags.Output.Printer(cmd.OutOrStdout(), a.store.Snapshot().RedactMode)
}

// runDomain sends one domain call with a spinner, prints the request panel,
// cURL export and response as requested, and converts failures into the
// error types the exit code mapping understands.
func (a *App) runDomain(cmd *cobra.Command, label string, call func(ctx context.Context) (*domain.Result, error)) error {
	p, err := a.printer(cmd)
	if err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	stop := cli.StartSpinner(cmd.ErrOrStderr(), label, a.flags.Output.Quiet)
	res, callErr := call(cmd.Context())
	stop()

	if res != nil {
		if a.flags.Output.ShowRequest {
			if err := p.PrintRequest(res.Request); err != nil {
				return err
			}
			fmt.Fprintln(p.Out)
		}
		if a.flags.Output.Curl {
			p.PrintCurl(res.Request)
			fmt.Fprintln(p.Out)
		}
		if err := p.PrintResult(res); err != nil {
			return err
		}
	}

	return a.classify(callErr, a.store.Snapshot().APIHost)
}

// classify turns a transport failure without any response into a
// ConnectionError; everything else passes through.
func (a *App) classify(err error, host string) error {
	if err == nil {
		return nil
	}
	var terr *transport.Error
	if errors.As(err, &terr) && terr.Response == nil && terr.Err != nil {
		return cli.ClassifyConnectionError(err, host)
	}
	return err
}
