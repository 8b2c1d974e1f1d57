// Package cli implements the deskctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/deskkit/pkg/config"
	"github.com/dmitrymomot/deskkit/pkg/credstore"
	"github.com/dmitrymomot/deskkit/pkg/helpdesk"
	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/requestid"
	"github.com/dmitrymomot/deskkit/pkg/secrets"
)

// flags shared by every command; empty values fall back to config.
type flags struct {
	apiURL    string
	store     string
	storePath string
	output    string
	verbose   bool
}

// app is the state built once per invocation by the root PersistentPreRunE.
type app struct {
	flags  flags
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	client *helpdesk.Client
	closer []func() error
}

// Execute runs deskctl with args and releases every client it opened.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Helpdesk client: sign in, browse and change tickets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.apiURL, "api-url", "", "API base URL (default $DESK_API_URL)")
	pf.StringVar(&a.flags.store, "store", "", "credential store: memory, file or redis (default $DESK_STORE)")
	pf.StringVar(&a.flags.storePath, "store-path", "", "file store location (default $DESK_STORE_PATH)")
	pf.StringVarP(&a.flags.output, "output", "o", formatTable, "output format: table, json or yaml")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.registerCmd(),
		a.whoamiCmd(),
		a.ticketsCmd(),
		a.ticketCmd(),
		a.agentsCmd(),
		a.breachedCmd(),
		a.sandboxCmd(),
	)
	return root, a
}

// setup loads config and logging. Commands that talk to the API call connect next.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	if _, err := parseFormat(a.flags.output); err != nil {
		return err
	}

	cfg := &config.Config{}
	if err := config.Parse(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.flags.apiURL != "" {
		cfg.APIURL = a.flags.apiURL
		cfg.Origin = ""
	}
	if a.flags.store != "" {
		cfg.Store = a.flags.store
	}
	if a.flags.storePath != "" {
		cfg.StorePath = a.flags.storePath
	}
	if err := cfg.Complete(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	level := logger.ParseLevel(cfg.LogLevel)
	if a.flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = logger.New(
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithLevel(level),
		logger.WithTextFormatter(),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	return nil
}

// connect builds the helpdesk client and resolves the stored session.
func (a *app) connect(cmd *cobra.Command) error {
	if err := a.setup(cmd); err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	c, err := helpdesk.New(a.cfg.APIURL,
		helpdesk.WithStore(store),
		helpdesk.WithLogger(a.logger),
		helpdesk.WithTimeout(a.cfg.Timeout),
		helpdesk.WithPageSize(a.cfg.PageSize),
		helpdesk.WithUserAgent("deskctl"),
	)
	if err != nil {
		return err
	}
	a.client = c
	a.closer = append(a.closer, c.Close)

	if err := c.Boot(ctx); err != nil {
		a.logger.WarnContext(ctx, "session boot failed", logger.Error(err))
	}
	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout+time.Second)
	defer cancel()
	if _, err := c.Session().Wait(waitCtx); err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (credstore.Store, error) {
	key, err := a.cfg.SealingKey()
	if err != nil {
		return nil, err
	}
	var sealer *secrets.Sealer
	if key != nil {
		if sealer, err = secrets.NewSealer(key, a.cfg.Origin); err != nil {
			return nil, fmt.Errorf("credential sealing: %w", err)
		}
	}

	switch a.cfg.Store {
	case config.StoreMemory:
		return credstore.NewMemoryStore(), nil
	case config.StoreRedis:
		var rc credstore.RedisConfig
		if err := config.Parse(&rc); err != nil {
			return nil, err
		}
		rdb, err := credstore.ConnectRedis(ctx, rc)
		if err != nil {
			return nil, err
		}
		a.closer = append(a.closer, rdb.Close)
		var opts []credstore.RedisOption
		if sealer != nil {
			opts = append(opts, credstore.WithRedisSealer(sealer))
		}
		return credstore.NewRedisStore(rdb, a.cfg.Origin, opts...), nil
	default:
		var opts []credstore.FileOption
		if sealer != nil {
			opts = append(opts, credstore.WithFileSealer(sealer))
		}
		return credstore.NewFileStore(a.cfg.StorePath, a.cfg.Origin, opts...), nil
	}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closer) - 1; i >= 0; i-- {
		errs = append(errs, a.closer[i]())
	}
	a.closer = nil
	return errors.Join(errs...)
}

// connected is a PreRunE for commands that need the API.
func (a *app) connected(cmd *cobra.Command, _ []string) error {
	return a.connect(cmd)
}
