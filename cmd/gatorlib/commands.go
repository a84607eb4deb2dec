package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gatorlib/internal/catalog"
	"gatorlib/internal/command"
	"gatorlib/internal/config"
	"gatorlib/internal/logging"
	"gatorlib/internal/server"
)

// environment is the process surface the commands touch; tests swap it.
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
	isTerm func() bool
}

func stdinIsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

type app struct {
	env    environment
	cfg    *config.Config
	log    logging.Logger
	closer io.Closer

	flags struct {
		logLevel, logFormat, logOutput string
		capacity                       int
		addr                           string
	}
}

func newRootCmd(env environment) *cobra.Command {
	a := &app{env: env}
	def := config.DefaultConfig()

	root := &cobra.Command{
		Use:                "gatorlib",
		Short:              "Library catalog backed by a red-black tree",
		Long:               "gatorlib executes library command scripts (InsertBook, BorrowBook, ...) against an in-memory catalog, or serves that catalog over HTTP.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetIn(env.stdin)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.logLevel, "log-level", def.Logging.Level, "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", def.Logging.Format, "log format: text or json")
	pf.StringVar(&a.flags.logOutput, "log-output", def.Logging.Output, "log destination: stderr, stdout or a file path")

	root.AddCommand(a.runCmd(def), a.serveCmd(def), a.versionCmd())
	return root
}

// setup layers defaults, GATORLIB_* variables and explicitly set flags, in
// that order, then opens the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()
	errs := cfg.ApplyEnv(a.env.lookup)

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.flags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.flags.logFormat
	}
	if flags.Changed("log-output") {
		cfg.Logging.Output = a.flags.logOutput
	}
	if flags.Changed("capacity") {
		cfg.Catalog.ReservationCapacity = a.flags.capacity
	}
	if flags.Changed("addr") {
		cfg.Server.Address = a.flags.addr
	}

	errs = append(errs, cfg.Validate()...)
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	a.cfg = cfg

	switch cfg.Logging.Output {
	case "stderr":
		a.log = logging.NewWriter(a.env.stderr, logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	case "stdout", "":
		a.log = logging.NewWriter(a.env.stdout, logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	default:
		l, c, err := logging.New(cfg.Logger())
		if err != nil {
			return err
		}
		a.log, a.closer = l, c
	}
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *app) newCatalog(log logging.Logger) *catalog.Catalog {
	return catalog.New(
		catalog.WithReservationCapacity(a.cfg.Catalog.ReservationCapacity),
		catalog.WithJournalSize(a.cfg.Catalog.JournalSize),
		catalog.WithLogger(log),
	)
}

/*************** run ***************/

func (a *app) runCmd(def *config.Config) *cobra.Command {
	var (
		output string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Execute a command script",
		Long: `Execute a command script, one command per line. With an input file the
report goes to <input>_output_file.txt unless -o is given; without one,
commands are read from stdin and the report is written to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args, output, strict)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default <input>_output_file.txt, stdout for stdin)")
	cmd.Flags().BoolVar(&strict, "strict", false, "abort on the first malformed line")
	cmd.Flags().IntVar(&a.flags.capacity, "capacity", def.Catalog.ReservationCapacity, "reservations allowed per book")
	return cmd
}

func (a *app) run(ctx context.Context, args []string, output string, strict bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := a.log.WithRequestID(uuid.NewString())

	var (
		in   io.Reader = a.env.stdin
		opts []command.Option
	)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
		if output == "" {
			output = args[0] + "_output_file.txt"
		}
		log = log.WithFields("input", args[0])
	} else if a.env.isTerm != nil && a.env.isTerm() {
		opts = append(opts, command.WithPrompt(a.env.stdout))
	}

	var out io.Writer = a.env.stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		out = f
	}

	opts = append(opts, command.WithLogger(log), command.WithStrict(strict))
	interp := command.New(a.newCatalog(log), opts...)
	st, err := interp.Run(ctx, in, out)
	log.Info("script finished", "lines", st.Lines, "executed", st.Executed, "skipped", st.Skipped, "quit", st.Quit)
	if err != nil {
		return err
	}
	if f, ok := out.(*os.File); ok && output != "" {
		return f.Sync()
	}
	return nil
}

/*************** serve ***************/

func (a *app) serveCmd(def *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&a.flags.addr, "addr", def.Server.Address, "listen address")
	cmd.Flags().IntVar(&a.flags.capacity, "capacity", def.Catalog.ReservationCapacity, "reservations allowed per book")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	srv := server.New(a.newCatalog(a.log), a.cfg.Server, a.log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(a.cfg.Server.Address) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			return err
		}
		return <-errc
	}
}

/*************** version ***************/

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gatorlib %s\n", version)
			return err
		},
	}
}
