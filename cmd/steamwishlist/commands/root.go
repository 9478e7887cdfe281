package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	devenv "steamwishlist/dev/env"
	"steamwishlist/internal/collector"
	"steamwishlist/internal/components/telemetry"
	"steamwishlist/internal/reportstore"
	"steamwishlist/internal/scrapers/steam"
	"steamwishlist/internal/wishlist"
	"steamwishlist/lib/configutil"
	"time"

	"github.com/spf13/cobra"
)

const (
	report_report_title_conflict = "report.title-conflict"
	report_report_export         = "report.export"
)

// ConfigError is returned for invalid arguments or configuration, it makes the
// command print its usage and exit before anything is fetched.
type ConfigError struct {
	err error
}

func (e ConfigError) Error() string {
	return e.err.Error()
}

func (e ConfigError) Unwrap() error {
	return e.err
}

func configErrorf(format string, args ...any) ConfigError {
	return ConfigError{err: fmt.Errorf(format, args...)}
}

// SourceFactory creates the member enumerator and wishlist fetcher for a run.
type SourceFactory func(cfg Config, dump telemetry.InstrumentOutput, tel telemetry.API) (collector.Enumerator, collector.Fetcher, error)

// Env is everything a run touches outside of its arguments.
type Env struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Tel       telemetry.API
	Now       func() time.Time
	NewSource SourceFactory
	// InitLogging is called with the parsed value of --verbose, it can be nil.
	InitLogging func(verbose bool)
}

func steamSource(cfg Config, dump telemetry.InstrumentOutput, tel telemetry.API) (collector.Enumerator, collector.Fetcher, error) {
	client, err := steam.NewClient(steam.ClientOptions{
		BaseUrl:   cfg.BaseUrl,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		UserAgent: cfg.UserAgent,
		Dump:      dump,
	}, tel)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

func DefaultEnv() Env {
	return Env{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Tel:         telemetry.SlogAPI{},
		Now:         time.Now,
		NewSource:   steamSource,
		InitLogging: telemetry.InitSlog,
	}
}

const longDescription = `steamwishlist looks up the friends of a steam profile (or the members of a
steam group with --group), fetches each of their public wishlists and ranks
the games wanted by at least --min of them.

The target is either a numeric 64 bit steam id or a custom url id.`

type options struct {
	group      bool
	min        int
	dedupe     bool
	format     string
	db         string
	configPath string
	verbose    bool
	dumpHttp   string

	helpShown bool
}

func newRootCmd(env Env) (*cobra.Command, *options) {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "steamwishlist [flags] <steam id>",
		Short:         "steamwishlist ranks the games most wanted by a steam user's friends.",
		Long:          longDescription,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return configErrorf("missing steam id")
			}
			if len(args) > 1 {
				return configErrorf("expected a single steam id, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd, args[0], env)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.group, "group", "g", false, "treat the target as a group and use its members instead of friends")
	flags.IntVarP(&opts.min, "min", "m", 2, "minimum number of members that must want an item")
	flags.BoolVar(&opts.dedupe, "dedupe", false, "count an item at most once per member")
	flags.StringVar(&opts.format, "format", formatText, "report format, 'text' or 'table'")
	flags.StringVar(&opts.db, "db", "", "also export the report to this sqlite database")
	flags.StringVar(&opts.configPath, "config", "steamwishlist.json5", "configuration file, <name>.local.json5 overrides it")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug information to stderr")
	flags.StringVar(&opts.dumpHttp, "dump-http", "", "write every http exchange to this directory")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return ConfigError{err: err}
	})
	cmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		opts.helpShown = true
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s", cmd.Long, cmd.UsageString())
	})

	return cmd, opts
}

// VerboseRequested reports whether the raw arguments turn on --verbose, logging
// has to be set up before the command runs. Errors are ignored here, they are
// reported when the command line is parsed for real.
func VerboseRequested(args []string) bool {
	cmd, opts := newRootCmd(Env{})
	flags := cmd.Flags()
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)
	_ = flags.Parse(args)
	return opts.verbose
}

// Run executes the command line and returns the process exit status.
func Run(ctx context.Context, args []string, env Env) int {
	cmd, opts := newRootCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)

	err := cmd.ExecuteContext(ctx)
	if opts.helpShown {
		return 1
	}
	if err == nil {
		return 0
	}

	fmt.Fprintln(env.Stderr, "error:", err)
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintln(env.Stderr)
		fmt.Fprint(env.Stderr, cmd.UsageString())
	}
	return 1
}

func ExecuteContext(ctx context.Context, args []string) int {
	return Run(ctx, args, DefaultEnv())
}

func (o *options) loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := configutil.ReadWithDefaults(o.configPath, defaultConfig())
	if err != nil {
		return Config{}, configErrorf("read config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("min") {
		cfg.MinThreshold = o.min
	}
	if flags.Changed("dedupe") {
		cfg.DedupePerMember = o.dedupe
	}
	if flags.Changed("format") {
		cfg.Format = o.format
	}
	if o.db != "" {
		path, err := devenv.ResolvePath(o.db)
		if err != nil {
			return Config{}, configErrorf("resolve --db: %w", err)
		}
		cfg.Export = reportstore.Config{File: path}
	}

	err = configutil.Validate(cfg)
	if err != nil {
		return Config{}, ConfigError{err: err}
	}
	return cfg, nil
}

func (o *options) dumpOutput() (telemetry.InstrumentOutput, error) {
	if o.dumpHttp == "" {
		return nil, nil
	}
	dir, err := devenv.ResolvePath(o.dumpHttp)
	if err != nil {
		return nil, configErrorf("resolve --dump-http: %w", err)
	}
	out, err := telemetry.NewFilesystemOutput(dir)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *options) run(ctx context.Context, cmd *cobra.Command, target string, env Env) error {
	if env.InitLogging != nil {
		env.InitLogging(o.verbose)
	}

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	dump, err := o.dumpOutput()
	if err != nil {
		return err
	}

	tel := env.Tel
	enumerator, fetcher, err := env.NewSource(cfg, dump, tel)
	if err != nil {
		return err
	}

	mode := collector.ModeFriends
	if o.group {
		mode = collector.ModeGroup
	}

	out := env.Stdout
	c := collector.NewCollector(enumerator, fetcher, out, tel)
	res, err := c.Collect(ctx, target, mode)
	if err != nil {
		return err
	}

	records := res.Records
	if cfg.DedupePerMember {
		records = wishlist.DedupePerMember(records)
	}
	for _, conflict := range wishlist.TitleConflicts(records) {
		tel.ReportWarning(
			report_report_title_conflict,
			conflict.ItemID,
			conflict.Kept,
			conflict.Other,
			conflict.Similarity,
		)
	}

	tally, filtered, lines := wishlist.Build(records, cfg.MinThreshold)
	summary := wishlist.Summarize(tally, filtered)

	fmt.Fprintf(out, "--- %d distinct item(s) in the wishlists\n\n", summary.Distinct)
	fmt.Fprintf(out, "Removing items wanted by fewer than %d member(s)\n", max(cfg.MinThreshold, 1))
	fmt.Fprintf(out, "--- %d item(s) removed from list, %d left\n\n", summary.Removed, summary.Kept)
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, "--- %d wishlist(s) could not be fetched\n\n", len(res.Failed))
	}
	printReport(out, cfg.Format, lines)

	if !cfg.Export.Enabled() {
		return nil
	}
	runId, err := export(ctx, cfg.Export, reportstore.Run{
		Target:        target,
		Mode:          mode.String(),
		MinThreshold:  cfg.MinThreshold,
		MemberCount:   len(res.Members),
		FailedCount:   len(res.Failed),
		DistinctItems: summary.Distinct,
		CreatedAt:     env.Now(),
	}, lines)
	if err != nil {
		tel.ReportBroken(report_report_export, err)
		return fmt.Errorf("export report: %w", err)
	}
	fmt.Fprintf(out, "\n--- report exported (run %d)\n", runId)
	return nil
}

func export(ctx context.Context, cfg reportstore.Config, run reportstore.Run, lines []wishlist.ReportLine) (int64, error) {
	db, err := cfg.OpenDB()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	store, err := reportstore.NewStore(ctx, db)
	if err != nil {
		return 0, err
	}
	return store.Save(ctx, run, lines)
}
