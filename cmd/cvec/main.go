// Command cvec prints the spans of one or more metrics as JSON lines,
// newest first per metric.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cvector/cvec-go/internal/adapters/secrets"
	"github.com/cvector/cvec-go/internal/app"
	"github.com/cvector/cvec-go/internal/config"
	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

// options are the command line arguments.
type options struct {
	names       []string
	startAt     *time.Time
	endAt       *time.Time
	limit       int
	metricsFile string
}

// spanSource is the part of *app.Client used by run.
type spanSource interface {
	GetSpansForMetrics(ctx context.Context, names []string, startAt, endAt *time.Time, limit int) (map[string][]model.Span, error)
}

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	clientOpts, err := app.OptionsFromConfig(ctx, cfg, secrets.NewLoader(secrets.WithLogger(log.Named("secrets"))))
	if err != nil {
		log.Error(ctx, "invalid client configuration", logger.Error(err))
		os.Exit(1)
	}
	c, err := app.New(ctx, clientOpts...)
	if err != nil {
		log.Error(ctx, "failed to create client", logger.Error(err))
		os.Exit(1)
	}

	runErr := run(ctx, c, opts, os.Stdout)
	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics", logger.Error(err))
		}
	}
	if runErr != nil {
		log.Error(ctx, "query failed", logger.Error(runErr))
		os.Exit(1)
	}
}

func parseFlags(args []string, errOut io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cvec", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		start       = fs.String("start", "", "Window start, RFC 3339 (default: configured default_start_at)")
		end         = fs.String("end", "", "Window end, RFC 3339 (default: configured default_end_at)")
		limit       = fs.Int("limit", 0, "Keep only the newest N spans per metric (0 keeps all)")
		metricsFile = fs.String("metrics-file", "", "Write client metrics to this file in Prometheus text format on exit")
	)
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: cvec [options] <metric> [metric...]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o := &options{limit: *limit, metricsFile: *metricsFile}
	for _, arg := range fs.Args() {
		for _, name := range strings.Split(arg, ",") {
			if name = strings.TrimSpace(name); name != "" {
				o.names = append(o.names, name)
			}
		}
	}
	if len(o.names) == 0 {
		return nil, errors.New("at least one metric name is required")
	}
	if *limit < 0 {
		return nil, errors.New("-limit must not be negative")
	}

	var err error
	if o.startAt, err = parseTime("start", *start); err != nil {
		return nil, err
	}
	if o.endAt, err = parseTime("end", *end); err != nil {
		return nil, err
	}
	return o, nil
}

func parseTime(flagName, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", flagName, err)
	}
	return &t, nil
}

// run writes one JSON object per span, metrics in argument order.
func run(ctx context.Context, src spanSource, o *options, w io.Writer) error {
	byName, err := src.GetSpansForMetrics(ctx, o.names, o.startAt, o.endAt, o.limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, name := range o.names {
		for _, s := range byName[name] {
			if err := enc.Encode(s); err != nil {
				return fmt.Errorf("write span: %w", err)
			}
		}
	}
	return nil
}
