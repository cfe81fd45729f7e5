// Command csv-import uploads the metrics of a CSV file to a cvec store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cvector/cvec-go/internal/app"
	"github.com/cvector/cvec-go/internal/config"
	"github.com/cvector/cvec-go/internal/csvimport"
	"github.com/cvector/cvec-go/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("csv-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		prefix   = fs.String("prefix", "", "Prefix to add to metric names (separated by '/')")
		host     = fs.String("host", "", "Store host URL (overrides CVEC_HOST)")
		apiKey   = fs.String("api-key", "", "API key (overrides CVEC_API_KEY)")
		useArrow = fs.Bool("arrow", false, "Upload as an Arrow file instead of JSON")
		help     = fs.Bool("help", false, "Show help")
	)
	fs.Usage = func() { csvimport.ShowHelp(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		csvimport.ShowHelp(stdout)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one CSV file is required")
		csvimport.ShowHelp(stderr)
		return 2
	}

	cfg := &csvimport.Config{
		Path:     fs.Arg(0),
		Prefix:   *prefix,
		Host:     *host,
		APIKey:   *apiKey,
		UseArrow: *useArrow,
	}

	if err := csvimport.ValidatePath(cfg.Path); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := logger.InitWithWriter(stdout); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := importFile(ctx, cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if cfID := csvimport.CfID(err); cfID != "" {
			fmt.Fprintf(stderr, "Cf-Id: %s\n", cfID)
		}
		return 1
	}
	return 0
}

func importFile(ctx context.Context, cfg *csvimport.Config) error {
	base, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(base.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	if cfg.Host != "" {
		base.Host = cfg.Host
	}
	if cfg.APIKey != "" {
		base.APIKey = cfg.APIKey
	}

	opts, err := app.OptionsFromConfig(ctx, base, nil)
	if err != nil {
		return err
	}
	client, err := app.New(ctx, opts...)
	if err != nil {
		return err
	}
	return csvimport.Run(ctx, cfg, client)
}
