// Package main verifies a running provider against pact files.
// Usage:
//
//	go run ./cmd/verifypact \
//	  -provider-base-url=http://localhost:8080 \
//	  -pact=tests/contract/testdata/pacts \
//	  -header="Authorization=Bearer $SHIPPING_MASTER_KEY"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shipping/internal/logging"
	"shipping/internal/pact"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	baseURL    string
	pacts      []string
	timeout    time.Duration
	headers    map[string]string
	failFast   bool
	allowEmpty bool
	logFormat  string
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("verifypact", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var pacts, headers listFlag
	opts := &options{}
	fs.StringVar(&opts.baseURL, "provider-base-url", "http://localhost:8080", "Base URL of the provider under test")
	fs.Var(&pacts, "pact", "Pact file or directory of pact files (repeatable)")
	fs.DurationVar(&opts.timeout, "timeout", pact.DefaultRequestTimeout, "Timeout for each replayed request")
	fs.Var(&headers, "header", "Extra request header as Name=Value (repeatable)")
	fs.BoolVar(&opts.failFast, "fail-fast", false, "Stop after the first failing interaction")
	fs.BoolVar(&opts.allowEmpty, "allow-empty", false, "Succeed when no interactions were found")
	fs.StringVar(&opts.logFormat, "log-format", logging.FormatAuto, "Log format (auto, json, text)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(pacts) == 0 {
		return nil, errors.New("at least one -pact is required")
	}
	opts.pacts = pacts

	opts.headers = make(map[string]string, len(headers))
	for _, h := range headers {
		name, value, ok := strings.Cut(h, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid -header %q, want Name=Value", h)
		}
		opts.headers[name] = value
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := logging.Setup(opts.logFormat, opts.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	passed, err := run(ctx, opts, http.DefaultClient)
	if err != nil {
		slog.Error("verification failed", "error", err)
		os.Exit(1)
	}
	if !passed {
		os.Exit(1)
	}
}

// run loads the pacts, verifies them, and logs one line per interaction.
func run(ctx context.Context, opts *options, client *http.Client) (bool, error) {
	pacts, err := pact.LoadPaths(opts.pacts...)
	if err != nil {
		return false, err
	}

	v := &pact.Verifier{
		BaseURL:    opts.baseURL,
		HTTPClient: client,
		Options: pact.Options{
			RequestTimeout:     opts.timeout,
			CustomHeaders:      opts.headers,
			NoPactsIsError:     !opts.allowEmpty,
			ExitOnFirstFailure: opts.failFast,
		},
	}

	slog.Info("verifying provider", "base_url", opts.baseURL, "pacts", len(pacts))
	result, err := v.Verify(ctx, pacts...)
	if err != nil {
		return false, err
	}

	for _, ir := range result.Interactions {
		attrs := []any{
			"consumer", ir.Consumer,
			"provider", ir.Provider,
			"interaction", ir.Description,
			"duration", ir.Duration.Round(time.Millisecond),
		}
		if ir.Passed() {
			slog.Info("PASS", attrs...)
			continue
		}
		if ir.Error != "" {
			attrs = append(attrs, "error", ir.Error)
		}
		slog.Error("FAIL", attrs...)
		for _, m := range ir.Mismatches {
			slog.Error("  mismatch", "interaction", ir.Description, "detail", m.String())
		}
	}

	slog.Info("verification finished", "summary", result.Summary())
	return result.Passed(), nil
}
