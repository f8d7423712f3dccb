// Package main provides a command line client that prints the latest Ambee
// record for a coordinate as JSON, and issues bearer tokens for the API server.
//
//	AMBEE_API_KEY=... ambee -lat 52.42 -lng 6.42 pollen
//	JWT_SIGNING_KEY=... ambee token -sub dashboard -ttl 24h
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
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/ambee/pkg/ambee"
)

var errUsage = errors.New("usage: ambee [-lat N] [-lng N] [-timeout D] air-quality|pollen|weather")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ambee:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) > 0 && args[0] == "token" {
		return runToken(args[1:], stdout, stderr, getenv)
	}

	fs := flag.NewFlagSet("ambee", flag.ContinueOnError)
	fs.SetOutput(stderr)

	lat := fs.Float64("lat", 52.42, "latitude")
	lng := fs.Float64("lng", 6.42, "longitude")
	timeout := fs.Duration("timeout", ambee.DefaultRequestTimeout, "request timeout")
	apiKey := fs.String("key", getenv("AMBEE_API_KEY"), "API key (default $AMBEE_API_KEY)")
	baseURL := fs.String("base-url", getenv("AMBEE_BASE_URL"), "API base URL")
	verbose := fs.Bool("v", false, "log requests to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	resource, err := ambee.ParseResource(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *apiKey == "" {
		return errors.New("no API key, set AMBEE_API_KEY or pass -key")
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg := ambee.ClientConfig{
		APIKey:         *apiKey,
		Latitude:       *lat,
		Longitude:      *lng,
		RequestTimeout: *timeout,
		BaseURL:        *baseURL,
		Logger:         logger,
	}

	var record any
	err = ambee.With(ctx, cfg, func(ctx context.Context, c *ambee.Client) error {
		record, err = c.Fetch(ctx, resource)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching %s: %w", resource, err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
