package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/chazu/meshdecimate/pkg/config"
	"github.com/chazu/meshdecimate/pkg/decimate"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "meshdecimate:", err)
		os.Exit(1)
	}
}

// run parses args, executes the profile and writes the JSON result to
// stdout or --out.
func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("meshdecimate", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "path to a YAML run profile")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	shapeKind := fs.String("shape", "", "override the profile's shape kind")
	maxTris := fs.Int("budget", 0, "decimate to at most this many triangles")
	outPath := fs.StringP("out", "o", "", "write the result here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	decimate.SetLogger(logger)
	defer decimate.SetLogger(nil)

	profile := config.Default()
	if *configPath != "" {
		p, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		profile = p
	}
	if *shapeKind != "" {
		profile.Shape.Kind = *shapeKind
	}
	if fs.Changed("budget") {
		if profile.Budget == nil {
			profile.Budget = config.DefaultBudget(*maxTris)
		}
		profile.Budget.MaxTriangles = *maxTris
	}

	logger.Debug("starting run", "config", *configPath, "shape", profile.Shape.Kind)
	res, err := NewApp(logger).Run(profile)
	if err != nil {
		return err
	}

	w := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
