package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/app"
	"github.com/sumanths012/SymptoSense/internal/async"
	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/core"
	"github.com/sumanths012/SymptoSense/internal/ingest"
	"github.com/sumanths012/SymptoSense/internal/logging"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// setFlag collects repeated -set Name=value overrides.
type setFlag map[string]string

func (s setFlag) String() string {
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (s setFlag) Set(kv string) error {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected Name=value, got %q", kv)
	}
	s[strings.TrimSpace(name)] = value
	return nil
}

// report is one line of output.
type report struct {
	File       string                   `json:"file"`
	Prefill    *core.Prefill            `json:"prefill,omitempty"`
	Prediction *classifier.Prediction   `json:"prediction,omitempty"`
	Error      string                   `json:"error,omitempty"`
	Fields     []common.ValidationError `json:"invalid_fields,omitempty"`
}

func main() {
	overrides := setFlag{}
	var (
		configPath = flag.String("config", os.Getenv("SYMPTOSENSE_CONFIG"), "path to a YAML config file")
		textMode   = flag.Bool("text", false, "inputs are already-recognized text; read stdin when no file is given")
		categories = flag.String("categories", "", "comma-separated categories to extract, e.g. "+strings.Join(constants.AsStringSlice(), ",")+" (default: all in the catalog)")
		workers    = flag.Int("workers", 4, "files processed concurrently")
		predict    = flag.Bool("predict", false, "assemble the form and classify it")
		verbose    = flag.Bool("v", false, "log progress to stderr")
	)
	flag.Var(overrides, "set", "override a form value, Name=value (repeatable)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Discard()
	if *verbose {
		logger = logging.New(os.Stderr, cfg.Log.Level, "text")
	}

	cats, err := constants.ParseCategories(*categories)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	var reports []report
	switch {
	case *textMode:
		reports, err = extractTexts(ctx, a.Processor, flag.Args(), cats)
	case flag.NArg() == 0:
		printError("usage: extract-report [-text] [-categories glucose,insulin] [-workers N] [-predict] [-set Name=value] FILE...\n")
		os.Exit(2)
	default:
		reports, err = extractFiles(ctx, a.Processor, flag.Args(), cats, *workers, cfg.Extract.ProcessTimeout, logger)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	failed := false
	for i := range reports {
		r := &reports[i]
		if *predict && r.Prefill != nil {
			runPrediction(ctx, a.Processor, r, overrides)
		}
		if r.Error != "" {
			failed = true
		}
		if err := enc.Encode(r); err != nil {
			printError("Error: writing output: %v\n", err)
			os.Exit(1)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func extractTexts(ctx context.Context, proc *core.Processor, paths []string, cats []constants.Category) ([]report, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return []report{textReport(ctx, proc, "-", string(data), cats)}, nil
	}
	out := make([]report, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			out = append(out, report{File: p, Error: err.Error()})
			continue
		}
		out = append(out, textReport(ctx, proc, p, string(data), cats))
	}
	return out, nil
}

func textReport(ctx context.Context, proc *core.Processor, name, text string, cats []constants.Category) report {
	pf, err := proc.ExtractText(ctx, text, cats)
	if err != nil {
		return report{File: name, Error: err.Error()}
	}
	pf.Source = name
	return report{File: name, Prefill: &pf}
}

func extractFiles(ctx context.Context, proc *core.Processor, args []string, cats []constants.Category, workers int, timeout time.Duration, logger *slog.Logger) ([]report, error) {
	var paths []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, stats, err := ingest.CollectFiles(arg, nil, true)
		if err != nil {
			return nil, err
		}
		logger.Info("directory scanned", "dir", arg, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		paths = append(paths, files...)
	}

	jobs := make([]async.Job, len(paths))
	for i, p := range paths {
		jobs[i] = async.Job{Path: p, Categories: cats}
	}
	runner := async.NewBatchRunner(proc, logger, async.WithWorkers(workers), async.WithProcessTimeout(timeout))
	results := runner.Run(ctx, jobs)

	out := make([]report, len(results))
	for i, res := range results {
		out[i] = report{File: res.Job.Path}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			continue
		}
		pf := res.Prefill
		out[i].Prefill = &pf
	}
	return out, nil
}

func runPrediction(ctx context.Context, proc *core.Processor, r *report, overrides map[string]string) {
	f := r.Prefill.Form.WithOverrides(overrides)
	pred, err := proc.Predict(ctx, f)
	if err != nil {
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			r.Fields = verrs
		}
		r.Error = err.Error()
		return
	}
	r.Prediction = &pred
}
