// Command csv2ics converts a CSV event list into an iCalendar file.
//
//	csv2ics [-title T] [-decoding bytes|utf8] [-log-level L] <input.csv> <output.ics>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/emilyselwood/csv-to-ics/internal/config"
	"github.com/emilyselwood/csv-to-ics/internal/core"
	"github.com/emilyselwood/csv-to-ics/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run converts according to args, writing logs and messages to stderr, and
// returns the process exit code.
func run(args []string, stderr io.Writer) int {
	// A missing .env is fine here; flags and defaults cover everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "configuration:", err)
		return 1
	}

	fs := flag.NewFlagSet("csv2ics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", cfg.Calendar.DefaultTitle, "calendar title (X-WR-CALNAME)")
	decoding := fs.String("decoding", cfg.Convert.Decoding, "field decoding: bytes or utf8")
	level := fs.String("log-level", cfg.Logging.Level, "log level: debug, info, warn, error")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: csv2ics [flags] <input.csv> <output.ics>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 1
	}

	cfg.Convert.Decoding = *decoding
	slog.SetDefault(logging.New(stderr, *level, cfg.Logging.Format))

	// No history store: the CLI never touches a database.
	svc, err := core.NewService(nil, cfg)
	if err != nil {
		fmt.Fprintln(stderr, core.FormatUserError(err))
		return 1
	}

	in, out := fs.Arg(0), fs.Arg(1)
	res, err := svc.ConvertFile(context.Background(), in, out, *title)
	if err != nil {
		slog.Error("conversion failed", "input", in, "error", err)
		fmt.Fprintln(stderr, core.FormatUserError(err))
		return 1
	}

	// Skipped rows were already logged one by one while mapping.
	slog.Info("calendar written",
		"output", out,
		"events", res.Events,
		"skipped", res.Skipped(),
	)
	return 0
}
