package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/mikey/mbox-contacts/internal/adapters/export"
	"github.com/mikey/mbox-contacts/internal/config"
	"github.com/mikey/mbox-contacts/internal/core"
	"github.com/mikey/mbox-contacts/internal/di"
	"github.com/mikey/mbox-contacts/internal/factory"
	"github.com/mikey/mbox-contacts/internal/utils"
)

const usage = `Usage: contacts <command> [flags]

Commands:
  ingest   Read mailboxes, vCards and CSV contact lists into the store
  export   Export classified contacts as CSV or an email list
  summary  Print a summary of the store
  list     List merged contact records
`

var unescape = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

// pathList collects a repeatable path flag
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	case "summary":
		err = runSummary(ctx, os.Args[2:])
	case "list":
		err = runList(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// invoke builds the container and runs fn with its dependencies injected.
// The store is closed once fn returns.
func invoke(opts *di.Options, fn interface{}) error {
	container, err := di.BuildContainer(opts)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	runErr := container.Invoke(fn)
	closeErr := container.Invoke(func(logger *zap.Logger, store core.Store) {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
		logger.Sync()
	})
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	opts := di.RegisterFlags(fs)
	var paths factory.SourcePaths
	fs.Var((*pathList)(&paths.Mbox), "mbox", "Mailbox file to ingest (repeatable)")
	fs.Var((*pathList)(&paths.VCard), "vcf", "vCard file to merge (repeatable)")
	fs.Var((*pathList)(&paths.CSV), "csv", "CSV contact list to merge (repeatable)")
	fs.StringVar(&opts.OwnerEmail, "owner", "", "Owner address; inferred from the mailboxes when empty")
	fs.Parse(args)
	for _, path := range fs.Args() {
		paths.Add(path)
	}
	if paths.Empty() {
		return fmt.Errorf("ingest: no input files given")
	}

	return invoke(opts, func(
		logger *zap.Logger,
		sources *factory.SourceFactory,
		parsing *factory.ParsingFactory,
		pipeline *core.Pipeline,
	) error {
		opened, err := sources.Open(paths)
		if err != nil {
			return err
		}
		defer opened.Close()

		run := core.NewRunState(parsing.OwnerOverride())
		logger.Info("Starting ingestion run", zap.String("run_id", run.ID))
		report, err := pipeline.Run(ctx, run, opened.Sources)
		if err != nil {
			return err
		}
		if !report.Backfill.OwnerKnown {
			logger.Warn("Owner could not be determined, no direct markers applied")
		}
		return nil
	})
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	opts := di.RegisterFlags(fs)
	var filter core.ExportFilter
	output := fs.String("output", "", "Output file (stdout if not specified)")
	format := fs.String("format", "csv", "Output format (csv, list)")
	separator := fs.String("separator", "\n", "Separator between list entries")
	fs.IntVar(&filter.MinOccurrences, "min-occurrences", 0, "Keep contacts seen more than this many times")
	fs.StringVar(&filter.RecentDate, "recent-date", "", "Keep contacts seen on or after this date (YYYY-MM-DD)")
	fs.BoolVar(&filter.PersonalOnly, "personal-only", false, "Keep personal contacts only")
	fs.IntVar(&filter.MinDirect, "min-direct", 0, "Keep contacts with at least this many direct occurrences")
	fs.Parse(args)

	return invoke(opts, func(logger *zap.Logger, aggregator *core.Aggregator) error {
		views, err := aggregator.Export(ctx, filter)
		if err != nil {
			return err
		}

		err = writeOutput(*output, func(w io.Writer) error {
			switch *format {
			case "csv":
				return export.WriteCSV(w, aggregator, views)
			case "list":
				return export.WriteEmailList(w, views, unescape.Replace(*separator))
			default:
				return fmt.Errorf("unsupported export format: %s", *format)
			}
		})
		if err != nil {
			return err
		}
		if *output != "" {
			logger.Info("Wrote export", zap.String("file", *output), zap.Int("contacts", len(views)))
		}
		return nil
	})
}

func runSummary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	opts := di.RegisterFlags(fs)
	format := fs.String("format", export.FormatText, "Output format (text, yaml)")
	fs.Parse(args)

	return invoke(opts, func(
		occurrences core.OccurrenceRepository,
		contacts core.ContactRepository,
		settings config.ExportConfig,
	) error {
		summary, err := core.Summarize(ctx, occurrences, contacts)
		if err != nil {
			return err
		}
		return export.WriteSummary(os.Stdout, summary, *format, settings.Location)
	})
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	opts := di.RegisterFlags(fs)
	fs.Parse(args)

	return invoke(opts, func(contacts core.ContactRepository, text *utils.TextProcessor) error {
		all, err := contacts.AllContacts(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EMAIL\tNAME\tFIRST\tLAST\tSOURCE")
		for _, c := range all {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.Email, text.SanitizeUTF8(c.DisplayName), c.FirstName, c.LastName, c.Source)
		}
		return tw.Flush()
	})
}

// writeOutput runs write against path, or stdout when path is empty. A
// failure to close the file is reported like a write failure.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}
