// Command callexport aggregates a call log spreadsheet and writes the
// grouped CSV without starting the web server.
//
//	callexport -in calls.xlsx -granularity week -out reports/grouped_data.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"callreport/internal/aggregate"
	"callreport/internal/category"
	"callreport/internal/config"
	"callreport/internal/exporter"
	"callreport/internal/infrastructure"
	"callreport/internal/services"
	"callreport/internal/spreadsheet"
	"callreport/internal/validation"
	"callreport/pkg/contracts"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "callexport:", err)
		}
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	infrastructure.CloseLogFile()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("callexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "call log spreadsheet (.xlsx or .xls)")
	granularity := fs.String("granularity", string(aggregate.DefaultGranularity), "month | week | day")
	out := fs.String("out", "", `output csv path, "-" for stdout (defaults to export.file_name)`)
	configFile := fs.String("config", "", "YAML config file (defaults to the usual config lookup)")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return nil
	}

	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	g, err := aggregate.ParseGranularity(*granularity)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "callexport")
	ctx = infrastructure.EnsureTraceID(ctx)

	m := category.Default()
	if cfg.Categories.File != "" {
		if m, err = category.LoadFile(cfg.Categories.File); err != nil {
			return err
		}
	}
	category.LogDuplicates(ctx, logger, m)

	opts, err := services.ReportOptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	svc := services.NewReportService(
		spreadsheet.NewReader(logger),
		category.NewStore(m),
		nil,
		opts,
		nil, nil, logger,
	)

	fv := validation.NewFileValidator(logger, cfg.Upload.AllowedExtensions)
	if err := fv.ValidateSpreadsheet(*in); err != nil {
		return err
	}

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	table, err := svc.ReadTable(ctx, filepath.Base(*in), f)
	if err != nil {
		return err
	}
	if err := aggregate.Validate(table, opts.Columns); err != nil {
		return err
	}

	res, err := svc.AggregateTable(ctx, table, g)
	if err != nil {
		return err
	}

	if *out == "-" {
		return svc.WriteCSV(ctx, res, stdout)
	}

	path := *out
	if path == "" {
		path = cfg.Export.FileName
	}
	if err := fv.ValidateCSVOutput(path); err != nil {
		return err
	}
	if err := exporter.ExportFile(path, res, opts.Export); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "%d groups across %d calls written to %s (%d invalid dates, %d unmapped)\n",
		len(res.Rows), res.TotalCalls(), path, res.Stats.InvalidDates, res.Stats.Unmapped)
	return nil
}
