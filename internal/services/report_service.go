package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"callreport/internal/aggregate"
	"callreport/internal/category"
	"callreport/internal/config"
	apierrors "callreport/internal/errors"
	"callreport/internal/exporter"
	"callreport/internal/infrastructure"
	"callreport/internal/session"
	"callreport/internal/spreadsheet"
)

// ReportOptions carries the configuration the pipeline depends on.
type ReportOptions struct {
	Columns           config.ColumnsConfig
	Location          *time.Location
	AllowedExtensions []string
	Export            exporter.ExportOptions
}

// ReportOptionsFromConfig extracts ReportOptions from the application config.
func ReportOptionsFromConfig(cfg *config.Config) (ReportOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ReportOptions{}, apierrors.NewConfigError("invalid timezone", err)
	}
	return ReportOptions{
		Columns:           cfg.Columns,
		Location:          loc,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		Export:            exporter.ExportOptions{BOM: cfg.Export.BOM},
	}, nil
}

// UploadSummary describes a stored upload.
type UploadSummary struct {
	ID         string
	FileName   string
	Sheet      string
	Format     spreadsheet.Format
	Rows       int
	UploadedAt time.Time
}

// CategoryListing is the effective category table.
type CategoryListing struct {
	Entries    []category.Entry
	Groups     []string
	Duplicates []category.Duplicate
}

// ReportService runs uploads through reading, aggregation and export.
type ReportService struct {
	reader     *spreadsheet.Reader
	categories *category.Store
	sessions   *session.Store
	opts       ReportOptions
	tracer     trace.Tracer
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger
}

// NewReportService wires a ReportService. tracer and metrics may be nil.
// sessions may be nil for one-shot use through ReadTable and
// AggregateTable; the session-backed operations then fail.
func NewReportService(
	reader *spreadsheet.Reader,
	categories *category.Store,
	sessions *session.Store,
	opts ReportOptions,
	tracer trace.Tracer,
	metrics *infrastructure.BusinessMetrics,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = config.DefaultAllowedExtensions()
	}
	return &ReportService{
		reader:     reader,
		categories: categories,
		sessions:   sessions,
		opts:       opts,
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger.With(slog.String("service", "report")),
	}
}

// Upload reads a spreadsheet, checks the required columns and stores the
// table under a new session id.
func (s *ReportService) Upload(ctx context.Context, name string, r io.Reader) (*UploadSummary, error) {
	ctx, span := s.tracer.Start(ctx, "report.upload",
		trace.WithAttributes(attribute.String("upload.file_name", name)))
	defer span.End()

	table, err := s.ReadTable(ctx, name, r)
	if err != nil {
		s.uploadFailed(ctx, name, err)
		return nil, err
	}

	if err := aggregate.Validate(table, s.opts.Columns); err != nil {
		s.uploadFailed(ctx, name, err)
		return nil, err
	}

	if s.sessions == nil {
		s.uploadFailed(ctx, name, ErrNoSessions)
		return nil, ErrNoSessions
	}
	up := s.sessions.Put(ctx, name, table)
	s.metrics.RecordUpload(ctx, "success")
	span.SetAttributes(
		attribute.String("upload.id", up.ID),
		attribute.Int("upload.rows", table.Len()),
		attribute.String("upload.format", string(table.Format)))

	s.logger.InfoContext(ctx, "upload stored",
		slog.String("upload_id", up.ID),
		slog.String("file_name", name),
		slog.String("format", string(table.Format)),
		slog.String("sheet", table.Sheet),
		slog.Int("rows", table.Len()))

	return &UploadSummary{
		ID:         up.ID,
		FileName:   up.FileName,
		Sheet:      table.Sheet,
		Format:     table.Format,
		Rows:       table.Len(),
		UploadedAt: up.UploadedAt,
	}, nil
}

// ReadTable checks the file extension and parses the first worksheet.
func (s *ReportService) ReadTable(ctx context.Context, name string, r io.Reader) (*spreadsheet.Table, error) {
	if err := s.checkExtension(name); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "spreadsheet.read")
	defer span.End()

	table, err := s.reader.Read(ctx, name, r)
	if err != nil {
		if t := apierrors.TypeOf(err); t == apierrors.ErrTypeCorruptFile || t == apierrors.ErrTypeRead {
			s.metrics.RecordReadFailure(ctx, string(t))
		}
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("spreadsheet.rows", table.Len()))
	return table, nil
}

// Report aggregates a stored upload and builds its display view.
func (s *ReportService) Report(ctx context.Context, id string, g aggregate.Granularity) (*exporter.View, *aggregate.Result, error) {
	up, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.AggregateTable(ctx, up.Table, g)
	if err != nil {
		return nil, nil, err
	}
	return exporter.Render(res), res, nil
}

// Export aggregates a stored upload and writes it to w as CSV.
func (s *ReportService) Export(ctx context.Context, id string, g aggregate.Granularity, w io.Writer) error {
	up, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.AggregateTable(ctx, up.Table, g)
	if err != nil {
		return err
	}
	return s.WriteCSV(ctx, res, w)
}

// WriteCSV writes an aggregation result in the export format.
func (s *ReportService) WriteCSV(ctx context.Context, res *aggregate.Result, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "report.export",
		trace.WithAttributes(
			attribute.String("report.granularity", res.Granularity.String()),
			attribute.Int("report.rows", len(res.Rows))))
	defer span.End()

	if err := exporter.ExportCSV(w, res, s.opts.Export); err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("failed to write csv: %w", err)
	}
	s.metrics.RecordExport(ctx, res.Granularity.String())
	return nil
}

// AggregateTable runs aggregation with the current category map.
func (s *ReportService) AggregateTable(ctx context.Context, table *spreadsheet.Table, g aggregate.Granularity) (*aggregate.Result, error) {
	ctx, span := s.tracer.Start(ctx, "report.aggregate",
		trace.WithAttributes(attribute.String("report.granularity", g.String())))
	defer span.End()

	start := time.Now()
	res, err := aggregate.Aggregate(ctx, table, g, s.categories.Current(), aggregate.Options{
		Columns:  s.opts.Columns,
		Location: s.opts.Location,
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.RecordAggregation(ctx, g.String(), res.Stats.Aggregated, elapsed)
	span.SetAttributes(
		attribute.Int("report.rows", len(res.Rows)),
		attribute.Int("report.input_rows", res.Stats.InputRows),
		attribute.Int("report.unmapped", res.Stats.Unmapped),
		attribute.Int("report.invalid_dates", res.Stats.InvalidDates))

	s.logger.DebugContext(ctx, "aggregation complete",
		slog.String("granularity", g.String()),
		slog.Int("input_rows", res.Stats.InputRows),
		slog.Int("aggregated", res.Stats.Aggregated),
		slog.Int("unmapped", res.Stats.Unmapped),
		slog.Int("invalid_dates", res.Stats.InvalidDates),
		slog.Int("invalid_durations", res.Stats.InvalidDurations),
		slog.Duration("elapsed", elapsed))

	return res, nil
}

// Discard removes a stored upload.
func (s *ReportService) Discard(ctx context.Context, id string) error {
	if s.sessions == nil || !s.sessions.Delete(ctx, id) {
		return ErrSessionNotFound
	}
	s.logger.InfoContext(ctx, "upload discarded", slog.String("upload_id", id))
	return nil
}

// Categories returns the category table currently in effect.
func (s *ReportService) Categories(ctx context.Context) CategoryListing {
	m := s.categories.Current()
	return CategoryListing{
		Entries:    m.Entries(),
		Groups:     m.Groups(),
		Duplicates: m.Duplicates(),
	}
}

func (s *ReportService) lookup(ctx context.Context, id string) (*session.Upload, error) {
	if s.sessions == nil {
		return nil, ErrSessionNotFound
	}
	return s.sessions.Get(ctx, id)
}

func (s *ReportService) checkExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if slices.Contains(s.opts.AllowedExtensions, ext) {
		return nil
	}
	return apierrors.NewAppValidationError("file",
		fmt.Sprintf("Unsupported file type %q. Please upload one of: %s",
			ext, strings.Join(s.opts.AllowedExtensions, ", ")))
}

func (s *ReportService) uploadFailed(ctx context.Context, name string, err error) {
	kind := errorKind(err)
	s.metrics.RecordUpload(ctx, kind)
	infrastructure.RecordError(ctx, err)
	s.logger.WarnContext(ctx, "upload rejected",
		slog.String("file_name", name),
		slog.String("error_type", kind),
		slog.String("error", err.Error()))
}

func errorKind(err error) string {
	if t := apierrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "unknown"
}
