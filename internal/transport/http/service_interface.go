package http

import (
	"context"
	"io"

	"callreport/internal/aggregate"
	"callreport/internal/exporter"
	"callreport/internal/services"
)

// ReportServiceInterface defines the report operations the handlers use
type ReportServiceInterface interface {
	Upload(ctx context.Context, name string, r io.Reader) (*services.UploadSummary, error)
	Report(ctx context.Context, id string, g aggregate.Granularity) (*exporter.View, *aggregate.Result, error)
	Export(ctx context.Context, id string, g aggregate.Granularity, w io.Writer) error
	Discard(ctx context.Context, id string) error
	Categories(ctx context.Context) services.CategoryListing
}
