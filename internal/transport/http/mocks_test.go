package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"callreport/internal/aggregate"
	"callreport/internal/category"
	"callreport/internal/exporter"
	"callreport/internal/services"
	"callreport/internal/spreadsheet"
)

// MockReportService is a testify mock of ReportServiceInterface
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Upload(ctx context.Context, name string, r io.Reader) (*services.UploadSummary, error) {
	args := m.Called(ctx, name, r)
	if s := args.Get(0); s != nil {
		return s.(*services.UploadSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportService) Report(ctx context.Context, id string, g aggregate.Granularity) (*exporter.View, *aggregate.Result, error) {
	args := m.Called(ctx, id, g)
	var view *exporter.View
	var res *aggregate.Result
	if v := args.Get(0); v != nil {
		view = v.(*exporter.View)
	}
	if v := args.Get(1); v != nil {
		res = v.(*aggregate.Result)
	}
	return view, res, args.Error(2)
}

func (m *MockReportService) Export(ctx context.Context, id string, g aggregate.Granularity, w io.Writer) error {
	args := m.Called(ctx, id, g, w)
	return args.Error(0)
}

func (m *MockReportService) Discard(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockReportService) Categories(ctx context.Context) services.CategoryListing {
	return m.Called(ctx).Get(0).(services.CategoryListing)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// multipartBody builds an upload form with a file part and optional fields.
func multipartBody(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// sampleReport aggregates a small call log for handler responses.
func sampleReport(t *testing.T, g aggregate.Granularity) (*exporter.View, *aggregate.Result) {
	t.Helper()
	tbl := &spreadsheet.Table{
		Headers: []string{"Call Date", "Call To", "Call Time"},
		Rows: [][]string{
			{"2024-01-02 10:00", "Dispatch Counter <5150>", "120"},
			{"2024-01-02 11:00", "Dispatch Counter <5150>", "60"},
			{"2024-01-09 09:00", "CSC Callback <7001>", "45"},
			{"2024-01-09 09:30", "Unknown Line", "45"},
		},
	}
	res, err := aggregate.Aggregate(context.Background(), tbl, g, category.Default(), aggregate.DefaultOptions())
	require.NoError(t, err)
	return exporter.Render(res), res
}
