package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callreport/internal/aggregate"
	"callreport/internal/category"
	"callreport/internal/config"
	apierrors "callreport/internal/errors"
	"callreport/internal/exporter"
	"callreport/internal/session"
	"callreport/internal/shared/testutil"
	"callreport/internal/spreadsheet"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*ReportService, *session.Store) {
	t.Helper()
	logger := testLogger()
	sessions := session.NewStore(session.Options{TTL: time.Minute, MaxEntries: 10, Logger: logger})
	cfg := config.Default()
	opts, err := ReportOptionsFromConfig(cfg)
	require.NoError(t, err)

	svc := NewReportService(
		spreadsheet.NewReader(logger),
		category.NewStore(category.Default()),
		sessions,
		opts,
		nil, nil, logger,
	)
	return svc, sessions
}

func callLog(t *testing.T) []byte {
	return testutil.Workbook(t, [][]interface{}{
		testutil.CallLogHeader,
		{"2024-01-02 10:00", "Dispatch Counter <5150>", 120},
		{"2024-01-02 11:00", "Dispatch Counter <5150>", 60},
		{"2024-01-03 09:00", "Unknown Line", 300},
		{"2024-01-09 09:00", "CSC Callback <7001>", 45},
	})
}

func TestReportService_UploadAndReport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Upload(ctx, "calls.xlsx", bytes.NewReader(callLog(t)))
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, "calls.xlsx", summary.FileName)
	assert.Equal(t, "Sheet1", summary.Sheet)
	assert.Equal(t, spreadsheet.FormatXLSX, summary.Format)
	assert.Equal(t, 4, summary.Rows)

	view, res, err := svc.Report(ctx, summary.ID, aggregate.Week)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Stats.Unmapped)

	require.Len(t, view.Sections, 2)
	assert.Equal(t, "Week 2024-W01: 2024-01-01 to 2024-01-07", view.Sections[0].Label)
	assert.Equal(t, "Dispatch", view.Sections[0].Rows[0].Group)
	assert.Equal(t, "0:03:00", view.Sections[0].Rows[0].Duration())
	assert.Equal(t, "Week 2024-W02: 2024-01-08 to 2024-01-14", view.Sections[1].Label)
}

func TestReportService_Export(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Upload(ctx, "calls.xlsx", bytes.NewReader(callLog(t)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, summary.ID, aggregate.Day, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		exporter.Headers,
		{"2024-01-02", "Dispatch", "2", "0:03:00"},
		{"2024-01-09", "CSC", "1", "0:00:45"},
	}, records)
}

func TestReportService_UploadMissingColumns(t *testing.T) {
	svc, sessions := newTestService(t)

	data := testutil.Workbook(t, [][]interface{}{
		{"Call Date", "Caller", "Duration"},
		{"2024-01-02", "x", 1},
	})
	_, err := svc.Upload(context.Background(), "calls.xlsx", bytes.NewReader(data))
	require.Error(t, err)
	assert.Equal(t, []string{"Call To", "Call Time"}, apierrors.MissingColumns(err))
	assert.Equal(t, 0, sessions.Len())
}

func TestReportService_UploadRejectsExtension(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "calls.csv", strings.NewReader("a,b"))
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
	assert.Contains(t, err.Error(), ".xlsx, .xls")
}

func TestReportService_UploadCorruptFile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "calls.xls", strings.NewReader("definitely not a workbook"))
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeCorruptFile))
}

func TestReportService_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Report(ctx, "missing", aggregate.Month)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = svc.Export(ctx, "missing", aggregate.Month, io.Discard)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, svc.Discard(ctx, "missing"), ErrSessionNotFound)
}

func TestReportService_LegacyWorkbook(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	data, err := os.ReadFile("../spreadsheet/testdata/calls.xls")
	require.NoError(t, err)

	summary, err := svc.Upload(ctx, "calls.xls", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, spreadsheet.FormatXLS, summary.Format)
	assert.Equal(t, 4, summary.Rows)

	_, res, err := svc.Report(ctx, summary.ID, aggregate.Day)
	require.NoError(t, err)
	assert.Zero(t, res.Stats.InvalidDates)
	assert.Zero(t, res.Stats.InvalidDurations)

	type bucketRow struct {
		Period, Group string
		Calls         int
		Duration      string
	}
	var got []bucketRow
	for _, r := range res.Rows {
		got = append(got, bucketRow{r.Bucket.Key(), r.Group, r.Calls, r.Duration()})
	}
	assert.ElementsMatch(t, []bucketRow{
		{"2024-01-02", "Dispatch", 2, "0:03:30"},
		{"2024-01-03", "CSC", 1, "0:00:46"},
		{"2024-01-09", "MTM", 1, "0:10:00"},
	}, got)
}

func TestReportService_WithoutSessions(t *testing.T) {
	logger := testLogger()
	opts, err := ReportOptionsFromConfig(config.Default())
	require.NoError(t, err)
	svc := NewReportService(spreadsheet.NewReader(logger), category.NewStore(category.Default()), nil, opts, nil, nil, logger)
	ctx := context.Background()

	table, err := svc.ReadTable(ctx, "calls.xlsx", bytes.NewReader(callLog(t)))
	require.NoError(t, err)
	res, err := svc.AggregateTable(ctx, table, aggregate.Month)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCalls())

	_, err = svc.Upload(ctx, "calls.xlsx", bytes.NewReader(callLog(t)))
	assert.ErrorIs(t, err, ErrNoSessions)
	assert.Equal(t, apierrors.ErrTypeConfig, apierrors.TypeOf(err))

	_, _, err = svc.Report(ctx, "any", aggregate.Month)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Export(ctx, "any", aggregate.Month, io.Discard), ErrSessionNotFound)
	assert.ErrorIs(t, svc.Discard(ctx, "any"), ErrSessionNotFound)
}

func TestReportService_Discard(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	summary, err := svc.Upload(ctx, "calls.xlsx", bytes.NewReader(callLog(t)))
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, summary.ID))
	assert.Equal(t, 0, sessions.Len())
}

func TestReportService_Categories(t *testing.T) {
	svc, _ := newTestService(t)

	listing := svc.Categories(context.Background())
	assert.Equal(t, []string{"CSC", "Dispatch", "MTM"}, listing.Groups)
	require.Len(t, listing.Duplicates, 1)
	assert.Equal(t, "Dispatch Overflow <5152>", listing.Duplicates[0].Label)
	assert.Equal(t, "CSC", listing.Duplicates[0].Effective)
	assert.Len(t, listing.Entries, 10)
}

func TestReportService_UsesReplacedCategories(t *testing.T) {
	logger := testLogger()
	store := category.NewStore(category.Default())
	svc := NewReportService(spreadsheet.NewReader(logger), store,
		session.NewStore(session.Options{TTL: time.Minute, MaxEntries: 4, Logger: logger}),
		ReportOptions{Columns: config.Default().Columns}, nil, nil, logger)

	table := &spreadsheet.Table{
		Headers: []string{"Call Date", "Call To", "Call Time"},
		Rows:    [][]string{{"2024-01-02", "Unknown Line", "30"}},
	}

	res, err := svc.AggregateTable(context.Background(), table, aggregate.Month)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)

	store.Replace(category.New([]category.Entry{{Label: "Unknown Line", Group: "Other"}}))

	res, err = svc.AggregateTable(context.Background(), table, aggregate.Month)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Other", res.Rows[0].Group)
}
