package infrastructure

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"callreport/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(config.TelemetryConfig{Enabled: false}, "test", testLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordUpload(context.Background(), "success")

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_PrometheusEndpoint(t *testing.T) {
	cfg := config.TelemetryConfig{
		Enabled:        true,
		ServiceName:    "callreport-test",
		Environment:    "test",
		MetricsEnabled: true,
	}
	providers, err := InitializeOTel(cfg, "test", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordUpload(ctx, "success")
	metrics.RecordReadFailure(ctx, "CORRUPT_FILE")
	metrics.RecordAggregation(ctx, "Day", 2, 15*time.Millisecond)
	metrics.RecordExport(ctx, "Week")
	metrics.RecordHTTPRequest(ctx, http.MethodGet, "/report", http.StatusOK, time.Millisecond)

	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "callreport_uploads_total")
	assert.Contains(t, body, "callreport_read_failures_total")
	assert.Contains(t, body, "callreport_rows_aggregated_total")
	assert.Contains(t, body, "callreport_exports_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestRecordError_MarksSpan(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "callreport-test"}
	providers, err := InitializeOTel(cfg, "test", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	assert.False(t, trace.SpanContextFromContext(context.Background()).IsValid())

	ctx, span := providers.Tracer.Start(context.Background(), "report.aggregate")
	defer span.End()

	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	RecordError(ctx, assert.AnError)
	RecordError(context.Background(), assert.AnError)
}

func TestBusinessMetrics_NilSafe(t *testing.T) {
	var m *BusinessMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordUpload(ctx, "success")
		m.RecordReadFailure(ctx, "READ_ERROR")
		m.RecordAggregation(ctx, "Month", 1, time.Second)
		m.RecordExport(ctx, "Month")
		m.RecordSessionDelta(ctx, 1)
		m.RecordCategoryReload(ctx, true)
		m.RecordHTTPRequest(ctx, http.MethodGet, "/", 200, time.Second)
	})
}
