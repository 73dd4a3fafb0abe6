package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callreport/internal/config"
	"callreport/internal/shared/testutil"
	api "callreport/pkg/contracts/api/v1"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Session.CleanupInterval = 50 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.OTelProviders.Shutdown(context.Background())
	})
	return a
}

func callLogWorkbook(t *testing.T) []byte {
	return testutil.Workbook(t, [][]interface{}{
		testutil.CallLogHeader,
		{"2024-01-02 10:00", "Dispatch Counter <5150>", 120},
		{"2024-01-02 11:00", "Dispatch Counter <5150>", 60},
		{"2024-01-03 09:00", "Unknown Line", 300},
		{"2024-01-09 09:00", "CSC Callback <7001>", 45},
	})
}

func uploadForm(t *testing.T, fileName string, content []byte, granularity string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if granularity != "" {
		require.NoError(t, mw.WriteField("granularity", granularity))
	}
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestApplication_HealthEndpoints(t *testing.T) {
	a := newTestApp(t, testConfig())

	for _, path := range []string{"/api/health", "/api/health/ready", "/api/health/live", "/api/version"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_IndexPage(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Call Date")
	assert.Contains(t, body, "Call To")
	assert.Contains(t, body, "Call Time")
}

func TestApplication_UnknownRoute(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
}

func TestApplication_MetricsEndpoint(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestApplication_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Enabled = false
	a := newTestApp(t, cfg)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplication_APIUploadReportExport(t *testing.T) {
	a := newTestApp(t, testConfig())
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	body, contentType := uploadForm(t, "calls.xlsx", callLogWorkbook(t), "month")
	resp, err := http.Post(srv.URL+"/api/v1/uploads", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded api.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "calls.xlsx", uploaded.FileName)
	assert.Equal(t, 4, uploaded.Rows)
	require.NotEmpty(t, uploaded.UploadID)

	reportResp, err := http.Get(srv.URL + uploaded.ReportURL)
	require.NoError(t, err)
	defer reportResp.Body.Close()
	assert.Equal(t, http.StatusOK, reportResp.StatusCode)

	exportResp, err := http.Get(srv.URL + uploaded.ExportURL)
	require.NoError(t, err)
	defer exportResp.Body.Close()
	require.Equal(t, http.StatusOK, exportResp.StatusCode)
	assert.Equal(t, "text/csv", exportResp.Header.Get("Content-Type"))
	assert.Contains(t, exportResp.Header.Get("Content-Disposition"), "grouped_data.csv")

	records, err := csv.NewReader(exportResp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Period", "Group", "Total Calls", "Total Call Time"},
		{"2024-01", "Dispatch", "2", "0:03:00"},
		{"2024-01", "CSC", "1", "0:00:45"},
	}, records)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/uploads/"+uploaded.UploadID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)
	assert.Equal(t, 0, a.Sessions.Len())
}

func TestApplication_UploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxBytes = 1024
	a := newTestApp(t, cfg)

	body, contentType := uploadForm(t, "calls.xlsx", bytes.Repeat([]byte("x"), 4096), "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestApplication_BrowserFlow(t *testing.T) {
	a := newTestApp(t, testConfig())
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	body, contentType := uploadForm(t, "calls.xlsx", callLogWorkbook(t), "week")
	resp, err := client.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/report", resp.Request.URL.Path)
	assert.Equal(t, "week", resp.Request.URL.Query().Get("granularity"))

	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, "Week 2024-W01: 2024-01-01 to 2024-01-07")
	assert.Contains(t, html, "Week 2024-W02: 2024-01-08 to 2024-01-14")
	assert.Less(t, strings.Index(html, "2024-W01"), strings.Index(html, "2024-W02"))

	exportResp, err := client.Get(srv.URL + "/export?granularity=week")
	require.NoError(t, err)
	defer exportResp.Body.Close()
	require.Equal(t, http.StatusOK, exportResp.StatusCode)

	records, err := csv.NewReader(exportResp.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Period", "Group", "Total Calls", "Total Call Time"},
		{"2024-01-01/2024-01-07", "Dispatch", "2", "0:03:00"},
		{"2024-01-08/2024-01-14", "CSC", "1", "0:00:45"},
	}, records)
}

func TestApplication_ReportWithoutUploadRedirects(t *testing.T) {
	a := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestApplication_ServeStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/health/live"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
