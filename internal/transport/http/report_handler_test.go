package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"callreport/internal/aggregate"
	"callreport/internal/category"
	apierrors "callreport/internal/errors"
	"callreport/internal/middleware"
	"callreport/internal/services"
	"callreport/internal/spreadsheet"
	api "callreport/pkg/contracts/api/v1"
)

func newAPIRouter(svc *MockReportService) http.Handler {
	logger := discardLogger()
	h := NewReportHandler(svc, middleware.NewValidator(), apierrors.NewErrorHandler(logger, false), "grouped_data.csv", logger)
	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())
	return r
}

func decodeProblem(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&problem))
	return problem
}

func TestReportHandler_Upload(t *testing.T) {
	svc := new(MockReportService)
	id := uuid.NewString()
	svc.On("Upload", mock.Anything, "calls.xlsx", mock.Anything).Return(&services.UploadSummary{
		ID:         id,
		FileName:   "calls.xlsx",
		Sheet:      "Sheet1",
		Format:     spreadsheet.FormatXLSX,
		Rows:       4,
		UploadedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}, nil)

	body, ct := multipartBody(t, "calls.xlsx", []byte("xlsx bytes"), map[string]string{"granularity": "Week"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	newAPIRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp api.UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, id, resp.UploadID)
	assert.Equal(t, 4, resp.Rows)
	assert.Equal(t, "xlsx", resp.Format)
	assert.Equal(t, "/api/v1/uploads/"+id+"/report?granularity=Week", resp.ReportURL)
	svc.AssertExpectations(t)
}

func TestReportHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name        string
		serviceErr  error
		wantStatus  int
		wantType    string
		wantMissing []interface{}
	}{
		{
			name:       "corrupt file",
			serviceErr: apierrors.NewCorruptFileError(nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeCorruptFile,
		},
		{
			name:       "read error",
			serviceErr: apierrors.NewReadError(io.ErrUnexpectedEOF),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeReadError,
		},
		{
			name:        "missing columns",
			serviceErr:  apierrors.NewMissingColumnsError([]string{"Call To"}),
			wantStatus:  http.StatusUnprocessableEntity,
			wantType:    apierrors.TypeValidation,
			wantMissing: []interface{}{"Call To"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReportService)
			svc.On("Upload", mock.Anything, "calls.xls", mock.Anything).Return(nil, tt.serviceErr)

			body, ct := multipartBody(t, "calls.xls", []byte("bytes"), nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			newAPIRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec.Body)
			assert.Equal(t, tt.wantType, problem["type"])
			if tt.wantMissing != nil {
				assert.Equal(t, tt.wantMissing, problem["missing_columns"])
			}
		})
	}
}

func TestReportHandler_UploadValidation(t *testing.T) {
	t.Run("wrong extension", func(t *testing.T) {
		svc := new(MockReportService)
		body, ct := multipartBody(t, "calls.csv", []byte("a,b"), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()

		newAPIRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no file", func(t *testing.T) {
		svc := new(MockReportService)
		body, ct := multipartBody(t, "", nil, map[string]string{"granularity": "Day"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()

		newAPIRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.TypeValidation, decodeProblem(t, rec.Body)["type"])
	})

	t.Run("body over limit", func(t *testing.T) {
		svc := new(MockReportService)
		body, ct := multipartBody(t, "calls.xlsx", []byte(strings.Repeat("x", 4096)), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()

		middleware.MaxBodySize(1024)(newAPIRouter(svc)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		problem := decodeProblem(t, rec.Body)
		assert.Equal(t, apierrors.TypePayloadTooLarge, problem["type"])
		assert.Equal(t, "PAYLOAD_TOO_LARGE", problem["error_code"])
		assert.Equal(t, apierrors.ErrPayloadTooLarge.Message, problem["detail"])
		svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart", func(t *testing.T) {
		svc := new(MockReportService)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		newAPIRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReportHandler_Report(t *testing.T) {
	svc := new(MockReportService)
	id := uuid.NewString()
	view, res := sampleReport(t, aggregate.Week)
	svc.On("Report", mock.Anything, id, aggregate.Week).Return(view, res, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+id+"/report?granularity=week", nil)
	rec := httptest.NewRecorder()
	newAPIRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.ReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "Week", resp.Granularity)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, api.ReportRow{
		Period:        "2024-01-01/2024-01-07",
		Group:         "Dispatch",
		TotalCalls:    2,
		TotalCallTime: "0:03:00",
		TotalSeconds:  180,
	}, resp.Rows[0])
	require.Len(t, resp.Sections, 2)
	assert.Equal(t, "Week 2024-W02: 2024-01-08 to 2024-01-14", resp.Sections[1].Label)
	assert.Equal(t, 1, resp.Stats.Unmapped)
}

func TestReportHandler_ReportDefaultsToMonth(t *testing.T) {
	svc := new(MockReportService)
	id := uuid.NewString()
	view, res := sampleReport(t, aggregate.Month)
	svc.On("Report", mock.Anything, id, aggregate.Month).Return(view, res, nil)

	rec := httptest.NewRecorder()
	newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+id+"/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.ReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Month", resp.Granularity)
	assert.Empty(t, resp.Sections)
}

func TestReportHandler_ReportErrors(t *testing.T) {
	id := uuid.NewString()

	t.Run("unknown granularity", func(t *testing.T) {
		svc := new(MockReportService)
		rec := httptest.NewRecorder()
		newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+id+"/report?granularity=Year", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockReportService)
		rec := httptest.NewRecorder()
		newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/not-an-id/report", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("Report", mock.Anything, id, aggregate.Day).Return(nil, nil, services.ErrSessionNotFound)
		rec := httptest.NewRecorder()
		newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+id+"/report?granularity=Day", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apierrors.TypeNotFound, decodeProblem(t, rec.Body)["type"])
	})
}

func TestReportHandler_Export(t *testing.T) {
	svc := new(MockReportService)
	id := uuid.NewString()
	svc.On("Export", mock.Anything, id, aggregate.Day, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.WriteString(args.Get(3).(io.Writer), "Period,Group,Total Calls,Total Call Time\n")
		}).
		Return(nil)

	rec := httptest.NewRecorder()
	newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+id+"/export?granularity=Day", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="grouped_data.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Period,Group,Total Calls,Total Call Time\n", rec.Body.String())
}

func TestReportHandler_Discard(t *testing.T) {
	svc := new(MockReportService)
	id := uuid.NewString()
	svc.On("Discard", mock.Anything, id).Return(nil).Once()
	svc.On("Discard", mock.Anything, id).Return(services.ErrSessionNotFound)

	router := newAPIRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/uploads/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/uploads/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandler_Categories(t *testing.T) {
	m := category.Default()
	svc := new(MockReportService)
	svc.On("Categories", mock.Anything).Return(services.CategoryListing{
		Entries:    m.Entries(),
		Groups:     m.Groups(),
		Duplicates: m.Duplicates(),
	})

	rec := httptest.NewRecorder()
	newAPIRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.CategoriesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"CSC", "Dispatch", "MTM"}, resp.Groups)
	require.Len(t, resp.Duplicates, 1)
	assert.Equal(t, api.CategoryDuplicate{
		Label:     "Dispatch Overflow <5152>",
		Previous:  "Dispatch",
		Effective: "CSC",
	}, resp.Duplicates[0])
}
