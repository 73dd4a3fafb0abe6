package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"callreport/internal/aggregate"
	apierrors "callreport/internal/errors"
	"callreport/internal/exporter"
	"callreport/internal/middleware"
	"callreport/internal/services"
	api "callreport/pkg/contracts/api/v1"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// ReportHandler serves the JSON report API with RFC 7807 errors
type ReportHandler struct {
	service        ReportServiceInterface
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	exportFileName string
	logger         *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, exportFileName string, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service:        service,
		validator:      validator,
		errorHandler:   errorHandler,
		exportFileName: exportFileName,
		logger:         logger.With(slog.String("component", "report_handler")),
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/uploads", h.Upload)
	r.Route("/uploads/{id}", func(r chi.Router) {
		r.Use(h.UploadCtx)
		r.Get("/report", h.Report)
		r.Get("/export", h.Export)
		r.Delete("/", h.Discard)
	})
	r.Get("/categories", h.Categories)

	return r
}

// UploadCtx middleware validates the upload id path parameter
func (h *ReportHandler) UploadCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := api.UploadPathParams{UploadID: chi.URLParam(r, "id")}
		if err := h.validator.ValidateStruct(params); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload handles POST /api/v1/uploads
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A spreadsheet file is required"))
		return
	}
	defer file.Close()

	form := api.UploadForm{FileName: header.Filename, Granularity: r.FormValue("granularity")}
	if err := h.validator.ValidateStruct(form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summary, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	granularity := form.Granularity
	if granularity == "" {
		granularity = string(aggregate.DefaultGranularity)
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, api.UploadResponse{
		UploadID:   summary.ID,
		FileName:   summary.FileName,
		Sheet:      summary.Sheet,
		Format:     string(summary.Format),
		Rows:       summary.Rows,
		UploadedAt: summary.UploadedAt,
		ReportURL:  fmt.Sprintf("/api/v1/uploads/%s/report?granularity=%s", summary.ID, granularity),
		ExportURL:  fmt.Sprintf("/api/v1/uploads/%s/export?granularity=%s", summary.ID, granularity),
	})
}

// Report handles GET /api/v1/uploads/{id}/report
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := h.granularity(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, res, err := h.service.Report(r.Context(), id, g)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, toReportResponse(id, view, res))
}

// Export handles GET /api/v1/uploads/{id}/export
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := h.granularity(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	writeExport(w, r, h.service, h.errorHandler, h.exportFileName, id, g)
}

// Discard handles DELETE /api/v1/uploads/{id}
func (h *ReportHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/v1/categories
func (h *ReportHandler) Categories(w http.ResponseWriter, r *http.Request) {
	listing := h.service.Categories(r.Context())

	resp := api.CategoriesResponse{
		Entries:    make([]api.CategoryEntry, 0, len(listing.Entries)),
		Groups:     listing.Groups,
		Duplicates: make([]api.CategoryDuplicate, 0, len(listing.Duplicates)),
	}
	for _, e := range listing.Entries {
		resp.Entries = append(resp.Entries, api.CategoryEntry{Label: e.Label, Group: e.Group})
	}
	for _, d := range listing.Duplicates {
		resp.Duplicates = append(resp.Duplicates, api.CategoryDuplicate{
			Label:     d.Label,
			Previous:  d.Previous,
			Effective: d.Effective,
		})
	}
	if resp.Groups == nil {
		resp.Groups = []string{}
	}

	render.JSON(w, r, resp)
}

func (h *ReportHandler) granularity(r *http.Request) (aggregate.Granularity, error) {
	q := api.ReportQuery{Granularity: r.URL.Query().Get("granularity")}
	if err := h.validator.ValidateStruct(q); err != nil {
		return "", err
	}
	return aggregate.ParseGranularity(q.Granularity)
}

// writeExport renders the CSV into memory first so a failure can still be
// reported as an error response.
func writeExport(w http.ResponseWriter, r *http.Request, svc ReportServiceInterface, eh *apierrors.ErrorHandler, fileName, id string, g aggregate.Granularity) {
	var buf bytes.Buffer
	if err := svc.Export(r.Context(), id, g, &buf); err != nil {
		eh.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func toReportRows(rows []aggregate.Row) []api.ReportRow {
	out := make([]api.ReportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.ReportRow{
			Period:        row.Bucket.Key(),
			Group:         row.Group,
			TotalCalls:    row.Calls,
			TotalCallTime: row.Duration(),
			TotalSeconds:  row.Seconds,
		})
	}
	return out
}

func toReportResponse(id string, view *exporter.View, res *aggregate.Result) api.ReportResponse {
	resp := api.ReportResponse{
		UploadID:    id,
		Granularity: res.Granularity.String(),
		Rows:        toReportRows(res.Rows),
		Stats: api.ReportStats{
			InputRows:        res.Stats.InputRows,
			InvalidDates:     res.Stats.InvalidDates,
			Unmapped:         res.Stats.Unmapped,
			InvalidDurations: res.Stats.InvalidDurations,
			Aggregated:       res.Stats.Aggregated,
		},
	}
	for _, s := range view.Sections {
		resp.Sections = append(resp.Sections, api.ReportSection{
			Label:  s.Label,
			Period: s.Key,
			Rows:   toReportRows(s.Rows),
		})
	}
	return resp
}

var _ ReportServiceInterface = (*services.ReportService)(nil)
