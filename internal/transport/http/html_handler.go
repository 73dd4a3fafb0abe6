package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"callreport/internal/aggregate"
	"callreport/internal/config"
	apierrors "callreport/internal/errors"
	"callreport/internal/exporter"
	"callreport/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

const expiredMessage = "Your upload has expired. Please upload the file again."

// HTMLOptions configures the browser flow.
type HTMLOptions struct {
	CookieName     string
	CookieTTL      time.Duration
	SecureCookies  bool
	ExportFileName string
	Columns        []string
}

// HTMLHandler serves the upload form and the rendered report
type HTMLHandler struct {
	service      ReportServiceInterface
	errorHandler *apierrors.ErrorHandler
	templates    *template.Template
	opts         HTMLOptions
	logger       *slog.Logger
}

type pageData struct {
	AppName       string
	Title         string
	Granularities []aggregate.Granularity
	Selected      aggregate.Granularity
	Columns       []string
	Message       string
	View          *exporter.View
	ExportURL     string
}

// NewHTMLHandler parses the embedded templates and creates the handler
func NewHTMLHandler(service ReportServiceInterface, errorHandler *apierrors.ErrorHandler, opts HTMLOptions, logger *slog.Logger) (*HTMLHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = config.SessionCookieName
	}
	if opts.ExportFileName == "" {
		opts.ExportFileName = config.DefaultExportFileName
	}
	return &HTMLHandler{
		service:      service,
		errorHandler: errorHandler,
		templates:    tmpl,
		opts:         opts,
		logger:       logger.With(slog.String("component", "html_handler")),
	}, nil
}

// Routes returns the browser routes
func (h *HTMLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Post("/upload", h.Upload)
	r.Get("/report", h.Report)
	r.Get("/export", h.Export)
	return r
}

// Index handles GET /
func (h *HTMLHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "upload", h.page("Upload call log", aggregate.DefaultGranularity))
}

// Upload handles POST /upload
func (h *HTMLHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.uploadFailed(w, r, aggregate.DefaultGranularity, http.StatusRequestEntityTooLarge, "The uploaded file is too large.")
			return
		}
		h.uploadFailed(w, r, aggregate.DefaultGranularity, http.StatusBadRequest, "Please choose a spreadsheet to upload.")
		return
	}

	g, err := aggregate.ParseGranularity(r.FormValue("granularity"))
	if err != nil {
		h.uploadFailed(w, r, aggregate.DefaultGranularity, http.StatusBadRequest, apierrors.UserMessage(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.uploadFailed(w, r, g, http.StatusBadRequest, "Please choose a spreadsheet to upload.")
		return
	}
	defer file.Close()

	summary, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if apierrors.TypeOf(err) == "" {
			status = http.StatusInternalServerError
			h.logger.ErrorContext(r.Context(), "upload failed", slog.String("error", err.Error()))
		}
		h.uploadFailed(w, r, g, status, apierrors.UserMessage(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    summary.ID,
		Path:     "/",
		MaxAge:   int(h.opts.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, reportURL("/report", g), http.StatusSeeOther)
}

// Report handles GET /report
func (h *HTMLHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	g, err := aggregate.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		h.uploadFailed(w, r, aggregate.DefaultGranularity, http.StatusBadRequest, apierrors.UserMessage(err))
		return
	}

	view, _, err := h.service.Report(r.Context(), id, g)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			h.uploadFailed(w, r, g, http.StatusNotFound, expiredMessage)
			return
		}
		h.uploadFailed(w, r, g, http.StatusUnprocessableEntity, apierrors.UserMessage(err))
		return
	}

	data := h.page("Call report", g)
	data.View = view
	data.ExportURL = reportURL("/export", g)
	h.render(w, r, http.StatusOK, "report", data)
}

// Export handles GET /export
func (h *HTMLHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	g, err := aggregate.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	writeExport(w, r, h.service, h.errorHandler, h.opts.ExportFileName, id, g)
}

func (h *HTMLHandler) uploadFailed(w http.ResponseWriter, r *http.Request, g aggregate.Granularity, status int, message string) {
	data := h.page("Upload call log", g)
	data.Message = message
	h.render(w, r, status, "upload", data)
}

func (h *HTMLHandler) page(title string, g aggregate.Granularity) pageData {
	return pageData{
		AppName:       config.AppName,
		Title:         title,
		Granularities: aggregate.Granularities(),
		Selected:      g,
		Columns:       h.opts.Columns,
	}
}

func (h *HTMLHandler) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func reportURL(path string, g aggregate.Granularity) string {
	return path + "?" + url.Values{"granularity": {string(g)}}.Encode()
}
