package api

import "time"

// UploadResponse is returned after a spreadsheet has been accepted.
type UploadResponse struct {
	UploadID   string    `json:"upload_id"`
	FileName   string    `json:"file_name"`
	Sheet      string    `json:"sheet"`
	Format     string    `json:"format"`
	Rows       int       `json:"rows"`
	UploadedAt time.Time `json:"uploaded_at"`
	ReportURL  string    `json:"report_url"`
	ExportURL  string    `json:"export_url"`
}

// ReportRow is one aggregate line.
type ReportRow struct {
	Period        string  `json:"period"`
	Group         string  `json:"group"`
	TotalCalls    int     `json:"total_calls"`
	TotalCallTime string  `json:"total_call_time"`
	TotalSeconds  float64 `json:"total_seconds"`
}

// ReportSection groups the rows of one period.
type ReportSection struct {
	Label  string      `json:"label"`
	Period string      `json:"period"`
	Rows   []ReportRow `json:"rows"`
}

// ReportStats describes how the uploaded rows were consumed.
type ReportStats struct {
	InputRows        int `json:"input_rows"`
	InvalidDates     int `json:"invalid_dates"`
	Unmapped         int `json:"unmapped"`
	InvalidDurations int `json:"invalid_durations"`
	Aggregated       int `json:"aggregated"`
}

// ReportResponse is an aggregated report. Sections is set for weekly and
// daily reports; Rows always holds every row sorted by call time.
type ReportResponse struct {
	UploadID    string          `json:"upload_id"`
	Granularity string          `json:"granularity"`
	Rows        []ReportRow     `json:"rows"`
	Sections    []ReportSection `json:"sections,omitempty"`
	Stats       ReportStats     `json:"stats"`
}

// CategoryEntry maps one destination label to a group.
type CategoryEntry struct {
	Label string `json:"label"`
	Group string `json:"group"`
}

// CategoryDuplicate reports a label defined more than once.
type CategoryDuplicate struct {
	Label     string `json:"label"`
	Previous  string `json:"previous"`
	Effective string `json:"effective"`
}

// CategoriesResponse lists the category table in effect.
type CategoriesResponse struct {
	Entries    []CategoryEntry     `json:"entries"`
	Groups     []string            `json:"groups"`
	Duplicates []CategoryDuplicate `json:"duplicates"`
}
