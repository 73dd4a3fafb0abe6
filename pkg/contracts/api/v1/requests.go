// Package api contains the JSON contracts of the call report API.
// Version v1 represents the current stable API version.
package api

// ReportQuery selects the aggregation period of a report or export.
type ReportQuery struct {
	Granularity string `json:"granularity" query:"granularity" validate:"omitempty,oneof=Month Week Day month week day"`
}

// UploadPathParams identifies a stored upload.
type UploadPathParams struct {
	UploadID string `json:"upload_id" param:"id" validate:"required,uuid4"`
}

// UploadForm describes the multipart upload body.
type UploadForm struct {
	FileName    string `json:"file_name" form:"file" validate:"required,filename,extension=.xlsx .xls"`
	Granularity string `json:"granularity" form:"granularity" validate:"omitempty,oneof=Month Week Day month week day"`
}
