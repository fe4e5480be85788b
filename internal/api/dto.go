package api

import (
	"github.com/starford/quicknote/internal/export"
	"github.com/starford/quicknote/internal/models"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/recyclebin"
)

// CreateNoteRequest is the request body for creating a note. An empty name
// asks the server to generate one.
type CreateNoteRequest struct {
	Name    string `json:"name" example:"groceries.md"`
	Content string `json:"content" example:"# Groceries\n- milk"`
}

// SaveNoteRequest is the request body for saving a note. Content is a
// pointer so that an empty note can be told apart from a missing field.
type SaveNoteRequest struct {
	Content *string `json:"content" validate:"required"`
}

// ExportRequest is the request body for exporting a note.
type ExportRequest struct {
	Destination string `json:"destination" example:"/home/me/Desktop/groceries.md"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// ExportResponse is the outcome of an export.
type ExportResponse = export.Result

// SweepResponse is the outcome of a recycle sweep.
type SweepResponse = recyclebin.Report

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteDetail `json:"notes" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// RecycleListResponse wraps recycle bin listings.
type RecycleListResponse struct {
	Entries       []models.RecycleEntry `json:"entries" validate:"required"`
	RetentionDays int                   `json:"retention_days" example:"30"`
}

// LogResponse wraps operation log entries.
type LogResponse struct {
	Entries []models.LogEntry `json:"entries" validate:"required"`
}
