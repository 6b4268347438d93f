package api

import (
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/fileservice"
	"github.com/starford/raido/internal/organizer"
)

// FileItem is a catalog entry (aliased from the domain layer).
type FileItem = fileservice.FileItem

// FileDetail is a catalog entry with its preview (aliased from the domain layer).
type FileDetail = fileservice.FileDetail

// FileListResponse wraps paginated file listings.
type FileListResponse struct {
	Files []FileItem `json:"files" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"/home/me/Downloads/invoice.pdf" validate:"required"`
	Name    string `json:"name" example:"invoice.pdf" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// OutcomeListResponse wraps the latest outcomes, newest first.
type OutcomeListResponse struct {
	Outcomes []applier.Outcome `json:"outcomes" validate:"required"`
}

// ScanResponse is returned by POST /scan.
type ScanResponse struct {
	Status  string             `json:"status" example:"started" validate:"required"`
	Summary *organizer.Summary `json:"summary,omitempty"`
}
