package api

import (
	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/models"
	"github.com/starford/mastermind/internal/parser"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name    string `json:"name" example:"Alpha" validate:"required"`
	Content string `json:"content" example:":::date 01/03/2024\n__/@@ Alpha\n@@/"`
}

// UpdateProjectRequest is the request body for replacing a project document.
type UpdateProjectRequest struct {
	Content string `json:"content" validate:"required"`
}

// ProjectDetail is a project document (aliased from the domain layer).
type ProjectDetail = models.Project

// ProjectListResponse wraps the project listing.
type ProjectListResponse struct {
	Projects []index.ProjectRow `json:"projects" validate:"required"`
}

// ArchiveResponse is returned after archiving a project.
type ArchiveResponse struct {
	Archived string `json:"archived" example:"Alpha-20240301-101500.md" validate:"required"`
}

// SelectionRequest scopes a composite. Empty lists take the defaults: every
// project, every whole-line tag of those projects, no date focus.
type SelectionRequest struct {
	Projects []string `json:"projects"`
	Tags     []string `json:"tags"`
	Dates    []string `json:"dates"`
}

// ComposeResponse carries a composite and the selection it was built with.
type ComposeResponse struct {
	Text      string           `json:"text" validate:"required"`
	Selection SelectionRequest `json:"selection" validate:"required"`
}

// PreviewRequest asks what a save would do without writing.
type PreviewRequest struct {
	SelectionRequest
	Text string `json:"text" validate:"required"`
}

// PreviewResponse lists the proposals a save would raise.
type PreviewResponse struct {
	Proposals []compose.Proposal `json:"proposals" validate:"required"`
}

// SaveRequest saves an edited composite. Projects in Ignore are left alone;
// Overrides replace a project's part of the composite before reconciling.
type SaveRequest struct {
	SelectionRequest
	Text      string            `json:"text" validate:"required"`
	Ignore    []string          `json:"ignore"`
	Overrides map[string]string `json:"overrides"`
}

// SaveResponse is the save pass report.
type SaveResponse = compose.Report

// TextRequest carries free journal text.
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// AnalysisResponse is the parse result of a text.
type AnalysisResponse = parser.Result

// ExportResponse lists the projects an export changed.
type ExportResponse struct {
	Changed []string `json:"changed" validate:"required"`
}

// ConfigResponse is the delimiter configuration.
type ConfigResponse = markup.Delimiters

// ConfigUpdateResponse lists the projects migrated to new delimiters.
type ConfigUpdateResponse struct {
	Migrated []string `json:"migrated" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ArchiveListResponse wraps archived copies.
type ArchiveListResponse struct {
	Archives []models.ArchiveEntry `json:"archives" validate:"required"`
}
