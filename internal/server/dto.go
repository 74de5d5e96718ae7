package server

import (
	"time"

	"arxidemo/internal/domain"
	"arxidemo/internal/tour"
)

// Request payloads

type ActionRequest struct {
	Action string `json:"action" example:"teams-tab" doc:"Control name or <kind>-card-<id>"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type ModalRequest struct {
	Modal string `json:"modal" example:"team" doc:"team, project, story, testcase, or empty to close"`
}

type TeamRequest struct {
	Name string `json:"name" example:"QA Squad"`
}

type ProjectRequest struct {
	Name   string `json:"name" example:"E-Commerce Platform"`
	Source string `json:"source,omitempty" enum:"manual,arxitest,github,jira,taiga"`
}

type StoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" enum:"high,medium,low"`
}

type TestCaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Framework   string `json:"framework,omitempty" enum:"selenium,playwright,cypress"`
	StoryID     string `json:"story_id,omitempty"`
}

type DraftRequest struct {
	StoryID string `json:"story_id,omitempty"`
}

type ContactRequest struct {
	Email string `json:"email" example:"jane@company.com"`
}

// Response payloads

type CreateSessionResponse struct {
	SessionID string     `json:"session_id"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	State     tour.State `json:"state"`
}

// ActionResponse carries the state after a command. Applied is false when
// the command was gated or had nothing to do.
type ActionResponse struct {
	Applied bool       `json:"applied"`
	State   tour.State `json:"state"`
}

type GateResponse struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

type OverlayResponse struct {
	Visible bool          `json:"visible"`
	Overlay *tour.Overlay `json:"overlay,omitempty"`
}

type PaginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
