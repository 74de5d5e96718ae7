package tour

import (
	"time"

	"arxidemo/internal/domain"
)

// Command is an input to Reduce: a user intent or a fired timer.
type Command interface {
	command()
}

// Click fires a gated control or entity card.
type Click struct {
	Action ActionID
}

// SubmitTeam confirms the team form.
type SubmitTeam struct {
	Name string
}

// SubmitProject confirms the project form and starts the import delay.
type SubmitProject struct {
	Name   string
	Source domain.Source
}

type SubmitStory struct {
	Title       string
	Description string
	Priority    domain.Priority
}

// SubmitTestCase confirms the test case form. An empty StoryID selects the
// first story of the current project.
type SubmitTestCase struct {
	Name        string
	Description string
	Framework   domain.Framework
	StoryID     string
}

// RequestDraft asks the simulated assistant to prefill the open form.
type RequestDraft struct {
	StoryID string
}

// Remove deletes one entity through a row's delete control.
type Remove struct {
	Kind domain.EntityKind
	ID   string
}

type SetSearch struct {
	Query string
}

type CloseModal struct{}

// ImportReady fires when the project import delay elapses.
type ImportReady struct{}

// ExecutionDone fires when a launched execution finishes.
type ExecutionDone struct {
	ID    string
	Total int
}

// DraftReady fires when the simulated assistant finishes a draft.
type DraftReady struct {
	Modal      Modal
	StoryID    string
	StoryTitle string
}

// ExpireNotification drops one notification when its lifetime ends.
type ExpireNotification struct {
	ID string
}

func (Click) command()              {}
func (SubmitTeam) command()         {}
func (SubmitProject) command()      {}
func (SubmitStory) command()        {}
func (SubmitTestCase) command()     {}
func (RequestDraft) command()       {}
func (Remove) command()             {}
func (SetSearch) command()          {}
func (CloseModal) command()         {}
func (ImportReady) command()        {}
func (ExecutionDone) command()      {}
func (DraftReady) command()         {}
func (ExpireNotification) command() {}

// Effect asks the runtime to dispatch Command once After has elapsed.
type Effect struct {
	After   time.Duration
	Command Command
}

// Result is the outcome of one reduction. Applied is false when the command
// was gated, invalid or stale; State is then the input unchanged.
type Result struct {
	State   State
	Effects []Effect
	Applied bool
}
