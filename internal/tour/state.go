package tour

import (
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"arxidemo/internal/domain"
	"arxidemo/internal/store"
)

// Tab is the active sidebar section.
type Tab string

const (
	TabTeams      Tab = "teams"
	TabProjects   Tab = "projects"
	TabStories    Tab = "stories"
	TabTestCases  Tab = "testcases"
	TabTestSuites Tab = "testsuites"
	TabExecutions Tab = "executions"
)

var tabControls = map[Control]Tab{
	TeamsTab:      TabTeams,
	ProjectsTab:   TabProjects,
	StoriesTab:    TabStories,
	TestCasesTab:  TabTestCases,
	TestSuitesTab: TabTestSuites,
	ExecutionsTab: TabExecutions,
}

// Modal is the creation form currently open, if any.
type Modal string

const (
	ModalNone     Modal = ""
	ModalTeam     Modal = "team"
	ModalProject  Modal = "project"
	ModalStory    Modal = "story"
	ModalTestCase Modal = "testcase"
)

// ProjectDraft is a submitted project form waiting for the import delay.
type ProjectDraft struct {
	Name   string        `json:"name"`
	Source domain.Source `json:"source"`
	TeamID string        `json:"team_id"`
}

// StoryDraft prefills the story form after AI generation.
type StoryDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// TestCaseDraft prefills the test case form after AI generation.
type TestCaseDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StoryID     string `json:"story_id"`
}

// State is the whole demo session. It is a plain value that serializes to
// JSON; Reduce is the only way it changes.
type State struct {
	Step     StepID `json:"step"`
	Complete bool   `json:"complete"`
	Tab      Tab    `json:"tab"`

	SelectedTeamID    string `json:"selected_team_id,omitempty"`
	SelectedProjectID string `json:"selected_project_id,omitempty"`
	SelectedSuiteID   string `json:"selected_suite_id,omitempty"`
	Search            string `json:"search,omitempty"`

	Modal         Modal          `json:"modal,omitempty"`
	Importing     bool           `json:"importing"`
	PendingImport *ProjectDraft  `json:"pending_import,omitempty"`
	Drafting      bool           `json:"drafting"`
	StoryDraft    *StoryDraft    `json:"story_draft,omitempty"`
	TestCaseDraft *TestCaseDraft `json:"test_case_draft,omitempty"`

	Store         *store.Store          `json:"store"`
	Notifications []domain.Notification `json:"notifications"`
}

// NewState returns a fresh session at the first tour step.
func NewState(st *store.Store) State {
	if st == nil {
		st = store.New()
	}
	return State{
		Step:          StepStart,
		Tab:           TabTeams,
		Store:         st,
		Notifications: []domain.Notification{},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Store = s.Store.Clone()
	out.Notifications = slices.Clone(s.Notifications)
	if s.PendingImport != nil {
		p := *s.PendingImport
		out.PendingImport = &p
	}
	if s.StoryDraft != nil {
		d := *s.StoryDraft
		out.StoryDraft = &d
	}
	if s.TestCaseDraft != nil {
		d := *s.TestCaseDraft
		out.TestCaseDraft = &d
	}
	return out
}

// CurrentStep returns the step descriptor for s.Step.
func (s State) CurrentStep() Step {
	step, _ := LookupStep(s.Step)
	return step
}

// IsAllowed is the action gate consulted by every interactive control.
func (s State) IsAllowed(a ActionID) bool {
	return Allows(s.CurrentStep().Permitted, s.Complete, a)
}

// Permitted returns the allow-list of the current step.
func (s State) Permitted() []Pattern {
	return slices.Clone(s.CurrentStep().Permitted)
}

// Selection returns the parent selection the derived views use.
func (s State) Selection() store.Selection {
	return store.Selection{TeamID: s.SelectedTeamID, ProjectID: s.SelectedProjectID, Query: s.Search}
}

// Views computes the filtered lists shown by the entity renderers.
func (s State) Views() store.Views {
	return s.Store.Views(s.Selection())
}

// Overlay is what the tooltip and highlight collaborators render.
type Overlay struct {
	Step        StepID   `json:"step"`
	Target      string   `json:"target"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Position    int      `json:"position"`
	Total       int      `json:"total"`
	Permitted   []string `json:"permitted"`
}

// Overlay describes the current step. It reports false once the tour is
// complete and nothing should be rendered.
func (s State) Overlay() (Overlay, bool) {
	if s.Complete || s.Step == StepComplete {
		return Overlay{}, false
	}
	step := s.CurrentStep()
	pos, total := Position(step.ID)
	permitted := make([]string, 0, len(step.Permitted))
	for _, p := range step.Permitted {
		permitted = append(permitted, p.String())
	}
	return Overlay{
		Step:        step.ID,
		Target:      step.Target,
		Title:       step.Title,
		Description: step.Description,
		Category:    step.Category,
		Position:    pos,
		Total:       total,
		Permitted:   permitted,
	}, true
}

// Settings are the timing and sizing knobs of the simulation.
type Settings struct {
	ImportDelay       time.Duration
	ExecutionDelayMin time.Duration
	ExecutionDelayMax time.Duration
	DraftDelay        time.Duration
	NotificationLimit int
	NotificationTTL   time.Duration
	CascadeDelete     bool
}

// DefaultSettings mirrors the timings of the marketing demo.
func DefaultSettings() Settings {
	return Settings{
		ImportDelay:       1500 * time.Millisecond,
		ExecutionDelayMin: 3 * time.Second,
		ExecutionDelayMax: 5 * time.Second,
		DraftDelay:        2 * time.Second,
		NotificationLimit: 5,
		NotificationTTL:   5 * time.Second,
	}
}

// Env carries the non-deterministic inputs of Reduce. A seeded Rand and a
// fixed Now make every transition reproducible.
type Env struct {
	Rand     *rand.Rand
	Now      func() time.Time
	NewID    func() string
	Settings Settings
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

func (e Env) rng() *rand.Rand {
	if e.Rand != nil {
		return e.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
