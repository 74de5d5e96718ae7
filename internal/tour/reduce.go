package tour

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"arxidemo/internal/domain"
)

const noDescription = "No description provided"

type reduction struct {
	s        State
	env      Env
	settings Settings
	rng      *rand.Rand
	effects  []Effect
	applied  bool
}

// Reduce applies cmd to s and returns the next state together with the
// timers the runtime has to schedule. s is never modified.
func Reduce(s State, cmd Command, env Env) Result {
	r := &reduction{
		s:        s.Clone(),
		env:      env,
		settings: env.Settings.withDefaults(),
		rng:      env.rng(),
	}
	switch c := cmd.(type) {
	case Click:
		r.click(c.Action)
	case SubmitTeam:
		r.submitTeam(c)
	case SubmitProject:
		r.submitProject(c)
	case SubmitStory:
		r.submitStory(c)
	case SubmitTestCase:
		r.submitTestCase(c)
	case RequestDraft:
		r.requestDraft(c)
	case Remove:
		r.remove(c)
	case SetSearch:
		r.s.Search = c.Query
		r.applied = true
	case CloseModal:
		r.closeModal()
	case ImportReady:
		r.finishImport()
	case ExecutionDone:
		r.finishExecution(c)
	case DraftReady:
		r.finishDraft(c)
	case ExpireNotification:
		r.expire(c.ID)
	}
	if !r.applied {
		return Result{State: s}
	}
	return Result{State: r.s, Effects: r.effects, Applied: true}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.ImportDelay <= 0 {
		s.ImportDelay = d.ImportDelay
	}
	if s.ExecutionDelayMin <= 0 {
		s.ExecutionDelayMin = d.ExecutionDelayMin
	}
	if s.ExecutionDelayMax < s.ExecutionDelayMin {
		s.ExecutionDelayMax = s.ExecutionDelayMin
	}
	if s.DraftDelay <= 0 {
		s.DraftDelay = d.DraftDelay
	}
	if s.NotificationLimit <= 0 {
		s.NotificationLimit = d.NotificationLimit
	}
	if s.NotificationTTL <= 0 {
		s.NotificationTTL = d.NotificationTTL
	}
	return s
}

// advance moves past from if it is the current step.
func (r *reduction) advance(from StepID) {
	if r.s.Complete || r.s.Step != from {
		return
	}
	next := r.s.CurrentStep().Next
	if next == "" {
		return
	}
	r.s.Step = next
	if next == StepComplete {
		r.s.Complete = true
	}
}

func (r *reduction) click(a ActionID) {
	if !r.s.IsAllowed(a) {
		return
	}
	if tab, ok := tabControls[a.Control]; ok {
		r.s.Tab = tab
		r.advance(r.s.Step)
		r.applied = true
		return
	}
	switch a.Control {
	case AddTeamButton:
		r.open(ModalTeam)
	case AddProjectButton:
		r.open(ModalProject)
	case AddStory:
		if !r.s.Complete && r.s.Step == StepCreateStory {
			r.quickStory()
		} else {
			r.open(ModalStory)
		}
	case AddTestCaseButton:
		r.open(ModalTestCase)
	case AddTestSuiteButton:
		r.createSuite()
	case RunTestsButton:
		r.launchExecution()
	case EntityCard:
		r.selectCard(a)
	}
}

func (r *reduction) open(m Modal) {
	if r.s.Importing {
		return
	}
	r.s.Modal = m
	r.s.Drafting = false
	r.s.StoryDraft = nil
	r.s.TestCaseDraft = nil
	r.applied = true
}

func (r *reduction) closeModal() {
	if r.s.Modal == ModalNone || r.s.Importing {
		return
	}
	r.open(ModalNone)
}

func (r *reduction) selectCard(a ActionID) {
	if !r.s.Store.Exists(a.Kind, a.EntityID) {
		return
	}
	switch a.Kind {
	case domain.KindTeam:
		r.s.SelectedTeamID = a.EntityID
	case domain.KindProject:
		r.s.SelectedProjectID = a.EntityID
		r.advance(StepSelectProject)
	case domain.KindTestSuite:
		r.s.SelectedSuiteID = a.EntityID
		r.advance(StepSelectTestSuite)
	default:
		return
	}
	r.applied = true
}

// defaultTeamID is the selected team, else the first team.
func (r *reduction) defaultTeamID() string {
	if r.s.SelectedTeamID != "" {
		return r.s.SelectedTeamID
	}
	if len(r.s.Store.Teams) > 0 {
		return r.s.Store.Teams[0].ID
	}
	return ""
}

// defaultProjectID is the selected project, else the first project.
func (r *reduction) defaultProjectID() string {
	if r.s.SelectedProjectID != "" {
		return r.s.SelectedProjectID
	}
	if len(r.s.Store.Projects) > 0 {
		return r.s.Store.Projects[0].ID
	}
	return ""
}

// defaultStoryID resolves the story a test case form targets.
func (r *reduction) defaultStoryID(requested string) string {
	if requested != "" {
		return requested
	}
	if stories := r.s.Store.StoriesFor(r.s.SelectedProjectID); len(stories) > 0 {
		return stories[0].ID
	}
	return ""
}

func (r *reduction) submitTeam(c SubmitTeam) {
	name := strings.TrimSpace(c.Name)
	if r.s.Modal != ModalTeam || name == "" {
		return
	}
	team := r.s.Store.CreateTeam(domain.Team{
		Name:    name,
		Members: r.rng.Intn(10) + 1,
		Color:   "primary",
	})
	r.notify(fmt.Sprintf("Team %q created successfully!", team.Name), domain.NotifySuccess)
	r.s.Modal = ModalNone
	r.advance(StepCreateTeam)
	r.applied = true
}

func (r *reduction) submitProject(c SubmitProject) {
	name := strings.TrimSpace(c.Name)
	if r.s.Modal != ModalProject || r.s.Importing || name == "" {
		return
	}
	source := c.Source
	if source == "" {
		source = domain.SourceArxitest
	}
	r.s.Importing = true
	r.s.PendingImport = &ProjectDraft{Name: name, Source: source, TeamID: r.defaultTeamID()}
	r.schedule(r.settings.ImportDelay, ImportReady{})
	r.applied = true
}

func (r *reduction) finishImport() {
	d := r.s.PendingImport
	if d == nil {
		return
	}
	project := r.s.Store.CreateProject(domain.Project{
		Name:   d.Name,
		Source: d.Source,
		TeamID: d.TeamID,
		Status: domain.StatusActive,
	})
	msg := fmt.Sprintf("Project %q created successfully!", project.Name)
	if d.Source.Imported() {
		stories, tests := importContent(r.s.Store, project.ID, r.rng)
		_ = r.s.Store.UpdateProject(project.ID, func(p *domain.Project) {
			p.StoryCount = stories
			p.TestCount = tests
		})
		msg = fmt.Sprintf("Project %q imported from %s successfully!", project.Name, d.Source)
	}
	r.notify(msg, domain.NotifySuccess)
	r.s.Importing = false
	r.s.PendingImport = nil
	if r.s.Modal == ModalProject {
		r.s.Modal = ModalNone
	}
	r.advance(StepCreateProject)
	r.applied = true
}

func (r *reduction) quickStory() {
	story := r.s.Store.CreateStory(domain.Story{
		Title:       "User Login Feature",
		Description: "Implement secure user authentication system",
		Priority:    domain.PriorityHigh,
		Points:      8,
		ProjectID:   r.defaultProjectID(),
	})
	r.notify(fmt.Sprintf("Story %q created successfully!", story.Title), domain.NotifySuccess)
	r.advance(StepCreateStory)
	r.applied = true
}

func (r *reduction) submitStory(c SubmitStory) {
	title := strings.TrimSpace(c.Title)
	if r.s.Modal != ModalStory || title == "" {
		return
	}
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		desc = noDescription
	}
	priority := c.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	story := r.s.Store.CreateStory(domain.Story{
		Title:       title,
		Description: desc,
		Priority:    priority,
		Points:      r.rng.Intn(13) + 1,
		ProjectID:   r.defaultProjectID(),
	})
	r.notify(fmt.Sprintf("Story %q created successfully!", story.Title), domain.NotifySuccess)
	r.open(ModalNone)
}

func (r *reduction) submitTestCase(c SubmitTestCase) {
	name := strings.TrimSpace(c.Name)
	storyID := r.defaultStoryID(c.StoryID)
	if r.s.Modal != ModalTestCase || name == "" || !r.s.Store.Exists(domain.KindStory, storyID) {
		return
	}
	desc := strings.TrimSpace(c.Description)
	if desc == "" {
		desc = noDescription
	}
	framework := c.Framework
	if framework == "" {
		framework = domain.FrameworkPlaywright
	}
	tc := r.s.Store.CreateTestCase(domain.TestCase{
		Name:        name,
		Description: desc,
		Framework:   framework,
		Status:      domain.TestPending,
		StoryID:     storyID,
	})
	r.notify(fmt.Sprintf("Test case %q created successfully!", tc.Name), domain.NotifySuccess)
	r.open(ModalNone)
	r.advance(StepCreateTestCase)
}

func (r *reduction) createSuite() {
	suite := r.s.Store.CreateTestSuite(domain.TestSuite{
		Name:        fmt.Sprintf("Test Suite %d", len(r.s.Store.TestSuites)+1),
		Description: "Automated test suite",
		TestCaseIDs: []string{},
		ProjectID:   r.defaultProjectID(),
		Status:      domain.StatusActive,
	})
	r.notify(fmt.Sprintf("Test suite %q created successfully!", suite.Name), domain.NotifySuccess)
	r.advance(StepCreateTestSuite)
	r.applied = true
}

func (r *reduction) launchExecution() {
	total := r.rng.Intn(20) + 5
	exec := r.s.Store.CreateExecution(domain.Execution{
		Name:      fmt.Sprintf("Execution %d", len(r.s.Store.Executions)+1),
		TestCases: total,
		Status:    domain.ExecutionRunning,
		Duration:  "0m",
		ProjectID: r.defaultProjectID(),
	})
	r.notify(fmt.Sprintf("Test execution %q started!", exec.Name), domain.NotifySuccess)
	r.schedule(r.executionDelay(), ExecutionDone{ID: exec.ID, Total: total})
	r.advance(StepExecuteTests)
	r.applied = true
}

func (r *reduction) finishExecution(c ExecutionDone) {
	out := completeExecution(c.Total, r.rng)
	// the execution may have been deleted while running; the notification
	// still reports the finished run
	_ = r.s.Store.UpdateExecution(c.ID, func(e *domain.Execution) {
		e.Status = out.Status
		e.Passed = out.Passed
		e.Failed = out.Failed
		e.Duration = out.Duration
	})
	r.notify(fmt.Sprintf("Test execution completed: %d/%d passed", out.Passed, c.Total), domain.NotifySuccess)
	r.applied = true
}

func (r *reduction) requestDraft(c RequestDraft) {
	if r.s.Drafting {
		return
	}
	switch r.s.Modal {
	case ModalStory:
		r.schedule(r.settings.DraftDelay, DraftReady{Modal: ModalStory})
	case ModalTestCase:
		storyID := r.defaultStoryID(c.StoryID)
		story, err := r.s.Store.Story(storyID)
		if err != nil {
			return
		}
		r.schedule(r.settings.DraftDelay, DraftReady{Modal: ModalTestCase, StoryID: story.ID, StoryTitle: story.Title})
	default:
		return
	}
	r.s.Drafting = true
	r.applied = true
}

func (r *reduction) finishDraft(c DraftReady) {
	if !r.s.Drafting || r.s.Modal != c.Modal {
		return
	}
	switch c.Modal {
	case ModalStory:
		d := draftStory(r.rng)
		r.s.StoryDraft = &d
		r.notify("✨ AI generated story successfully!", domain.NotifySuccess)
	case ModalTestCase:
		d := draftTestCase(c.StoryID, c.StoryTitle, r.rng)
		r.s.TestCaseDraft = &d
		r.notify("✨ AI generated test case successfully!", domain.NotifySuccess)
	}
	r.s.Drafting = false
	r.applied = true
}

func (r *reduction) remove(c Remove) {
	if !r.s.IsAllowed(Static(Delete)) {
		return
	}
	var err error
	if r.settings.CascadeDelete {
		_, err = r.s.Store.RemoveCascade(c.Kind, c.ID)
	} else {
		err = r.s.Store.Remove(c.Kind, c.ID)
	}
	if err != nil {
		// unknown ids leave the state untouched
		return
	}
	r.notify(fmt.Sprintf("%s deleted successfully!", c.Kind.Label()), domain.NotifyInfo)
	r.applied = true
}

// notify prepends a notification, truncates the list and schedules expiry.
func (r *reduction) notify(msg string, kind domain.NotificationKind) {
	n := domain.Notification{
		ID:        r.env.newID(),
		Message:   msg,
		Kind:      kind,
		CreatedAt: r.env.now(),
	}
	list := make([]domain.Notification, 0, len(r.s.Notifications)+1)
	list = append(list, n)
	list = append(list, r.s.Notifications...)
	if len(list) > r.settings.NotificationLimit {
		list = list[:r.settings.NotificationLimit]
	}
	r.s.Notifications = list
	r.schedule(r.settings.NotificationTTL, ExpireNotification{ID: n.ID})
}

func (r *reduction) expire(id string) {
	for i, n := range r.s.Notifications {
		if n.ID == id {
			r.s.Notifications = append(r.s.Notifications[:i:i], r.s.Notifications[i+1:]...)
			r.applied = true
			return
		}
	}
}

func (r *reduction) schedule(after time.Duration, cmd Command) {
	r.effects = append(r.effects, Effect{After: after, Command: cmd})
}

func (r *reduction) executionDelay() time.Duration {
	lo, hi := r.settings.ExecutionDelayMin, r.settings.ExecutionDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.rng.Int63n(int64(hi-lo)+1))
}
