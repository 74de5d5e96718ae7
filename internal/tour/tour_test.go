package tour_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/domain"
	"arxidemo/internal/sched"
	"arxidemo/internal/store"
	"arxidemo/internal/tour"
)

type harness struct {
	t     *testing.T
	state tour.State
	env   tour.Env
	clock *sched.Manual
}

func newHarness(t *testing.T, seed int64) *harness {
	t.Helper()
	n := 0
	return &harness{
		t:     t,
		state: tour.NewState(store.Seed()),
		env: tour.Env{
			Rand:     rand.New(rand.NewSource(seed)),
			Now:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
			NewID:    func() string { n++; return fmt.Sprintf("n-%d", n) },
			Settings: tour.DefaultSettings(),
		},
		clock: sched.NewManual(),
	}
}

// do reduces cmd and schedules its effects on the virtual clock.
func (h *harness) do(cmd tour.Command) bool {
	res := tour.Reduce(h.state, cmd, h.env)
	h.state = res.State
	for _, e := range res.Effects {
		next := e.Command
		h.clock.After(e.After, func() { h.do(next) })
	}
	return res.Applied
}

func (h *harness) click(a tour.ActionID) bool { return h.do(tour.Click{Action: a}) }

func (h *harness) mustClick(a tour.ActionID) {
	h.t.Helper()
	require.True(h.t, h.click(a), "click %s at step %s", a, h.state.Step)
}

func (h *harness) complete() {
	h.state.Step = tour.StepComplete
	h.state.Complete = true
}

func TestSingletonStepsAllowOnlyTheirAction(t *testing.T) {
	candidates := []tour.ActionID{
		tour.Card(domain.KindProject, "1"),
		tour.Card(domain.KindTestSuite, "1"),
		tour.Card(domain.KindTeam, "1"),
	}
	for c := tour.TeamsTab; c <= tour.Delete; c++ {
		candidates = append(candidates, tour.Static(c))
	}
	for _, step := range tour.Steps() {
		if len(step.Permitted) != 1 || step.Permitted[0].Any || step.Permitted[0].Family != "" {
			continue
		}
		want := step.Permitted[0].Exact
		s := tour.NewState(store.New())
		s.Step = step.ID
		for _, a := range candidates {
			assert.Equal(t, a == want, s.IsAllowed(a), "step %s action %s", step.ID, a)
		}
	}
}

func TestCompleteAllowsEverything(t *testing.T) {
	s := tour.NewState(store.New())
	s.Step = tour.StepCreateTeam
	s.Complete = true
	assert.True(t, s.IsAllowed(tour.Static(tour.Delete)))
	assert.True(t, s.IsAllowed(tour.Card(domain.KindExecution, "never-seen")))
	assert.True(t, tour.Allows(nil, true, tour.Static(tour.RunTestsButton)))
}

func TestStepsReturnsACopyOfTheGate(t *testing.T) {
	mutated := tour.Steps()
	mutated[0].Permitted[0] = tour.Everything

	s := tour.NewState(store.Seed())
	assert.False(t, s.IsAllowed(tour.Static(tour.Delete)))
	assert.True(t, s.IsAllowed(tour.Static(tour.TeamsTab)))
	assert.False(t, tour.Steps()[0].Permitted[0].Any)
}

func TestWildcardCardPattern(t *testing.T) {
	a := tour.Card(domain.KindProject, "42")
	family, err := tour.ParsePattern("project-card-*")
	require.NoError(t, err)
	exact, err := tour.ParsePattern("project-card-7")
	require.NoError(t, err)

	assert.True(t, tour.Allows([]tour.Pattern{family}, false, a))
	assert.False(t, tour.Allows([]tour.Pattern{exact}, false, a))
	assert.False(t, tour.Allows([]tour.Pattern{family}, false, tour.Card(domain.KindTestSuite, "42")))
	assert.Equal(t, "project-card-42", a.String())
}

func TestParseAction(t *testing.T) {
	a, err := tour.ParseAction("testsuite-card-abc")
	require.NoError(t, err)
	assert.Equal(t, tour.Card(domain.KindTestSuite, "abc"), a)

	a, err = tour.ParseAction("run-tests-button")
	require.NoError(t, err)
	assert.Equal(t, tour.Static(tour.RunTestsButton), a)

	_, err = tour.ParseAction("project-card-")
	require.ErrorIs(t, err, tour.ErrUnknownAction)
	_, err = tour.ParsePattern("widget-card-*")
	require.ErrorIs(t, err, tour.ErrUnknownAction)
}

func TestCreateTeamScenario(t *testing.T) {
	h := newHarness(t, 1)
	assert.False(t, h.click(tour.Static(tour.AddTeamButton)))
	assert.False(t, h.click(tour.Static(tour.ProjectsTab)))
	h.mustClick(tour.Static(tour.TeamsTab))
	require.Equal(t, tour.StepCreateTeam, h.state.Step)

	// submitting without the modal open is ignored
	assert.False(t, h.do(tour.SubmitTeam{Name: "QA Squad"}))
	h.mustClick(tour.Static(tour.AddTeamButton))
	assert.False(t, h.do(tour.SubmitTeam{Name: "   "}))
	require.True(t, h.do(tour.SubmitTeam{Name: "QA Squad"}))

	teams := h.state.Store.Teams
	require.Len(t, teams, 3)
	last := teams[len(teams)-1]
	assert.Equal(t, "QA Squad", last.Name)
	assert.GreaterOrEqual(t, last.Members, 1)
	assert.LessOrEqual(t, last.Members, 10)
	require.NotEmpty(t, h.state.Notifications)
	assert.Equal(t, `Team "QA Squad" created successfully!`, h.state.Notifications[0].Message)
	assert.Equal(t, domain.NotifySuccess, h.state.Notifications[0].Kind)
	assert.Equal(t, tour.StepViewProjects, h.state.Step)
	assert.Equal(t, tour.ModalNone, h.state.Modal)
}

func TestQuickStory(t *testing.T) {
	h := newHarness(t, 2)
	h.state.Step = tour.StepCreateStory
	h.state.SelectedProjectID = "2"
	before := len(h.state.Store.Stories)

	h.mustClick(tour.Static(tour.AddStory))

	require.Len(t, h.state.Store.Stories, before+1)
	story := h.state.Store.Stories[before]
	assert.Equal(t, "User Login Feature", story.Title)
	assert.Equal(t, domain.PriorityHigh, story.Priority)
	assert.Equal(t, 8, story.Points)
	assert.Equal(t, "2", story.ProjectID)
	assert.Equal(t, tour.ModalNone, h.state.Modal)
	assert.Equal(t, tour.StepViewTestCases, h.state.Step)
}

func TestAddStoryOpensModalAfterTour(t *testing.T) {
	h := newHarness(t, 2)
	h.complete()
	h.mustClick(tour.Static(tour.AddStory))
	assert.Equal(t, tour.ModalStory, h.state.Modal)

	require.True(t, h.do(tour.SubmitStory{Title: "Wishlist"}))
	story := h.state.Store.Stories[len(h.state.Store.Stories)-1]
	assert.Equal(t, "No description provided", story.Description)
	assert.Equal(t, domain.PriorityMedium, story.Priority)
	assert.Equal(t, "1", story.ProjectID)
}

func TestGitHubImport(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		h := newHarness(t, seed)
		h.state.Step = tour.StepCreateProject
		h.mustClick(tour.Static(tour.AddProjectButton))
		require.True(t, h.do(tour.SubmitProject{Name: "Storefront", Source: domain.SourceGitHub}))
		require.True(t, h.state.Importing)
		assert.False(t, h.do(tour.CloseModal{}), "modal stays open while importing")
		assert.Len(t, h.state.Store.Projects, 2, "nothing is created before the delay")

		h.clock.Advance(1500 * time.Millisecond)

		require.Len(t, h.state.Store.Projects, 3)
		project := h.state.Store.Projects[2]
		assert.Equal(t, domain.SourceGitHub, project.Source)
		assert.Equal(t, "1", project.TeamID)
		stories := h.state.Store.StoriesFor(project.ID)
		require.GreaterOrEqual(t, len(stories), 3)
		require.LessOrEqual(t, len(stories), 7)
		total := 0
		for _, st := range stories {
			n := len(h.state.Store.TestCasesFor([]domain.Story{st}))
			assert.GreaterOrEqual(t, n, 2)
			assert.LessOrEqual(t, n, 4)
			total += n
		}
		assert.Equal(t, len(stories), project.StoryCount)
		assert.Equal(t, total, project.TestCount)
		suites := h.state.Store.TestSuitesFor(project.ID)
		assert.Len(t, suites, 3)
		assert.Equal(t, "Authentication Suite", suites[0].Name)

		assert.False(t, h.state.Importing)
		assert.Equal(t, tour.ModalNone, h.state.Modal)
		assert.Equal(t, tour.StepSelectProject, h.state.Step)
		assert.Equal(t, `Project "Storefront" imported from github successfully!`, h.state.Notifications[0].Message)
	}
}

func TestManualProjectHasNoContent(t *testing.T) {
	h := newHarness(t, 3)
	h.complete()
	h.state.SelectedTeamID = "2"
	h.mustClick(tour.Static(tour.AddProjectButton))
	require.True(t, h.do(tour.SubmitProject{Name: "Internal Tools"}))
	h.clock.Advance(2 * time.Second)

	project := h.state.Store.Projects[len(h.state.Store.Projects)-1]
	assert.Equal(t, domain.SourceArxitest, project.Source)
	assert.Equal(t, "2", project.TeamID)
	assert.Empty(t, h.state.Store.StoriesFor(project.ID))
	assert.Zero(t, project.StoryCount)
}

func TestFullWalkthrough(t *testing.T) {
	h := newHarness(t, 7)

	h.mustClick(tour.Static(tour.TeamsTab))
	h.mustClick(tour.Static(tour.AddTeamButton))
	require.True(t, h.do(tour.SubmitTeam{Name: "QA Squad"}))
	h.mustClick(tour.Static(tour.ProjectsTab))
	h.mustClick(tour.Static(tour.AddProjectButton))
	require.True(t, h.do(tour.SubmitProject{Name: "Storefront", Source: domain.SourceJira}))
	h.clock.Advance(2 * time.Second)
	require.Equal(t, tour.StepSelectProject, h.state.Step)

	project := h.state.Store.Projects[len(h.state.Store.Projects)-1]
	assert.False(t, h.click(tour.Card(domain.KindProject, "missing")))
	h.mustClick(tour.Card(domain.KindProject, project.ID))
	assert.Equal(t, project.ID, h.state.SelectedProjectID)
	h.mustClick(tour.Static(tour.StoriesTab))
	h.mustClick(tour.Static(tour.AddStory))
	h.mustClick(tour.Static(tour.TestCasesTab))
	h.mustClick(tour.Static(tour.AddTestCaseButton))
	require.True(t, h.do(tour.SubmitTestCase{Name: "Checkout happy path"}))
	tc := h.state.Store.TestCases[len(h.state.Store.TestCases)-1]
	assert.Equal(t, domain.FrameworkPlaywright, tc.Framework)
	assert.Equal(t, domain.TestPending, tc.Status)
	assert.Equal(t, h.state.Store.StoriesFor(project.ID)[0].ID, tc.StoryID)

	h.mustClick(tour.Static(tour.TestSuitesTab))
	h.mustClick(tour.Static(tour.AddTestSuiteButton))
	suite := h.state.Store.TestSuites[len(h.state.Store.TestSuites)-1]
	assert.Equal(t, fmt.Sprintf("Test Suite %d", len(h.state.Store.TestSuites)), suite.Name)
	assert.Equal(t, project.ID, suite.ProjectID)
	h.mustClick(tour.Card(domain.KindTestSuite, suite.ID))
	h.mustClick(tour.Static(tour.ExecutionsTab))
	_, visible := h.state.Overlay()
	require.True(t, visible)
	h.mustClick(tour.Static(tour.RunTestsButton))

	assert.True(t, h.state.Complete)
	assert.Equal(t, tour.StepComplete, h.state.Step)
	_, visible = h.state.Overlay()
	assert.False(t, visible)

	exec := h.state.Store.Executions[len(h.state.Store.Executions)-1]
	assert.Equal(t, domain.ExecutionRunning, exec.Status)
	assert.GreaterOrEqual(t, exec.TestCases, 5)
	assert.LessOrEqual(t, exec.TestCases, 24)

	h.clock.Advance(5 * time.Second)
	done, err := h.state.Store.Execution(exec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.ExecutionRunning, done.Status)
	assert.Equal(t, done.TestCases, done.Passed+done.Failed)
	assert.True(t, strings.HasSuffix(done.Duration, "m"))
}

func TestExecutionCompletionSums(t *testing.T) {
	for seed := int64(0); seed < 200; seed++ {
		h := newHarness(t, seed)
		total := int(seed%20) + 5
		require.True(t, h.do(tour.ExecutionDone{ID: "2", Total: total}))
		e, err := h.state.Store.Execution("2")
		require.NoError(t, err)
		require.Equal(t, total, e.Passed+e.Failed)
		assert.Equal(t, fmt.Sprintf("Test execution completed: %d/%d passed", e.Passed, total), h.state.Notifications[0].Message)
	}
}

func TestExecutionDeletedWhileRunning(t *testing.T) {
	h := newHarness(t, 4)
	h.complete()
	h.mustClick(tour.Static(tour.RunTestsButton))
	exec := h.state.Store.Executions[len(h.state.Store.Executions)-1]
	require.True(t, h.do(tour.Remove{Kind: domain.KindExecution, ID: exec.ID}))

	h.clock.Advance(5 * time.Second)
	assert.False(t, h.state.Store.Exists(domain.KindExecution, exec.ID))
	assert.Contains(t, h.state.Notifications[0].Message, "Test execution completed")
}

func TestNotificationsCapAndExpire(t *testing.T) {
	h := newHarness(t, 5)
	h.complete()
	for i := 0; i < 8; i++ {
		h.mustClick(tour.Static(tour.AddTestSuiteButton))
		assert.LessOrEqual(t, len(h.state.Notifications), 5)
	}
	require.Len(t, h.state.Notifications, 5)
	assert.Equal(t, `Test suite "Test Suite 11" created successfully!`, h.state.Notifications[0].Message)

	h.clock.Advance(5 * time.Second)
	assert.Empty(t, h.state.Notifications)
}

func TestRemoveIsGatedUntilComplete(t *testing.T) {
	h := newHarness(t, 6)
	assert.False(t, h.do(tour.Remove{Kind: domain.KindTeam, ID: "1"}))
	assert.Len(t, h.state.Store.Teams, 2)

	h.complete()
	require.True(t, h.do(tour.Remove{Kind: domain.KindTeam, ID: "1"}))
	assert.Len(t, h.state.Store.Teams, 1)
	assert.Len(t, h.state.Store.Projects, 2, "projects are orphaned, not removed")
	assert.Equal(t, "Team deleted successfully!", h.state.Notifications[0].Message)
	assert.Equal(t, domain.NotifyInfo, h.state.Notifications[0].Kind)

	assert.False(t, h.do(tour.Remove{Kind: domain.KindTeam, ID: "1"}))
}

func TestRemoveCascadeSetting(t *testing.T) {
	h := newHarness(t, 6)
	h.env.Settings.CascadeDelete = true
	h.complete()
	require.True(t, h.do(tour.Remove{Kind: domain.KindProject, ID: "1"}))
	assert.Empty(t, h.state.Store.StoriesFor("1"))
	assert.Empty(t, h.state.Store.TestSuitesFor("1"))
	assert.Equal(t, "Project deleted successfully!", h.state.Notifications[0].Message)
}

func TestStoryDraft(t *testing.T) {
	h := newHarness(t, 8)
	h.complete()
	assert.False(t, h.do(tour.RequestDraft{}), "no form open")
	h.mustClick(tour.Static(tour.AddStory))
	require.True(t, h.do(tour.RequestDraft{}))
	assert.False(t, h.do(tour.RequestDraft{}), "already drafting")

	h.clock.Advance(2 * time.Second)
	require.NotNil(t, h.state.StoryDraft)
	assert.False(t, h.state.Drafting)
	assert.NotEmpty(t, h.state.StoryDraft.Title)
	assert.Equal(t, "✨ AI generated story successfully!", h.state.Notifications[0].Message)
}

func TestTestCaseDraftUsesStoryTitle(t *testing.T) {
	h := newHarness(t, 9)
	h.complete()
	h.mustClick(tour.Static(tour.AddTestCaseButton))
	require.True(t, h.do(tour.RequestDraft{StoryID: "3"}))
	h.clock.Advance(2 * time.Second)

	d := h.state.TestCaseDraft
	require.NotNil(t, d)
	assert.True(t, strings.HasPrefix(d.Name, "Payment Processing - "))
	assert.Contains(t, d.Description, "payment processing")
	assert.Equal(t, "3", d.StoryID)
}

func TestTestCaseNeedsAnExistingStory(t *testing.T) {
	h := newHarness(t, 12)
	h.complete()
	h.mustClick(tour.Static(tour.AddTestCaseButton))
	before := len(h.state.Store.TestCases)

	assert.False(t, h.do(tour.SubmitTestCase{Name: "x", StoryID: "does-not-exist"}))
	assert.Len(t, h.state.Store.TestCases, before)
	assert.Equal(t, tour.ModalTestCase, h.state.Modal)

	require.True(t, h.do(tour.SubmitTestCase{Name: "x", StoryID: "3"}))
	require.Len(t, h.state.Store.TestCases, before+1)
	assert.Equal(t, "3", h.state.Store.TestCases[before].StoryID)
}

func TestDraftDroppedWhenModalCloses(t *testing.T) {
	h := newHarness(t, 10)
	h.complete()
	h.mustClick(tour.Static(tour.AddStory))
	require.True(t, h.do(tour.RequestDraft{}))
	require.True(t, h.do(tour.CloseModal{}))

	h.clock.Advance(2 * time.Second)
	assert.Nil(t, h.state.StoryDraft)
}

func TestReduceLeavesInputUntouched(t *testing.T) {
	h := newHarness(t, 11)
	h.complete()
	before := h.state.Clone()
	res := tour.Reduce(h.state, tour.Click{Action: tour.Static(tour.AddTestSuiteButton)}, h.env)
	require.True(t, res.Applied)
	assert.Equal(t, before, h.state)
	assert.Len(t, res.State.Store.TestSuites, len(before.Store.TestSuites)+1)
}

func TestOverlayPosition(t *testing.T) {
	s := tour.NewState(store.Seed())
	o, ok := s.Overlay()
	require.True(t, ok)
	assert.Equal(t, 1, o.Position)
	assert.Equal(t, 15, o.Total)
	assert.Equal(t, "teams-tab", o.Target)
	assert.Equal(t, []string{"teams-tab"}, o.Permitted)

	s.Step = tour.StepSelectProject
	o, _ = s.Overlay()
	assert.Equal(t, []string{"project-card-*"}, o.Permitted)
}

func TestReport(t *testing.T) {
	st := store.Seed()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		r, err := tour.Report(st, "1", rng)
		require.NoError(t, err)
		assert.Equal(t, "report-1", r.ID)
		require.Len(t, r.Results, 25)
		assert.Equal(t, 25, r.Summary.Total)
		assert.Equal(t, r.Summary.Total, r.Summary.Passed+r.Summary.Failed+r.Summary.Skipped)
		assert.Equal(t, "45m", r.Summary.Duration)
		assert.Equal(t, "User Login Test", r.Results[0].Name)
		assert.Equal(t, "Test Case 25", r.Results[24].Name)
		for _, res := range r.Results {
			assert.Equal(t, res.Status == domain.TestFailed, res.Error != "")
		}
	}
}

func TestReportUnknownExecution(t *testing.T) {
	_, err := tour.Report(store.Seed(), "does-not-exist", nil)
	require.ErrorIs(t, err, tour.ErrExecutionNotFound)
}
