package tour

import (
	"slices"

	"arxidemo/internal/domain"
)

type StepID string

const (
	StepStart           StepID = "start"
	StepCreateTeam      StepID = "create-team"
	StepViewProjects    StepID = "view-projects"
	StepCreateProject   StepID = "create-project"
	StepSelectProject   StepID = "select-project"
	StepViewStories     StepID = "view-stories"
	StepCreateStory     StepID = "create-story"
	StepViewTestCases   StepID = "view-test-cases"
	StepCreateTestCase  StepID = "create-test-case"
	StepViewTestSuites  StepID = "view-test-suites"
	StepCreateTestSuite StepID = "create-test-suite"
	StepSelectTestSuite StepID = "select-test-suite"
	StepRunTests        StepID = "run-tests"
	StepExecuteTests    StepID = "execute-tests"
	StepComplete        StepID = "complete"
)

// Category is the kind of interaction a step expects.
type Category string

const (
	CategoryClick    Category = "click"
	CategoryCreate   Category = "create"
	CategoryNavigate Category = "navigate"
	CategoryObserve  Category = "observe"
)

// Step is one entry of the guided tour.
type Step struct {
	ID          StepID
	Target      string
	Title       string
	Description string
	Category    Category
	Permitted   []Pattern
	Next        StepID
}

// Terminal reports whether the step ends the tour.
func (s Step) Terminal() bool { return s.Next == "" }

var steps = []Step{
	{
		ID:          StepStart,
		Target:      "teams-tab",
		Title:       "Welcome to Arxitest Demo!",
		Description: "This interactive demo will guide you through Arxitest's complete workflow. Let's start by creating a team.",
		Category:    CategoryClick,
		Permitted:   []Pattern{Exactly(Static(TeamsTab))},
		Next:        StepCreateTeam,
	},
	{
		ID:          StepCreateTeam,
		Target:      "add-team-button",
		Title:       "Create Your First Team",
		Description: `Teams organize your testing efforts. Click "+ Add Team" to create your first team.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(AddTeamButton))},
		Next:        StepViewProjects,
	},
	{
		ID:          StepViewProjects,
		Target:      "projects-tab",
		Title:       "Navigate to Projects",
		Description: "Great! Now let's create a project for your team. Click on the Projects tab.",
		Category:    CategoryNavigate,
		Permitted:   []Pattern{Exactly(Static(ProjectsTab))},
		Next:        StepCreateProject,
	},
	{
		ID:          StepCreateProject,
		Target:      "add-project-button",
		Title:       "Create a New Project",
		Description: `Projects contain all your testing assets. Click "+ Add Project" to create one.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(AddProjectButton))},
		Next:        StepSelectProject,
	},
	{
		ID:          StepSelectProject,
		Target:      "project-list-container",
		Title:       "Select Your Project",
		Description: "Great! Now click on any project in the list to view its details and proceed.",
		Category:    CategoryClick,
		Permitted:   []Pattern{AnyCard(domain.KindProject)},
		Next:        StepViewStories,
	},
	{
		ID:          StepViewStories,
		Target:      "stories-tab",
		Title:       "Navigate to Stories",
		Description: "Perfect! Now let's define what features to test. Click on the Stories tab.",
		Category:    CategoryNavigate,
		Permitted:   []Pattern{Exactly(Static(StoriesTab))},
		Next:        StepCreateStory,
	},
	{
		ID:          StepCreateStory,
		Target:      "add-story",
		Title:       "Create a User Story",
		Description: `Stories define features to be tested. Click "+ Add Story" to create your first story.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(AddStory))},
		Next:        StepViewTestCases,
	},
	{
		ID:          StepViewTestCases,
		Target:      "testcases-tab",
		Title:       "Navigate to Test Cases",
		Description: "Excellent! Now let's create test cases for your story. Click on Test Cases.",
		Category:    CategoryNavigate,
		Permitted:   []Pattern{Exactly(Static(TestCasesTab))},
		Next:        StepCreateTestCase,
	},
	{
		ID:          StepCreateTestCase,
		Target:      "add-testcase-button",
		Title:       "Create a Test Case",
		Description: `Test cases validate your stories. Click "+ Add Test Case" to create one.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(AddTestCaseButton))},
		Next:        StepViewTestSuites,
	},
	{
		ID:          StepViewTestSuites,
		Target:      "testsuites-tab",
		Title:       "Navigate to Test Suites",
		Description: "Great! Now let's organize test cases into suites. Click on Test Suites.",
		Category:    CategoryNavigate,
		Permitted:   []Pattern{Exactly(Static(TestSuitesTab))},
		Next:        StepCreateTestSuite,
	},
	{
		ID:          StepCreateTestSuite,
		Target:      "add-testsuite-button",
		Title:       "Create a Test Suite",
		Description: `Test suites group related test cases. Click "+ Add Test Suite" to create one.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(AddTestSuiteButton))},
		Next:        StepSelectTestSuite,
	},
	{
		ID:          StepSelectTestSuite,
		Target:      "testsuite-card",
		Title:       "Select Your Test Suite",
		Description: "Perfect! Now click on your test suite to select it for execution.",
		Category:    CategoryClick,
		Permitted:   []Pattern{AnyCard(domain.KindTestSuite)},
		Next:        StepRunTests,
	},
	{
		ID:          StepRunTests,
		Target:      "executions-tab",
		Title:       "Execute Your Tests",
		Description: "Perfect! Now let's run your tests. Click on Test Executions to see the execution environment.",
		Category:    CategoryNavigate,
		Permitted:   []Pattern{Exactly(Static(ExecutionsTab))},
		Next:        StepExecuteTests,
	},
	{
		ID:          StepExecuteTests,
		Target:      "run-tests-button",
		Title:       "Run Your First Test",
		Description: `Time to execute! Click "Run Tests" to start your first test execution.`,
		Category:    CategoryCreate,
		Permitted:   []Pattern{Exactly(Static(RunTestsButton))},
		Next:        StepComplete,
	},
	{
		ID:          StepComplete,
		Title:       "Congratulations! 🎉",
		Description: "You've completed the full Arxitest workflow: Team → Project → Story → Test Case → Test Suite → Execution. Continue exploring with full functionality!",
		Category:    CategoryObserve,
		Permitted:   []Pattern{Everything},
	},
}

// Steps returns the tour in order.
func Steps() []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.Permitted = slices.Clone(s.Permitted)
		out[i] = s
	}
	return out
}

// LookupStep returns the step with the given id.
func LookupStep(id StepID) (Step, bool) {
	for _, s := range steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// Position returns the 1-based index of id and the tour length.
func Position(id StepID) (int, int) {
	for i, s := range steps {
		if s.ID == id {
			return i + 1, len(steps)
		}
	}
	return 0, len(steps)
}
