package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EntityKind names one of the six demo collections.
type EntityKind string

const (
	KindTeam      EntityKind = "team"
	KindProject   EntityKind = "project"
	KindStory     EntityKind = "story"
	KindTestCase  EntityKind = "testcase"
	KindTestSuite EntityKind = "testsuite"
	KindExecution EntityKind = "execution"
)

// Kinds lists every entity kind in sidebar order.
var Kinds = []EntityKind{KindTeam, KindProject, KindStory, KindTestCase, KindTestSuite, KindExecution}

func ParseKind(s string) (EntityKind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", s)
}

// Label is the human form used in notifications ("Test case deleted ...").
func (k EntityKind) Label() string {
	switch k {
	case KindTestCase:
		return "Test case"
	case KindTestSuite:
		return "Test suite"
	default:
		return cases.Title(language.English).String(string(k))
	}
}

// Source is where a project came from.
type Source string

const (
	SourceArxitest Source = "arxitest"
	SourceGitHub   Source = "github"
	SourceJira     Source = "jira"
	SourceTaiga    Source = "taiga"
)

// ParseSource accepts the project form values; "manual" is the native source.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manual", string(SourceArxitest):
		return SourceArxitest, nil
	case string(SourceGitHub):
		return SourceGitHub, nil
	case string(SourceJira):
		return SourceJira, nil
	case string(SourceTaiga):
		return SourceTaiga, nil
	}
	return "", fmt.Errorf("invalid project source %q", s)
}

// Imported reports whether creating a project of this source bulk-generates content.
func (s Source) Imported() bool { return s != SourceArxitest }

func (s Source) Label() string {
	if s == SourceArxitest {
		return "Manual"
	}
	return cases.Title(language.English).String(string(s))
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	case "":
		return PriorityMedium, nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

type Framework string

const (
	FrameworkSelenium   Framework = "selenium"
	FrameworkPlaywright Framework = "playwright"
	FrameworkCypress    Framework = "cypress"
)

func ParseFramework(s string) (Framework, error) {
	switch Framework(s) {
	case FrameworkSelenium, FrameworkPlaywright, FrameworkCypress:
		return Framework(s), nil
	case "":
		return FrameworkPlaywright, nil
	}
	return "", fmt.Errorf("invalid framework %q", s)
}

type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestPending TestStatus = "pending"
	TestSkipped TestStatus = "skipped"
)

type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Color   string `json:"color"`
}

type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Source     Source `json:"source" enum:"arxitest,github,jira,taiga"`
	TeamID     string `json:"team_id"`
	StoryCount int    `json:"story_count"`
	TestCount  int    `json:"test_case_count"`
	Status     string `json:"status" enum:"active,inactive"`
}

type Story struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority" enum:"high,medium,low"`
	Points      int      `json:"points"`
	ProjectID   string   `json:"project_id"`
}

type TestCase struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Framework   Framework  `json:"framework" enum:"selenium,playwright,cypress"`
	Status      TestStatus `json:"status" enum:"passed,failed,pending"`
	StoryID     string     `json:"story_id"`
}

type TestSuite struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TestCaseIDs []string `json:"test_case_ids"`
	ProjectID   string   `json:"project_id"`
	Status      string   `json:"status" enum:"active,inactive"`
}

type Execution struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TestCases int             `json:"test_cases"`
	Status    ExecutionStatus `json:"status" enum:"running,completed,failed"`
	Passed    int             `json:"passed"`
	Failed    int             `json:"failed"`
	Duration  string          `json:"duration"`
	ProjectID string          `json:"project_id"`
}

func (t Team) EntityID() string      { return t.ID }
func (p Project) EntityID() string   { return p.ID }
func (s Story) EntityID() string     { return s.ID }
func (c TestCase) EntityID() string  { return c.ID }
func (s TestSuite) EntityID() string { return s.ID }
func (e Execution) EntityID() string { return e.ID }

// TestResult is one generated line of a report.
type TestResult struct {
	Name     string     `json:"name"`
	Status   TestStatus `json:"status" enum:"passed,failed,skipped"`
	Duration string     `json:"duration"`
	Error    string     `json:"error,omitempty"`
}

type ReportSummary struct {
	Total    int    `json:"total"`
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Duration string `json:"duration"`
}

// TestReport is derived from an Execution on demand and never stored.
type TestReport struct {
	ID          string        `json:"id"`
	ExecutionID string        `json:"execution_id"`
	Results     []TestResult  `json:"results"`
	Summary     ReportSummary `json:"summary"`
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind" enum:"success,info,warning"`
	CreatedAt time.Time        `json:"created_at"`
}

// Event is one row of the service event log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
