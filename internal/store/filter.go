package store

import (
	"slices"
	"strings"

	"arxidemo/internal/domain"
)

// Selection is the parent selection and search query the derived views
// are computed from.
type Selection struct {
	TeamID    string `json:"team_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Query     string `json:"query,omitempty"`
}

// Counts are the sidebar badges: teams total, the rest parent-filtered.
type Counts struct {
	Teams      int `json:"teams"`
	Projects   int `json:"projects"`
	Stories    int `json:"stories"`
	TestCases  int `json:"test_cases"`
	TestSuites int `json:"test_suites"`
	Executions int `json:"executions"`
}

// Views holds every derived list after parent filtering and search.
type Views struct {
	Teams      []domain.Team      `json:"teams"`
	Projects   []domain.Project   `json:"projects"`
	Stories    []domain.Story     `json:"stories"`
	TestCases  []domain.TestCase  `json:"test_cases"`
	TestSuites []domain.TestSuite `json:"test_suites"`
	Executions []domain.Execution `json:"executions"`
	Counts     Counts             `json:"counts"`
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// ProjectsFor returns all projects when teamID is empty, else the team's.
func (s *Store) ProjectsFor(teamID string) []domain.Project {
	if teamID == "" {
		return slices.Clone(s.Projects)
	}
	return filter(s.Projects, func(p domain.Project) bool { return p.TeamID == teamID })
}

func (s *Store) StoriesFor(projectID string) []domain.Story {
	if projectID == "" {
		return slices.Clone(s.Stories)
	}
	return filter(s.Stories, func(st domain.Story) bool { return st.ProjectID == projectID })
}

// TestCasesFor narrows test cases to the given stories. An empty story list
// means no narrowing.
func (s *Store) TestCasesFor(stories []domain.Story) []domain.TestCase {
	if len(stories) == 0 {
		return slices.Clone(s.TestCases)
	}
	ids := make(map[string]struct{}, len(stories))
	for _, st := range stories {
		ids[st.ID] = struct{}{}
	}
	return filter(s.TestCases, func(tc domain.TestCase) bool {
		_, ok := ids[tc.StoryID]
		return ok
	})
}

func (s *Store) TestSuitesFor(projectID string) []domain.TestSuite {
	if projectID == "" {
		return slices.Clone(s.TestSuites)
	}
	return filter(s.TestSuites, func(ts domain.TestSuite) bool { return ts.ProjectID == projectID })
}

func (s *Store) ExecutionsFor(projectID string) []domain.Execution {
	if projectID == "" {
		return slices.Clone(s.Executions)
	}
	return filter(s.Executions, func(e domain.Execution) bool { return e.ProjectID == projectID })
}

// Matches reports whether query is a case-insensitive substring of any field.
// An empty query matches everything.
func Matches(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Search keeps the items whose selected fields match query.
func Search[T any](items []T, query string, fields func(T) []string) []T {
	if query == "" {
		return items
	}
	return filter(items, func(it T) bool { return Matches(query, fields(it)...) })
}

// Views computes every derived list for sel. It never mutates the store.
func (s *Store) Views(sel Selection) Views {
	projects := s.ProjectsFor(sel.TeamID)
	stories := s.StoriesFor(sel.ProjectID)
	testCases := s.TestCasesFor(stories)
	suites := s.TestSuitesFor(sel.ProjectID)
	executions := s.ExecutionsFor(sel.ProjectID)
	q := sel.Query
	return Views{
		Teams: Search(slices.Clone(s.Teams), q, func(t domain.Team) []string { return []string{t.Name} }),
		Projects: Search(projects, q, func(p domain.Project) []string {
			return []string{p.Name, string(p.Source)}
		}),
		Stories: Search(stories, q, func(st domain.Story) []string {
			return []string{st.Title, st.Description}
		}),
		TestCases: Search(testCases, q, func(tc domain.TestCase) []string {
			return []string{tc.Name, tc.Description, string(tc.Framework)}
		}),
		TestSuites: Search(suites, q, func(ts domain.TestSuite) []string {
			return []string{ts.Name, ts.Description}
		}),
		Executions: Search(executions, q, func(e domain.Execution) []string { return []string{e.Name} }),
		Counts: Counts{
			Teams:      len(s.Teams),
			Projects:   len(projects),
			Stories:    len(stories),
			TestCases:  len(testCases),
			TestSuites: len(suites),
			Executions: len(executions),
		},
	}
}
