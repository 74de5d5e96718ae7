package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"arxidemo/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store holds the six demo collections in insertion order.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	Teams      []domain.Team      `json:"teams"`
	Projects   []domain.Project   `json:"projects"`
	Stories    []domain.Story     `json:"stories"`
	TestCases  []domain.TestCase  `json:"test_cases"`
	TestSuites []domain.TestSuite `json:"test_suites"`
	Executions []domain.Execution `json:"executions"`

	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDs replaces the uuid id source. Ids that collide with an existing
// entity of the same kind are drawn again.
func WithIDs(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone returns a deep copy sharing only the id source.
func (s *Store) Clone() *Store {
	if s == nil {
		return New()
	}
	out := &Store{
		Teams:      slices.Clone(s.Teams),
		Projects:   slices.Clone(s.Projects),
		Stories:    slices.Clone(s.Stories),
		TestCases:  slices.Clone(s.TestCases),
		TestSuites: make([]domain.TestSuite, len(s.TestSuites)),
		Executions: slices.Clone(s.Executions),
		newID:      s.newID,
	}
	for i, ts := range s.TestSuites {
		ts.TestCaseIDs = slices.Clone(ts.TestCaseIDs)
		out.TestSuites[i] = ts
	}
	return out
}

func (s *Store) nextID(taken func(string) bool) string {
	gen := s.newID
	if gen == nil {
		gen = uuid.NewString
	}
	for {
		id := gen()
		if id != "" && !taken(id) {
			return id
		}
	}
}

type entity interface {
	EntityID() string
}

func indexOf[T entity](items []T, id string) int {
	return slices.IndexFunc(items, func(it T) bool { return it.EntityID() == id })
}

func has[T entity](items []T) func(string) bool {
	return func(id string) bool { return indexOf(items, id) >= 0 }
}

func find[T entity](items []T, kind domain.EntityKind, id string) (T, error) {
	if i := indexOf(items, id); i >= 0 {
		return items[i], nil
	}
	var zero T
	return zero, fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

func without[T entity](items []T, id string) ([]T, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

// CreateTeam appends t under a fresh id and returns the stored copy.
func (s *Store) CreateTeam(t domain.Team) domain.Team {
	t.ID = s.nextID(has(s.Teams))
	s.Teams = append(s.Teams, t)
	return t
}

func (s *Store) CreateProject(p domain.Project) domain.Project {
	p.ID = s.nextID(has(s.Projects))
	s.Projects = append(s.Projects, p)
	return p
}

func (s *Store) CreateStory(st domain.Story) domain.Story {
	st.ID = s.nextID(has(s.Stories))
	s.Stories = append(s.Stories, st)
	return st
}

func (s *Store) CreateTestCase(tc domain.TestCase) domain.TestCase {
	tc.ID = s.nextID(has(s.TestCases))
	s.TestCases = append(s.TestCases, tc)
	return tc
}

func (s *Store) CreateTestSuite(ts domain.TestSuite) domain.TestSuite {
	ts.ID = s.nextID(has(s.TestSuites))
	ts.TestCaseIDs = slices.Clone(ts.TestCaseIDs)
	s.TestSuites = append(s.TestSuites, ts)
	return ts
}

func (s *Store) CreateExecution(e domain.Execution) domain.Execution {
	e.ID = s.nextID(has(s.Executions))
	s.Executions = append(s.Executions, e)
	return e
}

func (s *Store) Team(id string) (domain.Team, error) { return find(s.Teams, domain.KindTeam, id) }
func (s *Store) Project(id string) (domain.Project, error) {
	return find(s.Projects, domain.KindProject, id)
}
func (s *Store) Story(id string) (domain.Story, error) { return find(s.Stories, domain.KindStory, id) }
func (s *Store) TestCase(id string) (domain.TestCase, error) {
	return find(s.TestCases, domain.KindTestCase, id)
}
func (s *Store) TestSuite(id string) (domain.TestSuite, error) {
	return find(s.TestSuites, domain.KindTestSuite, id)
}
func (s *Store) Execution(id string) (domain.Execution, error) {
	return find(s.Executions, domain.KindExecution, id)
}

// Exists reports whether an entity of the given kind and id is stored.
func (s *Store) Exists(kind domain.EntityKind, id string) bool {
	switch kind {
	case domain.KindTeam:
		return indexOf(s.Teams, id) >= 0
	case domain.KindProject:
		return indexOf(s.Projects, id) >= 0
	case domain.KindStory:
		return indexOf(s.Stories, id) >= 0
	case domain.KindTestCase:
		return indexOf(s.TestCases, id) >= 0
	case domain.KindTestSuite:
		return indexOf(s.TestSuites, id) >= 0
	case domain.KindExecution:
		return indexOf(s.Executions, id) >= 0
	}
	return false
}

// UpdateExecution applies fn to the stored execution in place.
func (s *Store) UpdateExecution(id string, fn func(*domain.Execution)) error {
	i := indexOf(s.Executions, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", domain.KindExecution, id, ErrNotFound)
	}
	fn(&s.Executions[i])
	return nil
}

// Remove deletes one entity by id. Dependents keep their owner ids.
func (s *Store) Remove(kind domain.EntityKind, id string) error {
	var ok bool
	switch kind {
	case domain.KindTeam:
		s.Teams, ok = without(s.Teams, id)
	case domain.KindProject:
		s.Projects, ok = without(s.Projects, id)
	case domain.KindStory:
		s.Stories, ok = without(s.Stories, id)
	case domain.KindTestCase:
		s.TestCases, ok = without(s.TestCases, id)
	case domain.KindTestSuite:
		s.TestSuites, ok = without(s.TestSuites, id)
	case domain.KindExecution:
		s.Executions, ok = without(s.Executions, id)
	default:
		return fmt.Errorf("invalid entity kind %q", kind)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// RemoveCascade deletes the entity and everything owned by it, directly or
// transitively, and drops removed test cases from suite membership.
// It returns the number of entities removed.
func (s *Store) RemoveCascade(kind domain.EntityKind, id string) (int, error) {
	if err := s.Remove(kind, id); err != nil {
		return 0, err
	}
	removed := 1
	switch kind {
	case domain.KindTeam:
		for _, p := range slices.Clone(s.Projects) {
			if p.TeamID == id {
				n, _ := s.RemoveCascade(domain.KindProject, p.ID)
				removed += n
			}
		}
	case domain.KindProject:
		for _, st := range slices.Clone(s.Stories) {
			if st.ProjectID == id {
				n, _ := s.RemoveCascade(domain.KindStory, st.ID)
				removed += n
			}
		}
		before := len(s.TestSuites) + len(s.Executions)
		s.TestSuites = slices.DeleteFunc(s.TestSuites, func(ts domain.TestSuite) bool { return ts.ProjectID == id })
		s.Executions = slices.DeleteFunc(s.Executions, func(e domain.Execution) bool { return e.ProjectID == id })
		removed += before - len(s.TestSuites) - len(s.Executions)
	case domain.KindStory:
		for _, tc := range slices.Clone(s.TestCases) {
			if tc.StoryID == id {
				n, _ := s.RemoveCascade(domain.KindTestCase, tc.ID)
				removed += n
			}
		}
	case domain.KindTestCase:
		for i := range s.TestSuites {
			s.TestSuites[i].TestCaseIDs = slices.DeleteFunc(s.TestSuites[i].TestCaseIDs, func(tcID string) bool { return tcID == id })
		}
	}
	return removed, nil
}

// UpdateProject applies fn to the stored project in place.
func (s *Store) UpdateProject(id string, fn func(*domain.Project)) error {
	i := indexOf(s.Projects, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", domain.KindProject, id, ErrNotFound)
	}
	fn(&s.Projects[i])
	return nil
}
