package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/domain"
	"arxidemo/internal/store"
)

func counterIDs(start int) func() string {
	n := start
	return func() string {
		n++
		return fmt.Sprintf("%d", n)
	}
}

func TestCreateAssignsFreshIDs(t *testing.T) {
	// the counter starts below the seeded ids so the first draws collide
	s := store.Seed(store.WithIDs(counterIDs(0)))

	team := s.CreateTeam(domain.Team{Name: "QA Squad"})
	assert.Equal(t, "3", team.ID)
	assert.Len(t, s.Teams, 3)
	assert.Equal(t, "QA Squad", s.Teams[2].Name, "insertion order is preserved")

	seen := map[string]bool{}
	for _, tm := range s.Teams {
		require.False(t, seen[tm.ID], "duplicate id %s", tm.ID)
		seen[tm.ID] = true
	}
}

func TestCreateWithUUIDs(t *testing.T) {
	s := store.New()
	a := s.CreateStory(domain.Story{Title: "a"})
	b := s.CreateStory(domain.Story{Title: "b"})
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRemoveThenLookupFails(t *testing.T) {
	s := store.Seed()
	tc := s.CreateTestCase(domain.TestCase{Name: "Checkout", StoryID: "1"})

	_, err := s.TestCase(tc.ID)
	require.NoError(t, err)

	require.NoError(t, s.Remove(domain.KindTestCase, tc.ID))
	_, err = s.TestCase(tc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.Remove(domain.KindTestCase, tc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveLeavesDependents(t *testing.T) {
	s := store.Seed()
	require.NoError(t, s.Remove(domain.KindProject, "1"))

	assert.Len(t, s.StoriesFor("1"), 2, "stories keep the dangling project id")
	assert.Len(t, s.TestSuitesFor("1"), 2)
	assert.False(t, s.Exists(domain.KindProject, "1"))
}

func TestRemoveCascade(t *testing.T) {
	s := store.Seed()
	n, err := s.RemoveCascade(domain.KindTeam, "1")
	require.NoError(t, err)

	// team 1, project 1, stories 1+2, test cases 1+2, suites 1+2, executions 1+3
	assert.Equal(t, 10, n)
	assert.Len(t, s.Teams, 1)
	assert.Len(t, s.Projects, 1)
	assert.Len(t, s.Stories, 1)
	assert.Len(t, s.TestCases, 1)
	assert.Len(t, s.TestSuites, 1)
	assert.Len(t, s.Executions, 1)
}

func TestRemoveCascadeDropsSuiteMembership(t *testing.T) {
	s := store.Seed()
	_, err := s.RemoveCascade(domain.KindTestCase, "1")
	require.NoError(t, err)

	suite, err := s.TestSuite("2")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, suite.TestCaseIDs)
}

func TestUpdateExecution(t *testing.T) {
	s := store.Seed()
	require.NoError(t, s.UpdateExecution("2", func(e *domain.Execution) {
		e.Status = domain.ExecutionCompleted
	}))
	e, err := s.Execution("2")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCompleted, e.Status)

	assert.ErrorIs(t, s.UpdateExecution("nope", func(*domain.Execution) {}), store.ErrNotFound)
}

func TestCloneIsDeep(t *testing.T) {
	s := store.Seed()
	c := s.Clone()
	c.TestSuites[0].TestCaseIDs[0] = "changed"
	c.CreateTeam(domain.Team{Name: "x"})

	assert.Equal(t, "1", s.TestSuites[0].TestCaseIDs[0])
	assert.Len(t, s.Teams, 2)
}

func TestViewsFilterByParent(t *testing.T) {
	s := store.Seed()

	all := s.Views(store.Selection{})
	assert.Len(t, all.Projects, 2)
	assert.Len(t, all.TestCases, 3)

	v := s.Views(store.Selection{TeamID: "2", ProjectID: "1"})
	require.Len(t, v.Projects, 1)
	assert.Equal(t, "Payment System", v.Projects[0].Name)
	assert.Len(t, v.Stories, 2)
	assert.Len(t, v.TestCases, 2)
	assert.Len(t, v.TestSuites, 2)
	assert.Len(t, v.Executions, 2)
	assert.Equal(t, store.Counts{Teams: 2, Projects: 1, Stories: 2, TestCases: 2, TestSuites: 2, Executions: 2}, v.Counts)
}

func TestViewsEmptyStoryFilterShowsAllTestCases(t *testing.T) {
	s := store.Seed()
	v := s.Views(store.Selection{ProjectID: "no-such-project"})
	assert.Empty(t, v.Stories)
	assert.Len(t, v.TestCases, 3)
}

func TestViewsArePureSubsets(t *testing.T) {
	s := store.Seed()
	sel := store.Selection{ProjectID: "1", Query: "test"}
	first := s.Views(sel)
	second := s.Views(sel)
	assert.Equal(t, first, second)

	for _, tc := range first.TestCases {
		assert.True(t, s.Exists(domain.KindTestCase, tc.ID))
	}
	for _, e := range first.Executions {
		assert.True(t, s.Exists(domain.KindExecution, e.ID))
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := store.Seed()
	v := s.Views(store.Selection{Query: "PLAYWRIGHT"})
	require.Len(t, v.TestCases, 1)
	assert.Equal(t, "Login Test", v.TestCases[0].Name)

	v = s.Views(store.Selection{Query: "jira"})
	require.Len(t, v.Projects, 1)
	assert.Equal(t, "Payment System", v.Projects[0].Name)
	assert.Empty(t, v.Teams)
}
