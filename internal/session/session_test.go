package session_test

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/domain"
	"arxidemo/internal/sched"
	"arxidemo/internal/session"
	"arxidemo/internal/tour"
)

func newSession(t *testing.T) (*session.Session, *sched.Manual) {
	t.Helper()
	clock := sched.NewManual()
	s := session.New("s-1", session.Options{
		Settings:  tour.DefaultSettings(),
		Rand:      rand.New(rand.NewSource(1)),
		Scheduler: clock,
	})
	return s, clock
}

func click(t *testing.T, s *session.Session, a tour.ActionID) tour.State {
	t.Helper()
	state, applied, err := s.Dispatch(tour.Click{Action: a})
	require.NoError(t, err)
	require.True(t, applied, "click %s", a)
	return state
}

func TestDispatchSchedulesEffects(t *testing.T) {
	s, clock := newSession(t)
	click(t, s, tour.Static(tour.TeamsTab))
	click(t, s, tour.Static(tour.AddTeamButton))
	_, applied, err := s.Dispatch(tour.SubmitTeam{Name: "QA Squad"})
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, 1, s.Pending(), "notification expiry")

	clock.Advance(5 * time.Second)
	assert.Empty(t, s.State().Notifications)
	assert.Equal(t, tour.StepViewProjects, s.State().Step)
}

func TestDeniedActionIsNotAnError(t *testing.T) {
	s, _ := newSession(t)
	state, applied, err := s.Dispatch(tour.Click{Action: tour.Static(tour.RunTestsButton)})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, tour.StepStart, state.Step)
	assert.False(t, s.IsAllowed(tour.Static(tour.RunTestsButton)))
	assert.True(t, s.IsAllowed(tour.Static(tour.TeamsTab)))
}

func TestStateIsACopy(t *testing.T) {
	s, _ := newSession(t)
	st := s.State()
	st.Store.Teams = nil
	assert.Len(t, s.State().Store.Teams, 2)
}

func TestCloseCancelsTimers(t *testing.T) {
	s, clock := newSession(t)
	click(t, s, tour.Static(tour.TeamsTab))
	click(t, s, tour.Static(tour.AddTeamButton))
	_, _, err := s.Dispatch(tour.SubmitTeam{Name: "QA"})
	require.NoError(t, err)
	click(t, s, tour.Static(tour.ProjectsTab))
	click(t, s, tour.Static(tour.AddProjectButton))
	_, applied, err := s.Dispatch(tour.SubmitProject{Name: "Later", Source: domain.SourceJira})
	require.NoError(t, err)
	require.True(t, applied)
	require.Positive(t, s.Pending())

	s.Close()
	s.Close()
	assert.True(t, s.Closed())
	assert.Zero(t, s.Pending())
	assert.Zero(t, clock.Advance(10*time.Second))
	assert.Len(t, s.State().Store.Projects, 2)

	_, _, err = s.Dispatch(tour.CloseModal{})
	require.ErrorIs(t, err, session.ErrClosed)
	_, err = s.Report("1")
	require.ErrorIs(t, err, session.ErrClosed)
}

func TestReport(t *testing.T) {
	s, _ := newSession(t)
	r, err := s.Report("3")
	require.NoError(t, err)
	assert.Equal(t, 8, r.Summary.Total)

	_, err = s.Report("does-not-exist")
	require.ErrorIs(t, err, tour.ErrExecutionNotFound)
}

func TestRealTimersSerializeWithDispatch(t *testing.T) {
	settings := tour.DefaultSettings()
	settings.NotificationTTL = 5 * time.Millisecond
	s := session.New("s-rt", session.Options{Settings: settings})
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _, err := s.Dispatch(tour.SetSearch{Query: "x"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	click(t, s, tour.Static(tour.TeamsTab))
	click(t, s, tour.Static(tour.AddTeamButton))
	_, _, err := s.Dispatch(tour.SubmitTeam{Name: "Racers"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.State().Notifications) == 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistryEvictsAndCloses(t *testing.T) {
	reg, err := session.NewRegistry(session.RegistryConfig{
		MaxSessions:  2,
		Seed:         9,
		NewScheduler: func() sched.Scheduler { return sched.NewManual() },
	})
	require.NoError(t, err)
	defer reg.Close()

	first := reg.Create()
	reg.Create()
	third := reg.Create()

	assert.Equal(t, 2, reg.Len())
	assert.True(t, first.Closed())
	_, err = reg.Get(first.ID)
	require.ErrorIs(t, err, session.ErrNotFound)

	got, err := reg.Get(third.ID)
	require.NoError(t, err)
	assert.Same(t, third, got)

	require.NoError(t, reg.Delete(third.ID))
	assert.True(t, third.Closed())
	require.ErrorIs(t, reg.Delete(third.ID), session.ErrNotFound)
}

func TestRegistryRejectsZeroSize(t *testing.T) {
	_, err := session.NewRegistry(session.RegistryConfig{})
	require.Error(t, err)
}

func TestRegistryHooks(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]string{}
	hook := func(kind string) func(string) {
		return func(id string) {
			mu.Lock()
			defer mu.Unlock()
			seen[kind] = append(seen[kind], id)
		}
	}
	reg, err := session.NewRegistry(session.RegistryConfig{
		MaxSessions:  4,
		NewScheduler: func() sched.Scheduler { return sched.NewManual() },
		OnCreate:     hook("create"),
		OnComplete:   hook("complete"),
		OnClose:      hook("close"),
	})
	require.NoError(t, err)

	s := reg.Create()
	walk := []tour.Command{
		tour.Click{Action: tour.Static(tour.TeamsTab)},
		tour.Click{Action: tour.Static(tour.AddTeamButton)},
		tour.SubmitTeam{Name: "QA"},
	}
	for _, cmd := range walk {
		_, applied, err := s.Dispatch(cmd)
		require.NoError(t, err)
		require.True(t, applied)
	}
	reg.Close()
	reg.Close()

	assert.Equal(t, []string{s.ID}, seen["create"])
	assert.Equal(t, []string{s.ID}, seen["close"])
	assert.Empty(t, seen["complete"])
}
