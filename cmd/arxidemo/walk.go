package main

import (
	"fmt"
	"math/rand"
	"time"

	"arxidemo/internal/domain"
	"arxidemo/internal/sched"
	"arxidemo/internal/session"
	"arxidemo/internal/tour"
)

type walkOptions struct {
	Team     string
	Project  string
	Source   domain.Source
	TestCase string
	Settings tour.Settings
	Seed     int64
	Start    time.Time
}

// walkRow is one command issued while driving the tour.
type walkRow struct {
	Step    tour.StepID   `json:"step"`
	Action  string        `json:"action"`
	Applied bool          `json:"applied"`
	At      time.Duration `json:"at_ns"`
}

type walkResult struct {
	Rows    []walkRow
	State   tour.State
	Elapsed time.Duration
}

type walker struct {
	s     *session.Session
	clock *sched.Manual
	opts  walkOptions
	rows  []walkRow
	state tour.State
}

func (w *walker) do(label string, cmd tour.Command) error {
	step := w.state.Step
	st, applied, err := w.s.Dispatch(cmd)
	if err != nil {
		return err
	}
	w.state = st
	w.rows = append(w.rows, walkRow{Step: step, Action: label, Applied: applied, At: w.clock.Elapsed()})
	if !applied {
		return fmt.Errorf("%s was not applied at step %s", label, step)
	}
	return nil
}

func (w *walker) click(a tour.ActionID) error {
	return w.do(a.String(), tour.Click{Action: a})
}

// wait advances virtual time and picks up whatever the timers changed.
func (w *walker) wait(d time.Duration) {
	w.clock.Advance(d)
	w.state = w.s.State()
}

// walk drives a fresh session through every tour step on a virtual clock.
func walk(opts walkOptions) (walkResult, error) {
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.Source == "" {
		opts.Source = domain.SourceGitHub
	}
	clock := sched.NewManual()
	s := session.New("walk", session.Options{
		Settings:  opts.Settings,
		Rand:      rand.New(rand.NewSource(opts.Seed)),
		Scheduler: clock,
		Now:       func() time.Time { return opts.Start.Add(clock.Elapsed()) },
	})
	defer s.Close()
	w := &walker{s: s, clock: clock, opts: opts, state: s.State()}

	for i := 0; !w.state.Complete; i++ {
		if i > len(tour.Steps()) {
			return walkResult{}, fmt.Errorf("tour stuck at step %s", w.state.Step)
		}
		if err := w.step(); err != nil {
			return walkResult{}, err
		}
	}
	// let the launched execution finish
	w.wait(opts.Settings.ExecutionDelayMax)
	return walkResult{Rows: w.rows, State: w.state, Elapsed: clock.Elapsed()}, nil
}

func (w *walker) step() error {
	switch w.state.Step {
	case tour.StepStart:
		return w.click(tour.Static(tour.TeamsTab))
	case tour.StepCreateTeam:
		if err := w.click(tour.Static(tour.AddTeamButton)); err != nil {
			return err
		}
		return w.do("submit team", tour.SubmitTeam{Name: w.opts.Team})
	case tour.StepViewProjects:
		return w.click(tour.Static(tour.ProjectsTab))
	case tour.StepCreateProject:
		if err := w.click(tour.Static(tour.AddProjectButton)); err != nil {
			return err
		}
		if err := w.do("submit project", tour.SubmitProject{Name: w.opts.Project, Source: w.opts.Source}); err != nil {
			return err
		}
		w.wait(w.opts.Settings.ImportDelay)
		return nil
	case tour.StepSelectProject:
		projects := w.state.Store.Projects
		if len(projects) == 0 {
			return fmt.Errorf("no project to select")
		}
		return w.click(tour.Card(domain.KindProject, projects[len(projects)-1].ID))
	case tour.StepViewStories:
		return w.click(tour.Static(tour.StoriesTab))
	case tour.StepCreateStory:
		return w.click(tour.Static(tour.AddStory))
	case tour.StepViewTestCases:
		return w.click(tour.Static(tour.TestCasesTab))
	case tour.StepCreateTestCase:
		if err := w.click(tour.Static(tour.AddTestCaseButton)); err != nil {
			return err
		}
		if err := w.do("ai draft", tour.RequestDraft{}); err != nil {
			return err
		}
		w.wait(w.opts.Settings.DraftDelay)
		name := w.opts.TestCase
		if name == "" && w.state.TestCaseDraft != nil {
			name = w.state.TestCaseDraft.Name
		}
		return w.do("submit test case", tour.SubmitTestCase{Name: name})
	case tour.StepViewTestSuites:
		return w.click(tour.Static(tour.TestSuitesTab))
	case tour.StepCreateTestSuite:
		return w.click(tour.Static(tour.AddTestSuiteButton))
	case tour.StepSelectTestSuite:
		suites := w.state.Store.TestSuites
		if len(suites) == 0 {
			return fmt.Errorf("no test suite to select")
		}
		return w.click(tour.Card(domain.KindTestSuite, suites[len(suites)-1].ID))
	case tour.StepRunTests:
		return w.click(tour.Static(tour.ExecutionsTab))
	case tour.StepExecuteTests:
		return w.click(tour.Static(tour.RunTestsButton))
	}
	return fmt.Errorf("no script for step %s", w.state.Step)
}
