package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/domain"
	"arxidemo/internal/tour"
)

func TestWalkCompletesTheTour(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		res, err := walk(walkOptions{
			Team:     "QA Squad",
			Project:  "Storefront",
			Source:   domain.SourceJira,
			Settings: tour.DefaultSettings(),
			Seed:     seed,
			Start:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err, "seed %d", seed)
		assert.True(t, res.State.Complete)

		for _, r := range res.Rows {
			assert.True(t, r.Applied, "%s at %s", r.Action, r.Step)
		}
		assert.Equal(t, tour.StepStart, res.Rows[0].Step)
		assert.Equal(t, "run-tests-button", res.Rows[len(res.Rows)-1].Action)

		execs := res.State.Store.Executions
		require.Len(t, execs, 4)
		last := execs[3]
		assert.NotEqual(t, domain.ExecutionRunning, last.Status, "execution finished on the virtual clock")
		assert.Equal(t, last.TestCases, last.Passed+last.Failed)

		var project domain.Project
		for _, p := range res.State.Store.Projects {
			if p.Name == "Storefront" {
				project = p
			}
		}
		assert.Equal(t, domain.SourceJira, project.Source)
		assert.Positive(t, project.StoryCount)
		assert.Equal(t, project.ID, last.ProjectID)
	}
}

func TestWalkWithManualProject(t *testing.T) {
	res, err := walk(walkOptions{
		Team:     "QA",
		Project:  "Hand made",
		Source:   domain.SourceArxitest,
		TestCase: "Checkout works",
		Settings: tour.DefaultSettings(),
		Seed:     3,
	})
	require.NoError(t, err)
	assert.True(t, res.State.Complete)
	names := []string{}
	for _, tc := range res.State.Store.TestCases {
		names = append(names, tc.Name)
	}
	assert.Contains(t, names, "Checkout works")
}
