package main

import (
	"encoding/json"
	"testing"

	"github.com/kwv/jigsolve/jigsaw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceApp returns an initialised app whose publisher records into a
// connected mock client
func serviceApp(t *testing.T) (*App, *jigsaw.MockClient) {
	t.Helper()
	app := writeFixture(t)
	require.NoError(t, app.Init())

	client := jigsaw.NewMockClient()
	client.SetConnected(true)
	app.Publisher = jigsaw.NewPublisher(client, "test")
	return app, client
}

func TestHandleCommand_Match(t *testing.T) {
	app, client := serviceApp(t)

	app.HandleCommand("match")

	msgs := client.PublishedOn("test/matching")
	require.Len(t, msgs, 1)
	var report jigsaw.MatchReport
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &report))
	assert.Equal(t, 2, report.Pieces)
	assert.Empty(t, client.PublishedOn("test/solution"))
	assert.Equal(t, jigsaw.StateIdle, app.Session.Status().State)
}

func TestHandleCommand_Solve(t *testing.T) {
	app, client := serviceApp(t)

	app.HandleCommand("solve")

	// nothing was cached, so solving matched first
	assert.Len(t, client.PublishedOn("test/matching"), 1)

	msgs := client.PublishedOn("test/solution")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Retain)
	var sol jigsaw.SolutionMessage
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &sol))
	assert.Equal(t, 2, sol.Count)
	assert.Equal(t, 2, sol.Total)
	assert.Len(t, sol.Placements, 2)

	last, ok := app.Publisher.LastSolution()
	require.True(t, ok)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, jigsaw.StateDone, app.Session.Status().State)
}

func TestHandleCommand_Status(t *testing.T) {
	app, client := serviceApp(t)

	// no solution yet
	app.HandleCommand("status")
	assert.Empty(t, client.Published())

	app.HandleCommand("solve")
	before := len(client.PublishedOn("test/solution"))
	app.HandleCommand("status")
	assert.Len(t, client.PublishedOn("test/solution"), before+1)
}

func TestHandleCommand_Unknown(t *testing.T) {
	app, client := serviceApp(t)
	assert.NotPanics(t, func() { app.HandleCommand("shuffle") })
	assert.Empty(t, client.Published())
}

func TestHandleCommand_NoPublisher(t *testing.T) {
	app := writeFixture(t)
	require.NoError(t, app.Init())

	assert.NotPanics(t, func() {
		app.HandleCommand("solve")
		app.HandleCommand("status")
	})
	require.NotNil(t, app.Session.Solution())
	assert.Equal(t, 2, app.Session.Solution().Count)
}

func TestHandleCommand_Offline(t *testing.T) {
	app, client := serviceApp(t)
	client.SetConnected(false)

	app.HandleCommand("solve")

	assert.Empty(t, client.Published())
	last, ok := app.Publisher.LastSolution()
	require.True(t, ok, "the last solution is kept while offline")
	assert.Equal(t, 2, last.Count)
}
