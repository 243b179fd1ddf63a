package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioCommand(t *testing.T) {
	tests := []struct {
		name        string
		lifetime    uint64
		sweeps      int
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "default lifetime",
			lifetime:    3,
			sweeps:      5,
			wantContain: []string{"Collected on sweep 4", "free old", "invalid state", "collect all"},
		},
		{
			name:        "forever",
			lifetime:    0,
			sweeps:      5,
			wantContain: []string{"Still live after 5 sweeps"},
		},
		{
			name:        "outlives sweeps",
			lifetime:    10,
			sweeps:      3,
			wantContain: []string{"Still live after 3 sweeps"},
		},
		{
			name:     "negative sweeps",
			lifetime: 3,
			sweeps:   -1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			scenarioLifetime = tt.lifetime
			scenarioSweeps = tt.sweeps

			output, err := captureOutput(t, runScenario)
			if (err != nil) != tt.wantErr {
				t.Errorf("runScenario() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestScenarioCommand_JSON(t *testing.T) {
	resetFlags()
	jsonOut = true

	output, err := captureOutput(t, runScenario)
	require.NoError(t, err)
	assertJSON(t, output)

	var res struct {
		CollectedAt int            `json:"collectedAtSweep"`
		Steps       []scenarioStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, 4, res.CollectedAt)

	// allocate, five sweeps, then the stale-handle walk and teardown
	require.Len(t, res.Steps, 1+5+6)
	assert.True(t, res.Steps[0].Valid)
	assert.Equal(t, uint64(1), res.Steps[0].Epoch)
	for i, want := range []bool{true, true, true, false, false} {
		assert.Equal(t, want, res.Steps[1+i].Valid, "after sweep %d", i+1)
	}

	stale := res.Steps[len(res.Steps)-2]
	assert.Equal(t, "free old", stale.Action)
	assert.False(t, stale.Valid)
	assert.Equal(t, "invalid state", stale.Status)

	last := res.Steps[len(res.Steps)-1]
	assert.Zero(t, last.Live)
	assert.Equal(t, uint64(1), last.Epoch)
}

func TestVersionCommand(t *testing.T) {
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"safememctl dev", "commit: none", "go: go"})
}
