package commands

import (
	"sort"
	"testing"
	"time"

	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/narrative"
	"github.com/soteria-soc/soteria/pkg/pipeline"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	commands := Commands()

	var names []string
	for _, command := range commands {
		names = append(names, command.Name)
	}

	for _, expected := range []string{
		"analyze", "generate", "show-alerts", "test-config", "train", "version",
	} {
		assert.Contains(t, names, expected)
	}
	require.True(t, sort.StringsAreSorted(names), "commands must list alphabetically")
}

func TestStoredRecordsFlattenResult(t *testing.T) {
	key := data.NewSessionKey("10.0.1.66", "malware-c2.ru")
	result := &pipeline.Result{
		RunID:        "3f2a8c1d-0000-0000-0000-000000000000",
		InputPath:    "logs/proxy.csv",
		StartedAt:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Elapsed:      1500 * time.Millisecond,
		TotalLogs:    5000,
		SkippedRows:  2,
		SessionCount: 40,
		Tier1Flagged: 3,
		Tier2Flagged: 2,
		Warnings:     []string{"anomaly model unavailable"},
		Anomalies: []*pipeline.Anomaly{
			{
				Key:          key,
				Username:     "alice",
				RequestCount: 500,
				Tier1Fired:   true,
				Tier2Fired:   true,
				Tier1: &rules.Finding{
					Key:     key,
					Methods: []string{rules.MethodZScore, rules.MethodInterval},
				},
				Tier2: &scoring.Finding{
					Key:         key,
					TopFeatures: []string{"interval_cv", "night_ratio"},
				},
				Confidence: 0.92,
				Severity:   data.SeverityHigh,
				Explanation: &narrative.Explanation{
					ThreatSummary: "Likely C2 beaconing",
					WhatHappened:  "Host 10.0.1.66 made 500 requests",
					WhySuspicious: "Machine-like cadence",
				},
			},
			{
				Key:        data.NewSessionKey("10.0.1.9", "quiet.example"),
				Username:   "bob",
				Tier1Fired: true,
				Confidence: 0.50,
				Severity:   data.SeverityMedium,
			},
		},
	}

	run := runRecord(result)
	assert.Equal(t, result.RunID, run.RunID)
	assert.Equal(t, int64(1500), run.ElapsedMS)
	assert.Equal(t, 5000, run.TotalLogs)
	assert.Equal(t, []string{"anomaly model unavailable"}, run.Warnings)

	alerts := alertRecords(result)
	require.Len(t, alerts, 2)

	top := alerts[0]
	assert.Equal(t, result.RunID, top.RunID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "10.0.1.66", top.Actor)
	assert.Equal(t, "malware-c2.ru", top.Domain)
	assert.Equal(t, "alice", top.Username)
	assert.Equal(t, 0.92, top.Confidence)
	assert.Equal(t, "high", top.Severity)
	assert.Equal(t, []string{rules.MethodZScore, rules.MethodInterval}, top.Methods)
	assert.Equal(t, []string{"interval_cv", "night_ratio"}, top.TopFeatures)
	assert.Equal(t, "Likely C2 beaconing", top.ThreatSummary)

	second := alerts[1]
	assert.Equal(t, 2, second.Rank)
	assert.Empty(t, second.Methods)
	assert.Empty(t, second.TopFeatures)
	assert.Empty(t, second.ThreatSummary)
}

func TestFormattingHelpers(t *testing.T) {
	assert.Equal(t, "0.75", f(0.75))
	assert.Equal(t, "42", i(42))
	assert.Equal(t, "3f2a8c1d", shortRunID("3f2a8c1d-0000-0000-0000-000000000000"))
	assert.Equal(t, "plain", shortRunID("plain"))
}
