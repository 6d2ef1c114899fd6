package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/soteria-soc/soteria/parser"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/datagen"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
	"github.com/soteria-soc/soteria/pkg/threatintel"
	"github.com/soteria-soc/soteria/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var c2Domains = []string{
	"malware-c2.ru",
	"botnet-cmd.cn",
	"evil-update.net",
	"payload-drop.xyz",
	"c2-handler.io",
}

func datagenOptions(beacons bool) datagen.Options {
	return datagen.Options{
		Users:    6,
		Days:     7,
		Seed:     42,
		Beacons:  beacons,
		Start:    time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
}

//writeRunInput generates a log with injected beacons and trains a
//model on a beacon-free baseline of the same company
func writeRunInput(t *testing.T, res *resources.Resources) string {
	t.Helper()
	dir := t.TempDir()

	logPath := filepath.Join(dir, "proxy.csv")
	require.Nil(t, datagen.WriteCSV(logPath, datagen.Generate(datagenOptions(true))))

	baselinePath := filepath.Join(dir, "baseline.csv")
	require.Nil(t, datagen.WriteCSV(baselinePath, datagen.Generate(datagenOptions(false))))

	artifact, err := scoring.TrainModel(res.Config, res.Log, baselinePath, threatintel.NewRegistry(res.Config))
	require.Nil(t, err)

	modelPath := filepath.Join(dir, "forest.json")
	require.Nil(t, artifact.Save(modelPath))
	res.Config.S.Scoring.ModelPath = modelPath

	return logPath
}

func TestRunEndToEnd(t *testing.T) {
	res := resources.InitTestResources()
	logPath := writeRunInput(t, res)

	result, err := NewPipeline(res.Config, res.Log).Run(context.Background(), logPath)
	require.Nil(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.True(t, result.TotalLogs > 1000)
	assert.Equal(t, 0, result.SkippedRows)
	assert.True(t, result.SessionCount > 10)
	assert.True(t, result.Tier1Flagged >= 2, "the regular beacon channels must trip the rules")
	require.NotEmpty(t, result.Anomalies)

	// every anomaly comes out fully explained
	assert.Equal(t, len(result.Anomalies), result.Tier3Explained)
	for _, anomaly := range result.Anomalies {
		require.NotNil(t, anomaly.Explanation)
		assert.NotEmpty(t, anomaly.Explanation.ThreatSummary)
		assert.NotEmpty(t, anomaly.Explanation.RecommendedAction)
		assert.True(t, anomaly.Tier1Fired || anomaly.Tier2Fired)
		assert.True(t, anomaly.Confidence >= 0 && anomaly.Confidence <= 1)
	}

	// a C2 channel tops the queue
	assert.Contains(t, c2Domains, result.Anomalies[0].Key.Domain)
}

func TestRunRankingOrder(t *testing.T) {
	res := resources.InitTestResources()
	logPath := writeRunInput(t, res)

	result, err := NewPipeline(res.Config, res.Log).Run(context.Background(), logPath)
	require.Nil(t, err)
	require.NotEmpty(t, result.Anomalies)

	for i := 1; i < len(result.Anomalies); i++ {
		previous, current := result.Anomalies[i-1], result.Anomalies[i]
		assert.True(t, previous.Confidence >= current.Confidence,
			"queue must be ordered by confidence")
		if previous.Confidence == current.Confidence {
			assert.True(t, previous.Severity.Rank() >= current.Severity.Rank(),
				"severity breaks confidence ties")
		}
	}
}

func TestRunCriticalSessionsSkipScoring(t *testing.T) {
	res := resources.InitTestResources()
	logPath := writeRunInput(t, res)

	result, err := NewPipeline(res.Config, res.Log).Run(context.Background(), logPath)
	require.Nil(t, err)

	for _, anomaly := range result.Anomalies {
		if anomaly.Tier1 != nil && len(anomaly.Tier1.Methods) == 3 {
			assert.False(t, anomaly.Tier2Fired,
				"sessions where every rule fired must not be rescored")
			assert.Equal(t, 1.0, anomaly.Confidence)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	res := resources.InitTestResources()
	logPath := writeRunInput(t, res)
	pipeline := NewPipeline(res.Config, res.Log)

	first, err := pipeline.Run(context.Background(), logPath)
	require.Nil(t, err)
	second, err := pipeline.Run(context.Background(), logPath)
	require.Nil(t, err)

	require.Equal(t, len(first.Anomalies), len(second.Anomalies))
	for i := range first.Anomalies {
		assert.Equal(t, first.Anomalies[i].Key, second.Anomalies[i].Key)
		assert.Equal(t, first.Anomalies[i].Confidence, second.Anomalies[i].Confidence)
	}
}

func TestRunDegradesWithoutModel(t *testing.T) {
	res := resources.InitTestResources()
	logPath := writeRunInput(t, res)
	res.Config.S.Scoring.ModelPath = filepath.Join(t.TempDir(), "missing.json")

	result, err := NewPipeline(res.Config, res.Log).Run(context.Background(), logPath)
	require.Nil(t, err, "a missing model degrades the run instead of failing it")

	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 0, result.Tier2Flagged)
	assert.True(t, result.Tier1Flagged >= 2, "rule findings still come through")
	for _, anomaly := range result.Anomalies {
		assert.True(t, anomaly.Tier1Fired)
		assert.False(t, anomaly.Tier2Fired)
		require.NotNil(t, anomaly.Explanation)
	}
}

func TestRunMissingInputFails(t *testing.T) {
	res := resources.InitTestResources()

	_, err := NewPipeline(res.Config, res.Log).Run(context.Background(), "/nonexistent/proxy.csv")
	require.NotNil(t, err)
	assert.True(t, parser.IsInputError(err))
}

func TestMergeTakesHigherConfidence(t *testing.T) {
	res := resources.InitTestResources()

	assert.Equal(t, 0.50, ruleConfidence(res.Config, 1))
	assert.Equal(t, 0.75, ruleConfidence(res.Config, 2))
	assert.Equal(t, 1.0, ruleConfidence(res.Config, 3))
	assert.Equal(t, 0.0, ruleConfidence(res.Config, 0))
}

func TestMergeUnifiesTiers(t *testing.T) {
	res := resources.InitTestResources()

	bothKey := data.NewSessionKey("10.0.1.1", "both.example")
	rulesOnlyKey := data.NewSessionKey("10.0.1.2", "rules-only.example")
	scoredOnlyKey := data.NewSessionKey("10.0.1.3", "scored-only.example")

	tier1 := []*rules.Finding{
		{
			Key: bothKey, Username: "alice", RequestCount: 400,
			Methods:  []string{rules.MethodZScore, rules.MethodInterval},
			Severity: data.SeverityHigh,
		},
		{
			Key: rulesOnlyKey, Username: "bob", RequestCount: 250,
			Methods:  []string{rules.MethodIQR},
			Severity: data.SeverityMedium,
		},
	}
	tier2 := []*scoring.Finding{
		{Key: bothKey, Username: "alice", Confidence: 0.92},
		{Key: scoredOnlyKey, Username: "carol", Confidence: 0.95},
	}

	anomalies := merge(res.Config, tier1, tier2)
	require.Len(t, anomalies, 3)

	byKey := make(map[data.SessionKey]*Anomaly)
	for _, anomaly := range anomalies {
		byKey[anomaly.Key] = anomaly
	}

	both := byKey[bothKey]
	require.NotNil(t, both)
	assert.True(t, both.Tier1Fired)
	assert.True(t, both.Tier2Fired)
	// monotonic: both tiers never score below either tier alone
	assert.Equal(t, 0.92, both.Confidence, "ML confidence beats the two-method 0.75")
	assert.Equal(t, data.SeverityHigh, both.Severity, "severity comes from the rules tier when it fired")

	rulesOnly := byKey[rulesOnlyKey]
	require.NotNil(t, rulesOnly)
	assert.Equal(t, 0.50, rulesOnly.Confidence)
	assert.Equal(t, data.SeverityMedium, rulesOnly.Severity)

	scoredOnly := byKey[scoredOnlyKey]
	require.NotNil(t, scoredOnly)
	assert.Equal(t, 0.95, scoredOnly.Confidence)
	assert.Equal(t, data.SeverityCritical, scoredOnly.Severity, "0.95 maps to critical")

	// ranked: scored-only (0.95) before both (0.92) before rules-only (0.50)
	assert.Equal(t, scoredOnlyKey, anomalies[0].Key)
	assert.Equal(t, bothKey, anomalies[1].Key)
	assert.Equal(t, rulesOnlyKey, anomalies[2].Key)
}
