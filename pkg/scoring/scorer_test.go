package scoring

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/soteria-soc/soteria/parser/parsetypes"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/features"
	"github.com/soteria-soc/soteria/pkg/forest"
	"github.com/soteria-soc/soteria/pkg/session"
	"github.com/soteria-soc/soteria/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//trainTestArtifact fits a small forest over synthetic human traffic
//vectors: long irregular intervals, diverse paths, daytime activity
func trainTestArtifact(t *testing.T) *forest.Artifact {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	matrix := make([][]float64, 0, 400)
	for i := 0; i < 400; i++ {
		matrix = append(matrix, []float64{
			300 + rng.Float64()*1700, // avg_interval_s
			0.5 + rng.Float64()*1.5,  // interval_cv
			0.3 + rng.Float64()*1.2,  // bytes_sent_cv
			0.5 + rng.Float64()*0.5,  // unique_paths_ratio
			rng.Float64() * 0.3,      // night_ratio
			30 + rng.Float64()*170,   // request_count
		})
	}

	scaler, err := forest.FitScaler(matrix)
	require.Nil(t, err)
	fitted, err := forest.Train(scaler.TransformAll(matrix), 100, 256, 42)
	require.Nil(t, err)

	return &forest.Artifact{
		Version:      forest.ArtifactVersion,
		TrainedAt:    time.Now().UTC(),
		Samples:      len(matrix),
		FeatureNames: features.Names,
		Scaler:       scaler,
		Forest:       fitted,
	}
}

func beaconRecords(actor, domain string, n int) []parsetypes.ProxyConn {
	start := time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC)
	records := make([]parsetypes.ProxyConn, n)
	for i := range records {
		records[i] = parsetypes.ProxyConn{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Username:  "svc-account",
			SrcIP:     actor,
			Domain:    domain,
			Path:      "/ping",
			BytesSent: 512,
		}
	}
	return records
}

func humanRecords(actor, domain string, n int, seed int64) []parsetypes.ProxyConn {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	records := make([]parsetypes.ProxyConn, n)
	current := start
	for i := range records {
		current = current.Add(time.Duration(300+rng.Intn(1500)) * time.Second)
		records[i] = parsetypes.ProxyConn{
			Timestamp: current,
			Username:  "jdoe",
			SrcIP:     actor,
			Domain:    domain,
			Path:      fmt.Sprintf("/article/%d", rng.Intn(10000)),
			BytesSent: int64(200 + rng.Intn(4000)),
		}
	}
	return records
}

func testSessions(t *testing.T) map[data.SessionKey]*session.Session {
	t.Helper()
	res := resources.InitTestResources()

	var records []parsetypes.ProxyConn
	records = append(records, beaconRecords("10.0.1.66", "malware-c2.ru", 500)...)
	for i := 0; i < 10; i++ {
		records = append(records, humanRecords(fmt.Sprintf("10.0.2.%d", i), "news.example.com", 40, int64(i))...)
	}

	return session.NewAggregator(res.Config, res.Log).Aggregate(records)
}

func TestScoreFlagsBeacon(t *testing.T) {
	res := resources.InitTestResources()
	artifact := trainTestArtifact(t)
	scorer, err := NewScorerFromArtifact(artifact, res.Config, res.Log)
	require.Nil(t, err)

	findings := scorer.Score(testSessions(t), make(data.KeySet))
	require.NotEmpty(t, findings)

	top := findings[0]
	assert.Equal(t, data.NewSessionKey("10.0.1.66", "malware-c2.ru"), top.Key)
	assert.Equal(t, 1.0, top.Confidence, "most anomalous session takes the top of the normalized range")
	assert.NotEmpty(t, top.TopFeatures)
	assert.NotEmpty(t, top.Description)

	// low interval CV and heavy night activity should dominate the signal
	found := false
	for _, name := range top.TopFeatures {
		if name == "interval_cv" || name == "night_ratio" || name == "request_count" {
			found = true
		}
	}
	assert.True(t, found, "expected beacon-style features in top signals, got %v", top.TopFeatures)
}

func TestScoreHonorsSkipSet(t *testing.T) {
	res := resources.InitTestResources()
	artifact := trainTestArtifact(t)
	scorer, err := NewScorerFromArtifact(artifact, res.Config, res.Log)
	require.Nil(t, err)

	beaconKey := data.NewSessionKey("10.0.1.66", "malware-c2.ru")
	skip := make(data.KeySet)
	skip.Add(beaconKey)

	findings := scorer.Score(testSessions(t), skip)
	for _, finding := range findings {
		assert.NotEqual(t, beaconKey, finding.Key, "skipped keys must never be scored")
	}
}

func TestScoreQuietSessionNotFlagged(t *testing.T) {
	res := resources.InitTestResources()
	artifact := trainTestArtifact(t)
	scorer, err := NewScorerFromArtifact(artifact, res.Config, res.Log)
	require.Nil(t, err)

	findings := scorer.Score(testSessions(t), make(data.KeySet))
	for _, finding := range findings {
		assert.NotEqual(t, "news.example.com", finding.Key.Domain,
			"ordinary browsing should score below the cutoff")
	}
}

func TestNormalizeScores(t *testing.T) {
	normalized := normalizeScores([]float64{0.4, 0.6, 0.8})
	assert.Equal(t, []float64{0, 0.5, 1}, roundAll(normalized))

	// no spread normalizes to zero, not one
	flat := normalizeScores([]float64{0.5, 0.5})
	assert.Equal(t, []float64{0, 0}, flat)

	assert.Nil(t, normalizeScores(nil))
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(int(v*1000+0.5)) / 1000
	}
	return out
}

func TestNewScorerMissingArtifact(t *testing.T) {
	res := resources.InitTestResources()
	res.Config.S.Scoring.ModelPath = "/nonexistent/forest.json"

	_, err := NewScorer(res.Config, res.Log)
	require.NotNil(t, err)
	assert.True(t, forest.IsModelUnavailable(err))
}

func TestNewScorerFeatureMismatch(t *testing.T) {
	res := resources.InitTestResources()
	artifact := trainTestArtifact(t)
	artifact.FeatureNames = []string{"wrong", "order", "of", "the", "six", "names"}

	_, err := NewScorerFromArtifact(artifact, res.Config, res.Log)
	require.NotNil(t, err)
	assert.True(t, forest.IsModelUnavailable(err))
}
