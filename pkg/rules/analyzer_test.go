package rules

import (
	"fmt"
	"math"
	"testing"

	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/session"
	"github.com/soteria-soc/soteria/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//makeSession builds a session directly from an interval list so tests
//can control timing precisely
func makeSession(actor, domain string, intervals []float64) *session.Session {
	sess := &session.Session{
		Key:          data.NewSessionKey(actor, domain),
		Username:     "jdoe",
		RequestCount: len(intervals) + 1,
		Intervals:    intervals,
	}
	var sum float64
	for _, v := range intervals {
		sum += v
	}
	if len(intervals) > 0 {
		sess.IntervalMean = sum / float64(len(intervals))
		var sq float64
		for _, v := range intervals {
			sq += (v - sess.IntervalMean) * (v - sess.IntervalMean)
		}
		sess.IntervalStdDev = math.Sqrt(sq / float64(len(intervals)))
	}
	return sess
}

//repeat returns n copies of value
func repeat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

//background fills the map with small human-looking sessions of varying
//volume so the population z-score has a realistic spread to compare
//against
func background(sessions map[data.SessionKey]*session.Session, n int) {
	humanIntervals := []float64{45, 310, 12, 1800, 95, 600, 22}
	for i := 0; i < n; i++ {
		sess := makeSession(fmt.Sprintf("10.0.2.%d", i), "news.example.com",
			humanIntervals[:3+i%5])
		sessions[sess.Key] = sess
	}
}

func TestBeaconSessionFiresIntervalMethod(t *testing.T) {
	res := resources.InitTestResources()
	sessions := make(map[data.SessionKey]*session.Session)
	background(sessions, 20)

	// 500 requests at near-identical 60 second intervals
	beacon := makeSession("10.0.1.66", "malware-c2.ru", repeat(60, 499))
	sessions[beacon.Key] = beacon

	analyzer := NewAnalyzer(res.Config, res.Log)
	findings := analyzer.Analyze(sessions)

	require.NotEmpty(t, findings)
	var found *Finding
	for _, f := range findings {
		if f.Key == beacon.Key {
			found = f
		}
	}
	require.NotNil(t, found, "beacon session should be flagged")

	assert.True(t, found.Fired(MethodInterval))
	assert.True(t, found.Fired(MethodZScore), "500 requests should stand out from the population")
	assert.True(t, found.Severity >= data.SeverityHigh)
	assert.InDelta(t, 60.0, found.Evidence.AvgIntervalS, 0.001)
}

func TestCriticalSessionFiresAllThreeMethods(t *testing.T) {
	res := resources.InitTestResources()
	sessions := make(map[data.SessionKey]*session.Session)
	background(sessions, 20)

	// regular 60s beacon with a handful of doubled intervals: still
	// low jitter overall, but the doubles sit outside the Tukey fences
	intervals := repeat(60, 496)
	intervals = append(intervals, 120, 120, 120)
	beacon := makeSession("10.0.1.66", "malware-c2.ru", intervals)
	sessions[beacon.Key] = beacon

	analyzer := NewAnalyzer(res.Config, res.Log)
	findings := analyzer.Analyze(sessions)

	var found *Finding
	for _, f := range findings {
		if f.Key == beacon.Key {
			found = f
		}
	}
	require.NotNil(t, found)

	assert.True(t, found.Fired(MethodZScore))
	assert.True(t, found.Fired(MethodInterval))
	assert.True(t, found.Fired(MethodIQR))
	assert.Equal(t, data.SeverityCritical, found.Severity)
	assert.Equal(t, 3, found.Evidence.OutlierCount)

	critical := CriticalKeys(findings)
	assert.True(t, critical.Contains(beacon.Key))
}

func TestQuietSessionFiresNothing(t *testing.T) {
	res := resources.InitTestResources()
	sessions := make(map[data.SessionKey]*session.Session)
	background(sessions, 20)

	// 3 requests spread over a week to a popular domain
	quiet := makeSession("10.0.1.7", "example.com", []float64{200000, 310000})
	sessions[quiet.Key] = quiet

	analyzer := NewAnalyzer(res.Config, res.Log)
	findings := analyzer.Analyze(sessions)

	for _, f := range findings {
		assert.NotEqual(t, quiet.Key, f.Key, "a quiet session must not be flagged")
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	res := resources.InitTestResources()
	sessions := make(map[data.SessionKey]*session.Session)
	background(sessions, 30)

	beaconA := makeSession("10.0.1.66", "malware-c2.ru", repeat(60, 499))
	beaconB := makeSession("10.0.1.42", "botnet-cmd.cn", repeat(120, 299))
	sessions[beaconA.Key] = beaconA
	sessions[beaconB.Key] = beaconB

	analyzer := NewAnalyzer(res.Config, res.Log)
	first := analyzer.Analyze(sessions)
	second := analyzer.Analyze(sessions)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
		assert.Equal(t, first[i].Methods, second[i].Methods)
		assert.Equal(t, first[i].Evidence, second[i].Evidence)
	}
}

func TestEvidenceRetainedForUnfiredMethods(t *testing.T) {
	res := resources.InitTestResources()
	sessions := make(map[data.SessionKey]*session.Session)
	background(sessions, 20)

	// regular cadence but only on the interval method: volume stays low
	beacon := makeSession("10.0.1.66", "c2-handler.io", repeat(300, 9))
	sessions[beacon.Key] = beacon

	analyzer := NewAnalyzer(res.Config, res.Log)
	findings := analyzer.Analyze(sessions)

	var found *Finding
	for _, f := range findings {
		if f.Key == beacon.Key {
			found = f
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.Fired(MethodInterval))
	assert.False(t, found.Fired(MethodZScore))

	// the z-score evidence is still recorded for the narrative stage
	assert.NotZero(t, found.Evidence.PopMean)
	assert.InDelta(t, 300.0, found.Evidence.AvgIntervalS, 0.001)
}
