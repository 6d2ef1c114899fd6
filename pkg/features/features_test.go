package features

import (
	"fmt"
	"testing"
	"time"

	"github.com/soteria-soc/soteria/parser/parsetypes"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/session"
	"github.com/soteria-soc/soteria/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//beaconRecords builds n perfectly periodic night-time requests to a
//single path
func beaconRecords(actor, domain string, n int, period time.Duration) []parsetypes.ProxyConn {
	start := time.Date(2025, 3, 1, 20, 30, 0, 0, time.UTC)
	records := make([]parsetypes.ProxyConn, n)
	for i := range records {
		records[i] = parsetypes.ProxyConn{
			Timestamp: start.Add(time.Duration(i) * period),
			Username:  "svc-account",
			SrcIP:     actor,
			Domain:    domain,
			Path:      "/beacon",
			BytesSent: 512,
		}
	}
	return records
}

//humanRecords builds daytime browsing with varying paths and sizes
func humanRecords(actor, domain string, n int) []parsetypes.ProxyConn {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	records := make([]parsetypes.ProxyConn, n)
	gap := time.Duration(0)
	for i := range records {
		gap += time.Duration(30+i*17%600) * time.Second
		records[i] = parsetypes.ProxyConn{
			Timestamp: start.Add(gap),
			Username:  "jdoe",
			SrcIP:     actor,
			Domain:    domain,
			Path:      fmt.Sprintf("/page-%d", i),
			BytesSent: int64(200 + i*37%4000),
		}
	}
	return records
}

func buildSessions(t *testing.T, records []parsetypes.ProxyConn) map[data.SessionKey]*session.Session {
	t.Helper()
	res := resources.InitTestResources()
	return session.NewAggregator(res.Config, res.Log).Aggregate(records)
}

func TestExtractBeaconFeatures(t *testing.T) {
	res := resources.InitTestResources()
	sessions := buildSessions(t, beaconRecords("10.0.1.66", "malware-c2.ru", 500, time.Minute))

	extractor := NewExtractor(res.Config, res.Log)
	vectors := extractor.Extract(sessions, make(data.KeySet))
	require.Len(t, vectors, 1)

	v := vectors[0]
	assert.InDelta(t, 60.0, v.AvgIntervalS, 0.001)
	assert.InDelta(t, 0.0, v.IntervalCV, 0.001, "perfect beacon has zero interval CV")
	assert.InDelta(t, 0.0, v.BytesSentCV, 0.001, "identical payloads have zero bytes CV")
	assert.InDelta(t, 1.0/500.0, v.UniquePathsRatio, 0.001)
	assert.Equal(t, 500.0, v.RequestCount)
	// 500 requests at 60s starting 20:30 all land outside business hours
	assert.Equal(t, 1.0, v.NightRatio)
}

func TestExtractHumanFeatures(t *testing.T) {
	res := resources.InitTestResources()
	sessions := buildSessions(t, humanRecords("10.0.1.5", "example.com", 60))

	extractor := NewExtractor(res.Config, res.Log)
	vectors := extractor.Extract(sessions, make(data.KeySet))
	require.Len(t, vectors, 1)

	v := vectors[0]
	assert.True(t, v.IntervalCV > 0.2, "human browsing should be irregular, got CV %f", v.IntervalCV)
	assert.Equal(t, 1.0, v.UniquePathsRatio)
	assert.True(t, v.BytesSentCV > 0.1)
}

func TestExtractSkipSet(t *testing.T) {
	res := resources.InitTestResources()
	records := append(
		beaconRecords("10.0.1.66", "malware-c2.ru", 100, time.Minute),
		beaconRecords("10.0.1.42", "botnet-cmd.cn", 100, time.Minute)...,
	)
	sessions := buildSessions(t, records)

	skip := make(data.KeySet)
	skip.Add(data.NewSessionKey("10.0.1.66", "malware-c2.ru"))

	extractor := NewExtractor(res.Config, res.Log)
	vectors := extractor.Extract(sessions, skip)

	require.Len(t, vectors, 1)
	assert.Equal(t, data.NewSessionKey("10.0.1.42", "botnet-cmd.cn"), vectors[0].Key)
}

func TestExtractDropsSmallSessions(t *testing.T) {
	res := resources.InitTestResources()
	// below the default MinSessionSize of 30
	sessions := buildSessions(t, humanRecords("10.0.1.5", "example.com", 10))

	extractor := NewExtractor(res.Config, res.Log)
	vectors := extractor.Extract(sessions, make(data.KeySet))
	assert.Empty(t, vectors)
}

func TestVectorOrderMatchesNames(t *testing.T) {
	v := &Vector{
		AvgIntervalS:     1,
		IntervalCV:       2,
		BytesSentCV:      3,
		UniquePathsRatio: 4,
		NightRatio:       5,
		RequestCount:     6,
	}
	values := v.Values()
	require.Len(t, values, Dimensions)
	require.Len(t, Names, Dimensions)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, values)
}

func TestToMatrix(t *testing.T) {
	vectors := []*Vector{
		{AvgIntervalS: 60, RequestCount: 100},
		{AvgIntervalS: 300, RequestCount: 40},
	}
	matrix := ToMatrix(vectors)
	require.Len(t, matrix, 2)
	assert.Equal(t, 60.0, matrix[0][0])
	assert.Equal(t, 40.0, matrix[1][5])
}
