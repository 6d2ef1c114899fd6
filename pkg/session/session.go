package session

import (
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/parser/parsetypes"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/util"
)

type (
	//Session holds all proxy activity between one actor and one
	//destination domain within a batch, along with the derived
	//statistics the detection tiers consume. Sessions are built once
	//per pipeline run and never mutated after aggregation.
	Session struct {
		Key        data.SessionKey
		Username   string
		Department string

		//Records preserves the original file order within this key
		Records []parsetypes.ProxyConn

		//Intervals are the inter-request gaps in seconds, computed
		//over the timestamp-sorted view of the records
		Intervals []float64

		RequestCount   int
		IntervalMean   float64
		IntervalStdDev float64
		BytesMean      float64
		BytesStdDev    float64
		DistinctPaths  int
		NightCount     int
	}

	//Aggregator groups parsed proxy records into per (actor, domain)
	//sessions
	Aggregator struct {
		conf *config.Config
		log  *log.Logger
	}
)

//NewAggregator creates an Aggregator for grouping proxy records
func NewAggregator(conf *config.Config, logger *log.Logger) *Aggregator {
	return &Aggregator{
		conf: conf,
		log:  logger,
	}
}

//Aggregate partitions the records into sessions keyed by
//(actor, domain). Every record lands in exactly one session.
func (a *Aggregator) Aggregate(records []parsetypes.ProxyConn) map[data.SessionKey]*Session {
	sessions := make(map[data.SessionKey]*Session)

	for _, record := range records {
		key := data.NewSessionKey(record.SrcIP, record.Domain)
		sess, ok := sessions[key]
		if !ok {
			sess = &Session{
				Key:        key,
				Username:   record.Username,
				Department: record.Department,
			}
			sessions[key] = sess
		}
		sess.Records = append(sess.Records, record)
	}

	for _, sess := range sessions {
		a.derive(sess)
	}

	a.log.WithFields(log.Fields{
		"records":  len(records),
		"sessions": len(sessions),
	}).Debug("aggregated proxy records into sessions")

	return sessions
}

//derive computes the per-session statistics used by the detection tiers
func (a *Aggregator) derive(sess *Session) {
	sess.RequestCount = len(sess.Records)

	timestamps := make([]float64, len(sess.Records))
	bytesSent := make([]float64, len(sess.Records))
	paths := make(map[string]struct{})

	dayStart := a.conf.S.Hours.DayStart
	dayEnd := a.conf.S.Hours.DayEnd
	loc := a.conf.R.Hours.Location

	for i, record := range sess.Records {
		local := record.Timestamp.In(loc)
		timestamps[i] = float64(record.Timestamp.Unix())
		bytesSent[i] = float64(record.BytesSent)
		paths[record.Path] = struct{}{}

		if local.Hour() < dayStart || local.Hour() >= dayEnd {
			sess.NightCount++
		}
	}

	//interval math needs temporal order, not input order
	sort.Float64s(timestamps)
	if len(timestamps) > 1 {
		sess.Intervals = make([]float64, len(timestamps)-1)
		for i := 0; i < len(timestamps)-1; i++ {
			sess.Intervals[i] = timestamps[i+1] - timestamps[i]
		}
	}

	sess.IntervalMean = util.Mean(sess.Intervals)
	sess.IntervalStdDev = util.StdDev(sess.Intervals)
	sess.BytesMean = util.Mean(bytesSent)
	sess.BytesStdDev = util.StdDev(bytesSent)
	sess.DistinctPaths = len(paths)
}

//NightRatio returns the fraction of this session's requests which
//occurred outside business hours
func (s *Session) NightRatio() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return float64(s.NightCount) / float64(s.RequestCount)
}

//PathRatio returns the ratio of distinct paths to total requests. Low
//values indicate automation hammering a single endpoint.
func (s *Session) PathRatio() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return float64(s.DistinctPaths) / float64(s.RequestCount)
}

//IntervalCV returns the coefficient of variation of the inter-request
//intervals. Scripted beacons sit near zero; humans are noisy.
func (s *Session) IntervalCV() float64 {
	if len(s.Intervals) == 0 || s.IntervalMean == 0 {
		return 0
	}
	return s.IntervalStdDev / s.IntervalMean
}

//BytesCV returns the coefficient of variation of the bytes sent per
//request
func (s *Session) BytesCV() float64 {
	if s.RequestCount < 2 || s.BytesMean == 0 {
		return 0
	}
	return s.BytesStdDev / s.BytesMean
}

//SortedKeys returns the session keys in a deterministic order
func SortedKeys(sessions map[data.SessionKey]*Session) []data.SessionKey {
	keys := make([]data.SessionKey, 0, len(sessions))
	for key := range sessions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Actor != keys[j].Actor {
			return keys[i].Actor < keys[j].Actor
		}
		return keys[i].Domain < keys[j].Domain
	})
	return keys
}
