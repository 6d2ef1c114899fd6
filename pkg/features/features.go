package features

import (
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/session"
)

//Names lists the feature columns in their canonical order. The trained
//model artifact records the same list; the two must match exactly.
var Names = []string{
	"avg_interval_s",
	"interval_cv",
	"bytes_sent_cv",
	"unique_paths_ratio",
	"night_ratio",
	"request_count",
}

//Dimensions is the width of every feature vector
const Dimensions = 6

type (
	//Vector is the canonical numeric representation of a session fed
	//to the anomaly scorer. Identity fields are kept for traceability
	//but never enter the model.
	Vector struct {
		Key      data.SessionKey `bson:"key" json:"key"`
		Username string          `bson:"username" json:"username"`

		AvgIntervalS     float64 `bson:"avg_interval_s" json:"avg_interval_s"`
		IntervalCV       float64 `bson:"interval_cv" json:"interval_cv"`
		BytesSentCV      float64 `bson:"bytes_sent_cv" json:"bytes_sent_cv"`
		UniquePathsRatio float64 `bson:"unique_paths_ratio" json:"unique_paths_ratio"`
		NightRatio       float64 `bson:"night_ratio" json:"night_ratio"`
		RequestCount     float64 `bson:"request_count" json:"request_count"`
	}

	//Extractor builds feature vectors from aggregated sessions
	Extractor struct {
		conf *config.Config
		log  *log.Logger
	}
)

//Values returns the vector's numeric columns in canonical order
func (v *Vector) Values() []float64 {
	return []float64{
		v.AvgIntervalS,
		v.IntervalCV,
		v.BytesSentCV,
		v.UniquePathsRatio,
		v.NightRatio,
		v.RequestCount,
	}
}

//NewExtractor creates an Extractor from the run configuration
func NewExtractor(conf *config.Config, logger *log.Logger) *Extractor {
	return &Extractor{
		conf: conf,
		log:  logger,
	}
}

//Extract builds one vector per session, skipping sessions in the skip
//set and sessions too small to score. Results come back in
//deterministic key order.
func (e *Extractor) Extract(sessions map[data.SessionKey]*session.Session, skip data.KeySet) []*Vector {
	keys := session.SortedKeys(sessions)

	var vectors []*Vector
	skipped := 0
	for _, key := range keys {
		if skip.Contains(key) {
			skipped++
			continue
		}
		sess := sessions[key]
		if vector, ok := e.fromSession(sess); ok {
			vectors = append(vectors, vector)
		}
	}

	e.log.WithFields(log.Fields{
		"sessions": len(sessions),
		"vectors":  len(vectors),
		"skipped":  skipped,
	}).Debug("extracted feature vectors")

	return vectors
}

//fromSession derives a single feature vector. Degenerate sessions
//(below the minimum size, or with no measurable intervals) are not
//scoreable and are dropped here rather than producing NaNs downstream.
func (e *Extractor) fromSession(sess *session.Session) (*Vector, bool) {
	if sess.RequestCount < e.conf.S.Scoring.MinSessionSize {
		return nil, false
	}
	if len(sess.Intervals) == 0 || sess.IntervalMean == 0 {
		return nil, false
	}

	return &Vector{
		Key:              sess.Key,
		Username:         sess.Username,
		AvgIntervalS:     sess.IntervalMean,
		IntervalCV:       sess.IntervalCV(),
		BytesSentCV:      sess.BytesCV(),
		UniquePathsRatio: sess.PathRatio(),
		NightRatio:       sess.NightRatio(),
		RequestCount:     float64(sess.RequestCount),
	}, true
}

//ToMatrix converts the vectors into a row-major matrix whose column
//order matches Names
func ToMatrix(vectors []*Vector) [][]float64 {
	matrix := make([][]float64, len(vectors))
	for i, vector := range vectors {
		matrix[i] = vector.Values()
	}
	return matrix
}
