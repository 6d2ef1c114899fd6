package rules

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/session"
	"github.com/soteria-soc/soteria/util"
)

//Analyzer applies the three deterministic rule methods to every session
//in a batch. It holds no state between batches: identical input always
//yields identical findings in identical order.
type Analyzer struct {
	conf *config.Config
	log  *log.Logger
}

//NewAnalyzer creates a rule engine from the run configuration
func NewAnalyzer(conf *config.Config, logger *log.Logger) *Analyzer {
	return &Analyzer{
		conf: conf,
		log:  logger,
	}
}

//Analyze evaluates every session against the volume, interval
//regularity, and interval outlier tests, returning ordered findings for
//sessions which fired at least one method
func (a *Analyzer) Analyze(sessions map[data.SessionKey]*session.Session) []*Finding {
	keys := session.SortedKeys(sessions)

	popMean, popStdDev := countDistribution(sessions, keys)

	var findings []*Finding
	for _, key := range keys {
		sess := sessions[key]
		finding := a.evaluate(sess, popMean, popStdDev)
		if len(finding.Methods) > 0 {
			findings = append(findings, finding)
		}
	}

	// most corroborated findings first; key ordering for determinism
	sort.SliceStable(findings, func(i, j int) bool {
		if len(findings[i].Methods) != len(findings[j].Methods) {
			return len(findings[i].Methods) > len(findings[j].Methods)
		}
		if findings[i].Key.Actor != findings[j].Key.Actor {
			return findings[i].Key.Actor < findings[j].Key.Actor
		}
		return findings[i].Key.Domain < findings[j].Key.Domain
	})

	a.log.WithFields(log.Fields{
		"sessions": len(sessions),
		"flagged":  len(findings),
	}).Info("rule engine finished")

	return findings
}

//evaluate runs the three rule methods for one session
func (a *Analyzer) evaluate(sess *session.Session, popMean, popStdDev float64) *Finding {
	finding := &Finding{
		Key:          sess.Key,
		Username:     sess.Username,
		RequestCount: sess.RequestCount,
		Evidence: Evidence{
			RequestCount: sess.RequestCount,
			PopMean:      popMean,
			PopStdDev:    popStdDev,
		},
	}

	// volume: request count z-score against the batch population
	var z float64
	if popStdDev > 0 {
		z = (float64(sess.RequestCount) - popMean) / popStdDev
	}
	finding.Evidence.ZScore = z
	if z >= a.conf.S.Rules.ZScoreThreshold {
		finding.Methods = append(finding.Methods, MethodZScore)
		finding.Descriptions = append(finding.Descriptions, fmt.Sprintf(
			"Request count %d is %.1f standard deviations above the batch mean (%.1f)",
			sess.RequestCount, z, popMean,
		))
	}

	// the interval tests need enough requests to be meaningful
	if sess.RequestCount >= a.conf.S.Rules.MinRequests {
		avgInterval := sess.IntervalMean
		jitter := sess.IntervalStdDev
		finding.Evidence.AvgIntervalS = avgInterval
		finding.Evidence.JitterS = jitter

		// interval regularity: a tight periodic cadence within the
		// beaconing band
		if avgInterval <= a.conf.S.Rules.MaxAvgIntervalS && jitter <= a.conf.S.Rules.MaxJitterS {
			finding.Methods = append(finding.Methods, MethodInterval)
			finding.Descriptions = append(finding.Descriptions, fmt.Sprintf(
				"Average interval %.1fs with jitter %.1fs is too regular for human browsing",
				avgInterval, jitter,
			))
		}

		// interval outliers: intervals outside the Tukey fences of the
		// session's own spacing indicate bursts or erratic gaps
		sorted := util.SortedCopy(sess.Intervals)
		q1 := util.Quantile(sorted, 0.25)
		q3 := util.Quantile(sorted, 0.75)
		iqr := q3 - q1
		k := a.conf.S.Rules.IQRMultiplier
		lower := q1 - k*iqr
		upper := q3 + k*iqr

		outliers := 0
		for _, interval := range sess.Intervals {
			if interval < lower || interval > upper {
				outliers++
			}
		}

		finding.Evidence.Q1 = q1
		finding.Evidence.Q3 = q3
		finding.Evidence.IQR = iqr
		finding.Evidence.OutlierCount = outliers

		if outliers > 0 {
			finding.Methods = append(finding.Methods, MethodIQR)
			finding.Descriptions = append(finding.Descriptions, fmt.Sprintf(
				"%d intervals fall outside [Q1-%.1f*IQR, Q3+%.1f*IQR] (Q1=%.1fs Q3=%.1fs), indicating bursts or erratic spacing",
				outliers, k, k, q1, q3,
			))
		}
	}

	finding.Severity = data.SeverityFromMethodCount(len(finding.Methods))
	return finding
}

//countDistribution computes the mean and population standard deviation
//of request counts across all sessions in the batch
func countDistribution(sessions map[data.SessionKey]*session.Session, keys []data.SessionKey) (float64, float64) {
	counts := make([]float64, len(keys))
	for i, key := range keys {
		counts[i] = float64(sessions[key].RequestCount)
	}
	return util.Mean(counts), util.StdDev(counts)
}
