package rules

import (
	"github.com/soteria-soc/soteria/pkg/data"
)

//Rule method names as they appear in findings and narratives
const (
	MethodZScore   = "zscore"
	MethodInterval = "interval_threshold"
	MethodIQR      = "iqr"
)

type (
	//Evidence holds the numeric measurements behind a finding. All
	//computable measurements are retained, even for methods which did
	//not fire, so the narrative stage can ground its explanation.
	Evidence struct {
		RequestCount int `bson:"request_count" json:"request_count"`

		// volume test
		ZScore    float64 `bson:"zscore" json:"zscore"`
		PopMean   float64 `bson:"pop_mean" json:"pop_mean"`
		PopStdDev float64 `bson:"pop_std" json:"pop_std"`

		// interval regularity test; NaN-free, zero when there were
		// too few requests to evaluate
		AvgIntervalS float64 `bson:"avg_interval_s" json:"avg_interval_s"`
		JitterS      float64 `bson:"jitter_s" json:"jitter_s"`

		// interval outlier test
		Q1           float64 `bson:"q1_s" json:"q1_s"`
		Q3           float64 `bson:"q3_s" json:"q3_s"`
		IQR          float64 `bson:"iqr_s" json:"iqr_s"`
		OutlierCount int     `bson:"outlier_count" json:"outlier_count"`
	}

	//Finding reports a session which fired at least one rule method
	Finding struct {
		Key          data.SessionKey `bson:"key" json:"key"`
		Username     string          `bson:"username" json:"username"`
		Methods      []string        `bson:"methods_fired" json:"methods_fired"`
		Descriptions []string        `bson:"descriptions" json:"descriptions"`
		Severity     data.Severity   `bson:"severity" json:"severity"`
		RequestCount int             `bson:"request_count" json:"request_count"`
		Evidence     Evidence        `bson:"evidence" json:"evidence"`
	}
)

//Fired checks whether a particular rule method fired for this finding
func (f *Finding) Fired(method string) bool {
	for _, m := range f.Methods {
		if m == method {
			return true
		}
	}
	return false
}

//CriticalKeys returns the set of sessions for which all three rule
//methods fired. These are excluded from ML scoring: Tier 1 is already
//certain and a less precise confirmation adds nothing.
func CriticalKeys(findings []*Finding) data.KeySet {
	critical := make(data.KeySet)
	for _, finding := range findings {
		if len(finding.Methods) == 3 {
			critical.Add(finding.Key)
		}
	}
	return critical
}
