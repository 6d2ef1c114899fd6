package pipeline

import (
	"sort"

	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
)

//ruleConfidence maps the number of rule methods which fired onto a
//confidence comparable with the ML scorer's output
func ruleConfidence(conf *config.Config, methodCount int) float64 {
	switch {
	case methodCount >= 3:
		return conf.S.Pipeline.ThreeMethodConfidence
	case methodCount == 2:
		return conf.S.Pipeline.TwoMethodConfidence
	case methodCount == 1:
		return conf.S.Pipeline.OneMethodConfidence
	default:
		return 0
	}
}

//merge unifies the two detection tiers into one anomaly per session.
//A session flagged by both tiers takes the higher of the two
//confidences; severity comes from the rules tier when it fired, and
//from the merged confidence otherwise.
func merge(conf *config.Config, tier1 []*rules.Finding, tier2 []*scoring.Finding) []*Anomaly {
	tier1Map := make(map[data.SessionKey]*rules.Finding, len(tier1))
	for _, finding := range tier1 {
		tier1Map[finding.Key] = finding
	}
	tier2Map := make(map[data.SessionKey]*scoring.Finding, len(tier2))
	for _, finding := range tier2 {
		tier2Map[finding.Key] = finding
	}

	keySet := make(data.KeySet)
	for key := range tier1Map {
		keySet.Add(key)
	}
	for key := range tier2Map {
		keySet.Add(key)
	}

	anomalies := make([]*Anomaly, 0, len(keySet))
	for key := range keySet {
		t1 := tier1Map[key]
		t2 := tier2Map[key]

		anomaly := &Anomaly{
			Key:        key,
			Tier1:      t1,
			Tier2:      t2,
			Tier1Fired: t1 != nil,
			Tier2Fired: t2 != nil,
		}

		if t1 != nil {
			anomaly.Username = t1.Username
			anomaly.RequestCount = t1.RequestCount
			anomaly.Confidence = ruleConfidence(conf, len(t1.Methods))
			anomaly.Severity = t1.Severity
		}
		if t2 != nil {
			if anomaly.Username == "" {
				anomaly.Username = t2.Username
			}
			if anomaly.RequestCount == 0 && t2.Vector != nil {
				anomaly.RequestCount = int(t2.Vector.RequestCount)
			}
			if t2.Confidence > anomaly.Confidence {
				anomaly.Confidence = t2.Confidence
			}
			if t1 == nil {
				anomaly.Severity = data.SeverityFromConfidence(t2.Confidence)
			}
		}

		anomalies = append(anomalies, anomaly)
	}

	rank(anomalies)
	return anomalies
}

//rank orders the alert queue: highest confidence first, severity
//breaking confidence ties, then session identity for a stable order
func rank(anomalies []*Anomaly) {
	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].Confidence != anomalies[j].Confidence {
			return anomalies[i].Confidence > anomalies[j].Confidence
		}
		if anomalies[i].Severity.Rank() != anomalies[j].Severity.Rank() {
			return anomalies[i].Severity.Rank() > anomalies[j].Severity.Rank()
		}
		if anomalies[i].Key.Actor != anomalies[j].Key.Actor {
			return anomalies[i].Key.Actor < anomalies[j].Key.Actor
		}
		return anomalies[i].Key.Domain < anomalies[j].Key.Domain
	})
}
