package narrative

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

//TemplateBackend renders explanations from the detection evidence
//alone. It never fails and needs no network, which also makes it the
//fallback when a remote backend does.
type TemplateBackend struct{}

//NewTemplateBackend returns the deterministic narrative backend
func NewTemplateBackend() *TemplateBackend {
	return &TemplateBackend{}
}

//Name identifies the backend in logs and run output
func (t *TemplateBackend) Name() string { return "template" }

//Explain builds the four narrative fields from whichever tiers fired
func (t *TemplateBackend) Explain(_ context.Context, evidence *Evidence) (*Explanation, error) {
	actor := evidence.Key.Actor
	domain := evidence.Key.Domain
	user := evidence.Username

	var whatHappened, whySuspicious string
	switch {
	case evidence.Tier1 != nil && evidence.Tier2 != nil:
		fv := evidence.Tier2.Vector
		whatHappened = fmt.Sprintf(
			"Host %s (user: %s) made %s requests to %s over the observation window. "+
				"Requests occurred every %.0f seconds on average with %.0f%% of activity "+
				"outside business hours. The same endpoint was contacted repeatedly with "+
				"nearly identical %.3f payload variance.",
			actor, user, commaInt(evidence.RequestCount), domain,
			fv.AvgIntervalS, fv.NightRatio*100, fv.BytesSentCV,
		)
		whySuspicious = fmt.Sprintf(
			"The request interval coefficient of variation (CV=%.3f) is near zero. "+
				"Human browsing typically has CV above 1.0, and this level of timing "+
				"precision indicates automated software, not human activity. Combined "+
				"with %.0f%% off-hours activity and path diversity of only %.4f, this "+
				"pattern is consistent with C2 beaconing malware.",
			fv.IntervalCV, fv.NightRatio*100, fv.UniquePathsRatio,
		)
	case evidence.Tier1 != nil:
		descriptions := evidence.Tier1.Descriptions
		if len(descriptions) > 2 {
			descriptions = descriptions[:2]
		}
		whatHappened = fmt.Sprintf(
			"Host %s (user: %s) made %s requests to %s. Rule-based detection fired on: %s.",
			actor, user, commaInt(evidence.RequestCount), domain,
			strings.Join(evidence.Tier1.Methods, ", "),
		)
		whySuspicious = fmt.Sprintf(
			"Multiple detection rules fired simultaneously: %s. This volume and "+
				"regularity is inconsistent with normal user behavior.",
			strings.Join(descriptions, "; "),
		)
	default:
		fv := evidence.Tier2.Vector
		whatHappened = fmt.Sprintf(
			"Host %s (user: %s) made %s requests to %s with unusual statistical "+
				"properties. Anomaly detection scored this %.0f%% confidence.",
			actor, user, commaInt(evidence.RequestCount), domain,
			evidence.Tier2.Confidence*100,
		)
		whySuspicious = fmt.Sprintf(
			"Isolation forest scoring detected deviation from the normal baseline. "+
				"Key signals: %s. Request timing CV=%.3f and path diversity %.4f are "+
				"atypical for legitimate traffic.",
			strings.Join(evidence.Tier2.TopFeatures, ", "),
			fv.IntervalCV, fv.UniquePathsRatio,
		)
	}

	return &Explanation{
		ThreatSummary: fmt.Sprintf(
			"Suspected C2 beaconing from %s to %s (%.0f%% confidence)",
			actor, domain, evidence.Confidence*100,
		),
		WhatHappened:      whatHappened,
		WhySuspicious:     whySuspicious,
		RecommendedAction: recommendedAction(evidence.Confidence, actor, domain, user),
	}, nil
}

//recommendedAction escalates with confidence: containment, then
//mitigation, then watchlisting
func recommendedAction(confidence float64, actor, domain, user string) string {
	if confidence >= 0.9 {
		return fmt.Sprintf(
			"1. Immediately isolate host %s from the network. "+
				"2. Block domain %s at the firewall. "+
				"3. Suspend account %s pending investigation. "+
				"4. Escalate for forensic analysis.",
			actor, domain, user,
		)
	}
	if confidence >= 0.7 {
		return fmt.Sprintf(
			"1. Block outbound traffic to %s at the proxy. "+
				"2. Review recent activity for %s in the last 24 hours. "+
				"3. Run endpoint scan on %s. "+
				"4. Monitor for continued beaconing attempts.",
			domain, user, actor,
		)
	}
	return fmt.Sprintf(
		"1. Add %s to watchlist for continued monitoring. "+
			"2. Review %s recent activity for other anomalies. "+
			"3. Flag for review if pattern persists.",
		domain, user,
	)
}

//commaInt formats a count with thousands separators
func commaInt(n int) string {
	digits := strconv.Itoa(n)
	if n < 0 {
		return "-" + commaInt(-n)
	}
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
