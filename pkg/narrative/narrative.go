package narrative

import (
	"context"
	"fmt"

	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
)

type (
	//Evidence bundles everything the detection stages learned about a
	//single flagged session. Either finding may be nil, never both.
	Evidence struct {
		Key          data.SessionKey
		Username     string
		RequestCount int
		Confidence   float64
		Severity     data.Severity
		Tier1        *rules.Finding
		Tier2        *scoring.Finding
	}

	//Explanation is the analyst-facing narrative for one anomaly
	Explanation struct {
		ThreatSummary     string `bson:"threat_summary" json:"threat_summary"`
		WhatHappened      string `bson:"what_happened" json:"what_happened"`
		WhySuspicious     string `bson:"why_suspicious" json:"why_suspicious"`
		RecommendedAction string `bson:"recommended_action" json:"recommended_action"`
	}

	//Backend turns evidence into an explanation. Implementations must
	//be safe for concurrent use.
	Backend interface {
		Name() string
		Explain(ctx context.Context, evidence *Evidence) (*Explanation, error)
	}
)

//BackendError is returned when a narrative backend cannot produce an
//explanation. The synthesizer treats it as a signal to fall back to
//the deterministic template backend.
type BackendError struct {
	Backend string
	Reason  string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("narrative backend %s: %s", e.Backend, e.Reason)
}

//IsBackendError checks whether an error is a narrative backend failure
func IsBackendError(err error) bool {
	_, ok := err.(*BackendError)
	return ok
}
