package pipeline

import (
	"fmt"
	"time"

	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/narrative"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
)

type (
	//Anomaly is one entry in the ranked alert queue: the merged view
	//of everything the detection tiers learned about a session
	Anomaly struct {
		Key          data.SessionKey `bson:"key" json:"key"`
		Username     string          `bson:"username" json:"username"`
		RequestCount int             `bson:"request_count" json:"request_count"`

		Tier1Fired bool             `bson:"tier1_fired" json:"tier1_fired"`
		Tier2Fired bool             `bson:"tier2_fired" json:"tier2_fired"`
		Tier1      *rules.Finding   `bson:"tier1,omitempty" json:"tier1,omitempty"`
		Tier2      *scoring.Finding `bson:"tier2,omitempty" json:"tier2,omitempty"`

		Confidence float64       `bson:"confidence" json:"confidence"`
		Severity   data.Severity `bson:"severity" json:"severity"`

		Explanation *narrative.Explanation `bson:"explanation,omitempty" json:"explanation,omitempty"`
	}

	//StageTimings records how long each stage of a run took
	StageTimings struct {
		Parse     time.Duration `bson:"parse" json:"parse"`
		Aggregate time.Duration `bson:"aggregate" json:"aggregate"`
		Tier1     time.Duration `bson:"tier1" json:"tier1"`
		Tier2     time.Duration `bson:"tier2" json:"tier2"`
		Tier3     time.Duration `bson:"tier3" json:"tier3"`
	}

	//Result is the complete output of one analysis run
	Result struct {
		RunID     string        `bson:"run_id" json:"run_id"`
		InputPath string        `bson:"input_path" json:"input_path"`
		StartedAt time.Time     `bson:"started_at" json:"started_at"`
		Elapsed   time.Duration `bson:"elapsed" json:"elapsed"`

		TotalLogs      int `bson:"total_logs" json:"total_logs"`
		SkippedRows    int `bson:"skipped_rows" json:"skipped_rows"`
		SessionCount   int `bson:"session_count" json:"session_count"`
		Tier1Flagged   int `bson:"tier1_flagged" json:"tier1_flagged"`
		Tier2Flagged   int `bson:"tier2_flagged" json:"tier2_flagged"`
		Tier3Explained int `bson:"tier3_explained" json:"tier3_explained"`

		Timings  StageTimings `bson:"timings" json:"timings"`
		Warnings []string     `bson:"warnings" json:"warnings"`

		Anomalies []*Anomaly `bson:"anomalies" json:"anomalies"`
	}
)

//Error is returned when a run fails outright rather than degrading
type Error struct {
	Stage  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed in %s stage: %s", e.Stage, e.Reason)
}

//IsPipelineError checks whether an error is a run-level pipeline failure
func IsPipelineError(err error) bool {
	_, ok := err.(*Error)
	return ok
}
