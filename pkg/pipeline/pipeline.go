package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/parser"
	"github.com/soteria-soc/soteria/pkg/forest"
	"github.com/soteria-soc/soteria/pkg/narrative"
	"github.com/soteria-soc/soteria/pkg/rules"
	"github.com/soteria-soc/soteria/pkg/scoring"
	"github.com/soteria-soc/soteria/pkg/session"
)

//Pipeline runs the full triage sequence over one proxy log file:
//parse, sessionize, rule analysis, anomaly scoring, narrative
//synthesis, and finally merging into a ranked alert queue.
type Pipeline struct {
	conf      *config.Config
	log       *log.Logger
	stageDone func(stage string)
}

//StageCount is the number of stages reported through OnStageDone
const StageCount = 6

//NewPipeline ties the pipeline to a run configuration
func NewPipeline(conf *config.Config, logger *log.Logger) *Pipeline {
	return &Pipeline{
		conf: conf,
		log:  logger,
	}
}

//OnStageDone registers a hook fired after each stage completes, used
//by the frontend to drive its progress bar
func (p *Pipeline) OnStageDone(hook func(stage string)) {
	p.stageDone = hook
}

func (p *Pipeline) notify(stage string) {
	if p.stageDone != nil {
		p.stageDone(stage)
	}
}

//Run executes the pipeline over the given log file. A missing or
//invalid file fails the run; a missing scoring model degrades it with
//a warning instead, since the rule tier still produces alerts.
func (p *Pipeline) Run(ctx context.Context, path string) (result *Result, err error) {
	result = &Result{
		RunID:     uuid.New().String(),
		InputPath: path,
		StartedAt: time.Now().UTC(),
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			p.log.WithField("panic", recovered).Error("pipeline stage panicked")
			err = &Error{Stage: "internal", Reason: fmt.Sprint(recovered)}
			result.Elapsed = time.Since(result.StartedAt)
		}
	}()

	p.log.WithFields(log.Fields{
		"run_id": result.RunID,
		"path":   path,
	}).Info("pipeline run started")

	// stage 1: parse
	stageStart := time.Now()
	fileParser := parser.NewFileParser(p.conf.R.Hours.Location, p.log)
	parsed, err := fileParser.ParseFile(path)
	if err != nil {
		return result, err
	}
	result.TotalLogs = len(parsed.Records)
	result.SkippedRows = parsed.Skipped
	result.Timings.Parse = time.Since(stageStart)
	p.notify("parse")

	// stage 2: sessionize
	stageStart = time.Now()
	sessions := session.NewAggregator(p.conf, p.log).Aggregate(parsed.Records)
	result.SessionCount = len(sessions)
	result.Timings.Aggregate = time.Since(stageStart)
	p.notify("sessionize")

	// stage 3: deterministic rules
	stageStart = time.Now()
	tier1 := rules.NewAnalyzer(p.conf, p.log).Analyze(sessions)
	result.Tier1Flagged = len(tier1)
	result.Timings.Tier1 = time.Since(stageStart)
	p.notify("rules")

	// stage 4: anomaly scoring. Sessions where every rule method fired
	// skip the scorer; the rules tier is already certain about them.
	stageStart = time.Now()
	var tier2 []*scoring.Finding
	scorer, err := scoring.NewScorer(p.conf, p.log)
	switch {
	case err == nil:
		tier2 = scorer.Score(sessions, rules.CriticalKeys(tier1))
	case forest.IsModelUnavailable(err):
		warning := fmt.Sprintf("anomaly scoring skipped: %s", err.Error())
		p.log.Warn(warning)
		result.Warnings = append(result.Warnings, warning)
	default:
		return result, err
	}
	result.Tier2Flagged = len(tier2)
	result.Timings.Tier2 = time.Since(stageStart)
	p.notify("scoring")

	// stage 5: merge into one anomaly per session and rank
	result.Anomalies = merge(p.conf, tier1, tier2)
	p.notify("merge")

	// stage 6: narrative synthesis
	stageStart = time.Now()
	synthesizer := narrative.NewSynthesizer(p.conf, p.log)
	evidences := make([]*narrative.Evidence, len(result.Anomalies))
	for i, anomaly := range result.Anomalies {
		evidences[i] = &narrative.Evidence{
			Key:          anomaly.Key,
			Username:     anomaly.Username,
			RequestCount: anomaly.RequestCount,
			Confidence:   anomaly.Confidence,
			Severity:     anomaly.Severity,
			Tier1:        anomaly.Tier1,
			Tier2:        anomaly.Tier2,
		}
	}
	explanations := synthesizer.Synthesize(ctx, evidences)
	for i, anomaly := range result.Anomalies {
		anomaly.Explanation = explanations[i]
	}
	result.Tier3Explained = len(explanations)
	result.Timings.Tier3 = time.Since(stageStart)
	p.notify("narrative")

	result.Elapsed = time.Since(result.StartedAt)
	p.log.WithFields(log.Fields{
		"run_id":    result.RunID,
		"sessions":  result.SessionCount,
		"anomalies": len(result.Anomalies),
		"elapsed":   result.Elapsed.String(),
	}).Info("pipeline run finished")

	return result, nil
}
