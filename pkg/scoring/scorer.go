package scoring

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/features"
	"github.com/soteria-soc/soteria/pkg/forest"
	"github.com/soteria-soc/soteria/pkg/session"
)

//Scorer applies a fitted isolation forest to session feature vectors.
//The loaded artifact is read-only; one Scorer may serve concurrent
//pipeline runs.
type Scorer struct {
	artifact  *forest.Artifact
	extractor *features.Extractor
	conf      *config.Config
	log       *log.Logger
}

//NewScorer loads the model artifact from the configured path
func NewScorer(conf *config.Config, logger *log.Logger) (*Scorer, error) {
	artifact, err := forest.LoadArtifact(conf.S.Scoring.ModelPath)
	if err != nil {
		return nil, err
	}
	return NewScorerFromArtifact(artifact, conf, logger)
}

//NewScorerFromArtifact wraps an already loaded artifact. The artifact's
//feature ordering must match the extractor's or the model would be fed
//garbage.
func NewScorerFromArtifact(artifact *forest.Artifact, conf *config.Config, logger *log.Logger) (*Scorer, error) {
	if len(artifact.FeatureNames) != len(features.Names) {
		return nil, &forest.ModelUnavailableError{
			Path:   conf.S.Scoring.ModelPath,
			Reason: "artifact feature count does not match the extractor",
		}
	}
	for i, name := range artifact.FeatureNames {
		if name != features.Names[i] {
			return nil, &forest.ModelUnavailableError{
				Path:   conf.S.Scoring.ModelPath,
				Reason: fmt.Sprintf("artifact feature %d is %q, expected %q", i, name, features.Names[i]),
			}
		}
	}

	return &Scorer{
		artifact:  artifact,
		extractor: features.NewExtractor(conf, logger),
		conf:      conf,
		log:       logger,
	}, nil
}

//Score extracts a feature vector for every non-skipped session, scores
//the batch, and returns findings above the confidence cutoff ordered by
//descending confidence
func (s *Scorer) Score(sessions map[data.SessionKey]*session.Session, skip data.KeySet) []*Finding {
	vectors := s.extractor.Extract(sessions, skip)
	if len(vectors) == 0 {
		return nil
	}

	scaled := s.artifact.Scaler.TransformAll(features.ToMatrix(vectors))
	rawScores := s.artifact.Forest.ScoreAll(scaled)
	confidences := normalizeScores(rawScores)

	cutoff := s.conf.S.Scoring.ConfidenceCutoff

	var findings []*Finding
	for i, vector := range vectors {
		if confidences[i] < cutoff {
			continue
		}

		topFeatures := s.topFeatures(scaled[i])
		findings = append(findings, &Finding{
			Key:          vector.Key,
			Username:     vector.Username,
			Confidence:   confidences[i],
			AnomalyScore: rawScores[i],
			Vector:       vector,
			TopFeatures:  topFeatures,
			Description:  describe(vector, confidences[i], topFeatures),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Confidence != findings[j].Confidence {
			return findings[i].Confidence > findings[j].Confidence
		}
		if findings[i].Key.Actor != findings[j].Key.Actor {
			return findings[i].Key.Actor < findings[j].Key.Actor
		}
		return findings[i].Key.Domain < findings[j].Key.Domain
	})

	s.log.WithFields(log.Fields{
		"scored":  len(vectors),
		"flagged": len(findings),
		"cutoff":  cutoff,
	}).Info("anomaly scorer finished")

	return findings
}

//normalizeScores maps the batch's raw anomaly scores onto [0, 1]
//confidences. A batch with no spread normalizes to all zeros rather
//than all ones.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	min, max := scores[0], scores[0]
	for _, score := range scores {
		if score < min {
			min = score
		}
		if score > max {
			max = score
		}
	}

	normalized := make([]float64, len(scores))
	if max == min {
		return normalized
	}
	for i, score := range scores {
		normalized[i] = (score - min) / (max - min)
	}
	return normalized
}

//topFeatures ranks features by how far the scaled value sits from the
//training mean (zero after scaling)
func (s *Scorer) topFeatures(scaled []float64) []string {
	indices := make([]int, len(scaled))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		da, db := abs(scaled[indices[a]]), abs(scaled[indices[b]])
		if da != db {
			return da > db
		}
		return indices[a] < indices[b]
	})

	n := s.conf.S.Scoring.TopFeatures
	if n > len(indices) {
		n = len(indices)
	}

	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = features.Names[indices[i]]
	}
	return top
}

//describe renders the analyst-facing one line description of a finding
func describe(vector *features.Vector, confidence float64, topFeatures []string) string {
	explanations := map[string]string{
		"interval_cv":        fmt.Sprintf("request interval CV=%.3f (machines are unnaturally regular)", vector.IntervalCV),
		"avg_interval_s":     fmt.Sprintf("avg interval %.1fs (consistent periodic pattern)", vector.AvgIntervalS),
		"bytes_sent_cv":      fmt.Sprintf("payload size CV=%.3f (near identical payloads per request)", vector.BytesSentCV),
		"unique_paths_ratio": fmt.Sprintf("path diversity=%.3f (hitting the same endpoint repeatedly)", vector.UniquePathsRatio),
		"night_ratio":        fmt.Sprintf("night ratio=%.2f of activity outside business hours", vector.NightRatio),
		"request_count":      fmt.Sprintf("request count=%.0f (unusually high volume)", vector.RequestCount),
	}

	signals := make([]string, 0, len(topFeatures))
	for _, name := range topFeatures {
		if explanation, ok := explanations[name]; ok {
			signals = append(signals, explanation)
		}
	}

	return fmt.Sprintf("%s flagged with %.1f%% confidence. Top signals: %s",
		vector.Key.String(), confidence*100, strings.Join(signals, "; "))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
