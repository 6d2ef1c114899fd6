package scoring

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/parser"
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/features"
	"github.com/soteria-soc/soteria/pkg/forest"
	"github.com/soteria-soc/soteria/pkg/session"
	"github.com/soteria-soc/soteria/pkg/threatintel"
)

//DefaultTrainSeed fixes the forest's randomness so retraining on the
//same baseline reproduces the same model
const DefaultTrainSeed = 42

//ExtractBaseline parses a baseline log file and returns one feature
//vector per scoreable session
func ExtractBaseline(conf *config.Config, logger *log.Logger, path string) ([]*features.Vector, error) {
	fileParser := parser.NewFileParser(conf.R.Hours.Location, logger)
	parsed, err := fileParser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	sessions := session.NewAggregator(conf, logger).Aggregate(parsed.Records)
	return features.NewExtractor(conf, logger).Extract(sessions, make(data.KeySet)), nil
}

//TrainOnVectors fits a new isolation forest on the baseline vectors.
//Sessions to domains in the intel registry are dropped before fitting
//so a compromised baseline cannot teach the model that beaconing is
//normal. The scaler is fitted on the same matrix the forest trains
//on, and both travel together in the returned artifact.
func TrainOnVectors(conf *config.Config, logger *log.Logger, vectors []*features.Vector, intel *threatintel.Registry) (*forest.Artifact, error) {
	trainVectors := make([]*features.Vector, 0, len(vectors))
	for _, vector := range vectors {
		if intel != nil && intel.Contains(vector.Key.Domain) {
			continue
		}
		trainVectors = append(trainVectors, vector)
	}
	if removed := len(vectors) - len(trainVectors); removed > 0 {
		logger.WithFields(log.Fields{
			"removed": removed,
		}).Info("dropped known bad domain sessions from the baseline")
	}
	matrix := features.ToMatrix(trainVectors)

	if len(matrix) == 0 {
		return nil, &forest.ModelUnavailableError{
			Reason: "no clean sessions large enough to train on",
		}
	}

	scaler, err := forest.FitScaler(matrix)
	if err != nil {
		return nil, err
	}
	fitted, err := forest.Train(scaler.TransformAll(matrix), forest.DefaultTrees, forest.DefaultSubsample, DefaultTrainSeed)
	if err != nil {
		return nil, err
	}

	artifact := &forest.Artifact{
		Version:      forest.ArtifactVersion,
		TrainedAt:    time.Now().UTC(),
		Samples:      len(matrix),
		FeatureNames: features.Names,
		Scaler:       scaler,
		Forest:       fitted,
	}

	logger.WithFields(log.Fields{
		"samples": artifact.Samples,
		"trees":   forest.DefaultTrees,
	}).Info("isolation forest trained")

	return artifact, nil
}

//TrainModel fits a new isolation forest on the sessions found in a
//baseline log file
func TrainModel(conf *config.Config, logger *log.Logger, path string, intel *threatintel.Registry) (*forest.Artifact, error) {
	vectors, err := ExtractBaseline(conf, logger, path)
	if err != nil {
		return nil, err
	}
	return TrainOnVectors(conf, logger, vectors, intel)
}
