package forest

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

//ArtifactVersion is bumped whenever the serialized layout changes
const ArtifactVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//Artifact bundles everything the scorer needs to apply a fitted model:
//the forest itself, the feature scaler, and the feature ordering the
//model was trained on. Read-only after load.
type Artifact struct {
	Version      int       `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	Samples      int       `json:"samples"`
	FeatureNames []string  `json:"feature_names"`
	Scaler       *Scaler   `json:"scaler"`
	Forest       *Forest   `json:"forest"`
}

//ModelUnavailableError reports a missing or corrupt model artifact.
//This is fatal to Tier 2 only; the pipeline degrades to rule-based
//results rather than aborting the run.
type ModelUnavailableError struct {
	Path   string
	Reason string
}

func (e *ModelUnavailableError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("model artifact unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("model artifact unavailable at %s: %s", e.Path, e.Reason)
}

//IsModelUnavailable checks whether err is a ModelUnavailableError
func IsModelUnavailable(err error) bool {
	_, ok := err.(*ModelUnavailableError)
	return ok
}

//Save serializes the artifact to disk, creating parent directories as
//needed
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	contents, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, contents, 0644)
}

//LoadArtifact reads and validates a fitted model from disk
func LoadArtifact(path string) (*Artifact, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &ModelUnavailableError{Path: path, Reason: err.Error()}
	}

	artifact := &Artifact{}
	if err := json.Unmarshal(contents, artifact); err != nil {
		return nil, &ModelUnavailableError{Path: path, Reason: "corrupt artifact: " + err.Error()}
	}

	if artifact.Forest == nil || artifact.Scaler == nil {
		return nil, &ModelUnavailableError{Path: path, Reason: "artifact is missing the forest or scaler"}
	}
	if artifact.Version != ArtifactVersion {
		return nil, &ModelUnavailableError{
			Path:   path,
			Reason: fmt.Sprintf("artifact version %d does not match expected version %d", artifact.Version, ArtifactVersion),
		}
	}
	return artifact, nil
}
