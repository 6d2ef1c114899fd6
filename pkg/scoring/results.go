package scoring

import (
	"github.com/soteria-soc/soteria/pkg/data"
	"github.com/soteria-soc/soteria/pkg/features"
)

//Finding reports a session whose feature vector scored above the
//anomaly confidence cutoff
type Finding struct {
	Key          data.SessionKey  `bson:"key" json:"key"`
	Username     string           `bson:"username" json:"username"`
	Confidence   float64          `bson:"confidence" json:"confidence"`
	AnomalyScore float64          `bson:"anomaly_score" json:"anomaly_score"`
	Vector       *features.Vector `bson:"feature_vector" json:"feature_vector"`
	TopFeatures  []string         `bson:"top_features" json:"top_features"`
	Description  string           `bson:"description" json:"description"`
}
