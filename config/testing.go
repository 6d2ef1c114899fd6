package config

import (
	"time"

	"github.com/creasty/defaults"
)

const testConfig = `
MongoDB:
    ConnectionString: null
    AuthenticationMechanism: null
    SocketTimeout: 2
    MetaDB: Soteria-TEST-Database
LogConfig:
    LogLevel: 3
    SoteriaLogPath: null
    LogToFile: false
    LogToDB: false
BusinessHours:
    Timezone: UTC
    DayStart: 8
    DayEnd: 20
Rules:
    ZScoreThreshold: 3.0
    MaxAvgIntervalSeconds: 360
    MaxJitterSeconds: 10
    IQRMultiplier: 1.5
    MinRequests: 10
Scoring:
    ModelPath: null
    ConfidenceCutoff: 0.70
    MinSessionSize: 30
    TopFeatures: 3
Narrative:
    Backend: template
    TimeoutSeconds: 2
    MaxConcurrent: 2
    Cache: memory
Pipeline:
    OneMethodConfidence: 0.50
    TwoMethodConfidence: 0.75
    ThreeMethodConfidence: 1.0
`

//LoadTestingConfig loads the hard coded testing config
func LoadTestingConfig() (*Config, error) {
	config := &Config{}

	// Initialize table config to the default values
	if err := initTableConfig(&config.T); err != nil {
		return nil, err
	}

	// Initialize static config to the default values
	if err := defaults.Set(&config.S); err != nil {
		return nil, err
	}

	// Deserialize the yaml literal into the static config
	if err := parseStaticConfig([]byte(testConfig), &config.S); err != nil {
		return nil, err
	}

	config.S.MongoDB.SocketTimeout *= time.Hour
	config.S.Version = "v0.0.0+testing"
	config.S.ExactVersion = "v0.0.0+testing"

	// Use the static config to initialize the running config
	running, err := loadRunningConfig(&config.S)
	if err != nil {
		return nil, err
	}
	config.R = *running

	return config, nil
}
