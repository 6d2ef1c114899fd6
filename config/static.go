package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"time"

	"github.com/creasty/defaults"
	yaml "gopkg.in/yaml.v2"
)

type (
	//StaticCfg is the container for other static config sections
	StaticCfg struct {
		MongoDB      MongoDBStaticCfg     `yaml:"MongoDB"`
		Log          LogStaticCfg         `yaml:"LogConfig"`
		Hours        HoursStaticCfg       `yaml:"BusinessHours"`
		Rules        RulesStaticCfg       `yaml:"Rules"`
		Scoring      ScoringStaticCfg     `yaml:"Scoring"`
		ThreatIntel  ThreatIntelStaticCfg `yaml:"ThreatIntel"`
		Narrative    NarrativeStaticCfg   `yaml:"Narrative"`
		Pipeline     PipelineStaticCfg    `yaml:"Pipeline"`
		Version      string
		ExactVersion string
	}

	//MongoDBStaticCfg contains the means for connecting to MongoDB.
	//Persistence is optional: an empty connection string disables it
	//and the pipeline keeps everything in memory.
	MongoDBStaticCfg struct {
		ConnectionString string        `yaml:"ConnectionString" default:""`
		AuthMechanism    string        `yaml:"AuthenticationMechanism" default:""`
		SocketTimeout    time.Duration `yaml:"SocketTimeout" default:"2"`
		MetaDB           string        `yaml:"MetaDB" default:"SoteriaDatabase"`
		TLS              TLSStaticCfg  `yaml:"TLS"`
	}

	//TLSStaticCfg contains the means for connecting to MongoDB over TLS
	TLSStaticCfg struct {
		Enabled           bool   `yaml:"Enable" default:"false"`
		VerifyCertificate bool   `yaml:"VerifyCertificate" default:"false"`
		CAFile            string `yaml:"CAFile" default:""`
	}

	//LogStaticCfg contains the configuration for logging
	LogStaticCfg struct {
		LogLevel       int    `yaml:"LogLevel" default:"2"`
		SoteriaLogPath string `yaml:"SoteriaLogPath" default:"$HOME/.soteria/logs"`
		LogToFile      bool   `yaml:"LogToFile" default:"false"`
		LogToDB        bool   `yaml:"LogToDB" default:"false"`
	}

	//HoursStaticCfg defines the business hours window used to compute
	//night ratios. Timestamps are normalized into Timezone before any
	//interval or night-hour math.
	HoursStaticCfg struct {
		Timezone string `yaml:"Timezone" default:"UTC"`
		DayStart int    `yaml:"DayStart" default:"8"`
		DayEnd   int    `yaml:"DayEnd" default:"20"`
	}

	//RulesStaticCfg is used to control the Tier 1 rule engine. Raising a
	//threshold always means fewer, higher precision flags.
	RulesStaticCfg struct {
		ZScoreThreshold float64 `yaml:"ZScoreThreshold" default:"3.0"`
		MaxAvgIntervalS float64 `yaml:"MaxAvgIntervalSeconds" default:"360"`
		MaxJitterS      float64 `yaml:"MaxJitterSeconds" default:"10"`
		IQRMultiplier   float64 `yaml:"IQRMultiplier" default:"1.5"`
		MinRequests     int     `yaml:"MinRequests" default:"10"`
	}

	//ScoringStaticCfg is used to control the Tier 2 anomaly scorer
	ScoringStaticCfg struct {
		ModelPath        string  `yaml:"ModelPath" default:"$HOME/.soteria/models/forest.json"`
		ConfidenceCutoff float64 `yaml:"ConfidenceCutoff" default:"0.70"`
		MinSessionSize   int     `yaml:"MinSessionSize" default:"30"`
		TopFeatures      int     `yaml:"TopFeatures" default:"3"`
	}

	//ThreatIntelStaticCfg controls the known bad domain registry.
	//Sessions to these domains never enter model training, and the
	//registry can be enriched from feeds when a database is configured.
	ThreatIntelStaticCfg struct {
		KnownBadDomains []string `yaml:"KnownBadDomains" default:"[\"malware-c2.ru\", \"botnet-cmd.cn\", \"evil-update.net\", \"payload-drop.xyz\", \"c2-handler.io\"]"`
		Database        string   `yaml:"Database" default:"soteria-ThreatIntel"`
		UseDNSBH        bool     `yaml:"MalwareDomains.com" default:"false"`
		DomainFeeds     []string `yaml:"CustomDomainFeeds"`
	}

	//NarrativeStaticCfg is used to control the Tier 3 narrative synthesizer
	NarrativeStaticCfg struct {
		Backend       string `yaml:"Backend" default:"template"`
		URL           string `yaml:"URL" default:""`
		Model         string `yaml:"Model" default:""`
		APIKeyEnv     string `yaml:"APIKeyEnv" default:"NARRATIVE_API_KEY"`
		TimeoutS      int    `yaml:"TimeoutSeconds" default:"15"`
		MaxConcurrent int    `yaml:"MaxConcurrent" default:"4"`
		Cache         string `yaml:"Cache" default:"memory"`
		RedisAddr     string `yaml:"RedisAddress" default:"localhost:6379"`
		CacheTTLHours int    `yaml:"CacheTTLHours" default:"24"`
	}

	//PipelineStaticCfg is used to control merging and ranking of the
	//final alert queue
	PipelineStaticCfg struct {
		OneMethodConfidence   float64 `yaml:"OneMethodConfidence" default:"0.50"`
		TwoMethodConfidence   float64 `yaml:"TwoMethodConfidence" default:"0.75"`
		ThreeMethodConfidence float64 `yaml:"ThreeMethodConfidence" default:"1.0"`
	}
)

//loadStaticConfig attempts to parse a config file
func loadStaticConfig(cfgPath string) (*StaticCfg, error) {
	var config = new(StaticCfg)

	if err := defaults.Set(config); err != nil {
		return config, err
	}

	if exists(cfgPath) {
		cfgFile, err := ioutil.ReadFile(cfgPath)
		if err != nil {
			return config, err
		}
		if err := parseStaticConfig(cfgFile, config); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read config: %s\n", err.Error())
			return config, err
		}
	}

	// set the socket time out in hours
	config.MongoDB.SocketTimeout *= time.Hour

	// grab the version constants set by the build process
	config.Version = Version
	config.ExactVersion = ExactVersion

	return config, nil
}

//parseStaticConfig loads the yaml into the static config struct and
//expands environment variables in string fields
func parseStaticConfig(data []byte, config *StaticCfg) error {
	err := yaml.Unmarshal(data, config)
	if err != nil {
		return err
	}

	// expand env variables, config is a pointer
	// so we have to call elem on the reflect value
	expandConfig(reflect.ValueOf(config).Elem())
	return nil
}
