package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/activecm/mgosec"
	"github.com/blang/semver"
)

type (
	//RunningCfg holds configuration options that are parsed at run time
	RunningCfg struct {
		MongoDB   MongoDBRunningCfg
		Hours     HoursRunningCfg
		Narrative NarrativeRunningCfg
		Version   semver.Version
	}

	//MongoDBRunningCfg holds parsed information for connecting to MongoDB
	MongoDBRunningCfg struct {
		AuthMechanismParsed mgosec.AuthMechanism
		TLS                 struct {
			TLSConfig *tls.Config
		}
	}

	//HoursRunningCfg holds the parsed business hours timezone
	HoursRunningCfg struct {
		Location *time.Location
	}

	//NarrativeRunningCfg holds parsed narrative backend settings
	NarrativeRunningCfg struct {
		Timeout  time.Duration
		CacheTTL time.Duration
		APIKey   string
	}
)

//loadRunningConfig attempts to deserialize data in the static config
func loadRunningConfig(config *StaticCfg) (*RunningCfg, error) {
	var outConfig = new(RunningCfg)
	var err error

	//parse the tls configuration
	if config.MongoDB.TLS.Enabled {
		tlsConf := &tls.Config{}
		if !config.MongoDB.TLS.VerifyCertificate {
			tlsConf.InsecureSkipVerify = true
		}
		if len(config.MongoDB.TLS.CAFile) > 0 {
			pem, err2 := ioutil.ReadFile(config.MongoDB.TLS.CAFile)
			err = err2
			if err != nil {
				fmt.Println("[!] Could not read MongoDB CA file")
			} else {
				tlsConf.RootCAs = x509.NewCertPool()
				tlsConf.RootCAs.AppendCertsFromPEM(pem)
			}
		}
		outConfig.MongoDB.TLS.TLSConfig = tlsConf
	}

	//parse out the mongo authentication mechanism
	authMechanism, err := mgosec.ParseAuthMechanism(
		config.MongoDB.AuthMechanism,
	)
	if err != nil {
		authMechanism = mgosec.None
		fmt.Println("[!] Could not parse MongoDB authentication mechanism")
	}
	outConfig.MongoDB.AuthMechanismParsed = authMechanism

	//resolve the business hours timezone
	loc, err := time.LoadLocation(config.Hours.Timezone)
	if err != nil {
		return outConfig, fmt.Errorf("could not load timezone %q: %s", config.Hours.Timezone, err.Error())
	}
	outConfig.Hours.Location = loc

	outConfig.Narrative.Timeout = time.Duration(config.Narrative.TimeoutS) * time.Second
	outConfig.Narrative.CacheTTL = time.Duration(config.Narrative.CacheTTLHours) * time.Hour
	outConfig.Narrative.APIKey = os.Getenv(config.Narrative.APIKeyEnv)

	outConfig.Version, err = semver.ParseTolerant(config.Version)
	if err != nil {
		// a dev build without ldflags shouldn't block a run
		outConfig.Version = semver.Version{}
		err = nil
	}

	return outConfig, err
}
