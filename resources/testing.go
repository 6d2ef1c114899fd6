package resources

import (
	"io/ioutil"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
)

//InitTestResources creates a Resources bundle around the hard coded
//testing config with a silent logger and no database handle
func InitTestResources() *Resources {
	conf, err := config.LoadTestingConfig()
	if err != nil {
		panic(err)
	}

	logger := log.New()
	logger.Out = ioutil.Discard

	return &Resources{
		Config: conf,
		Log:    logger,
	}
}
