package resources

import (
	"fmt"
	"os"

	"github.com/activecm/mgorus"
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
	"github.com/soteria-soc/soteria/database"
)

type (
	//Resources provides a data structure for passing system resources
	Resources struct {
		Config *config.Config
		Log    *log.Logger
		DB     *database.DB
	}
)

//InitResources grabs the configuration file and intitializes the configuration data
//returning a *Resources object which has all of the necessary configuration information
func InitResources(userConfig string) *Resources {
	conf, err := config.LoadConfig(userConfig)
	if err != nil {
		fmt.Fprintf(os.Stdout, "Failed to config: %s\n", err.Error())
		os.Exit(-1)
	}

	// Fire up the logging system
	logger := initLogger(&conf.S.Log)
	if conf.S.Log.LogToFile {
		if err := addFileLogger(logger, conf.S.Log.SoteriaLogPath); err != nil {
			fmt.Fprintf(os.Stdout, "Failed to enable file logging: %s\n", err.Error())
		}
	}

	// Persistence is optional: only dial MongoDB when a connection
	// string has been configured
	var db *database.DB
	if conf.S.MongoDB.ConnectionString != "" {
		db, err = database.NewDB(conf, logger)
		if err != nil {
			fmt.Printf("Failed to connect to database: %s\n", err.Error())
			os.Exit(-1)
		}

		//Begin logging to the metadatabase
		if conf.S.Log.LogToDB {
			logger.Hooks.Add(
				mgorus.NewHookerFromSession(
					db.Session, conf.S.MongoDB.MetaDB, conf.T.Log.SoteriaLogTable,
				),
			)
		}
	}

	//bundle up the system resources
	r := &Resources{
		Config: conf,
		Log:    logger,
		DB:     db,
	}
	return r
}
