package config

import (
	"github.com/creasty/defaults"
)

type (
	//TableCfg is the container for other table config sections
	TableCfg struct {
		Log   LogTableCfg
		Runs  RunsTableCfg
		Alert AlertTableCfg
	}

	//LogTableCfg contains the configuration for logging
	LogTableCfg struct {
		SoteriaLogTable string `default:"logs"`
	}

	//RunsTableCfg contains the names of the pipeline run collections
	RunsTableCfg struct {
		RunsTable string `default:"runs"`
	}

	//AlertTableCfg contains the names of the alert queue collections
	AlertTableCfg struct {
		AlertsTable string `default:"alerts"`
	}
)

//initTableConfig initializes the table config to the default values
func initTableConfig(config *TableCfg) error {
	return defaults.Set(config)
}
