package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/soteria-soc/soteria/database"
	"github.com/soteria-soc/soteria/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:  "show-alerts",
		Usage: "Print stored alerts from previous analysis runs",
		Flags: []cli.Flag{
			ConfigFlag,
			humanFlag,
			delimFlag,
			limitFlag,
			cli.StringFlag{
				Name:  "run, r",
				Usage: "only print alerts from `RUN_ID`",
				Value: "",
			},
			cli.BoolFlag{
				Name:  "latest",
				Usage: "only print alerts from the most recent run",
			},
		},
		Action: showAlerts,
	}

	bootstrapCommands(command)
}

func showAlerts(c *cli.Context) error {
	res := resources.InitResources(c.String("config"))
	if res.DB == nil {
		return cli.NewExitError("No database configured; set MongoDB.ConnectionString", -1)
	}

	runID := c.String("run")
	if c.Bool("latest") {
		run, err := res.DB.LatestRun()
		if err != nil {
			res.Log.Error(err)
			return cli.NewExitError("No stored runs were found", -1)
		}
		runID = run.RunID
	}

	alerts, err := res.DB.ReadAlerts(runID, c.Int("limit"))
	if err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}
	if len(alerts) == 0 {
		return cli.NewExitError("No alerts were found", -1)
	}

	if c.Bool("human-readable") {
		showAlertsHuman(alerts)
		return nil
	}
	showAlertsDelim(alerts, c.String("delimiter"))
	return nil
}

var alertHeader = []string{
	"Run", "Rank", "Confidence", "Severity", "Source IP", "Domain", "User", "Summary",
}

func alertRow(alert database.AlertRecord) []string {
	return []string{
		shortRunID(alert.RunID), i(int64(alert.Rank)), f(alert.Confidence),
		alert.Severity, alert.Actor, alert.Domain, alert.Username,
		alert.ThreatSummary,
	}
}

func showAlertsHuman(alerts []database.AlertRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(alertHeader)
	for _, alert := range alerts {
		table.Append(alertRow(alert))
	}
	table.Render()
}

func showAlertsDelim(alerts []database.AlertRecord, delim string) {
	fmt.Println(strings.Join(alertHeader, delim))
	for _, alert := range alerts {
		fmt.Println(strings.Join(alertRow(alert), delim))
	}
}

//shortRunID trims a UUID down to its first group for display
func shortRunID(runID string) string {
	if idx := strings.Index(runID, "-"); idx > 0 {
		return runID[:idx]
	}
	return runID
}
