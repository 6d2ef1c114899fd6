package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/soteria-soc/soteria/database"
	"github.com/soteria-soc/soteria/pkg/pipeline"
	"github.com/soteria-soc/soteria/resources"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
)

func init() {
	command := cli.Command{
		Name:      "analyze",
		Usage:     "Triage a proxy log export into a ranked, explained alert queue",
		ArgsUsage: "<logfile>",
		Flags: []cli.Flag{
			ConfigFlag,
			humanFlag,
			delimFlag,
			limitFlag,
			cli.BoolFlag{
				Name:  "store, s",
				Usage: "persist the run and its alerts to the configured database",
			},
		},
		Action: analyze,
	}

	bootstrapCommands(command)
}

func analyze(c *cli.Context) error {
	logfile := c.Args().Get(0)
	if logfile == "" {
		return cli.NewExitError("Specify a log file", -1)
	}
	res := resources.InitResources(c.String("config"))

	triage := pipeline.NewPipeline(res.Config, res.Log)

	progress := mpb.New(mpb.WithWidth(20))
	bar := progress.AddBar(int64(pipeline.StageCount),
		mpb.PrependDecorators(
			decor.Name("\t[-] Analyzing "+logfile+":", decor.WC{W: 30, C: decor.DidentRight}),
			decor.CountersNoUnit(" %d / %d ", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	triage.OnStageDone(func(string) { bar.IncrBy(1) })

	result, err := triage.Run(context.Background(), logfile)
	if err != nil {
		// finalize the bar where it stopped so Wait does not block
		bar.SetTotal(bar.Current(), true)
		progress.Wait()
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}
	progress.Wait()

	printRunSummary(result)

	if c.Bool("store") {
		if res.DB == nil {
			return cli.NewExitError("No database configured; set MongoDB.ConnectionString", -1)
		}
		if err := res.DB.StoreRun(runRecord(result), alertRecords(result)); err != nil {
			res.Log.Error(err)
			return cli.NewExitError(err, -1)
		}
		fmt.Fprintf(os.Stdout, "\t[-] Stored run %s\n", result.RunID)
	}

	anomalies := result.Anomalies
	if limit := c.Int("limit"); limit > 0 && len(anomalies) > limit {
		anomalies = anomalies[:limit]
	}

	if len(anomalies) == 0 {
		fmt.Fprintf(os.Stdout, "\t[-] No anomalies found in %s\n", logfile)
		return nil
	}

	if c.Bool("human-readable") {
		showAnomaliesHuman(anomalies)
		showNarratives(anomalies)
		return nil
	}
	showAnomaliesDelim(anomalies, c.String("delimiter"))
	return nil
}

//runRecord flattens a pipeline result into its storable summary
func runRecord(result *pipeline.Result) database.RunRecord {
	return database.RunRecord{
		RunID:        result.RunID,
		InputPath:    result.InputPath,
		StartedAt:    result.StartedAt,
		ElapsedMS:    result.Elapsed.Milliseconds(),
		TotalLogs:    result.TotalLogs,
		SkippedRows:  result.SkippedRows,
		SessionCount: result.SessionCount,
		Tier1Flagged: result.Tier1Flagged,
		Tier2Flagged: result.Tier2Flagged,
		Warnings:     result.Warnings,
	}
}

//alertRecords flattens the ranked alert queue for storage
func alertRecords(result *pipeline.Result) []database.AlertRecord {
	alerts := make([]database.AlertRecord, 0, len(result.Anomalies))
	for rank, anomaly := range result.Anomalies {
		alert := database.AlertRecord{
			RunID:        result.RunID,
			Rank:         rank + 1,
			Actor:        anomaly.Key.Actor,
			Domain:       anomaly.Key.Domain,
			Username:     anomaly.Username,
			RequestCount: anomaly.RequestCount,
			Tier1Fired:   anomaly.Tier1Fired,
			Tier2Fired:   anomaly.Tier2Fired,
			Confidence:   anomaly.Confidence,
			Severity:     anomaly.Severity.String(),
		}
		if anomaly.Tier1 != nil {
			alert.Methods = anomaly.Tier1.Methods
		}
		if anomaly.Tier2 != nil {
			alert.TopFeatures = anomaly.Tier2.TopFeatures
		}
		if anomaly.Explanation != nil {
			alert.ThreatSummary = anomaly.Explanation.ThreatSummary
			alert.WhatHappened = anomaly.Explanation.WhatHappened
			alert.WhySuspicious = anomaly.Explanation.WhySuspicious
			alert.RecommendedAction = anomaly.Explanation.RecommendedAction
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

func printRunSummary(result *pipeline.Result) {
	fmt.Fprintf(os.Stdout,
		"\t[-] %d log lines (%d skipped), %d sessions, %d rule hits, %d anomaly scores, %d alerts in %s\n",
		result.TotalLogs, result.SkippedRows, result.SessionCount,
		result.Tier1Flagged, result.Tier2Flagged, len(result.Anomalies),
		result.Elapsed.Round(timeRounding),
	)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stdout, "\t[!] %s\n", warning)
	}
}

var anomalyHeader = []string{
	"Rank", "Confidence", "Severity", "Source IP", "Domain", "User",
	"Requests", "Rules Fired", "ML Score",
}

func anomalyRow(rank int, anomaly *pipeline.Anomaly) []string {
	methods := ""
	if anomaly.Tier1 != nil {
		methods = strings.Join(anomaly.Tier1.Methods, " ")
	}
	mlScore := ""
	if anomaly.Tier2 != nil {
		mlScore = f(anomaly.Tier2.AnomalyScore)
	}
	return []string{
		i(int64(rank)), f(anomaly.Confidence), anomaly.Severity.String(),
		anomaly.Key.Actor, anomaly.Key.Domain, anomaly.Username,
		i(int64(anomaly.RequestCount)), methods, mlScore,
	}
}

func showAnomaliesHuman(anomalies []*pipeline.Anomaly) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(anomalyHeader)
	for rank, anomaly := range anomalies {
		table.Append(anomalyRow(rank+1, anomaly))
	}
	table.Render()
}

func showAnomaliesDelim(anomalies []*pipeline.Anomaly, delim string) {
	fmt.Println(strings.Join(anomalyHeader, delim))
	for rank, anomaly := range anomalies {
		fmt.Println(strings.Join(anomalyRow(rank+1, anomaly), delim))
	}
}

func showNarratives(anomalies []*pipeline.Anomaly) {
	for rank, anomaly := range anomalies {
		if anomaly.Explanation == nil {
			continue
		}
		fmt.Fprintf(os.Stdout, "\n%d. %s\n", rank+1, anomaly.Explanation.ThreatSummary)
		fmt.Fprintf(os.Stdout, "   What happened: %s\n", anomaly.Explanation.WhatHappened)
		fmt.Fprintf(os.Stdout, "   Why suspicious: %s\n", anomaly.Explanation.WhySuspicious)
		fmt.Fprintf(os.Stdout, "   Recommended action: %s\n", anomaly.Explanation.RecommendedAction)
	}
}
