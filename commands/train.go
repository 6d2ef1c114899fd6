package commands

import (
	"fmt"
	"os"

	"github.com/soteria-soc/soteria/pkg/features"
	"github.com/soteria-soc/soteria/pkg/scoring"
	"github.com/soteria-soc/soteria/pkg/threatintel"
	"github.com/soteria-soc/soteria/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:      "train",
		Usage:     "Fit the anomaly scoring model on a baseline proxy log",
		ArgsUsage: "<logfile>",
		Flags: []cli.Flag{
			ConfigFlag,
			cli.StringFlag{
				Name:  "output, o",
				Usage: "write the model artifact to `FILE` instead of the configured path",
				Value: "",
			},
			cli.BoolFlag{
				Name:  "feeds",
				Usage: "check baseline domains against the configured threat intel feeds before training",
			},
		},
		Action: train,
	}

	bootstrapCommands(command)
}

func train(c *cli.Context) error {
	logfile := c.Args().Get(0)
	if logfile == "" {
		return cli.NewExitError("Specify a baseline log file", -1)
	}
	res := resources.InitResources(c.String("config"))

	output := c.String("output")
	if output == "" {
		output = res.Config.S.Scoring.ModelPath
	}
	if output == "" {
		return cli.NewExitError("No model path configured; set Scoring.ModelPath or pass --output", -1)
	}

	vectors, err := scoring.ExtractBaseline(res.Config, res.Log, logfile)
	if err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}

	intel := threatintel.NewRegistry(res.Config)
	if c.Bool("feeds") {
		if res.Config.S.MongoDB.ConnectionString == "" {
			return cli.NewExitError("Feed enrichment needs a database; set MongoDB.ConnectionString", -1)
		}
		if err := threatintel.Enrich(res.Config, res.Log, intel, baselineDomains(vectors)); err != nil {
			res.Log.Error(err)
			return cli.NewExitError(err, -1)
		}
	}

	artifact, err := scoring.TrainOnVectors(res.Config, res.Log, vectors, intel)
	if err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}

	if err := artifact.Save(output); err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}

	fmt.Fprintf(os.Stdout,
		"\t[-] Trained on %d sessions from %s\n\t[-] Model written to %s\n",
		artifact.Samples, logfile, output,
	)
	return nil
}

//baselineDomains collects the distinct destination domains seen in
//the baseline
func baselineDomains(vectors []*features.Vector) []string {
	seen := make(map[string]struct{}, len(vectors))
	var domains []string
	for _, vector := range vectors {
		if _, ok := seen[vector.Key.Domain]; ok {
			continue
		}
		seen[vector.Key.Domain] = struct{}{}
		domains = append(domains, vector.Key.Domain)
	}
	return domains
}
