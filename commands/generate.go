package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/soteria-soc/soteria/pkg/datagen"
	"github.com/soteria-soc/soteria/resources"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:      "generate",
		Usage:     "Generate a synthetic proxy log with optional injected beacon channels",
		ArgsUsage: "<outfile>",
		Flags: []cli.Flag{
			ConfigFlag,
			cli.IntFlag{
				Name:  "users, u",
				Usage: "simulate `USERS` employees",
				Value: 50,
			},
			cli.IntFlag{
				Name:  "days, d",
				Usage: "generate `DAYS` days of traffic",
				Value: 14,
			},
			cli.Int64Flag{
				Name:  "seed",
				Usage: "seed the generator for reproducible output",
				Value: 42,
			},
			cli.BoolFlag{
				Name:  "clean",
				Usage: "skip beacon injection, producing a training baseline",
			},
			cli.StringFlag{
				Name:  "ground-truth, g",
				Usage: "also write the injected anomaly labels to `FILE`",
				Value: "",
			},
		},
		Action: generate,
	}

	bootstrapCommands(command)
}

func generate(c *cli.Context) error {
	outfile := c.Args().Get(0)
	if outfile == "" {
		return cli.NewExitError("Specify an output file", -1)
	}
	res := resources.InitResources(c.String("config"))

	location := res.Config.R.Hours.Location
	days := c.Int("days")
	opts := datagen.Options{
		Users:    c.Int("users"),
		Days:     days,
		Seed:     c.Int64("seed"),
		Beacons:  !c.Bool("clean"),
		Start:    time.Now().In(location).AddDate(0, 0, -days).Truncate(24 * time.Hour),
		Location: location,
	}

	entries := datagen.Generate(opts)
	if err := datagen.WriteCSV(outfile, entries); err != nil {
		res.Log.Error(err)
		return cli.NewExitError(err, -1)
	}

	anomalies := 0
	for _, entry := range entries {
		if entry.Anomaly {
			anomalies++
		}
	}
	fmt.Fprintf(os.Stdout, "\t[-] Wrote %d log lines (%d injected anomalies) to %s\n",
		len(entries), anomalies, outfile)

	if truthFile := c.String("ground-truth"); truthFile != "" {
		if err := datagen.WriteGroundTruth(truthFile, entries); err != nil {
			res.Log.Error(err)
			return cli.NewExitError(err, -1)
		}
		fmt.Fprintf(os.Stdout, "\t[-] Wrote ground truth labels to %s\n", truthFile)
	}
	return nil
}
