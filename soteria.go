package main

import (
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/soteria-soc/soteria/commands"
	"github.com/soteria-soc/soteria/config"
	"github.com/urfave/cli"
)

// Entry point of soteria
func main() {
	// pick up NARRATIVE_API_KEY and friends from a local .env if present
	godotenv.Load()

	app := cli.NewApp()
	app.Name = "soteria"
	app.Usage = "Triage web proxy logs into a ranked, explained alert queue."
	app.Version = config.Version

	app.Commands = commands.Commands()

	runtime.GOMAXPROCS(runtime.NumCPU())
	app.Run(os.Args)
}
