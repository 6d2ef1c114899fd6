package commands

import (
	"fmt"

	"github.com/soteria-soc/soteria/config"
	"github.com/urfave/cli"
)

func init() {
	command := cli.Command{
		Name:   "version",
		Usage:  "Show soteria version",
		Action: showVersion,
	}

	bootstrapCommands(command)
}

func showVersion(c *cli.Context) error {
	fmt.Println(config.ExactVersion)
	return nil
}
