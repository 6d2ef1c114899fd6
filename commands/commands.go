package commands

import (
	"sort"

	"github.com/urfave/cli"
)

var allCommands []cli.Command

//bootstrapCommands registers a command with the command line frontend
func bootstrapCommands(commands ...cli.Command) {
	allCommands = append(allCommands, commands...)
}

//Commands provides all of the defined commands to the front end
func Commands() []cli.Command {
	sort.Slice(allCommands, func(i, j int) bool {
		return allCommands[i].Name < allCommands[j].Name
	})
	return allCommands
}

//below are some prebuilt flags commonly used across the commands

//ConfigFlag allows users to specify an alternative config file to use
var ConfigFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "Use a given `CONFIG_FILE` when running this command",
	Value: "",
}

//humanFlag prints results in a human readable table
var humanFlag = cli.BoolFlag{
	Name:  "human-readable, H",
	Usage: "print a human readable table",
}

//delimFlag specifies the delimiter for the delimited output
var delimFlag = cli.StringFlag{
	Name:  "delimiter, D",
	Usage: "use `DELIMITER` to separate the columns of the delimited output",
	Value: ",",
}

//limitFlag caps the number of alerts printed
var limitFlag = cli.IntFlag{
	Name:  "limit, l",
	Usage: "print at most `LIMIT` alerts, 0 prints everything",
	Value: 25,
}
