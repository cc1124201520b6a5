package main

import (
	"log"
	"os"

	"github.com/common-fate/canvas/cmd/command"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "canvas",
		Usage: "inspect workflow diagrams exported from the canvas editor",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "log editor operations to stderr"},
		},
		Commands: []*cli.Command{
			&command.Validate,
			&command.DOT,
			&command.Path,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
