package command

import (
	"os"

	"github.com/common-fate/canvas"
	"github.com/dominikbraun/graph/draw"
	"github.com/urfave/cli/v2"
)

var DOT = cli.Command{
	Name:  "dot",
	Usage: "print the workflow graph in Graphviz DOT format",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "issues", Usage: "shade nodes which have validation issues"},
	}, fileFlags...),
	Action: func(c *cli.Context) error {
		s, err := load(c)
		if err != nil {
			return err
		}

		if !c.Bool("issues") {
			return s.Workflow.DOT(os.Stdout)
		}

		g, err := s.Workflow.Graph()
		if err != nil {
			return err
		}
		err = canvas.HighlightIssues(g, s.Workflow.Validation())
		if err != nil {
			return err
		}
		return draw.DOT(g, os.Stdout, draw.GraphAttribute("rankdir", "LR"))
	},
}
