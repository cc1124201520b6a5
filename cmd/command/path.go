package command

import (
	"fmt"
	"strings"

	"github.com/common-fate/canvas"
	"github.com/common-fate/clio"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var Path = cli.Command{
	Name:  "path",
	Usage: "find how one node leads to another",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "the id of the first node", Required: true},
		&cli.StringFlag{Name: "to", Usage: "the id of the last node", Required: true},
		&cli.BoolFlag{Name: "shortest", Usage: "find the path with the fewest connections"},
	}, fileFlags...),
	Action: func(c *cli.Context) error {
		s, err := load(c)
		if err != nil {
			return err
		}
		from, to := c.String("from"), c.String("to")

		var path []string
		var ok bool
		if c.Bool("shortest") {
			path, ok = s.Workflow.ShortestPath(from, to)
		} else {
			path, ok = s.Connections.FindConnectionPath(from, to)
		}
		if !ok {
			return errors.Errorf("no path from %s to %s", from, to)
		}

		names := make([]string, len(path))
		for i, id := range path {
			n, _ := s.Workflow.Node(id)
			names[i] = fmt.Sprintf("%s (%s)", n.Name, id)
		}
		clio.Infof("%d connections", len(path)-1)
		fmt.Println(strings.Join(names, " -> "))

		if _, err := s.Workflow.TopologicalOrder(); err != nil {
			clio.Warnf("the workflow contains a loop: %s", describeCycles(s))
		}
		return nil
	},
}

func describeCycles(s *canvas.Session) string {
	cycles, err := s.Workflow.Cycles()
	if err != nil {
		return err.Error()
	}
	var parts []string
	for _, c := range cycles {
		parts = append(parts, strings.Join(c, " -> "))
	}
	return strings.Join(parts, "; ")
}
