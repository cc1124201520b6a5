package command

import (
	"errors"

	"github.com/common-fate/canvas"
	"github.com/common-fate/clio"
	"github.com/urfave/cli/v2"
)

var Validate = cli.Command{
	Name:  "validate",
	Usage: "report structural and rule problems in a workflow",
	Flags: fileFlags,
	Action: func(c *cli.Context) error {
		s, err := load(c)
		if err != nil {
			return err
		}

		clio.Infof("%s", s.Workflow.Stats())

		report := s.Workflow.Validation()
		for _, i := range report.Issues {
			if i.Severity == canvas.Error {
				clio.Errorf("%s", i)
			} else {
				clio.Warnf("%s", i)
			}
		}
		if !report.Valid {
			return errors.New("workflow is invalid")
		}

		clio.Successf("workflow is valid")
		return nil
	},
}
