package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/common-fate/canvas"
	"github.com/common-fate/canvas/pkg/dialect"
	"github.com/common-fate/canvas/pkg/dialect/std"
	"github.com/common-fate/canvas/pkg/noderr"
	"github.com/common-fate/clio"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var fileFlags = []cli.Flag{
	&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Usage: "the workflow document, in JSON or YAML format", Required: true},
	&cli.PathFlag{Name: "dialect", Aliases: []string{"d"}, Usage: "a YAML overlay adding rules, templates and themes to the standard dialect"},
}

// load creates an editor session with the document given by the
// --file flag loaded into it.
func load(c *cli.Context) (*canvas.Session, error) {
	d, err := loadDialect(c.Path("dialect"))
	if err != nil {
		return nil, err
	}

	opts := []canvas.Option{canvas.WithDialect(d)}
	if c.Bool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, canvas.WithLogger(logger.Sugar()))
	}

	s, err := canvas.New(opts...)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.Path("file"))
	if err != nil {
		return nil, err
	}
	doc, err := canvas.ParseDocument(data)
	if err != nil {
		return nil, err
	}
	err = s.Workflow.Load(doc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func loadDialect(overlay string) (dialect.Dialect, error) {
	if overlay == "" {
		return std.Dialect, nil
	}
	data, err := os.ReadFile(overlay)
	if err != nil {
		return dialect.Dialect{}, err
	}

	d, err := canvas.Unmarshal(data, std.Dialect)

	var ne noderr.NodeError
	if errors.As(err, &ne) {
		clio.Infof("node error at: %s", ne.Path())
		source, printErr := ne.PrettyPrint(data)
		if printErr != nil {
			clio.Errorf("error pretty printing YAML path: %s", printErr)
		}
		fmt.Fprintf(os.Stderr, "%s\n", source)
	}
	return d, err
}
