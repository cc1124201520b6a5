package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/common-fate/canvas"
	"github.com/common-fate/canvas/pkg/dialect/std"
	"github.com/common-fate/clio"
	"github.com/dominikbraun/graph/draw"
	"github.com/goccy/go-graphviz"
)

func main() {
	err := run()
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	exampleFolder := "docs/examples"
	outputFolder := "docs/img"

	err := os.MkdirAll(outputFolder, 0755)
	if err != nil {
		return err
	}

	folders, err := os.ReadDir(exampleFolder)
	if err != nil {
		return err
	}

	for _, folder := range folders {
		if !folder.IsDir() {
			clio.Infof("skipping %s: not a folder", folder.Name())
			continue
		}

		d := std.Dialect

		// might or might not have this
		overlayFile := filepath.Join(exampleFolder, folder.Name(), "dialect.yml")
		overlay, err := os.ReadFile(overlayFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err == nil {
			d, err = canvas.Unmarshal(overlay, d)
			if err != nil {
				return err
			}
		}

		s, err := canvas.New(canvas.WithDialect(d))
		if err != nil {
			return err
		}

		workflowfile := filepath.Join(exampleFolder, folder.Name(), "workflow.json")
		data, err := os.ReadFile(workflowfile)
		if err != nil {
			return err
		}
		doc, err := canvas.ParseDocument(data)
		if err != nil {
			return err
		}
		err = s.Workflow.Load(doc)
		if err != nil {
			return err
		}

		g, err := s.Workflow.Graph()
		if err != nil {
			return err
		}

		// shade nodes with problems so they stand out in the docs
		report := s.Workflow.Validation()
		err = canvas.HighlightIssues(g, report)
		if err != nil {
			return err
		}
		for _, i := range report.Issues {
			clio.Infof("%s: %s", folder.Name(), i)
		}

		var buf bytes.Buffer

		err = draw.DOT(g, &buf, draw.GraphAttribute("rankdir", "LR"))
		if err != nil {
			return err
		}

		graph, err := graphviz.ParseBytes(buf.Bytes())
		if err != nil {
			return err
		}
		gv := graphviz.New()

		outfile := filepath.Join(outputFolder, folder.Name()+".svg")
		err = gv.RenderFilename(graph, graphviz.SVG, outfile)
		if err != nil {
			return err
		}
		clio.Successf("rendered %s", outfile)
	}
	return nil
}
