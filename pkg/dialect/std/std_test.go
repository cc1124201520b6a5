package std

import (
	"encoding/json"
	"testing"

	"github.com/common-fate/canvas/pkg/node"
)

func TestDialect_Validate(t *testing.T) {
	if err := Dialect.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestDialect_Compatible(t *testing.T) {
	tests := []struct {
		name     string
		from     node.Type
		fromPort string
		to       node.Type
		toPort   string
		want     bool
	}{
		{name: "task to task", from: node.Task, fromPort: "out", to: node.Task, toPort: "in", want: true},
		{name: "decision branch", from: node.Decision, fromPort: "false", to: node.End, toPort: "in", want: true},
		{name: "service error to end", from: node.Service, fromPort: "error", to: node.End, toPort: "in", want: true},
		{name: "service error to decision", from: node.Service, fromPort: "error", to: node.Decision, toPort: "in", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dialect.Compatible(tt.from, tt.fromPort, tt.to, tt.toPort); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name    string
		check   func(map[string]any) error
		input   string
		wantErr bool
	}{
		{name: "decision ok", check: checkDecision, input: `{"condition": "(input.amount > 100)"}`},
		{name: "decision unbalanced", check: checkDecision, input: `{"condition": "(input.amount > 100"}`, wantErr: true},
		{name: "decision blank", check: checkDecision, input: `{"condition": "   "}`, wantErr: true},
		{name: "timer ok", check: checkTimer, input: `{"duration": "1h30m"}`},
		{name: "timer invalid", check: checkTimer, input: `{"duration": "soon"}`, wantErr: true},
		{name: "timer negative", check: checkTimer, input: `{"duration": "-5m"}`, wantErr: true},
		{name: "service ok", check: checkService, input: `{"url": "https://example.com/hook", "method": "POST", "timeout": 10}`},
		{name: "service relative url", check: checkService, input: `{"url": "/hook"}`, wantErr: true},
		{name: "service empty url is left to required check", check: checkService, input: `{"url": ""}`},
		{name: "service wrong timeout type", check: checkService, input: `{"url": "https://example.com", "timeout": "slow"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input map[string]any

			err := json.Unmarshal([]byte(tt.input), &input)
			if err != nil {
				t.Fatal(err)
			}

			err = tt.check(input)
			if (err != nil) != tt.wantErr {
				t.Errorf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
