package node

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		assert.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("unknown")
	assert.Error(t, err)
	_, err = ParseType("webhook")
	assert.Error(t, err)
}

func TestType_JSON(t *testing.T) {
	var v struct {
		Type Type `json:"type"`
	}
	err := json.Unmarshal([]byte(`{"type":"decision"}`), &v)
	assert.NoError(t, err)
	assert.Equal(t, Decision, v.Type)

	b, err := json.Marshal(v)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"decision"}`, string(b))

	err = json.Unmarshal([]byte(`{"type":"nope"}`), &v)
	assert.Error(t, err)
}

func TestSpec_Ports(t *testing.T) {
	s := Spec{
		Inputs:  []Port{{Name: "in"}},
		Outputs: []Port{{Name: "true"}, {Name: "false"}},
	}
	_, ok := s.Input("in")
	assert.True(t, ok)
	_, ok = s.Output("false")
	assert.True(t, ok)
	_, ok = s.Output("in")
	assert.False(t, ok)
}
