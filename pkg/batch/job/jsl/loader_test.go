package jsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSL = `
id: jslTestJob
name: JSL Test Job
listeners:
  - ref: jobLoggingListener
steps:
  - id: processLines
    tasklet:
      ref: linesProcessor
      properties:
        key: lines
        errorPolicy: strict
    listeners:
      - ref: loggingListener
`

func TestParseJobDefinition(t *testing.T) {
	job, err := ParseJobDefinition([]byte(validJSL))
	require.NoError(t, err)

	assert.Equal(t, "jslTestJob", job.ID)
	require.Len(t, job.Steps, 1)
	assert.Equal(t, "linesProcessor", job.Steps[0].Tasklet.Ref)
	assert.Equal(t, "strict", job.Steps[0].Tasklet.Properties["errorPolicy"])
	assert.Equal(t, "loggingListener", job.Steps[0].Listeners[0].Ref)
	assert.Equal(t, "jobLoggingListener", job.Listeners[0].Ref)
}

func TestParseJobDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "YAML 不正", data: "id: [unterminated"},
		{name: "id なし", data: "name: x\nsteps:\n  - id: s\n    tasklet: {ref: t}\n"},
		{name: "name なし", data: "id: x\nsteps:\n  - id: s\n    tasklet: {ref: t}\n"},
		{name: "steps なし", data: "id: x\nname: x\n"},
		{name: "tasklet なし", data: "id: x\nname: x\nsteps:\n  - id: s\n"},
		{name: "ステップID重複", data: "id: x\nname: x\nsteps:\n  - id: s\n    tasklet: {ref: t}\n  - id: s\n    tasklet: {ref: t}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJobDefinition([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadJSLDefinitionFromBytes_Duplicate(t *testing.T) {
	data := []byte("id: duplicateJob\nname: dup\nsteps:\n  - id: s\n    tasklet: {ref: t}\n")
	require.NoError(t, LoadJSLDefinitionFromBytes(data))
	assert.Error(t, LoadJSLDefinitionFromBytes(data))

	job, ok := GetJobDefinition("duplicateJob")
	assert.True(t, ok)
	assert.Equal(t, "dup", job.Name)
	assert.GreaterOrEqual(t, GetLoadedJobCount(), 1)
}
