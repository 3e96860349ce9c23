package serialization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/lines_batch/pkg/batch/job/core"
	"github.com/tigerroll/lines_batch/pkg/batch/util/exception"
)

func TestExecutionContextRoundTrip(t *testing.T) {
	ec := core.NewExecutionContext()
	ec.Put("lines", `[{"dob":"2000-05-10","name":"Alice","age":24}]`)

	data, err := MarshalExecutionContext(ec)
	require.NoError(t, err)

	restored, err := UnmarshalExecutionContext(data)
	require.NoError(t, err)
	s, ok := restored.GetString("lines")
	assert.True(t, ok)
	assert.Equal(t, `[{"dob":"2000-05-10","name":"Alice","age":24}]`, s)
}

func TestExecutionContextEdgeCases(t *testing.T) {
	data, err := MarshalExecutionContext(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	for _, in := range []string{"", "null"} {
		ec, err := UnmarshalExecutionContext([]byte(in))
		require.NoError(t, err)
		assert.Empty(t, ec)
	}

	_, err = UnmarshalExecutionContext([]byte("{broken"))
	var be *exception.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "serialization", be.Module)

	_, err = MarshalExecutionContext(core.ExecutionContext{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestFailures(t *testing.T) {
	data, err := MarshalFailures([]error{errors.New("first"), errors.New("second")})
	require.NoError(t, err)
	assert.JSONEq(t, `["first","second"]`, string(data))

	failures, err := UnmarshalFailures(data)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.EqualError(t, failures[1], "second")

	failures, err = UnmarshalFailures(nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestJobParametersRoundTrip(t *testing.T) {
	params := core.NewJobParameters()
	params.Put("input.path", "/data/lines.json")

	data, err := MarshalJobParameters(params)
	require.NoError(t, err)

	restored, err := UnmarshalJobParameters(data)
	require.NoError(t, err)
	v, ok := restored.GetString("input.path")
	assert.True(t, ok)
	assert.Equal(t, "/data/lines.json", v)

	empty, err := UnmarshalJobParameters(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty.Params)
}
