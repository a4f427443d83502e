package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bkerrors "github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

type echoTool struct{}

func (echoTool) Name() string                   { return "echo" }
func (echoTool) Description() string            { return "echoes its text argument" }
func (echoTool) Schema() map[string]interface{} { return tools.BaseToolSchema(nil, nil) }
func (echoTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		Text string `xml:"text"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, err
	}
	return input.Text, map[string]interface{}{"length": len(input.Text)}, nil
}

type failingTool struct{ err error }

func (failingTool) Name() string                   { return "fail" }
func (failingTool) Description() string            { return "always fails" }
func (failingTool) Schema() map[string]interface{} { return tools.BaseToolSchema(nil, nil) }
func (f failingTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	return "", nil, f.err
}

func newTestDispatcher(t *testing.T, failure error) *dispatcher {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(echoTool{}, failingTool{err: failure}))
	return newDispatcher(registry, bkerrors.NewClassifier().Classify, nil)
}

func decodeResponses(t *testing.T, out *bytes.Buffer) []response {
	t.Helper()
	var responses []response
	decoder := json.NewDecoder(out)
	for {
		var r response
		err := decoder.Decode(&r)
		if err == io.EOF {
			return responses
		}
		require.NoError(t, err)
		responses = append(responses, r)
	}
}

func TestDispatcher_Serve(t *testing.T) {
	input := strings.Join([]string{
		`<tool><tool_name>echo</tool_name><arguments><text>hello</text></arguments></tool>`,
		`<tool>`,
		`<tool_name>echo</tool_name>`,
		`<arguments><text>a & b</text></arguments>`,
		`</tool>`,
		`<tool><tool_name>missing</tool_name></tool>`,
		`<tool><tool_name>fail</tool_name></tool>`,
		``,
	}, "\n")

	d := newTestDispatcher(t, bkerrors.SessionNotFound("abc"))
	var out bytes.Buffer
	require.NoError(t, d.Serve(context.Background(), strings.NewReader(input), &out))

	responses := decodeResponses(t, &out)
	require.Len(t, responses, 4)

	assert.True(t, responses[0].OK)
	assert.Equal(t, "hello", responses[0].Result)
	assert.EqualValues(t, 5, responses[0].Metadata["length"])

	assert.True(t, responses[1].OK, "multi-line call with bare ampersand")
	assert.Equal(t, "a & b", responses[1].Result)

	assert.False(t, responses[2].OK)
	assert.Equal(t, "missing", responses[2].Tool)
	assert.Equal(t, bkerrors.CodeValidationFailed, responses[2].Error.Code)
	assert.Contains(t, responses[2].Error.Message, "unknown tool")

	assert.False(t, responses[3].OK)
	assert.Equal(t, bkerrors.CodeSessionNotFound, responses[3].Error.Code)
	assert.False(t, responses[3].Error.Retryable)
}

func TestDispatcher_ClassifiesEngineErrors(t *testing.T) {
	d := newTestDispatcher(t, errors.New("Timeout 30000ms exceeded."))
	var out bytes.Buffer
	require.NoError(t, d.Serve(context.Background(),
		strings.NewReader("<tool><tool_name>fail</tool_name></tool>\n"), &out))

	responses := decodeResponses(t, &out)
	require.Len(t, responses, 1)
	assert.Equal(t, bkerrors.CodeTimeoutExceeded, responses[0].Error.Code)
	assert.True(t, responses[0].Error.Retryable)
}

func TestDispatcher_MalformedCall(t *testing.T) {
	d := newTestDispatcher(t, nil)
	input := "<tool><arguments></arguments></tool>\n<tool><tool_name>echo</tool_name><arguments><text>ok</text></arguments></tool>\n"

	var out bytes.Buffer
	require.NoError(t, d.Serve(context.Background(), strings.NewReader(input), &out))

	responses := decodeResponses(t, &out)
	require.Len(t, responses, 2)
	assert.Equal(t, bkerrors.CodeValidationFailed, responses[0].Error.Code)
	assert.True(t, responses[1].OK)
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	d := newTestDispatcher(t, nil)
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Serve(ctx, reader, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
