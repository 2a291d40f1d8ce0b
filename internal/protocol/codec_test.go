package protocol_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

func TestClientMessageRoundTrip(t *testing.T) {
	opId := protocol.TaskId(7)
	cfg := protocol.Config{
		JavaPath:        protocol.JavaPath{Kind: protocol.JavaPathAutoDetect},
		ServerJarPath:   "server.jar",
		JavaArguments:   protocol.Arguments{Kind: protocol.ArgumentsParsed, Parsed: "-Xmx4G"},
		ServerArguments: protocol.Arguments{Kind: protocol.ArgumentsManual, Manual: []string{"nogui"}},
		User:            protocol.User{Kind: protocol.UserCurrent},
	}

	cases := []protocol.ClientMessage{
		protocol.Ping{Task: 1},
		protocol.GetConfig{Task: 2},
		protocol.GetServerState{Task: 3},
		protocol.UpdateConfig{Task: opId, Config: cfg},
		protocol.PerformOperation{Task: 4, Operation: protocol.OperationRestart},
		protocol.Input{Data: []byte("say hello\n")},
		protocol.ShutdownRequest{},
	}

	for _, msg := range cases {
		body, err := protocol.EncodeClientMessage(msg)
		require.NoError(t, err)

		decoded, err := protocol.DecodeClientMessage(body)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestServerMessageRoundTrip(t *testing.T) {
	task := protocol.TaskId(9)
	exit := protocol.ExitSuccess
	werr := protocol.NewWireError(assertError("boom"))

	cases := []protocol.ServerMessage{
		protocol.Pong{Task: 1},
		protocol.CurrentConfig{Config: nil, Task: 2},
		protocol.CurrentServerState{State: protocol.StartedState, Task: 3},
		protocol.CurrentServerState{State: protocol.StoppedState(&exit), Task: 3},
		protocol.ConfigUpdated{Config: protocol.Config{}, Task: &task},
		protocol.OperationRequested{Operation: protocol.OperationStart, OpId: 5},
		protocol.OperationPerformed{Operation: protocol.OperationStop, OpId: 6, Task: &task},
		protocol.OperationFailed{Operation: protocol.OperationRestart, OpId: 7, Err: werr, Task: nil},
		protocol.ServerStateUpdated{State: protocol.StartedState},
		protocol.Stdout{Data: []byte("booting\n")},
		protocol.Stderr{Data: []byte("warn\n")},
		protocol.FatalError{Err: werr},
		protocol.ErrorMessage{Err: werr, Task: &task},
		protocol.ShuttingDown{},
	}

	for _, msg := range cases {
		body, err := protocol.EncodeServerMessage(msg)
		require.NoError(t, err)

		decoded, err := protocol.DecodeServerMessage(body)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestWithTaskOnlyMutatesTaggableVariants(t *testing.T) {
	task := protocol.TaskId(3)

	updated := protocol.WithTask(protocol.ConfigUpdated{Config: protocol.Config{}}, &task)
	assert.Equal(t, &task, updated.(protocol.ConfigUpdated).Task)

	unchanged := protocol.WithTask(protocol.ShuttingDown{}, &task)
	assert.Equal(t, protocol.ShuttingDown{}, unchanged)
}

func TestDecodeClientMessageRejectsUnknownTag(t *testing.T) {
	raw, err := cbor.Marshal([]any{uint8(200), cbor.RawMessage{0xa0}})
	require.NoError(t, err)

	_, err = protocol.DecodeClientMessage(raw)
	assert.Error(t, err)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func assertError(msg string) error {
	return simpleError(msg)
}
