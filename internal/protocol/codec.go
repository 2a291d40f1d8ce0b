package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Wire tags for ClientMessage variants. Stable across the protocol's
// lifetime; never reordered or reused for a different meaning.
const (
	tagPing uint8 = iota
	tagGetConfig
	tagGetServerState
	tagUpdateConfig
	tagPerformOperation
	tagInput
	tagShutdownRequest
)

// Wire tags for ServerMessage variants.
const (
	tagPong uint8 = iota
	tagCurrentConfig
	tagCurrentServerState
	tagConfigUpdated
	tagOperationRequested
	tagOperationPerformed
	tagOperationFailed
	tagServerStateUpdated
	tagStdout
	tagStderr
	tagFatalError
	tagErrorMessage
	tagShuttingDown
)

type envelope struct {
	_       struct{} `cbor:",toarray"`
	Tag     uint8
	Payload cbor.RawMessage
}

func encodeEnvelope(tag uint8, payload any) ([]byte, error) {
	raw, err := cbor.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return cbor.Marshal(envelope{Tag: tag, Payload: raw})
}

// EncodeClientMessage encodes a ClientMessage body (without the length
// prefix; see WriteFrame for that).
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	switch v := m.(type) {
	case Ping:
		return encodeEnvelope(tagPing, v)
	case GetConfig:
		return encodeEnvelope(tagGetConfig, v)
	case GetServerState:
		return encodeEnvelope(tagGetServerState, v)
	case UpdateConfig:
		return encodeEnvelope(tagUpdateConfig, v)
	case PerformOperation:
		return encodeEnvelope(tagPerformOperation, v)
	case Input:
		return encodeEnvelope(tagInput, v)
	case ShutdownRequest:
		return encodeEnvelope(tagShutdownRequest, v)
	default:
		return nil, fmt.Errorf("unknown client message type %T", m)
	}
}

// DecodeClientMessage decodes a body previously produced by
// EncodeClientMessage.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Tag {
	case tagPing:
		var v Ping
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagGetConfig:
		var v GetConfig
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagGetServerState:
		var v GetServerState
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagUpdateConfig:
		var v UpdateConfig
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagPerformOperation:
		var v PerformOperation
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagInput:
		var v Input
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagShutdownRequest:
		var v ShutdownRequest
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown client message tag %d", env.Tag)
	}
}

// EncodeServerMessage encodes a ServerMessage body.
func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	switch v := m.(type) {
	case Pong:
		return encodeEnvelope(tagPong, v)
	case CurrentConfig:
		return encodeEnvelope(tagCurrentConfig, v)
	case CurrentServerState:
		return encodeEnvelope(tagCurrentServerState, v)
	case ConfigUpdated:
		return encodeEnvelope(tagConfigUpdated, v)
	case OperationRequested:
		return encodeEnvelope(tagOperationRequested, v)
	case OperationPerformed:
		return encodeEnvelope(tagOperationPerformed, v)
	case OperationFailed:
		return encodeEnvelope(tagOperationFailed, v)
	case ServerStateUpdated:
		return encodeEnvelope(tagServerStateUpdated, v)
	case Stdout:
		return encodeEnvelope(tagStdout, v)
	case Stderr:
		return encodeEnvelope(tagStderr, v)
	case FatalError:
		return encodeEnvelope(tagFatalError, v)
	case ErrorMessage:
		return encodeEnvelope(tagErrorMessage, v)
	case ShuttingDown:
		return encodeEnvelope(tagShuttingDown, v)
	default:
		return nil, fmt.Errorf("unknown server message type %T", m)
	}
}

// DecodeServerMessage decodes a body previously produced by
// EncodeServerMessage.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Tag {
	case tagPong:
		var v Pong
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagCurrentConfig:
		var v CurrentConfig
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagCurrentServerState:
		var v CurrentServerState
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagConfigUpdated:
		var v ConfigUpdated
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagOperationRequested:
		var v OperationRequested
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagOperationPerformed:
		var v OperationPerformed
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagOperationFailed:
		var v OperationFailed
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagServerStateUpdated:
		var v ServerStateUpdated
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagStdout:
		var v Stdout
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagStderr:
		var v Stderr
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagFatalError:
		var v FatalError
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagErrorMessage:
		var v ErrorMessage
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	case tagShuttingDown:
		var v ShuttingDown
		err := unmarshalPayload(env.Payload, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown server message tag %d", env.Tag)
	}
}

func unmarshalPayload(raw cbor.RawMessage, out any) error {
	if err := cbor.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
