package protocol

import "github.com/ALinuxPerson/raphy/internal/idgen"

// TaskId is chosen by a client for each request that expects a reply; the
// server echoes it back so the client can correlate the response.
type TaskId uint64

// OperationId is chosen by the server for each externally visible
// Start/Stop/Restart operation; it is unique within one daemon run.
type OperationId uint64

// IdGenerator produces TaskId/OperationId values. The network actor uses
// its own instance to mint OperationIds; clients mint their own TaskIds.
type IdGenerator struct {
	gen *idgen.Generator
}

// NewIdGenerator returns an IdGenerator backed by the runtime's default
// random source.
func NewIdGenerator() *IdGenerator {
	return &IdGenerator{gen: idgen.New()}
}

// NewIdGeneratorFromSeed returns a deterministic IdGenerator, for the
// uniqueness property test in spec.md §8.2.
func NewIdGeneratorFromSeed(seed [32]byte) *IdGenerator {
	return &IdGenerator{gen: idgen.NewFromSeed(seed)}
}

// NextTaskId mints a new TaskId.
func (g *IdGenerator) NextTaskId() TaskId {
	return TaskId(g.gen.Next())
}

// NextOperationId mints a new OperationId.
func (g *IdGenerator) NextOperationId() OperationId {
	return OperationId(g.gen.Next())
}
