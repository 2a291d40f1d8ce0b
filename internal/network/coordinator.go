package network

import (
	"context"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// Coordinator is everything the network actor needs from the rest of the
// daemon. It is implemented by internal/coordinator; defining it here
// (rather than importing that package) keeps network decoupled from the
// supervisor it ultimately drives, the same separation base.rs enforces
// between NetworkTask and ServerTask.
type Coordinator interface {
	GetConfig(ctx context.Context) *protocol.Config
	GetServerState(ctx context.Context) protocol.ServerState
	UpdateConfig(ctx context.Context, cfg protocol.Config)
	PerformOperation(ctx context.Context, op protocol.Operation) error
	SendInput(data []byte)
	RequestShutdown()
}
