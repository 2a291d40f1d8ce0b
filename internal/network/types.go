// Package network is the daemon's client-facing transport: it accepts
// connections on the Unix-domain and TCP listeners, frames the wire
// protocol over each one, and runs a single-goroutine actor that holds the
// client registry and decides where replies and broadcasts go. It never
// touches the child process directly — every client request it cannot
// answer on its own (GetConfig, PerformOperation, ...) is handed to a
// Coordinator and the reply routed back once that call returns.
package network

import (
	"fmt"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

// ClientId identifies a connected client for the lifetime of its
// connection. Ids are slab keys and get reused once a client disconnects.
type ClientId int

func (c ClientId) String() string {
	return fmt.Sprintf("%d", int(c))
}

// ClientKind records which listener a client connected through. Only Unix
// clients may issue a ShutdownRequest; spec.md §4.4 reserves that to local
// operators.
type ClientKind int

const (
	ClientUnix ClientKind = iota
	ClientTCP
)

func (k ClientKind) String() string {
	if k == ClientUnix {
		return "unix"
	}
	return "tcp"
}

// Inbound pairs a decoded ClientMessage with the ClientId that sent it.
type Inbound struct {
	ID   ClientId
	Data protocol.ClientMessage
}

// Outbound pairs a ServerMessage with the ClientId it must be delivered
// to. The actor does not use it: replies go straight onto each client's
// outbox, and wire writes never see the ClientId.
type Outbound struct {
	ID   ClientId
	Data protocol.ServerMessage
}
