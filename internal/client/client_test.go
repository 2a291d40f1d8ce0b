package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/network"
	"github.com/ALinuxPerson/raphy/internal/protocol"
)

type fakeCoordinator struct {
	mu           sync.Mutex
	config       *protocol.Config
	state        protocol.ServerState
	operationErr error
}

func (f *fakeCoordinator) GetConfig(ctx context.Context) *protocol.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

func (f *fakeCoordinator) GetServerState(ctx context.Context) protocol.ServerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCoordinator) UpdateConfig(ctx context.Context, cfg protocol.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = &cfg
}

func (f *fakeCoordinator) PerformOperation(ctx context.Context, op protocol.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.operationErr
}

func (f *fakeCoordinator) SendInput(data []byte) {}
func (f *fakeCoordinator) RequestShutdown()      {}

// newConnectedClient wires a Client to a real network.Actor via an
// in-memory pipe, so these tests exercise the full wire round trip
// without binding real sockets.
func newConnectedClient(t *testing.T, kind network.ClientKind, coordinator *fakeCoordinator) *Client {
	t.Helper()

	global := make(chan protocol.ServerMessage, 16)
	actor := network.NewActor(zap.NewNop(), coordinator, global, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go actor.Run(ctx)

	serverSide, clientSide := net.Pipe()
	actor.NewConns() <- network.NewConn{Conn: serverSide, Kind: kind}

	c := newClient(clientSide, kind == network.ClientUnix)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPingSucceeds(t *testing.T) {
	c := newConnectedClient(t, network.ClientUnix, &fakeCoordinator{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Ping(ctx))
}

func TestGetConfigReturnsNilWhenNoneIsSet(t *testing.T) {
	c := newConnectedClient(t, network.ClientUnix, &fakeCoordinator{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg, err := c.GetConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestUpdateConfigThenGetConfigRoundTrips(t *testing.T) {
	c := newConnectedClient(t, network.ClientUnix, &fakeCoordinator{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := protocol.Config{
		JavaPath:      protocol.JavaPath{Kind: protocol.JavaPathCustom, Path: "/usr/bin/java"},
		ServerJarPath: "/srv/server.jar",
		User:          protocol.User{Kind: protocol.UserCurrent},
	}
	require.NoError(t, c.UpdateConfig(ctx, cfg))

	got, err := c.GetConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg, *got)
}

func TestPerformOperationSurfacesFailureAsAnError(t *testing.T) {
	coordinator := &fakeCoordinator{operationErr: assertErr{"boom"}}
	c := newConnectedClient(t, network.ClientUnix, coordinator)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.PerformOperation(ctx, protocol.OperationStart)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}

func TestShutdownFromATcpClientIsRejectedLocally(t *testing.T) {
	c := newConnectedClient(t, network.ClientTCP, &fakeCoordinator{})
	err := c.Shutdown()
	assert.ErrorIs(t, err, ErrNotLocal)
}

func TestShutdownFromAUnixClientSucceeds(t *testing.T) {
	c := newConnectedClient(t, network.ClientUnix, &fakeCoordinator{})
	assert.NoError(t, c.Shutdown())
}

func TestEventsReceivesUntaggedBroadcasts(t *testing.T) {
	// Two clients: the second must see the untagged operation-requested
	// broadcast that the first client's operation triggers.
	coordinator := &fakeCoordinator{}
	global := make(chan protocol.ServerMessage, 16)
	actor := network.NewActor(zap.NewNop(), coordinator, global, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	serverA, clientA := net.Pipe()
	actor.NewConns() <- network.NewConn{Conn: serverA, Kind: network.ClientUnix}
	a := newClient(clientA, true)
	defer a.Close()

	serverB, clientB := net.Pipe()
	actor.NewConns() <- network.NewConn{Conn: serverB, Kind: network.ClientUnix}
	b := newClient(clientB, true)
	defer b.Close()

	opCtx, opCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer opCancel()
	require.NoError(t, a.PerformOperation(opCtx, protocol.OperationStart))

	select {
	case msg := <-b.Events():
		_, ok := msg.(protocol.OperationRequested)
		assert.True(t, ok, "expected OperationRequested, got %T", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
