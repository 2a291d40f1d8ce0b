package network

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ALinuxPerson/raphy/internal/protocol"
)

type fakeCoordinator struct {
	mu            sync.Mutex
	config        *protocol.Config
	state         protocol.ServerState
	operationErr  error
	inputs        [][]byte
	shutdownCount int
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{state: protocol.StoppedState(nil)}
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

func (f *fakeCoordinator) SendInput(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, data)
}

func (f *fakeCoordinator) RequestShutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownCount++
}

// harness wires an Actor to in-memory pipe connections, standing in for
// real sockets so tests run without binding anything.
type harness struct {
	t           *testing.T
	actor       *Actor
	coordinator *fakeCoordinator
	global      chan protocol.ServerMessage
	cancel      context.CancelFunc
}

func newHarness(t *testing.T) *harness {
	logger := zap.NewNop()
	coordinator := newFakeCoordinator()
	global := make(chan protocol.ServerMessage, 16)
	actor := NewActor(logger, coordinator, global, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx)
	t.Cleanup(cancel)

	return &harness{t: t, actor: actor, coordinator: coordinator, global: global, cancel: cancel}
}

// connectClient hands the actor one half of an in-memory pipe and returns
// the other half for the test to drive as if it were a real client.
func (h *harness) connectClient(kind ClientKind) net.Conn {
	clientSide, serverSide := net.Pipe()
	h.actor.newConns <- NewConn{Conn: serverSide, Kind: kind}
	return clientSide
}

func sendMessage(t *testing.T, conn net.Conn, msg protocol.ClientMessage) {
	t.Helper()
	body, err := protocol.EncodeClientMessage(msg)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(conn, body))
}

func recvMessage(t *testing.T, conn net.Conn) protocol.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	body, err := protocol.ReadFrame(conn)
	require.NoError(t, err)
	msg, err := protocol.DecodeServerMessage(body)
	require.NoError(t, err)
	return msg
}

func TestPingRepliesOnlyToSender(t *testing.T) {
	h := newHarness(t)
	a := h.connectClient(ClientUnix)
	b := h.connectClient(ClientUnix)
	defer a.Close()
	defer b.Close()

	sendMessage(t, a, protocol.Ping{Task: 99})

	reply := recvMessage(t, a)
	assert.Equal(t, protocol.Pong{Task: 99}, reply)

	// b must not receive anything: a short read on b times out without a
	// frame, and a second ping from a still gets its own pong.
	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err := protocol.ReadFrame(b)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded, "b received a frame meant for a")

	done := make(chan protocol.ServerMessage, 1)
	go func() { done <- recvMessage(t, a) }()

	sendMessage(t, a, protocol.Ping{Task: 100})
	select {
	case reply := <-done:
		assert.Equal(t, protocol.Pong{Task: 100}, reply)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second pong")
	}
}

func TestPerformOperationBroadcastsRequestedToEveryoneAndResultToSenderTagged(t *testing.T) {
	h := newHarness(t)
	initiator := h.connectClient(ClientUnix)
	other := h.connectClient(ClientTCP)
	defer initiator.Close()
	defer other.Close()

	sendMessage(t, initiator, protocol.PerformOperation{Task: 5, Operation: protocol.OperationStart})

	initiatorRequested := recvMessage(t, initiator)
	otherRequested := recvMessage(t, other)
	assert.Equal(t, protocol.OperationStart, initiatorRequested.(protocol.OperationRequested).Operation)
	assert.Equal(t, protocol.OperationStart, otherRequested.(protocol.OperationRequested).Operation)

	initiatorResult := recvMessage(t, initiator).(protocol.OperationPerformed)
	otherResult := recvMessage(t, other).(protocol.OperationPerformed)

	require.NotNil(t, initiatorResult.Task)
	assert.Equal(t, protocol.TaskId(5), *initiatorResult.Task)
	assert.Nil(t, otherResult.Task)
}

func TestShutdownRequestIsHonouredOnlyFromUnixClients(t *testing.T) {
	h := newHarness(t)
	unixClient := h.connectClient(ClientUnix)
	tcpClient := h.connectClient(ClientTCP)
	defer unixClient.Close()
	defer tcpClient.Close()

	sendMessage(t, tcpClient, protocol.ShutdownRequest{})
	sendMessage(t, unixClient, protocol.Ping{Task: 1})
	recvMessage(t, unixClient) // drain the pong so the actor loop has progressed

	h.coordinator.mu.Lock()
	tcpShutdowns := h.coordinator.shutdownCount
	h.coordinator.mu.Unlock()
	assert.Equal(t, 0, tcpShutdowns)

	sendMessage(t, unixClient, protocol.ShutdownRequest{})
	sendMessage(t, unixClient, protocol.Ping{Task: 2})
	recvMessage(t, unixClient)

	h.coordinator.mu.Lock()
	defer h.coordinator.mu.Unlock()
	assert.Equal(t, 1, h.coordinator.shutdownCount)
}

type fakeRecorder struct {
	mu        sync.Mutex
	opened    int
	closed    int
	received  int
	sent      int
}

func (f *fakeRecorder) ConnectionOpened() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
}

func (f *fakeRecorder) ConnectionClosed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func (f *fakeRecorder) MessageReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
}

func (f *fakeRecorder) MessageSent() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
}

func TestActorReportsConnectionAndMessageMetrics(t *testing.T) {
	logger := zap.NewNop()
	coordinator := newFakeCoordinator()
	global := make(chan protocol.ServerMessage, 16)
	rec := &fakeRecorder{}
	actor := NewActor(logger, coordinator, global, rec)

	ctx, cancel := context.WithCancel(context.Background())
	go actor.Run(ctx)
	t.Cleanup(cancel)

	clientSide, serverSide := net.Pipe()
	actor.newConns <- NewConn{Conn: serverSide, Kind: ClientUnix}

	sendMessage(t, clientSide, protocol.Ping{Task: 1})
	recvMessage(t, clientSide)

	clientSide.Close()
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.sent)
	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)
	assert.Equal(t, 1, rec.received)
}

func TestDisconnectOfOneClientDoesNotAffectAnother(t *testing.T) {
	h := newHarness(t)
	a := h.connectClient(ClientUnix)
	b := h.connectClient(ClientUnix)
	defer b.Close()

	a.Close()
	time.Sleep(50 * time.Millisecond)

	sendMessage(t, b, protocol.Ping{Task: 1})
	reply := recvMessage(t, b)
	assert.Equal(t, protocol.Pong{Task: 1}, reply)
}
