package network

import "github.com/ALinuxPerson/raphy/internal/protocol"

// messageBroadcaster is a snapshot of every connected client's outbox at
// the moment a request began handling, taken so that a client connecting
// or disconnecting mid-request can't change who the eventual reply goes
// to. When activeTask is set, that client gets the tagged reply (non-nil
// Task) and every other client gets the same message with Task cleared;
// with no active task every client gets the same untagged message.
type messageBroadcaster struct {
	others     []*client
	activeTask *protocol.TaskId
	active     *client
}

// broadcast sends the same message, unmodified, to every client in the
// snapshot (including the active one, if any). Used for messages that
// never carry a Task field, like OperationRequested or ServerStateUpdated.
func (b messageBroadcaster) broadcast(message protocol.ServerMessage) {
	if b.active != nil {
		b.active.send(message)
	}
	for _, c := range b.others {
		c.send(message)
	}
}

// broadcastWithTask calls build once per recipient: with the request's
// TaskId for the initiating client (if any), and with nil for everyone
// else, then sends the result.
func (b messageBroadcaster) broadcastWithTask(build func(task *protocol.TaskId) protocol.ServerMessage) {
	if b.active != nil {
		b.active.send(build(b.activeTask))
	}
	for _, c := range b.others {
		c.send(build(nil))
	}
}
