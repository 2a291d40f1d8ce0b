package supervisor

import "github.com/ALinuxPerson/raphy/internal/protocol"

// Event is something the supervisor wants the rest of the daemon to know
// about: child output or a lifecycle transition. Grounds base.rs's
// ChildToServerMessage.
type Event interface {
	isEvent()
}

type StdoutEvent struct{ Data []byte }
type StderrEvent struct{ Data []byte }
type StateEvent struct{ State protocol.ServerState }

func (StdoutEvent) isEvent() {}
func (StderrEvent) isEvent() {}
func (StateEvent) isEvent()  {}
