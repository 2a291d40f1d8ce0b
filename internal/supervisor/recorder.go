package supervisor

// Recorder receives metrics about the supervised child process. A nil
// Recorder passed to New is replaced with a no-op implementation so every
// call site here can call it unconditionally.
type Recorder interface {
	OutputDropped()
	ChildRestarted()
	SetChildResources(cpuPercent, memoryMB float64, threads int32)
}

type noopRecorder struct{}

func (noopRecorder) OutputDropped()  {}
func (noopRecorder) ChildRestarted() {}
func (noopRecorder) SetChildResources(float64, float64, int32) {}
