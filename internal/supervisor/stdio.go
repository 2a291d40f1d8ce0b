package supervisor

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// stdoutChunkSize matches spec.md §4.5's 1 KiB read size for stdout/stderr
// pumps.
const stdoutChunkSize = 1024

// pumpStdin drains queued input writes to the child's stdin until the
// context is cancelled (the child exited) or the queue is closed.
func pumpStdin(ctx context.Context, logger *zap.Logger, stdin io.WriteCloser, queue <-chan []byte, cancel context.CancelFunc) {
	defer stdin.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-queue:
			if !ok {
				return
			}
			if _, err := stdin.Write(data); err != nil {
				logger.Warn("failed to write to the server's stdin", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

// pumpOutput reads fixed-size chunks from r, invoking emit for each one
// read, until r hits EOF or another read error (a closed pipe once the
// child exits, which is the expected way this loop ends).
func pumpOutput(ctx context.Context, r io.Reader, emit func([]byte)) {
	buf := make([]byte, stdoutChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			emit(chunk)
		}
		if err != nil {
			return
		}
	}
}
