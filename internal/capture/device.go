package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrCameraUnavailable covers permission denial, a missing device node
// and a device already held by another recorder. It is recoverable: the
// caller stays on the instructions step and offers the upload path.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Device is the exclusive camera boundary. Acquire hands out a stream of
// encoded frames; closing the stream releases the device. At most one
// holder at a time.
type Device interface {
	Acquire(ctx context.Context) (io.ReadCloser, error)
}

// FileDevice reads frames from a local capture device node
// (e.g. /dev/video0).
type FileDevice struct {
	mu   sync.Mutex
	path string
	held bool
}

func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

func (d *FileDevice) Acquire(ctx context.Context) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.held {
		return nil, fmt.Errorf("%w: device already in use", ErrCameraUnavailable)
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	d.held = true
	return &deviceStream{f: f, release: d.release}, nil
}

func (d *FileDevice) release() {
	d.mu.Lock()
	d.held = false
	d.mu.Unlock()
}

type deviceStream struct {
	f       *os.File
	release func()
	once    sync.Once
}

func (s *deviceStream) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Close releases the device hold exactly once, so a double close from
// overlapping cleanup paths cannot leave the device marked busy.
func (s *deviceStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.f.Close()
		s.release()
	})
	return err
}
