// Package memsim provides in-memory implementations of the internal/hal
// interfaces: a file system, a disk, a scheduler/thread pair and an MMU,
// all backed by plain Go slices and maps rather than a real kernel. It
// exists so internal/vm's tests and the cmd/nachosvm demo harness have a
// collaborator set to run against without a real Nachos machine.
//
// Grounded on the teacher's in-process module stand-ins
// (cmd/memoria/swap.go's file-backed swap area) generalized to pure
// in-memory storage, since this module has no real disk to back a file
// system with.
package memsim

import (
	"fmt"
	"sync"

	"github.com/utnfrba-so/go-nachos-vm/internal/hal"
)

// FileSystem is an in-memory hal.FileSystem: named byte buffers, created,
// opened and removed by name.
type FileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewFileSystem returns an empty FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{files: make(map[string][]byte)}
}

// Create allocates a zero-filled buffer of size bytes under name,
// overwriting any existing file of the same name.
func (fs *FileSystem) Create(name string, size int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[name] = make([]byte, size)
	return nil
}

// Open returns a File handle on the buffer named name. The file must
// already exist (via Create).
func (fs *FileSystem) Open(name string) (hal.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[name]; !ok {
		return nil, fmt.Errorf("memsim: file %q does not exist", name)
	}
	return &memFile{fs: fs, name: name}, nil
}

// Remove deletes the buffer named name.
func (fs *FileSystem) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.files[name]; !ok {
		return fmt.Errorf("memsim: file %q does not exist", name)
	}
	delete(fs.files, name)
	return nil
}

type memFile struct {
	fs     *FileSystem
	name   string
	closed bool
}

func (f *memFile) ReadAt(buf []byte, offset int64) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.closed {
		return 0, fmt.Errorf("memsim: read on closed file %q", f.name)
	}
	data := f.fs.files[f.name]
	if offset < 0 || offset > int64(len(data)) {
		return 0, fmt.Errorf("memsim: offset %d out of range for %q (len %d)", offset, f.name, len(data))
	}
	n := copy(buf, data[offset:])
	if n < len(buf) {
		return n, fmt.Errorf("memsim: short read on %q: wanted %d bytes at %d, got %d", f.name, len(buf), offset, n)
	}
	return n, nil
}

func (f *memFile) WriteAt(buf []byte, offset int64) (int, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	if f.closed {
		return 0, fmt.Errorf("memsim: write on closed file %q", f.name)
	}
	data := f.fs.files[f.name]
	needed := offset + int64(len(buf))
	if needed > int64(len(data)) {
		grown := make([]byte, needed)
		copy(grown, data)
		data = grown
		f.fs.files[f.name] = data
	}
	n := copy(data[offset:], buf)
	return n, nil
}

func (f *memFile) Size() (int64, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	return int64(len(f.fs.files[f.name])), nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}
