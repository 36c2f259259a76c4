package pool

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// fdCleanup is the single CleanupFunc value used for both the plain and
// child variants of a raw-descriptor cleanup; sharing one value lets
// PCloseF find it again via UnregisterCleanup's identity comparison.
func fdCleanup(data any) {
	fd := data.(int)
	_ = unix.Close(fd)
}

// POpenF opens path with the given raw flags/mode and, on success,
// registers a cleanup that closes the descriptor when p is cleared or
// destroyed. It operates on raw file descriptors via golang.org/x/sys/unix
// rather than *os.File.
func POpenF(p *Pool, path string, flags int, mode uint32) (int, error) {
	blockAlarms()
	defer unblockAlarms()

	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return -1, err
	}

	RegisterCleanup(p, fd, fdCleanup, fdCleanup)
	return fd, nil
}

// PCloseF closes fd and unregisters its cleanup. Calling PCloseF after
// the descriptor was already closed by pool teardown is
// safe: UnregisterCleanup is a no-op if the registration is gone, and the
// converse — closing here first, then letting the pool tear down later —
// does not double-close, since the cleanup record is removed immediately.
func PCloseF(p *Pool, fd int) error {
	blockAlarms()
	defer unblockAlarms()

	err := unix.Close(fd)
	UnregisterCleanup(p, fd, fdCleanup)
	return err
}

// File is a pool-bound buffered file handle: the Go analogue of the
// original's FILE*. Writes are buffered in w; PFclose and the plain pool
// cleanup flush w before closing the underlying descriptor. The plain/child cleanup split
// exists because flushing twice (once in the parent, once after a fork in
// the child) would corrupt output or duplicate it — see fileChildCleanup.
type File struct {
	f *os.File
	w *bufio.Writer
	r *bufio.Reader
}

// Write implements io.Writer over the buffered stream.
func (fp *File) Write(b []byte) (int, error) {
	return fp.w.Write(b)
}

// Read implements io.Reader over the buffered stream.
func (fp *File) Read(b []byte) (int, error) {
	if fp.r == nil {
		fp.r = bufio.NewReader(fp.f)
	}
	return fp.r.Read(b)
}

// Flush flushes any buffered writes to the underlying descriptor.
func (fp *File) Flush() error {
	return fp.w.Flush()
}

// Fd returns the underlying OS file descriptor.
func (fp *File) Fd() int {
	return int(fp.f.Fd())
}

func fileCleanup(data any) {
	fp := data.(*File)
	_ = fp.w.Flush()
	_ = fp.f.Close()
}

// fileChildCleanup closes the underlying descriptor without flushing the
// buffer: the buffered writer's state belongs to the parent process and
// must not be replayed by a forked child, which would double-flush or
// duplicate output.
func fileChildCleanup(data any) {
	fp := data.(*File)
	_ = unix.Close(fp.Fd())
}

// registerFileCleanup registers both cleanup variants for fp.
func registerFileCleanup(p *Pool, fp *File) {
	RegisterCleanup(p, fp, fileCleanup, fileChildCleanup)
}

// PFopen opens a buffered file handle over path, honoring the same mode
// strings as the C stdlib's fopen ("r", "r+", "w", "w+", "a", "a+").
// Modes beginning with 'a' are opened with O_APPEND|O_CREAT directly, as
// the original does, so appenders never race a separate seek-to-end.
func PFopen(p *Pool, path string, mode string) (*File, error) {
	blockAlarms()
	defer unblockAlarms()

	var f *os.File
	var err error

	if strings.HasPrefix(mode, "a") {
		flags := unix.O_WRONLY
		if strings.Contains(mode, "+") {
			flags = unix.O_RDWR
		}
		flags |= unix.O_APPEND | unix.O_CREAT

		fd, oerr := unix.Open(path, flags, 0o644)
		if oerr != nil {
			return nil, oerr
		}
		f = os.NewFile(uintptr(fd), path)
	} else {
		f, err = os.OpenFile(path, fopenFlags(mode), 0o644)
		if err != nil {
			return nil, err
		}
	}

	fp := &File{f: f, w: bufio.NewWriter(f)}
	registerFileCleanup(p, fp)
	return fp, nil
}

// PFdopen adopts an existing descriptor into a buffered handle.
func PFdopen(p *Pool, fd int, mode string) (*File, error) {
	blockAlarms()
	defer unblockAlarms()

	f := os.NewFile(uintptr(fd), "")
	fp := &File{f: f, w: bufio.NewWriter(f)}
	registerFileCleanup(p, fp)
	return fp, nil
}

// PFclose flushes and closes fp, unregistering its cleanup.
func PFclose(p *Pool, fp *File) error {
	blockAlarms()
	defer unblockAlarms()

	err := fp.w.Flush()
	if cerr := fp.f.Close(); err == nil {
		err = cerr
	}
	UnregisterCleanup(p, fp, fileCleanup)
	return err
}

// fopenFlags translates an fopen-style mode string to os.OpenFile flags
// for the non-append cases.
func fopenFlags(mode string) int {
	switch {
	case strings.HasPrefix(mode, "r+"):
		return os.O_RDWR
	case strings.HasPrefix(mode, "r"):
		return os.O_RDONLY
	case strings.HasPrefix(mode, "w+"):
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case strings.HasPrefix(mode, "w"):
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		return os.O_RDONLY
	}
}
