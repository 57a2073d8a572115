//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package codesize

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// direntBufSize is the buffer handed to getdents.
const direntBufSize = 32 * 1024

// DefaultOpener returns the descriptor backend built on openat and fstat.
func DefaultOpener() Opener { return fdOpener{} }

type fdOpener struct{}

func (fdOpener) OpenDir(path string) (Handle, error) {
	fd, err := ignoringEINTR(func() (int, error) {
		return unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	})
	if err != nil {
		return nil, err
	}

	return &fdHandle{fd: fd}, nil
}

// fdHandle owns one file descriptor.
type fdHandle struct {
	fd int
}

func (h *fdHandle) OpenAt(name string) (Handle, error) {
	// O_NONBLOCK keeps fifos from blocking the open; it has no effect on
	// regular files and directories. O_NOCTTY keeps a tty under the tree
	// from becoming the controlling terminal.
	fd, err := ignoringEINTR(func() (int, error) {
		return unix.Openat(h.fd, name, unix.O_RDONLY|unix.O_CLOEXEC|unix.O_NOFOLLOW|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	})

	switch {
	case err == nil:
		return &fdHandle{fd: fd}, nil
	case errors.Is(err, unix.ELOOP), errors.Is(err, unix.EMLINK), errors.Is(err, unix.ENXIO), errors.Is(err, unix.EOPNOTSUPP):
		// symlink (ELOOP, EMLINK on FreeBSD) or socket
		return nil, nil //nolint:nilnil // Skipped entry
	default:
		return nil, err
	}
}

func (h *fdHandle) Stat() (FileType, int64, error) {
	var st unix.Stat_t
	if err := ignoringEINTRErr(func() error { return unix.Fstat(h.fd, &st) }); err != nil {
		return TypeOther, 0, err
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return TypeRegular, st.Size, nil
	case unix.S_IFDIR:
		return TypeDir, st.Size, nil
	default:
		return TypeOther, st.Size, nil
	}
}

func (h *fdHandle) ReadNames() ([]string, error) {
	buf := make([]byte, direntBufSize)

	var names []string

	for {
		n, err := ignoringEINTR(func() (int, error) { return unix.ReadDirent(h.fd, buf) })
		if err != nil {
			return nil, err
		}

		if n <= 0 {
			return names, nil
		}

		_, _, names = unix.ParseDirent(buf[:n], -1, names)
	}
}

func (h *fdHandle) Read(p []byte) (int, error) {
	n, err := ignoringEINTR(func() (int, error) { return unix.Read(h.fd, p) })
	if err != nil {
		return 0, err
	}

	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}

	return n, nil
}

func (h *fdHandle) Close() error {
	if h.fd < 0 {
		return os.ErrClosed
	}

	fd := h.fd
	h.fd = -1

	return unix.Close(fd)
}

func ignoringEINTR(fn func() (int, error)) (int, error) {
	for {
		n, err := fn()
		if !errors.Is(err, unix.EINTR) {
			return n, err
		}
	}
}

func ignoringEINTRErr(fn func() error) error {
	for {
		if err := fn(); !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
