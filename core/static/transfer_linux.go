//go:build linux

package static

import (
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sendfile attempts a zero-copy transfer. It reports handled=false when
// dst is not a raw socket, letting the caller take the generic path.
func sendfile(dst io.Writer, src *os.File, offset, size int64) (written int64, handled bool, err error) {
	sc, ok := dst.(syscall.Conn)
	if !ok {
		return 0, false, nil
	}
	raw, rerr := sc.SyscallConn()
	if rerr != nil {
		return 0, false, nil
	}

	var serr error
	werr := raw.Write(func(fd uintptr) bool {
		for written < size {
			n, err := unix.Sendfile(int(fd), int(src.Fd()), &offset, int(size-written))
			if n > 0 {
				written += int64(n)
			}
			switch err {
			case nil:
				if n == 0 {
					return true
				}
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				// socket buffer full, wait until writable again
				return false
			default:
				serr = err
				return true
			}
		}
		return true
	})
	if serr == nil {
		serr = werr
	}
	return written, true, serr
}
