package static

import (
	"io"
	"os"
)

// Transfer copies size bytes of src starting at offset into dst. On
// Linux sockets it uses the sendfile syscall for a zero-copy path;
// otherwise it falls back to a positioned copy. Either way the shared
// handle's own file offset is left untouched.
func Transfer(dst io.Writer, src *os.File, offset, size int64) (int64, error) {
	if n, handled, err := sendfile(dst, src, offset, size); handled {
		return n, err
	}
	return io.Copy(dst, io.NewSectionReader(src, offset, size))
}
