package coffer

import (
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MappedFile is a read-only memory-mapped .class file. It satisfies
// io.ReaderAt, so callers decoding many methods' Code attributes out of
// one large class file can seek into it directly instead of copying the
// whole file into the Go heap up front.
//
// Grounded file-for-file on saferwall-pe's File.New: os.Open followed by
// mmap.Map(f, mmap.RDONLY, 0). The file handle stays open alongside the
// mapping until Close, which unmaps first and then closes the handle.
type MappedFile struct {
	data mmap.MMap
	f    *os.File
}

// OpenFile memory-maps path read-only and returns a MappedFile over its
// contents. The caller must call Close when done to unmap the file.
func OpenFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	logger.Printf("mapped %s (%d bytes)", path, len(data))
	return &MappedFile{data: data, f: f}, nil
}

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *MappedFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, os.ErrInvalid
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the full mapped contents. The returned slice is valid only
// until Close is called.
func (m *MappedFile) Bytes() []byte { return m.data }

// Close unmaps the file and closes its underlying handle.
func (m *MappedFile) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
