package datalayer

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/coldcore/memlayer/layer"
)

// MmapDataLayer is a leaf DataLayer backed by a file mapped into the
// process's address space with mmap(2), read and written directly as
// memory rather than through read(2)/write(2) syscalls per access.
// The mapping technique (unix.Mmap + unix.Madvise) follows
// fusion/kmer_index.go, adapted here from an anonymous MAP_PRIVATE
// hugepage table to a file-backed MAP_SHARED region sized to the file.
type MmapDataLayer struct {
	name      string
	f         *os.File
	data      []byte
	writable  bool
	metadata  map[string]string
	destroyed bool
}

// NewMmapDataLayer maps the whole of the file at path and returns a
// layer named name over it. writable controls the mmap protection and
// whether Write is permitted.
func NewMmapDataLayer(name, path string, writable bool, metadata map[string]string) (*MmapDataLayer, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "datalayer: opening %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close() // nolint: errcheck
		return nil, errors.Wrapf(err, "datalayer: stat %s", path)
	}
	size := int(fi.Size())
	if size == 0 {
		f.Close() // nolint: errcheck
		return nil, layer.NewError("datalayer: cannot mmap empty file %s", path)
	}

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		f.Close() // nolint: errcheck
		return nil, errors.Wrapf(err, "datalayer: mmap %s", path)
	}
	if err := unix.Madvise(data, unix.MADV_RANDOM); err != nil {
		unix.Munmap(data) // nolint: errcheck
		f.Close()         // nolint: errcheck
		return nil, errors.Wrapf(err, "datalayer: madvise %s", path)
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	return &MmapDataLayer{name: name, f: f, data: data, writable: writable, metadata: metadata}, nil
}

func (m *MmapDataLayer) Name() string { return m.name }

func (m *MmapDataLayer) MinimumAddress() int64 { return 0 }

func (m *MmapDataLayer) MaximumAddress() int64 {
	if len(m.data) == 0 {
		return 0
	}
	return int64(len(m.data)) - 1
}

func (m *MmapDataLayer) AddressMask() uint64 { return layer.AddressMaskFor(m.MaximumAddress()) }

func (m *MmapDataLayer) IsValid(offset, length int64) bool {
	if m.destroyed {
		return false
	}
	return layer.CheckBounds(0, m.MaximumAddress(), offset, length)
}

func (m *MmapDataLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	if m.destroyed {
		return nil, layer.NewInvalidAddress(m.name, offset, "layer destroyed")
	}
	out := make([]byte, length)
	size := int64(len(m.data))
	copyLen := length
	if offset >= size || offset < 0 {
		copyLen = 0
	} else if offset+length > size {
		copyLen = size - offset
	}
	if copyLen > 0 {
		copy(out, m.data[offset:offset+copyLen])
	}
	if copyLen < length && !pad {
		return nil, layer.NewInvalidAddress(m.name, offset+copyLen, "out of range")
	}
	return out, nil
}

func (m *MmapDataLayer) Write(offset int64, data []byte) error {
	if m.destroyed {
		return layer.NewInvalidAddress(m.name, offset, "layer destroyed")
	}
	if !m.writable {
		return layer.NewError("layer %s is read-only", m.name)
	}
	if !m.IsValid(offset, int64(len(data))) {
		return layer.NewInvalidAddress(m.name, offset, "out of range")
	}
	copy(m.data[offset:offset+int64(len(data))], data)
	return nil
}

func (m *MmapDataLayer) Destroy() error {
	if m.destroyed {
		return nil
	}
	m.destroyed = true
	err := unix.Munmap(m.data)
	m.data = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (m *MmapDataLayer) Dependencies() []string { return nil }

func (m *MmapDataLayer) DirectMetadata() map[string]string { return m.metadata }

func (m *MmapDataLayer) GetRequirements() []layer.Requirement {
	return []layer.Requirement{
		{Name: "path", Description: "path to the file to mmap", Type: "string"},
	}
}

func (m *MmapDataLayer) BuildConfiguration() layer.HierarchicalDict {
	return layer.HierarchicalDict{
		"class": "github.com/coldcore/memlayer/datalayer.MmapDataLayer",
		"name":  m.name,
	}
}
