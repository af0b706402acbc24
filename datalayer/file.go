package datalayer

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"

	"github.com/coldcore/memlayer/layer"
)

// registers the "s3://" scheme with grailbio/base/file, the same
// registration encoding/bamprovider/provider_test.go's TestMain
// performs, so GrailFileOpener transparently handles S3 paths.
func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

// Handle is the narrow random-access capability FileDataLayer needs
// from whatever backs it (a local file or an S3 object).
type Handle interface {
	io.ReaderAt
	Close() error
	Size() int64
}

// WritableHandle is a Handle that also supports positioned writes.
// Local files implement it; the S3 opener below does not (S3 objects
// are not byte-range writable), matching a FileDataLayer opened over
// S3 to read-only use.
type WritableHandle interface {
	Handle
	io.WriterAt
}

// Opener opens path and returns a Handle for it.
type Opener interface {
	Open(ctx context.Context, path string) (Handle, error)
}

// LocalOpener opens ordinary local files, read-write.
type LocalOpener struct{}

type localHandle struct{ f *os.File }

func (h localHandle) ReadAt(p []byte, off int64) (int, error)  { return h.f.ReadAt(p, off) }
func (h localHandle) WriteAt(p []byte, off int64) (int, error) { return h.f.WriteAt(p, off) }
func (h localHandle) Close() error                             { return h.f.Close() }
func (h localHandle) Size() int64 {
	fi, err := h.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

func (LocalOpener) Open(_ context.Context, path string) (Handle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "datalayer: opening %s", path)
	}
	return localHandle{f: f}, nil
}

// GrailFileOpener opens local or S3 paths read-only through
// github.com/grailbio/base/file, the abstraction the teacher uses
// throughout (pileup/common.go, markduplicates/mark_duplicates.go) to
// treat "a path" uniformly whether it names a local file or an S3
// object (once an s3file.Implementation has been registered with
// file.RegisterImplementation, as encoding/bamprovider/provider_test.go
// does in its TestMain). Only reads are supported: file.File exposes
// a streaming Reader(ctx), not a ReaderAt, so random access is
// emulated here with an io.Seeker assertion, which both the local and
// s3file implementations satisfy.
type GrailFileOpener struct{}

type grailHandle struct {
	ctx context.Context
	f   file.File
	rs  io.ReadSeeker
	size int64
}

func (h grailHandle) ReadAt(p []byte, off int64) (int, error) {
	if _, err := h.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(h.rs, p)
}

func (h grailHandle) Close() error { return h.f.Close(h.ctx) }
func (h grailHandle) Size() int64  { return h.size }

func (GrailFileOpener) Open(ctx context.Context, path string) (Handle, error) {
	if ctx == nil {
		ctx = vcontext.Background()
	}
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "datalayer: opening %s", path)
	}
	rs, ok := f.Reader(ctx).(io.ReadSeeker)
	if !ok {
		f.Close(ctx) // nolint: errcheck
		return nil, errors.Errorf("datalayer: %s does not support random access", path)
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close(ctx) // nolint: errcheck
		return nil, errors.Wrapf(err, "datalayer: sizing %s", path)
	}
	return grailHandle{ctx: ctx, f: f, rs: rs, size: size}, nil
}

// FileDataLayer is a DataLayer whose address space is the contents of
// a file opened through an Opener, covering [0, size). A file is
// assumed gapless (spec.md §4.2).
type FileDataLayer struct {
	name      string
	path      string
	handle    Handle
	metadata  map[string]string
	destroyed bool
}

// NewFileDataLayer opens path through opener and returns a FileDataLayer
// named name.
func NewFileDataLayer(ctx context.Context, name, path string, opener Opener, metadata map[string]string) (*FileDataLayer, error) {
	h, err := opener.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &FileDataLayer{name: name, path: path, handle: h, metadata: metadata}, nil
}

func (f *FileDataLayer) Name() string { return f.name }

func (f *FileDataLayer) MinimumAddress() int64 { return 0 }

func (f *FileDataLayer) MaximumAddress() int64 {
	size := f.handle.Size()
	if size == 0 {
		return 0
	}
	return size - 1
}

func (f *FileDataLayer) AddressMask() uint64 { return layer.AddressMaskFor(f.MaximumAddress()) }

func (f *FileDataLayer) IsValid(offset, length int64) bool {
	if f.destroyed {
		return false
	}
	return layer.CheckBounds(0, f.MaximumAddress(), offset, length)
}

func (f *FileDataLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	if f.destroyed {
		return nil, layer.NewInvalidAddress(f.name, offset, "layer destroyed")
	}
	size := f.handle.Size()
	out := make([]byte, length)
	readLen := length
	if offset >= size {
		readLen = 0
	} else if offset+length > size {
		readLen = size - offset
	}
	if readLen > 0 {
		n, err := f.handle.ReadAt(out[:readLen], offset)
		if err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "datalayer: reading %s", f.path)
		}
		if int64(n) < readLen && !pad {
			return nil, layer.NewInvalidAddress(f.name, offset+int64(n), "short read")
		}
	}
	if readLen < length && !pad {
		return nil, layer.NewInvalidAddress(f.name, offset+readLen, "out of range")
	}
	return out, nil
}

func (f *FileDataLayer) Write(offset int64, data []byte) error {
	if f.destroyed {
		return layer.NewInvalidAddress(f.name, offset, "layer destroyed")
	}
	w, ok := f.handle.(WritableHandle)
	if !ok {
		return layer.NewError("layer %s is read-only", f.name)
	}
	if !f.IsValid(offset, int64(len(data))) {
		return layer.NewInvalidAddress(f.name, offset, "out of range")
	}
	if _, err := w.WriteAt(data, offset); err != nil {
		return errors.Wrapf(err, "datalayer: writing %s", f.path)
	}
	return nil
}

func (f *FileDataLayer) Destroy() error {
	if f.destroyed {
		return nil
	}
	f.destroyed = true
	return f.handle.Close()
}

func (f *FileDataLayer) Dependencies() []string { return nil }

func (f *FileDataLayer) DirectMetadata() map[string]string { return f.metadata }

func (f *FileDataLayer) GetRequirements() []layer.Requirement {
	return []layer.Requirement{
		{Name: "path", Description: "path to the backing file (local or s3://...)", Type: "string"},
	}
}

func (f *FileDataLayer) BuildConfiguration() layer.HierarchicalDict {
	return layer.HierarchicalDict{
		"class": "github.com/coldcore/memlayer/datalayer.FileDataLayer",
		"name":  f.name,
		"path":  f.path,
	}
}
