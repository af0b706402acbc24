package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldcore/memlayer/datalayer"
	"github.com/coldcore/memlayer/layer"
	"github.com/coldcore/memlayer/memspace"
)

// fakeGapLayer is a minimal TranslationLayer with a single gap,
// exercising §4.5's "no chunk crosses a gap" invariant without
// depending on the translation package (which would be an import
// cycle risk and is more machinery than this test needs).
type fakeGapLayer struct {
	name string
	mem  *memspace.Memory
}

func (f *fakeGapLayer) Name() string             { return f.name }
func (f *fakeGapLayer) MinimumAddress() int64     { return 0 }
func (f *fakeGapLayer) MaximumAddress() int64     { return 11 }
func (f *fakeGapLayer) AddressMask() uint64       { return 0xf }
func (f *fakeGapLayer) IsValid(o, l int64) bool   { return true }
func (f *fakeGapLayer) Destroy() error            { return nil }
func (f *fakeGapLayer) Dependencies() []string    { return []string{"base"} }
func (f *fakeGapLayer) DirectMetadata() map[string]string   { return nil }
func (f *fakeGapLayer) GetRequirements() []layer.Requirement { return nil }
func (f *fakeGapLayer) BuildConfiguration() layer.HierarchicalDict { return nil }

func (f *fakeGapLayer) Mapping(offset, length int64, ignoreErrors bool) ([]layer.MappingTuple, error) {
	var out []layer.MappingTuple
	spans := []layer.MappingTuple{
		{Offset: 0, MappedOffset: 0, Length: 4, LayerName: "base"},
		{Offset: 8, MappedOffset: 8, Length: 4, LayerName: "base"},
	}
	for _, t := range spans {
		if t.Offset+t.Length > offset && t.Offset < offset+length {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeGapLayer) Read(offset, length int64, pad bool) ([]byte, error) {
	return layer.ReadThroughMapping(f, f.mem, offset, length, pad)
}

func (f *fakeGapLayer) Write(offset int64, data []byte) error {
	return layer.WriteThroughMapping(f, f.mem, offset, data)
}

type recordingScanner struct {
	BaseScanner
	threadSafe bool
	chunks     [][]byte
}

func (r *recordingScanner) ThreadSafe() bool { return r.threadSafe }

func (r *recordingScanner) ScanChunk(data []byte, dataOffset int64) []Match {
	r.chunks = append(r.chunks, data)
	return []Match{dataOffset}
}

func TestGaplessIteratorCoversRangeWithOverlap(t *testing.T) {
	iter := GaplessIterator("l", 4, 1)
	var ends []int64
	for d := range iter(0, 10) {
		ends = append(ends, d.ChunkEnd)
		assert.LessOrEqual(t, d.Spans[0].Length, int64(5))
	}
	assert.Equal(t, []int64{5, 9, 10}, ends)
}

func TestScanSequentialCoversEveryByte(t *testing.T) {
	mem := memspace.New()
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	l := datalayer.NewBufferDataLayer("l", data, nil)
	require.NoError(t, mem.AddLayer(l))

	scanner := &recordingScanner{BaseScanner: NewBaseScanner()}
	scanner.SetChunkSize(8)
	scanner.SetOverlap(2)

	var offsets []int64
	for r := range Scan(context.Background(), l, mem, scanner, Options{}) {
		require.NoError(t, r.Err)
		offsets = append(offsets, r.Match.(int64))
	}
	assert.NotEmpty(t, offsets)

	var total int64
	for _, c := range scanner.chunks {
		total += int64(len(c))
	}
	assert.GreaterOrEqual(t, total, int64(20))
}

func TestScanParallelRunsThreadSafeScanner(t *testing.T) {
	mem := memspace.New()
	data := make([]byte, 1<<20)
	l := datalayer.NewBufferDataLayer("l", data, nil)
	require.NoError(t, mem.AddLayer(l))

	scanner := &recordingScanner{BaseScanner: NewBaseScanner(), threadSafe: true}
	scanner.SetChunkSize(1 << 16)
	scanner.SetOverlap(0)

	count := 0
	for r := range Scan(context.Background(), l, mem, scanner, Options{}) {
		require.NoError(t, r.Err)
		count++
	}
	assert.Equal(t, 16, count)
}

func TestScanInvalidBounds(t *testing.T) {
	mem := memspace.New()
	l := datalayer.NewBufferDataLayer("l", make([]byte, 10), nil)
	require.NoError(t, mem.AddLayer(l))

	scanner := &recordingScanner{BaseScanner: NewBaseScanner()}
	min := int64(9)
	max := int64(1)
	opts := Options{MinAddr: &min, MaxAddr: &max, Strict: true}

	var results []Result
	for r := range Scan(context.Background(), l, mem, scanner, opts) {
		results = append(results, r)
	}
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Equal(t, ErrInvalidBounds, results[0].Err)
}

func TestScanGapSkippedNotConcatenated(t *testing.T) {
	mem := memspace.New()
	require.NoError(t, mem.AddLayer(datalayer.NewBufferDataLayer("base", []byte("AABBCCDDEEFFGGHH"), nil)))

	// Two tuples with a gap between them: [0,4) and [8,12) of base,
	// leaving [4,8) unmapped in the translation layer's own space.
	tl := &fakeGapLayer{name: "tl", mem: mem}
	require.NoError(t, mem.AddLayer(tl))

	scanner := &recordingScanner{BaseScanner: NewBaseScanner()}
	scanner.SetChunkSize(100)
	scanner.SetOverlap(0)

	for r := range Scan(context.Background(), tl, mem, scanner, Options{}) {
		require.NoError(t, r.Err)
	}
	for _, c := range scanner.chunks {
		assert.NotContains(t, string(c), "BBCC")
	}
}
