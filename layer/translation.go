package layer

import "fmt"

// MappingTuple describes one contiguous translation from a
// TranslationLayer's own address space onto a span of a named
// underlying layer. Offset is the address in the translating layer's
// space; MappedOffset is the address in LayerName's space; Length is
// the number of contiguous bytes covered.
type MappingTuple struct {
	Offset       int64
	MappedOffset int64
	Length       int64
	LayerName    string
}

// TranslationLayer is a DataLayer whose addresses resolve through
// Mapping into spans of one or more other layers.
type TranslationLayer interface {
	DataLayer

	// Mapping returns a sorted, non-overlapping sequence of mapping
	// tuples covering [offset, offset+length). When ignoreErrors is
	// false, the tuples' lengths sum to exactly length; when true, gaps
	// are permitted and the sum may be less.
	Mapping(offset, length int64, ignoreErrors bool) ([]MappingTuple, error)
}

// Translate returns the first mapping tuple's (mappedOffset, layerName)
// for a zero-length probe at offset. With ignoreErrors=true and no
// mapping present, it returns (0, "", nil) with ok=false. Otherwise an
// absent mapping is an *InvalidAddressError.
func Translate(tl TranslationLayer, offset int64, ignoreErrors bool) (mappedOffset int64, layerName string, ok bool, err error) {
	tuples, err := tl.Mapping(offset, 0, ignoreErrors)
	if err != nil {
		return 0, "", false, err
	}
	if len(tuples) == 0 {
		if ignoreErrors {
			return 0, "", false, nil
		}
		return 0, "", false, NewInvalidAddress(tl.Name(), offset, fmt.Sprintf("cannot translate %d", offset))
	}
	return tuples[0].MappedOffset, tuples[0].LayerName, true, nil
}

// ReadThroughMapping implements the generic TranslationLayer read
// algorithm: walk tl's mapping tuples in order, reading each
// underlying span through mr, raising InvalidAddressError on a gap
// (pad=false) or zero-filling it (pad=true), and erroring on an
// overlapping tuple. It is the default Read implementation for any
// TranslationLayer whose bytes are a straight concatenation of
// underlying spans (i.e. all but CompressedTranslationLayer).
func ReadThroughMapping(tl TranslationLayer, mr MemoryReader, offset, length int64, pad bool) ([]byte, error) {
	tuples, err := tl.Mapping(offset, length, pad)
	if err != nil {
		return nil, err
	}
	current := offset
	output := make([]byte, 0, length)
	for _, t := range tuples {
		if t.Offset > current {
			if !pad {
				return nil, NewInvalidAddress(tl.Name(), current, fmt.Sprintf("layer %s cannot map offset %d", tl.Name(), current))
			}
			output = append(output, make([]byte, t.Offset-current)...)
			current = t.Offset
		} else if t.Offset < current {
			return nil, NewError("overlapping mapping")
		}
		data, err := mr.Read(t.LayerName, t.MappedOffset, t.Length, pad)
		if err != nil {
			return nil, err
		}
		output = append(output, data...)
		current += t.Length
	}
	if int64(len(output)) < length {
		output = append(output, make([]byte, length-int64(len(output)))...)
	}
	return output, nil
}

// WriteThroughMapping mirrors ReadThroughMapping for writes: each
// mapping tuple writes the corresponding slice of data into its
// target layer. A gap is an *InvalidAddressError; an overlap is a
// layer.Error.
func WriteThroughMapping(tl TranslationLayer, mr MemoryReader, offset int64, data []byte) error {
	length := int64(len(data))
	tuples, err := tl.Mapping(offset, length, false)
	if err != nil {
		return err
	}
	current := offset
	pos := int64(0)
	for _, t := range tuples {
		if t.Offset > current {
			return NewInvalidAddress(tl.Name(), current, fmt.Sprintf("layer %s cannot map offset %d", tl.Name(), current))
		} else if t.Offset < current {
			return NewError("overlapping mapping")
		}
		end := pos + t.Length
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if err := mr.Write(t.LayerName, t.MappedOffset, data[pos:end]); err != nil {
			return err
		}
		current += t.Length
		pos = end
	}
	return nil
}
