// +build !cgo

package translation

// zlibngCodec falls back to gzipCodec without cgo, mirroring
// encoding/bgzf/writer_nocgo.go's cgo-required stub — except a panic
// would make CompressedTranslationLayer unusable in pure-Go builds, so
// this degrades to gzip instead of refusing to run.
func zlibngCodec() Codec { return gzipCodec{} }
