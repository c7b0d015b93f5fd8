package zipfile

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets a logger for debug-level parse, serialize, and
// compression events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithCompressor replaces the DEFLATE compressor used by Compress.
// The default is a pooled klauspost/compress writer at the default level.
func WithCompressor(c Compressor) Option {
	return func(a *Archive) {
		a.compressor = c
	}
}

// WithDecompressor replaces the DEFLATE decompressor used by Entry.Blob.
func WithDecompressor(d Decompressor) Option {
	return func(a *Archive) {
		a.decompressor = d
	}
}

// WithMaxScanBytes overrides how far back from the end of the buffer Parse
// searches for the end of central directory record. The default covers the
// record plus the largest legal comment (65557 bytes), which is sufficient
// for any well-formed archive.
func WithMaxScanBytes(n int) Option {
	return func(a *Archive) {
		a.maxScanBytes = n
	}
}
