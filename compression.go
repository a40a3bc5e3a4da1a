package ampliseq

import (
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"os"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression identifies the compression wrapper, if any, around an input
// file. QIIME2 exports (feature tables, taxonomy, trees) are routinely
// gzipped, so every parser in this module accepts possibly-compressed input.
type Compression byte

const (
	CompressionInvalid Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionZ
	CompressionBZip2
)

var compressionSigs = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b, 0x08},
	CompressionZip:   {0x50, 0x4b, 0x03, 0x04},
	CompressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	CompressionZ:     {0x1f, 0x9d},
	CompressionBZip2: {0x42, 0x5a, 0x68},
}

// SniffCompression reads the leading bytes of r and matches them against
// known magic numbers. The reader is consumed; callers that need the full
// stream should seek back afterward.
func SniffCompression(r io.Reader) (Compression, error) {
	buff := make([]byte, 6)
	if _, err := r.Read(buff); err != nil {
		return CompressionInvalid, err
	}

Outer:
	for c, sig := range compressionSigs {
		for i := range sig {
			if buff[i] != sig[i] {
				continue Outer
			}
		}
		return c, nil
	}

	return CompressionNone, nil
}

// OpenMaybeCompressed opens path and returns a reader over its uncompressed
// contents, sniffing the compression format from the file's magic bytes.
// Uncompressed files are passed through untouched.
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, err
	}

	r, err := MaybeDecompress(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// MaybeDecompress wraps f in the appropriate decompressor based on its
// leading magic bytes, resetting the file offset before handing it off.
func MaybeDecompress(f *os.File) (io.ReadCloser, error) {
	c, err := SniffCompression(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch c {
	case CompressionGzip:
		return gzip.NewReader(f)
	case CompressionZip:
		return &nopCloser{zipstream.NewReader(f)}, nil
	case CompressionBZip2:
		return &nopCloser{bzip2.NewReader(f)}, nil
	case CompressionXZ:
		reader, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, err
		}
		return &nopCloser{reader}, nil
	case CompressionZ:
		return zlib.NewReader(f)
	}

	return f, nil
}

// nopCloser upgrades readers that have nothing to close.
type nopCloser struct {
	io.Reader
}

func (c *nopCloser) Close() error { return nil }
