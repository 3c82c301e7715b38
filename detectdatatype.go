package rilcoupling

import (
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if err == io.EOF {
		// Empty input is still valid, uncompressed input
		return DataTypeNoCompression, nil
	} else if err != nil && err != io.ErrUnexpectedEOF {
		return DataTypeInvalid, err
	}
	buff = buff[:n]

Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloser sniffs the first bytes of f, rewinds it, and wraps
// it in the matching decompressor. Unrecognized input is returned as-is.
// Closing the returned reader also closes f.
func MaybeDecompressReadCloser(f ReadSeekCloser) (io.ReadCloser, DataType, error) {
	dt, err := DetectDataType(f)
	if err != nil {
		return nil, dt, pfx.Err(err)
	}

	// Reset the original reader before wrapping it
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, dt, pfx.Err(err)
	}

	var r io.Reader
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		return &stackedReadCloser{Reader: gz, closers: []io.Closer{gz, f}}, dt, nil
	case DataTypeZip:
		// Only the first file in the archive is read
		zr := zipstream.NewReader(f)
		if _, err := zr.Next(); err != nil {
			return nil, dt, pfx.Err(err)
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(f)
	case DataTypeXZ:
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		r = xzr
	case DataTypeZ:
		zr, err := zlib.NewReader(f)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		return &stackedReadCloser{Reader: zr, closers: []io.Closer{zr, f}}, dt, nil
	default:
		// No data type detected. For now, we assume this is uncompressed.
		return f, dt, nil
	}

	return &stackedReadCloser{Reader: r, closers: []io.Closer{f}}, dt, nil
}

// stackedReadCloser closes a decompressor and then its underlying source.
type stackedReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *stackedReadCloser) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
