package rilcoupling

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Decorates a Google Storage object handle with io.Reader, io.Seeker and
// io.Closer. Derived from
// https://github.com/googleapis/google-cloud-go/issues/1124#issuecomment-419070541
//
// Only rewinding to the start is supported, which is all that compression
// sniffing needs.
type GSReadSeekCloser struct {
	*storage.ObjectHandle
	Context context.Context
	r       *storage.Reader
	pos     int64
}

func (s *GSReadSeekCloser) Read(buf []byte) (int, error) {
	var err error
	if s.r == nil {
		s.r, err = s.NewRangeReader(s.Context, 0, -1)
		if err != nil {
			return 0, err
		}
	}
	n, err := s.r.Read(buf)
	s.pos += int64(n)

	return n, err
}

func (s *GSReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart || offset != 0 {
		return s.pos, fmt.Errorf("GSReadSeekCloser can only seek to the start, not offset %d whence %d", offset, whence)
	}

	// Seeking is not actually possible. As a proxy, we close the current
	// connection and let the next Read open a new one.
	if s.r != nil {
		s.r.Close()
		s.r = nil
	}
	s.pos = 0

	return 0, nil
}

func (s *GSReadSeekCloser) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil

	return err
}

// SplitGSPath splits gs://bucket/object into its bucket and object names.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path %q into 2 parts, but got %d: %v", path, len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// IsGSPath reports whether path points into Google Storage.
func IsGSPath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// MaybeOpenSeekerFromGoogleStorage opens gs:// paths through client and all
// other paths from the local filesystem.
func MaybeOpenSeekerFromGoogleStorage(ctx context.Context, path string, client *storage.Client) (ReadSeekCloser, int64, error) {
	if IsGSPath(path) {
		if client == nil {
			return nil, 0, fmt.Errorf("%s: no Google Storage client was configured", path)
		}

		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return nil, 0, err
		}

		handle := client.Bucket(bucketName).Object(pathName)

		wrappedHandle := &GSReadSeekCloser{
			ObjectHandle: handle,
			Context:      ctx,
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(ctx)
		if err != nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(ExpandHome(path))
	if err != nil {
		return nil, 0, err
	}
	fstat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, fstat.Size(), nil
}

// Open opens a local or gs:// path and transparently decompresses it.
func Open(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	raw, _, err := MaybeOpenSeekerFromGoogleStorage(ctx, path, client)
	if err != nil {
		return nil, err
	}

	rc, _, err := MaybeDecompressReadCloser(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rc, nil
}

// Create opens a local file or a gs:// object for writing. The object is
// only committed to Google Storage when Close returns without error.
func Create(ctx context.Context, path string, client *storage.Client) (io.WriteCloser, error) {
	if IsGSPath(path) {
		if client == nil {
			return nil, fmt.Errorf("%s: no Google Storage client was configured", path)
		}

		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return nil, err
		}

		return client.Bucket(bucketName).Object(pathName).NewWriter(ctx), nil
	}

	return os.Create(ExpandHome(path))
}
