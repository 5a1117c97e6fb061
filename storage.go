package cvsplit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

const gsPrefix = "gs://"

// IsGoogleStorage reports whether the path points into a Google Storage
// bucket.
func IsGoogleStorage(p string) bool {
	return strings.HasPrefix(p, gsPrefix)
}

// NeedsStorageClient reports whether any of the paths require a Google Storage
// client.
func NeedsStorageClient(paths ...string) bool {
	for _, p := range paths {
		if IsGoogleStorage(p) {
			return true
		}
	}

	return false
}

func splitGSPath(p string) (bucketName, objectName string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(p, gsPrefix), "/", 2)
	if len(pathParts) != 2 {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// Open opens a local file or a gs:// object for reading. Compressed content
// (gzip, bzip2, xz, zip, zlib) is decompressed transparently. The client may be
// nil if the path is local.
func Open(ctx context.Context, p string, client *storage.Client) (io.ReadCloser, error) {
	var raw io.ReadCloser

	if IsGoogleStorage(p) {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s: no google storage client was configured", p))
		}

		bucketName, objectName, err := splitGSPath(p)
		if err != nil {
			return nil, pfx.Err(err)
		}

		rdr, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", p, err))
		}
		raw = rdr
	} else {
		f, err := os.Open(p)
		if err != nil {
			return nil, pfx.Err(err)
		}
		raw = f
	}

	rc, _, err := MaybeDecompressReadCloser(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	return rc, nil
}

// ReadAll opens the path with Open and returns its full (decompressed)
// content.
func ReadAll(ctx context.Context, p string, client *storage.Client) ([]byte, error) {
	rc, err := Open(ctx, p, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", p, err))
	}

	return b, nil
}

// Create opens a local file or a gs:// object for writing. Local files are
// truncated. For gs:// objects, the content is only committed once Close
// returns without error.
func Create(ctx context.Context, p string, client *storage.Client) (io.WriteCloser, error) {
	if IsGoogleStorage(p) {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s: no google storage client was configured", p))
		}

		bucketName, objectName, err := splitGSPath(p)
		if err != nil {
			return nil, pfx.Err(err)
		}

		w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
		w.ContentType = "application/json"

		return w, nil
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return f, nil
}

// Join joins a directory and a file name, for local directories as well as
// gs:// prefixes.
func Join(dir, name string) string {
	if IsGoogleStorage(dir) {
		return gsPrefix + path.Join(strings.TrimPrefix(dir, gsPrefix), name)
	}

	return filepath.Join(dir, name)
}

// ListWithPrefix returns the sorted names (not full paths) of the entries
// directly inside dir whose names start with prefix.
func ListWithPrefix(ctx context.Context, dir, prefix string, client *storage.Client) ([]string, error) {
	var out []string

	if IsGoogleStorage(dir) {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s: no google storage client was configured", dir))
		}

		bucketName, folder, err := splitGSPath(strings.TrimSuffix(dir, "/") + "/")
		if err != nil {
			return nil, pfx.Err(err)
		}

		it := client.Bucket(bucketName).Objects(ctx, &storage.Query{
			Prefix:    folder + prefix,
			Delimiter: "/",
		})
		for {
			attrs, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, pfx.Err(err)
			}

			// Synthetic "directory" entries carry only a Prefix.
			if attrs.Name == "" {
				continue
			}
			out = append(out, strings.TrimPrefix(attrs.Name, folder))
		}

		sort.Strings(out)
		return out, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		out = append(out, entry.Name())
	}

	sort.Strings(out)
	return out, nil
}
