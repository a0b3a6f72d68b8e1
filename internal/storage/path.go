package storage

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// PathCodec maps between public object URLs and the bucket-relative paths used
// for deletion. It is a pure value type constructed once with the configured
// bucket name.
type PathCodec struct {
	bucket string
}

// NewPathCodec creates a codec for the given bucket.
func NewPathCodec(bucket string) *PathCodec {
	return &PathCodec{bucket: bucket}
}

// Encode generates a fresh bucket-relative path for an upload by the given
// owner: "{ownerID}/{uuid}{ext}". The random file name makes every upload
// unique; the original file's extension is preserved when present.
func (c *PathCodec) Encode(ownerID, originalName string) string {
	ext := path.Ext(originalName)
	return ownerID + "/" + uuid.NewString() + ext
}

// Decode extracts the bucket-relative path from a public URL produced by the
// store. It locates the bucket segment within the URL path and returns the
// percent-decoded remainder. Malformed or foreign URLs (no bucket segment) are
// a normal case — legacy rows may point at externally hosted images — and
// decode to "", meaning there is nothing to delete.
func (c *PathCodec) Decode(publicURL string) string {
	parsed, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}

	segments := splitNonEmpty(parsed.EscapedPath())
	bucketIdx := -1
	for i, seg := range segments {
		if seg == c.bucket {
			bucketIdx = i
			break
		}
	}
	if bucketIdx == -1 || bucketIdx == len(segments)-1 {
		return ""
	}

	rest := segments[bucketIdx+1:]
	for i, seg := range rest {
		if decoded, err := url.PathUnescape(seg); err == nil {
			rest[i] = decoded
		}
	}
	return strings.Join(rest, "/")
}

func splitNonEmpty(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
