// Package artifact stores generated images and resolves image references
// back into bytes for the generation provider.
package artifact

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ServePrefix is the route under which this service serves stored artifacts
// when no public base URL is configured.
const ServePrefix = "/artifacts/"

// ImmutableCacheControl is sent with every artifact; keys are never reused.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

var ErrNotFound = errors.New("artifact: not found")

type Object struct {
	Data        []byte
	ContentType string
}

// Store is an immutable blob store. Put returns the reference callers use to
// retrieve the object later.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (*Object, bool, error)
	// base URL of the refs Put returns, "" when refs are served under ServePrefix
	PublicBase() string
}

// NewKey returns a fresh key of the form <kind>/<uuid><ext>.
func NewKey(kind, contentType string) string {
	return strings.Trim(kind, "/") + "/" + uuid.NewString() + ExtensionFor(contentType)
}

// ExtensionFor maps an image MIME type to a file extension. Unknown types
// fall back to .webp, the provider's default output.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".webp"
	}
}

// ContentTypeForKey infers a MIME type from the key's extension. It returns
// "" for unknown extensions.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}

// PublicRef builds the reference returned to callers for key.
func PublicRef(publicBase, key string) string {
	key = strings.TrimLeft(key, "/")
	if base := strings.TrimRight(strings.TrimSpace(publicBase), "/"); base != "" {
		return base + "/" + key
	}
	return ServePrefix + key
}
