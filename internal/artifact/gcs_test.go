package artifact

import (
	"context"
	"testing"

	"google.golang.org/api/option"
)

func TestGCSStoreDefaultPublicBase(t *testing.T) {
	s, err := NewGCSStore(context.Background(), "looks", "", option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewGCSStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if s.PublicBase() != "https://storage.googleapis.com/looks" {
		t.Fatalf("public base = %q", s.PublicBase())
	}
	f := NewFetcher(s, "")
	if key, ok := f.StoreKey("https://storage.googleapis.com/looks/pose/p.webp"); !ok || key != "pose/p.webp" {
		t.Fatalf("generated ref not resolved to the bucket: %q %v", key, ok)
	}
}
