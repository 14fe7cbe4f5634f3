package cachetable

import "testing"

func TestNewSelectsBackend(t *testing.T) {
	tbl, err := New(Config{}, nil, nil)
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := tbl.(*MemoryTable); !ok {
		t.Fatalf("expected memory table by default, got %T", tbl)
	}

	if _, err := New(Config{Backend: BackendRedis}, nil, nil); err == nil {
		t.Fatalf("redis backend without client must fail")
	}
	if _, err := New(Config{Backend: BackendPostgres}, nil, nil); err == nil {
		t.Fatalf("postgres backend without pool must fail")
	}
	if _, err := New(Config{Backend: "dynamo"}, nil, nil); err == nil {
		t.Fatalf("unknown backend must fail")
	}
	if _, err := New(Config{Backend: BackendPostgres}, nil, &stubQuerier{}); err != nil {
		t.Fatalf("postgres backend: %v", err)
	}
}
