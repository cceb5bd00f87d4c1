package kv

import (
	"context"
	"errors"
	"testing"
)

// storeFactories returns the Store implementations under test.
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()
	b, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"badger": b,
	}
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) err = %v; want ErrNotFound", err)
			}

			if err := s.Set(ctx, "identity", []byte(`{"username":"ada"}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, "identity")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"username":"ada"}` {
				t.Errorf("Get = %q", got)
			}

			// Whole-value overwrite.
			if err := s.Set(ctx, "identity", []byte(`{"username":"lin"}`)); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			got, _ = s.Get(ctx, "identity")
			if string(got) != `{"username":"lin"}` {
				t.Errorf("Get after overwrite = %q", got)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Delete(ctx, "nope"); err != nil {
				t.Errorf("Delete(missing) = %v; want nil", err)
			}
			s.Set(ctx, "k", []byte("v"))
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete err = %v; want ErrNotFound", err)
			}
		})
	}
}

func TestStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{"identity", "generated-sequence", "exposed-atoms", "exposed-sounds"}
			for _, k := range keys[:3] {
				s.Set(ctx, k, []byte("x"))
			}
			// One key deliberately absent.
			if err := s.DeleteAll(ctx, keys...); err != nil {
				t.Fatalf("DeleteAll: %v", err)
			}
			for _, k := range keys {
				if _, err := s.Get(ctx, k); !errors.Is(err, ErrNotFound) {
					t.Errorf("Get(%q) err = %v; want ErrNotFound", k, err)
				}
			}
		})
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "k", []byte("abc"))
	v, _ := m.Get(ctx, "k")
	v[0] = 'z'
	v2, _ := m.Get(ctx, "k")
	if string(v2) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", v2)
	}
}
