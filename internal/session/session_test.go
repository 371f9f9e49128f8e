package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
)

func TestImpersonationStack(t *testing.T) {
	admin := model.Identity{UserID: 1, Role: model.RoleAdmin}
	student := model.Identity{UserID: 7, Role: model.RoleStudent}
	company := model.Identity{UserID: 9, Role: model.RoleCompany}

	s := New(admin)
	if s.ID == "" {
		t.Fatal("empty session id")
	}
	if _, err := s.Pop(); !errors.Is(err, ErrNotImpersonating) {
		t.Fatalf("pop without frame: %v", err)
	}
	if err := s.Push(student); err != nil {
		t.Fatal(err)
	}
	if cur, _ := s.Current(); cur != student {
		t.Fatalf("current = %+v", cur)
	}
	if orig, _ := s.Original(); orig != admin {
		t.Fatalf("original = %+v", orig)
	}
	if err := s.Push(company); !errors.Is(err, ErrImpersonationActive) {
		t.Fatalf("nested push: %v", err)
	}
	if cur, _ := s.Current(); cur != student {
		t.Fatalf("nested push changed current to %+v", cur)
	}
	restored, err := s.Pop()
	if err != nil || restored != admin || s.Impersonating() {
		t.Fatalf("pop: %+v %v", restored, err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	m := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	s := New(model.Identity{UserID: 3, Role: model.RoleCompany})
	if err := m.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	now = now.Add(50 * time.Second)
	got, err := m.Load(ctx, s.ID)
	if err != nil || len(got.Frames) != 1 || got.Frames[0].UserID != 3 {
		t.Fatalf("load: %+v %v", got, err)
	}
	// the read above slid the expiry
	now = now.Add(50 * time.Second)
	if _, err := m.Load(ctx, s.ID); err != nil {
		t.Fatalf("sliding expiry: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := m.Load(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSweepsAbandonedSessions(t *testing.T) {
	m := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		_ = m.Save(ctx, New(model.Identity{UserID: i, Role: model.RoleStudent}))
	}
	now = now.Add(2 * time.Minute)
	fresh := New(model.Identity{UserID: 9, Role: model.RoleStudent})
	_ = m.Save(ctx, fresh)

	m.mu.Lock()
	n := len(m.data)
	m.mu.Unlock()
	if n != 1 {
		t.Fatalf("%d entries left, want 1", n)
	}
	if _, err := m.Load(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session: %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	m := NewMemoryStore(time.Hour)
	ctx := context.Background()
	s := New(model.Identity{UserID: 1, Role: model.RoleStudent})
	_ = m.Save(ctx, s)
	_ = m.Delete(ctx, s.ID)
	if _, err := m.Load(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
