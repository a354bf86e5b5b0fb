package cache

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"planner/internal/core"
	"planner/internal/memory"
	"planner/internal/metrics"
)

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	c.Set("z", "3")

	if _, ok := c.Get("x"); ok {
		t.Error("x should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d", c.Size())
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)
	c.Set("gone", 1)
	m := NewManager()
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow = %d", n)
	}
	m.Stop() // not started, must not block

	m.StartCleanup(time.Hour)
	m.Stop()
}

type countingDirectory struct {
	*memory.Accounts
	resolves int
}

func (c *countingDirectory) Resolve(ctx context.Context, id string) (core.Account, error) {
	c.resolves++
	return c.Accounts.Resolve(ctx, id)
}

func TestAccountDirectoryCachesHits(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{Accounts: memory.NewAccounts([]core.Account{{ID: "hdfc", Name: "HDFC Salary"}})}
	m := metrics.New()
	dir := NewAccountDirectory(inner, 8, time.Minute, m)

	for i := 0; i < 3; i++ {
		if _, err := dir.Resolve(ctx, "hdfc"); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if inner.resolves != 1 {
		t.Errorf("inner resolves = %d, want 1", inner.resolves)
	}

	if _, err := dir.Resolve(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := dir.Resolve(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("miss must not be cached, got %v", err)
	}

	created, err := dir.Create(ctx, core.Account{Name: "ICICI"})
	if err != nil {
		t.Fatal(err)
	}
	if got, err := dir.FindByName(ctx, " icici "); err != nil || got.ID != created.ID {
		t.Errorf("FindByName = %+v, %v", got, err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	for _, want := range []string{
		`planner_cache_lookups_total{result="hit"} 3`,
		`planner_cache_lookups_total{result="miss"} 3`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
