package cache

import (
	"context"
	"strings"
	"time"

	"planner/internal/core"
	"planner/internal/metrics"
	"planner/internal/ports"
)

var _ ports.AccountDirectory = (*AccountDirectory)(nil)

// AccountDirectory caches Resolve and FindByName results of the wrapped
// directory. Misses are not cached, so a freshly created account is found
// on the next call.
type AccountDirectory struct {
	next    ports.AccountDirectory
	byID    *LRUCache[core.Account]
	byName  *LRUCache[core.Account]
	metrics *metrics.Metrics
}

func NewAccountDirectory(next ports.AccountDirectory, size int, ttl time.Duration, m *metrics.Metrics) *AccountDirectory {
	return &AccountDirectory{
		next:    next,
		byID:    NewLRUCache[core.Account](size, ttl),
		byName:  NewLRUCache[core.Account](size, ttl),
		metrics: m,
	}
}

// Caches exposes the underlying LRUs for a cleanup Manager.
func (d *AccountDirectory) Caches() []Cleaner {
	return []Cleaner{d.byID, d.byName}
}

func (d *AccountDirectory) Resolve(ctx context.Context, accountID string) (core.Account, error) {
	if acc, ok := d.byID.Get(accountID); ok {
		d.metrics.IncrCacheLookup(true)
		return acc, nil
	}
	d.metrics.IncrCacheLookup(false)
	acc, err := d.next.Resolve(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	d.remember(acc)
	return acc, nil
}

func (d *AccountDirectory) FindByName(ctx context.Context, name string) (core.Account, error) {
	key := nameKey(name)
	if acc, ok := d.byName.Get(key); ok {
		d.metrics.IncrCacheLookup(true)
		return acc, nil
	}
	d.metrics.IncrCacheLookup(false)
	acc, err := d.next.FindByName(ctx, name)
	if err != nil {
		return core.Account{}, err
	}
	d.remember(acc)
	return acc, nil
}

func (d *AccountDirectory) List(ctx context.Context) ([]core.Account, error) {
	return d.next.List(ctx)
}

func (d *AccountDirectory) Create(ctx context.Context, a core.Account) (core.Account, error) {
	acc, err := d.next.Create(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	d.remember(acc)
	return acc, nil
}

func (d *AccountDirectory) remember(acc core.Account) {
	d.byID.Set(acc.ID, acc)
	d.byName.Set(nameKey(acc.Name), acc)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
