// Package memory provides in-process implementations of the storage ports.
// Nothing survives a restart; the sqlite backend is the durable option.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"planner/internal/core"
	"planner/internal/ports"
)

// New returns a full set of empty stores with the given accounts registered.
func New(accounts []core.Account) ports.Stores {
	dir := NewAccounts(accounts)
	return ports.Stores{
		Ledger:      NewLedger(),
		Accounts:    dir,
		Obligations: NewObligations(),
		Months:      NewMonths(),
		Overrides:   NewOverrides(),
	}
}

// NewFromFiles seeds the account directory from base/seed_accounts.txt.
// Each line is "name" or "name|bank"; blank lines and # comments are skipped.
func NewFromFiles(base string) ports.Stores {
	lines := readLines(filepath.Join(base, "seed_accounts.txt"))
	if len(lines) == 0 {
		lines = []string{"Checking", "Savings"}
	}
	accounts := make([]core.Account, 0, len(lines))
	for _, line := range lines {
		name, bank, _ := strings.Cut(line, "|")
		accounts = append(accounts, core.Account{
			ID:       uuid.NewString(),
			Name:     strings.TrimSpace(name),
			BankName: strings.TrimSpace(bank),
		})
	}
	return New(accounts)
}

type Ledger struct {
	mu      sync.Mutex
	entries []core.LedgerEntry
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) Create(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.ObligationID != "" {
		for _, existing := range l.entries {
			if existing.ObligationID == e.ObligationID && existing.Date.Equal(e.Date) {
				return core.LedgerEntry{}, core.ErrDuplicateEntry
			}
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, e)
	return e, nil
}

func (l *Ledger) ListByAccount(_ context.Context, accountID string) ([]core.LedgerEntry, error) {
	return l.filter(func(e core.LedgerEntry) bool { return e.AccountID == accountID }), nil
}

func (l *Ledger) ListByObligation(_ context.Context, obligationID string) ([]core.LedgerEntry, error) {
	return l.filter(func(e core.LedgerEntry) bool { return e.ObligationID == obligationID }), nil
}

func (l *Ledger) FindByObligationAndDate(_ context.Context, obligationID string, date core.Date) (*core.LedgerEntry, error) {
	found := l.filter(func(e core.LedgerEntry) bool {
		return e.ObligationID == obligationID && e.Date.Equal(date)
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (l *Ledger) CountByObligation(ctx context.Context, obligationID string) (int, error) {
	entries, _ := l.ListByObligation(ctx, obligationID)
	return len(entries), nil
}

// Delete removes an entry; used by callers that reassign or clear
// references before deleting an obligation.
func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("ledger entry %s: %w", id, core.ErrNotFound)
}

func (l *Ledger) filter(keep func(core.LedgerEntry) bool) []core.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type Accounts struct {
	mu    sync.Mutex
	items []core.Account
}

func NewAccounts(seed []core.Account) *Accounts {
	return &Accounts{items: dedupeAccounts(seed)}
}

func (a *Accounts) Resolve(_ context.Context, accountID string) (core.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acc := range a.items {
		if acc.ID == accountID {
			return acc, nil
		}
	}
	return core.Account{}, fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
}

func (a *Accounts) FindByName(_ context.Context, name string) (core.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acc := range a.items {
		if strings.EqualFold(acc.Name, strings.TrimSpace(name)) {
			return acc, nil
		}
	}
	return core.Account{}, fmt.Errorf("account named %q: %w", name, core.ErrNotFound)
}

func (a *Accounts) List(_ context.Context) ([]core.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Account(nil), a.items...), nil
}

func (a *Accounts) Create(_ context.Context, acc core.Account) (core.Account, error) {
	if err := acc.Validate(); err != nil {
		return core.Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	acc.Name = strings.TrimSpace(acc.Name)
	for _, existing := range a.items {
		if strings.EqualFold(existing.Name, acc.Name) {
			return core.Account{}, core.NewValidationError("name", "account %q already exists", acc.Name)
		}
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	a.items = append(a.items, acc)
	return acc, nil
}

type Obligations struct {
	mu    sync.Mutex
	items map[string]core.Obligation
}

func NewObligations() *Obligations {
	return &Obligations{items: map[string]core.Obligation{}}
}

func (o *Obligations) Save(_ context.Context, ob core.Obligation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[ob.ID] = ob
	return nil
}

func (o *Obligations) Get(_ context.Context, id string) (core.Obligation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ob, ok := o.items[id]
	if !ok {
		return core.Obligation{}, fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	return ob, nil
}

func (o *Obligations) List(_ context.Context) ([]core.Obligation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.Obligation, 0, len(o.items))
	for _, ob := range o.items {
		out = append(out, ob)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (o *Obligations) Delete(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[id]; !ok {
		return fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	delete(o.items, id)
	return nil
}

// Months keeps deep copies so callers never alias a stored snapshot.
type Months struct {
	mu    sync.Mutex
	items map[string]core.PlannedMonth
}

func NewMonths() *Months {
	return &Months{items: map[string]core.PlannedMonth{}}
}

func (m *Months) Save(_ context.Context, pm core.PlannedMonth) error {
	if err := pm.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[pm.ID] = pm.Clone()
	return nil
}

func (m *Months) Get(_ context.Context, id string) (core.PlannedMonth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.items[id]
	if !ok {
		return core.PlannedMonth{}, fmt.Errorf("planned month %s: %w", id, core.ErrNotFound)
	}
	return pm.Clone(), nil
}

func (m *Months) GetByMonthStart(_ context.Context, monthStart core.Date) (core.PlannedMonth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pm := range m.items {
		if pm.MonthStart.Equal(monthStart) {
			return pm.Clone(), nil
		}
	}
	return core.PlannedMonth{}, fmt.Errorf("planned month starting %s: %w", monthStart, core.ErrNotFound)
}

func (m *Months) List(_ context.Context) ([]core.PlannedMonth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.PlannedMonth, 0, len(m.items))
	for _, pm := range m.items {
		out = append(out, pm.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MonthStart.Before(out[j].MonthStart) })
	return out, nil
}

func (m *Months) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("planned month %s: %w", id, core.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

type Overrides struct {
	mu   sync.Mutex
	keys core.OverrideSet
}

func NewOverrides() *Overrides {
	return &Overrides{keys: core.OverrideSet{}}
}

func (o *Overrides) Add(_ context.Context, k core.OverrideKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys[k] = struct{}{}
	return nil
}

func (o *Overrides) Remove(_ context.Context, k core.OverrideKey) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.keys, k)
	return nil
}

func (o *Overrides) List(_ context.Context) ([]core.OverrideKey, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.OverrideKey, 0, len(o.keys))
	for k := range o.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID == out[j].EntityID {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupeAccounts drops repeated names, keeping the first occurrence.
func dedupeAccounts(in []core.Account) []core.Account {
	seen := map[string]struct{}{}
	out := make([]core.Account, 0, len(in))
	for _, a := range in {
		key := strings.ToLower(strings.TrimSpace(a.Name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
