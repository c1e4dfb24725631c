package guest

import (
	"sort"
	"sync"
	"time"

	"github.com/printhaus/receiptd/internal/model"
)

// MemoryDB is the in-memory DB used by tests.
type MemoryDB struct {
	mu     sync.Mutex
	tokens map[string]*model.GuestToken
	tz     *time.Location
	now    func() time.Time
}

func NewMemoryDB(tz *time.Location) *MemoryDB {
	return &MemoryDB{
		tokens: map[string]*model.GuestToken{},
		tz:     tz,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (g *MemoryDB) SetClock(now func() time.Time) { g.now = now }

func (g *MemoryDB) Create(name string, quotaPerDay int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := newToken()
	g.tokens[token] = &model.GuestToken{
		Name:        cleanName(name),
		Created:     g.now().Unix(),
		Active:      true,
		QuotaPerDay: quotaPerDay,
		Used:        map[string]int{},
	}
	return token, nil
}

func (g *MemoryDB) Revoke(token string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, ok := g.tokens[token]
	if !ok {
		return false, nil
	}
	info.Active = false
	return true, nil
}

func (g *MemoryDB) List() ([]Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Entry, 0, len(g.tokens))
	for tok, info := range g.tokens {
		out = append(out, Entry{Token: tok, Info: *info})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.Created > out[j].Info.Created })
	return out, nil
}

func (g *MemoryDB) Validate(token string) (*model.GuestToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validateLocked(token), nil
}

func (g *MemoryDB) RemainingToday(token string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info := g.validateLocked(token)
	if info == nil {
		return 0, nil
	}
	remaining := info.QuotaPerDay - info.Used[dayKey(g.now(), g.tz)]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (g *MemoryDB) Consume(token string) (*model.GuestToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info := g.validateLocked(token)
	if info == nil {
		return nil, nil
	}
	today := dayKey(g.now(), g.tz)
	if info.Used[today] >= info.QuotaPerDay {
		return nil, nil
	}
	info.Used[today]++

	cp := *info
	cp.Used = map[string]int{}
	for k, v := range info.Used {
		cp.Used[k] = v
	}
	return &cp, nil
}

func (g *MemoryDB) validateLocked(token string) *model.GuestToken {
	info, ok := g.tokens[token]
	if !ok || !info.Active {
		return nil
	}
	return info
}

func (g *MemoryDB) Close() error { return nil }

var _ DB = (*MemoryDB)(nil)
