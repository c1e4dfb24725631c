package guest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/printhaus/receiptd/internal/model"
)

const tokenPrefix = "tok/"

// PebbleDB is the durable guest token database. A single mutex around
// read-modify-write makes Consume a compare-and-swap within this process,
// which owns the store exclusively.
type PebbleDB struct {
	mu     sync.Mutex
	db     *pebble.DB
	path   string
	tz     *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewPebbleDB(dbPath string, tz *time.Location, logger *zap.Logger) *PebbleDB {
	return &PebbleDB{
		path:   dbPath,
		tz:     tz,
		logger: logger,
		now:    time.Now,
	}
}

func (g *PebbleDB) Init() error {
	db, err := pebble.Open(g.path, &pebble.Options{})
	if err != nil {
		return fmt.Errorf("pebble open %s: %w", g.path, err)
	}
	g.db = db
	g.logger.Info("guest token store opened", zap.String("path", g.path))
	return nil
}

func (g *PebbleDB) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

func (g *PebbleDB) Create(name string, quotaPerDay int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	token := newToken()
	info := model.GuestToken{
		Name:        cleanName(name),
		Created:     g.now().Unix(),
		Active:      true,
		QuotaPerDay: quotaPerDay,
		Used:        map[string]int{},
	}
	if err := g.put(token, &info); err != nil {
		return "", err
	}
	return token, nil
}

func (g *PebbleDB) Revoke(token string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, err := g.get(token)
	if err != nil {
		return false, err
	}
	if info == nil {
		return false, nil
	}
	info.Active = false
	return true, g.put(token, info)
}

func (g *PebbleDB) List() ([]Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	iter, err := g.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(tokenPrefix),
		UpperBound: []byte(tokenPrefix + "\xff"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var info model.GuestToken
		if err := json.Unmarshal(iter.Value(), &info); err != nil {
			g.logger.Warn("skipping corrupt guest record", zap.Error(err))
			continue
		}
		out = append(out, Entry{Token: string(iter.Key())[len(tokenPrefix):], Info: info})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.Created > out[j].Info.Created })
	return out, nil
}

func (g *PebbleDB) Validate(token string) (*model.GuestToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validateLocked(token)
}

func (g *PebbleDB) RemainingToday(token string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, err := g.validateLocked(token)
	if err != nil || info == nil {
		return 0, err
	}
	remaining := info.QuotaPerDay - info.Used[dayKey(g.now(), g.tz)]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (g *PebbleDB) Consume(token string) (*model.GuestToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, err := g.validateLocked(token)
	if err != nil || info == nil {
		return nil, err
	}

	today := dayKey(g.now(), g.tz)
	if info.Used[today] >= info.QuotaPerDay {
		return nil, nil
	}
	if info.Used == nil {
		info.Used = map[string]int{}
	}
	info.Used[today]++
	if err := g.put(token, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (g *PebbleDB) validateLocked(token string) (*model.GuestToken, error) {
	info, err := g.get(token)
	if err != nil || info == nil {
		return nil, err
	}
	if !info.Active {
		return nil, nil
	}
	return info, nil
}

func (g *PebbleDB) get(token string) (*model.GuestToken, error) {
	data, closer, err := g.db.Get([]byte(tokenPrefix + token))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	info := &model.GuestToken{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("unmarshal guest record: %w", err)
	}
	return info, nil
}

func (g *PebbleDB) put(token string, info *model.GuestToken) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal guest record: %w", err)
	}
	if err := g.db.Set([]byte(tokenPrefix+token), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

var _ DB = (*PebbleDB)(nil)
