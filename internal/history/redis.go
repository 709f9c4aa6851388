package history

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisPersistence keeps the serialized history list and the primitive
// session flags in Redis, namespaced per user.
type RedisPersistence struct {
	client *redis.Client
}

func NewRedisPersistence(client *redis.Client) *RedisPersistence {
	return &RedisPersistence{client: client}
}

func historyKey(userID string) string { return "escort:" + userID + ":history" }
func activeKey(userID string) string  { return "escort:" + userID + ":active" }
func countKey(userID string) string   { return "escort:" + userID + ":count" }
func homeLatKey(userID string) string { return "escort:" + userID + ":home_lat" }
func homeLngKey(userID string) string { return "escort:" + userID + ":home_lng" }

func (p *RedisPersistence) LoadHistory(ctx context.Context, userID string) ([]Record, error) {
	raw, err := p.client.Get(ctx, historyKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// Corrupt payload reads as empty history.
		return nil, nil
	}
	return records, nil
}

func (p *RedisPersistence) SaveHistory(ctx context.Context, userID string, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, historyKey(userID), payload, 0).Err()
}

func (p *RedisPersistence) LoadFlags(ctx context.Context, userID string) (Flags, error) {
	var flags Flags
	vals, err := p.client.MGet(ctx, activeKey(userID), countKey(userID), homeLatKey(userID), homeLngKey(userID)).Result()
	if err != nil {
		return Flags{}, err
	}
	if s, ok := vals[0].(string); ok {
		flags.TrackingActive = s == "1"
	}
	if s, ok := vals[1].(string); ok {
		flags.CheckInCount, _ = strconv.Atoi(s)
	}
	if s, ok := vals[2].(string); ok {
		flags.HomeLat, _ = strconv.ParseFloat(s, 64)
	}
	if s, ok := vals[3].(string); ok {
		flags.HomeLng, _ = strconv.ParseFloat(s, 64)
	}
	return flags, nil
}

func (p *RedisPersistence) SaveFlags(ctx context.Context, userID string, flags Flags) error {
	active := "0"
	if flags.TrackingActive {
		active = "1"
	}
	return p.client.MSet(ctx,
		activeKey(userID), active,
		countKey(userID), strconv.Itoa(flags.CheckInCount),
		homeLatKey(userID), strconv.FormatFloat(flags.HomeLat, 'f', -1, 64),
		homeLngKey(userID), strconv.FormatFloat(flags.HomeLng, 'f', -1, 64),
	).Err()
}

// MemoryPersistence is the degraded mode used when no Redis is configured.
type MemoryPersistence struct {
	mu      sync.Mutex
	history map[string][]Record
	flags   map[string]Flags
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		history: map[string][]Record{},
		flags:   map[string]Flags{},
	}
}

func (p *MemoryPersistence) LoadHistory(_ context.Context, userID string) ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	records := p.history[userID]
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}

func (p *MemoryPersistence) SaveHistory(_ context.Context, userID string, records []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored := make([]Record, len(records))
	copy(stored, records)
	p.history[userID] = stored
	return nil
}

func (p *MemoryPersistence) LoadFlags(_ context.Context, userID string) (Flags, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags[userID], nil
}

func (p *MemoryPersistence) SaveFlags(_ context.Context, userID string, flags Flags) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags[userID] = flags
	return nil
}
