package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jack/golang-slug-link-service/internal/config"
	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkGone     = errors.New("link has expired")
)

// Key prefixes acting as the four logical namespaces of the store.
const (
	linkPrefix  = "link:"
	clickPrefix = "clicks:"
	dayPrefix   = "day:"
	logPrefix   = "log:"

	// LogCap bounds the per-code click log; older entries are dropped.
	LogCap = 300

	scanCount = 1000
)

type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(cfg *config.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) Client() *redis.Client {
	return r.client
}

// GetLink fetches the link record for a code. Returns ErrLinkNotFound on a
// missing key so callers can distinguish absence from store failures.
func (r *RedisRepository) GetLink(ctx context.Context, code string) (*model.Link, error) {
	data, err := r.client.Get(ctx, linkPrefix+code).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	var link model.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	return &link, nil
}

// PutLink writes the link record. No store-level TTL is applied: expiry is
// kept in the record metadata so expired links stay inspectable by the admin
// list and can answer 410 rather than vanishing.
func (r *RedisRepository) PutLink(ctx context.Context, code string, link *model.Link) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	if err := r.client.Set(ctx, linkPrefix+code, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put link: %w", err)
	}

	return nil
}

func (r *RedisRepository) DeleteLink(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, linkPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// ListLinkCodes pages through the link namespace and returns all codes.
// Best effort under concurrent writes, as SCAN guarantees go.
func (r *RedisRepository) ListLinkCodes(ctx context.Context) ([]string, error) {
	var codes []string
	iter := r.client.Scan(ctx, 0, linkPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, strings.TrimPrefix(iter.Val(), linkPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan link keys: %w", err)
	}

	return codes, nil
}

func (r *RedisRepository) IncrClicks(ctx context.Context, code string) error {
	if err := r.client.Incr(ctx, clickPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to increment click count: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetClicks(ctx context.Context, code string) (int64, error) {
	count, err := r.client.Get(ctx, clickPrefix+code).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get click count: %w", err)
	}

	return count, nil
}

func (r *RedisRepository) DeleteClicks(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, clickPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete click count: %w", err)
	}
	return nil
}

// IncrDay bumps the daily bucket for one code. day is formatted YYYYMMDD.
func (r *RedisRepository) IncrDay(ctx context.Context, day, code string) error {
	if err := r.client.Incr(ctx, dayPrefix+day+":"+code).Err(); err != nil {
		return fmt.Errorf("failed to increment daily bucket: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetDay(ctx context.Context, day, code string) (int64, error) {
	count, err := r.client.Get(ctx, dayPrefix+day+":"+code).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get daily bucket: %w", err)
	}

	return count, nil
}

// PruneDays deletes every daily bucket belonging to code. The store has no
// delete-by-suffix primitive, so this is a namespace scan filtered on the
// ":code" suffix, paged at scanCount keys.
func (r *RedisRepository) PruneDays(ctx context.Context, code string) error {
	suffix := ":" + code

	iter := r.client.Scan(ctx, 0, dayPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete daily bucket %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan daily buckets: %w", err)
	}

	return nil
}

// ListDayKeys returns every key in the daily-bucket namespace, for the
// maintenance sweep.
func (r *RedisRepository) ListDayKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, dayPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan daily buckets: %w", err)
	}

	return keys, nil
}

func (r *RedisRepository) DeleteDayKey(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete daily bucket %s: %w", key, err)
	}
	return nil
}

// DayKeyDate extracts the YYYYMMDD component of a daily-bucket key.
// Returns "" for keys that do not look like day:<date>:<code>.
func DayKeyDate(key string) string {
	rest := strings.TrimPrefix(key, dayPrefix)
	i := strings.IndexByte(rest, ':')
	if i != 8 {
		return ""
	}
	return rest[:i]
}

// PushLog prepends one click entry to the code's log and trims it to LogCap.
func (r *RedisRepository) PushLog(ctx context.Context, code string, entry model.ClickLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	key := logPrefix + code
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to push log entry: %w", err)
	}
	if err := r.client.LTrim(ctx, key, 0, LogCap-1).Err(); err != nil {
		return fmt.Errorf("failed to trim log: %w", err)
	}

	return nil
}

// GetLogs returns up to limit entries, newest first. limit < 0 means all.
func (r *RedisRepository) GetLogs(ctx context.Context, code string, limit int) ([]model.ClickLogEntry, error) {
	if limit == 0 {
		return []model.ClickLogEntry{}, nil
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := r.client.LRange(ctx, logPrefix+code, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	entries := make([]model.ClickLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry model.ClickLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A corrupt entry should not hide the rest of the log.
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *RedisRepository) DeleteLogs(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, logPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete log: %w", err)
	}
	return nil
}

func (r *RedisRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
