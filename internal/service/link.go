package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"time"

	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/jack/golang-slug-link-service/internal/repository"
)

// TTL clamp bounds for non-zero ttl requests: 15 minutes to 30 days.
// ttl == 0 bypasses the clamp and means "never expires".
const (
	MinTTL = 900
	MaxTTL = 2_592_000
)

const (
	byDayWindow  = 30                   // calendar days in the detail histogram
	byHourWindow = 24 * time.Hour       // links older than this get no hourly view
	detailLogCap = 100                  // raw entries returned by detail
	listLogCap   = 3                    // recent entries per list row
	dayFormat    = "20060102"
)

// CodeRE is the shape of a routable short code.
var CodeRE = regexp.MustCompile(`^[a-z0-9]{6}$`)

// LinkStore is the namespaced key-value store the service runs against.
// Implemented by repository.RedisRepository; tests use an in-memory fake.
type LinkStore interface {
	GetLink(ctx context.Context, code string) (*model.Link, error)
	PutLink(ctx context.Context, code string, link *model.Link) error
	DeleteLink(ctx context.Context, code string) error
	ListLinkCodes(ctx context.Context) ([]string, error)

	IncrClicks(ctx context.Context, code string) error
	GetClicks(ctx context.Context, code string) (int64, error)
	DeleteClicks(ctx context.Context, code string) error

	IncrDay(ctx context.Context, day, code string) error
	GetDay(ctx context.Context, day, code string) (int64, error)
	PruneDays(ctx context.Context, code string) error

	PushLog(ctx context.Context, code string, entry model.ClickLogEntry) error
	GetLogs(ctx context.Context, code string, limit int) ([]model.ClickLogEntry, error)
	DeleteLogs(ctx context.Context, code string) error
}

type LinkService struct {
	store    LinkStore
	recorder *ClickRecorder
	now      func() time.Time
}

func NewLinkService(store LinkStore, recorder *ClickRecorder) *LinkService {
	return &LinkService{
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

// ClampTTL applies the creation TTL policy. 0 passes through untouched.
func ClampTTL(ttl int64) int64 {
	if ttl == 0 {
		return 0
	}
	if ttl < MinTTL {
		return MinTTL
	}
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

// Create writes a new link for code, overwriting any prior record. Old
// analytics are cleared first so a reused code never inherits stale counts.
func (s *LinkService) Create(ctx context.Context, code string, req *model.CreateLinkRequest, creator *model.Creator) error {
	if err := s.purgeAnalytics(ctx, code); err != nil {
		return fmt.Errorf("failed to reset analytics for %s: %w", code, err)
	}

	now := s.now()
	ttl := ClampTTL(req.TTL)

	link := &model.Link{
		URL:     req.URL,
		Created: now.UnixMilli(),
		Creator: creator,
	}
	if ttl != 0 {
		link.Exp = now.Unix() + ttl
	}

	if err := s.store.PutLink(ctx, code, link); err != nil {
		return fmt.Errorf("failed to store link %s: %w", code, err)
	}

	return nil
}

// Resolve returns the destination URL for a routable code and enqueues the
// click for recording. The existence check is always awaited; the analytics
// writes are not, so a slow store never delays the redirect.
//
// Absent or soft-deleted codes yield ErrLinkNotFound; expired-but-live codes
// yield ErrLinkGone so the caller can answer 410 instead of 404.
func (s *LinkService) Resolve(ctx context.Context, code string, entry model.ClickLogEntry) (string, error) {
	link, err := s.store.GetLink(ctx, code)
	if err != nil {
		if err == repository.ErrLinkNotFound {
			// The record is gone; sweep any analytics it left behind.
			s.purgeOrphans(code)
			return "", repository.ErrLinkNotFound
		}
		return "", err
	}

	switch link.State(s.now()) {
	case model.StateDeleted:
		return "", repository.ErrLinkNotFound
	case model.StateExpired:
		return "", repository.ErrLinkGone
	}

	s.recorder.Enqueue(Click{Code: code, Entry: entry})

	return link.URL, nil
}

// List enumerates every routable link, newest-created first, with its click
// total and the most recent log entries. Records that vanish between the
// namespace scan and the fetch are skipped.
func (s *LinkService) List(ctx context.Context) ([]model.LinkSummary, error) {
	codes, err := s.store.ListLinkCodes(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	items := make([]model.LinkSummary, 0, len(codes))

	for _, code := range codes {
		if !CodeRE.MatchString(code) {
			continue
		}

		link, err := s.store.GetLink(ctx, code)
		if err != nil {
			if err == repository.ErrLinkNotFound {
				continue
			}
			return nil, err
		}

		clicks, err := s.store.GetClicks(ctx, code)
		if err != nil {
			return nil, err
		}

		logs, err := s.store.GetLogs(ctx, code, listLogCap)
		if err != nil {
			return nil, err
		}

		items = append(items, model.LinkSummary{
			Code:      code,
			URL:       link.URL,
			Created:   link.Created,
			Creator:   link.Creator,
			ExpiresIn: expiresIn(link, now),
			Clicks:    clicks,
			Logs:      logs,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Created > items[j].Created
	})

	return items, nil
}

func expiresIn(link *model.Link, now int64) *int64 {
	if link.Deleted {
		v := int64(-1)
		return &v
	}
	if link.Exp == 0 {
		return nil
	}
	v := link.Exp - now
	return &v
}

// Stats returns the click total plus the full log for one code. Unknown
// codes yield zero values rather than an error: the endpoint is idempotent
// and side-effect free.
func (s *LinkService) Stats(ctx context.Context, code string) (*model.StatsResponse, error) {
	clicks, err := s.store.GetClicks(ctx, code)
	if err != nil {
		return nil, err
	}

	logs, err := s.store.GetLogs(ctx, code, -1)
	if err != nil {
		return nil, err
	}

	resp := &model.StatsResponse{
		Clicks: clicks,
		Logs:   logs,
	}

	if link, err := s.store.GetLink(ctx, code); err == nil {
		resp.Creator = link.Creator
	}

	return resp, nil
}

// Detail reconstructs the analytics view for one code: the 30-day daily
// histogram, the hourly histogram for links younger than 24 hours, the geo
// points, and the 100 most recent raw entries.
func (s *LinkService) Detail(ctx context.Context, code string) (*model.DetailResponse, error) {
	link, err := s.store.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}

	total, err := s.store.GetClicks(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()

	byDay := make(map[string]int64)
	for i := 0; i < byDayWindow; i++ {
		day := now.UTC().AddDate(0, 0, -i).Format(dayFormat)
		n, err := s.store.GetDay(ctx, day, code)
		if err != nil {
			return nil, err
		}
		if n != 0 {
			byDay[day] = n
		}
	}

	raw, err := s.store.GetLogs(ctx, code, -1)
	if err != nil {
		return nil, err
	}

	// Hourly breakdown only makes sense while the link is younger than one
	// day; it is derived from the raw entries, not the daily buckets.
	byHour := make(map[string]int64)
	if link.CreatedWithin(now, byHourWindow) {
		for _, e := range raw {
			h := fmt.Sprintf("%02d", time.UnixMilli(e.T).Hour())
			byHour[h]++
		}
	}

	points := make([][2]float64, 0, len(raw))
	for _, e := range raw {
		if e.Lat != nil && e.Lon != nil {
			points = append(points, [2]float64{*e.Lat, *e.Lon})
		}
	}

	logs := raw
	if len(logs) > detailLogCap {
		logs = logs[:detailLogCap]
	}

	return &model.DetailResponse{
		ClicksTotal: total,
		ByDay:       byDay,
		ByHour:      byHour,
		Points:      points,
		Logs:        logs,
	}, nil
}

// Delete soft-deletes a link: the record stays in the store, flagged deleted
// with its expiry forced into the past, so List can still report it while
// redirects answer 404. The analytics rows are purged outright.
func (s *LinkService) Delete(ctx context.Context, code string) error {
	link, err := s.store.GetLink(ctx, code)
	if err != nil {
		return err
	}

	link.Deleted = true
	link.Exp = s.now().Unix() - 1
	if err := s.store.PutLink(ctx, code, link); err != nil {
		return fmt.Errorf("failed to tombstone link %s: %w", code, err)
	}

	if err := s.purgeAnalytics(ctx, code); err != nil {
		return err
	}

	if s.recorder != nil && s.recorder.archive != nil {
		if err := s.recorder.archive.PurgeClicks(ctx, code); err != nil {
			log.Printf("archive purge failed: code=%s err=%v", code, err)
		}
	}

	return nil
}

func (s *LinkService) purgeAnalytics(ctx context.Context, code string) error {
	if err := s.store.DeleteClicks(ctx, code); err != nil {
		return err
	}
	if err := s.store.DeleteLogs(ctx, code); err != nil {
		return err
	}
	return s.store.PruneDays(ctx, code)
}

// purgeOrphans is the fire-and-forget cleanup run when a redirect hits a code
// whose record is gone but whose analytics rows may linger.
func (s *LinkService) purgeOrphans(code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.purgeAnalytics(ctx, code); err != nil {
			log.Printf("orphan analytics purge failed: code=%s err=%v", code, err)
		}
	}()
}
