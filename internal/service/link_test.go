package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jack/golang-slug-link-service/internal/model"
	"github.com/jack/golang-slug-link-service/internal/repository"
)

func newTestService(store *memStore) (*LinkService, *ClickRecorder) {
	rec := NewClickRecorder(store, nil, 64, time.Second)
	rec.Start()
	svc := NewLinkService(store, rec)
	return svc, rec
}

func TestClampTTL(t *testing.T) {
	tests := []struct {
		ttl  int64
		want int64
	}{
		{0, 0},
		{1, 900},
		{100, 900},
		{900, 900},
		{5000, 5000},
		{2_592_000, 2_592_000},
		{99_999_999, 2_592_000},
	}

	for _, tt := range tests {
		if got := ClampTTL(tt.ttl); got != tt.want {
			t.Errorf("ClampTTL(%d) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}

func TestCreateAndResolve(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)

	ctx := context.Background()
	req := &model.CreateLinkRequest{Code: "abc123", URL: "https://example.com", TTL: 0}
	if err := svc.Create(ctx, "abc123", req, &model.Creator{IP: "1.2.3.4", Loc: "US"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	dest, err := svc.Resolve(ctx, "abc123", model.ClickLogEntry{T: time.Now().UnixMilli(), IP: "5.6.7.8", Loc: "DE"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if dest != "https://example.com" {
		t.Errorf("Resolve returned %q, want %q", dest, "https://example.com")
	}

	rec.Stop() // drain the queue

	if got := store.clickTotal("abc123"); got != 1 {
		t.Errorf("click total = %d, want 1", got)
	}
	if got := store.logLen("abc123"); got != 1 {
		t.Errorf("log length = %d, want 1", got)
	}

	day := time.Now().UTC().Format(dayFormat)
	n, _ := store.GetDay(ctx, day, "abc123")
	if n != 1 {
		t.Errorf("daily bucket = %d, want 1", n)
	}
}

func TestCreateWithTTLSetsExpiry(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	req := &model.CreateLinkRequest{Code: "abc123", URL: "https://example.com", TTL: 100}
	if err := svc.Create(ctx, "abc123", req, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	link, err := store.GetLink(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetLink failed: %v", err)
	}
	// ttl=100 clamps up to 900
	if want := now.Unix() + 900; link.Exp != want {
		t.Errorf("exp = %d, want %d", link.Exp, want)
	}
	if link.Created != now.UnixMilli() {
		t.Errorf("created = %d, want %d", link.Created, now.UnixMilli())
	}
}

func TestCreateResetsAnalytics(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	ctx := context.Background()
	store.IncrClicks(ctx, "abc123")
	store.IncrClicks(ctx, "abc123")
	store.IncrDay(ctx, "20240101", "abc123")
	store.PushLog(ctx, "abc123", model.ClickLogEntry{T: 1})

	req := &model.CreateLinkRequest{Code: "abc123", URL: "https://example.com/new"}
	if err := svc.Create(ctx, "abc123", req, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got := store.clickTotal("abc123"); got != 0 {
		t.Errorf("click total after recreate = %d, want 0", got)
	}
	if got := store.logLen("abc123"); got != 0 {
		t.Errorf("log length after recreate = %d, want 0", got)
	}
	if n, _ := store.GetDay(ctx, "20240101", "abc123"); n != 0 {
		t.Errorf("daily bucket after recreate = %d, want 0", n)
	}
}

func TestResolveNotFound(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	ctx := context.Background()
	store.IncrClicks(ctx, "zzzzzz") // orphaned counter with no link record

	_, err := svc.Resolve(ctx, "zzzzzz", model.ClickLogEntry{})
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("Resolve error = %v, want ErrLinkNotFound", err)
	}

	// Orphan purge runs in the background.
	deadline := time.Now().Add(2 * time.Second)
	for store.clickTotal("zzzzzz") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("orphaned click counter was not purged")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResolveExpired(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	req := &model.CreateLinkRequest{Code: "abc123", URL: "https://example.com", TTL: 900}
	if err := svc.Create(ctx, "abc123", req, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Just before expiry: still resolves.
	svc.now = func() time.Time { return now.Add(899 * time.Second) }
	if _, err := svc.Resolve(ctx, "abc123", model.ClickLogEntry{T: now.UnixMilli()}); err != nil {
		t.Fatalf("Resolve before expiry failed: %v", err)
	}

	// Past expiry: gone, not not-found.
	svc.now = func() time.Time { return now.Add(901 * time.Second) }
	_, err := svc.Resolve(ctx, "abc123", model.ClickLogEntry{T: now.UnixMilli()})
	if !errors.Is(err, repository.ErrLinkGone) {
		t.Fatalf("Resolve error = %v, want ErrLinkGone", err)
	}
}

func TestDeleteSoft(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)

	ctx := context.Background()
	req := &model.CreateLinkRequest{Code: "abc123", URL: "https://example.com"}
	if err := svc.Create(ctx, "abc123", req, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, "abc123", model.ClickLogEntry{T: time.Now().UnixMilli()}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	rec.Stop()

	if err := svc.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The record survives as a tombstone.
	link, err := store.GetLink(ctx, "abc123")
	if err != nil {
		t.Fatalf("tombstone missing: %v", err)
	}
	if !link.Deleted {
		t.Error("link not flagged deleted")
	}
	if link.State(time.Now()) != model.StateDeleted {
		t.Error("state != StateDeleted")
	}

	// Analytics are purged outright.
	if got := store.clickTotal("abc123"); got != 0 {
		t.Errorf("click total after delete = %d, want 0", got)
	}
	if got := store.logLen("abc123"); got != 0 {
		t.Errorf("log length after delete = %d, want 0", got)
	}

	// Redirects answer not-found, not gone.
	if _, err := svc.Resolve(ctx, "abc123", model.ClickLogEntry{}); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Errorf("Resolve after delete = %v, want ErrLinkNotFound", err)
	}

	// List still reports the tombstone with the -1 sentinel.
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("list length = %d, want 1", len(items))
	}
	if items[0].ExpiresIn == nil || *items[0].ExpiresIn != -1 {
		t.Errorf("expiresIn = %v, want -1", items[0].ExpiresIn)
	}

	if err := svc.Delete(ctx, "nosuch"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Errorf("Delete unknown = %v, want ErrLinkNotFound", err)
	}
}

func TestStatsUnknownCode(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	stats, err := svc.Stats(context.Background(), "zzzzzz")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Clicks != 0 {
		t.Errorf("clicks = %d, want 0", stats.Clicks)
	}
	if len(stats.Logs) != 0 {
		t.Errorf("logs length = %d, want 0", len(stats.Logs))
	}
}

func TestListOrderingAndFilter(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	svc.now = func() time.Time { return base }
	svc.Create(ctx, "old123", &model.CreateLinkRequest{URL: "https://example.com/old"}, nil)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	svc.Create(ctx, "new456", &model.CreateLinkRequest{URL: "https://example.com/new", TTL: 3600}, nil)

	// Non-routable key in the namespace is ignored by the list.
	store.PutLink(ctx, "not-a-code", &model.Link{URL: "https://example.com/x"})

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("list length = %d, want 2", len(items))
	}
	if items[0].Code != "new456" || items[1].Code != "old123" {
		t.Errorf("list order = [%s %s], want [new456 old123]", items[0].Code, items[1].Code)
	}

	if items[1].ExpiresIn != nil {
		t.Errorf("ttl=0 link expiresIn = %v, want nil", *items[1].ExpiresIn)
	}
	if items[0].ExpiresIn == nil || *items[0].ExpiresIn != 3600 {
		t.Errorf("ttl link expiresIn = %v, want 3600", items[0].ExpiresIn)
	}
}

func TestDetail(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	if err := svc.Create(ctx, "abc123", &model.CreateLinkRequest{URL: "https://example.com"}, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	lat, lon := 37.0, -95.0
	clicks := []model.ClickLogEntry{
		{T: now.Add(-2 * time.Hour).UnixMilli(), Loc: "US", Lat: &lat, Lon: &lon},
		{T: now.Add(-1 * time.Hour).UnixMilli(), Loc: "DE"},
		{T: now.UnixMilli(), Loc: "US", Lat: &lat, Lon: &lon},
	}
	for _, e := range clicks {
		rec.Enqueue(Click{Code: "abc123", Entry: e})
	}
	rec.Stop()

	detail, err := svc.Detail(ctx, "abc123")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}

	if detail.ClicksTotal != 3 {
		t.Errorf("clicksTotal = %d, want 3", detail.ClicksTotal)
	}

	var daySum int64
	for _, n := range detail.ByDay {
		daySum += n
	}
	if daySum > detail.ClicksTotal {
		t.Errorf("byDay sum %d exceeds total %d", daySum, detail.ClicksTotal)
	}
	if daySum != 3 {
		t.Errorf("byDay sum = %d, want 3", daySum)
	}

	// Link is brand new, so the hourly histogram is populated.
	var hourSum int64
	for _, n := range detail.ByHour {
		hourSum += n
	}
	if hourSum != 3 {
		t.Errorf("byHour sum = %d, want 3", hourSum)
	}

	if len(detail.Points) != 2 {
		t.Errorf("points length = %d, want 2", len(detail.Points))
	}
	if len(detail.Logs) != 3 {
		t.Errorf("logs length = %d, want 3", len(detail.Logs))
	}

	if _, err := svc.Detail(ctx, "nosuch"); !errors.Is(err, repository.ErrLinkNotFound) {
		t.Errorf("Detail unknown = %v, want ErrLinkNotFound", err)
	}
}

func TestDetailNoHourlyForOldLinks(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store.PutLink(ctx, "abc123", &model.Link{
		URL:     "https://example.com",
		Created: now.Add(-48 * time.Hour).UnixMilli(),
	})
	store.PushLog(ctx, "abc123", model.ClickLogEntry{T: now.UnixMilli()})
	svc.now = func() time.Time { return now }

	detail, err := svc.Detail(ctx, "abc123")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if len(detail.ByHour) != 0 {
		t.Errorf("byHour for 48h-old link = %v, want empty", detail.ByHour)
	}
}

func TestDetailLogCap(t *testing.T) {
	store := newMemStore()
	svc, rec := newTestService(store)
	defer rec.Stop()

	ctx := context.Background()
	now := time.Now()
	store.PutLink(ctx, "abc123", &model.Link{URL: "https://example.com", Created: now.UnixMilli()})
	for i := 0; i < 150; i++ {
		store.PushLog(ctx, "abc123", model.ClickLogEntry{T: now.UnixMilli() + int64(i)})
	}

	detail, err := svc.Detail(ctx, "abc123")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if len(detail.Logs) != 100 {
		t.Errorf("detail logs length = %d, want 100", len(detail.Logs))
	}
}

func TestCodeRE(t *testing.T) {
	valid := []string{"abc123", "000000", "zzzzzz"}
	invalid := []string{"", "abc12", "abc1234", "ABC123", "abc12!", "abc 12"}

	for _, code := range valid {
		if !CodeRE.MatchString(code) {
			t.Errorf("CodeRE rejected %q", code)
		}
	}
	for _, code := range invalid {
		if CodeRE.MatchString(code) {
			t.Errorf("CodeRE accepted %q", code)
		}
	}
}

func TestExpiresInHelper(t *testing.T) {
	now := int64(1_700_000_000)

	if got := expiresIn(&model.Link{Exp: 0}, now); got != nil {
		t.Errorf("expiresIn for exp=0 = %v, want nil", *got)
	}
	if got := expiresIn(&model.Link{Exp: now + 500}, now); got == nil || *got != 500 {
		t.Errorf("expiresIn = %v, want 500", got)
	}
	if got := expiresIn(&model.Link{Deleted: true, Exp: now + 500}, now); got == nil || *got != -1 {
		t.Errorf("expiresIn for deleted = %v, want -1", got)
	}
}

func TestLinkStateTransitions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		link model.Link
		want model.LinkState
	}{
		{"no expiry", model.Link{Exp: 0}, model.StateActive},
		{"future expiry", model.Link{Exp: now.Unix() + 10}, model.StateActive},
		{"past expiry", model.Link{Exp: now.Unix() - 10}, model.StateExpired},
		{"deleted beats expiry", model.Link{Deleted: true, Exp: now.Unix() + 10}, model.StateDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.State(now); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}
