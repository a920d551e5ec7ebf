package model

import "time"

// LinkState describes where a link sits in its lifecycle.
type LinkState int

const (
	StateActive LinkState = iota
	StateExpired
	StateDeleted
)

// Creator identifies who created a link.
type Creator struct {
	IP  string `json:"ip"`
	Loc string `json:"loc"`
}

// Link is the stored record for one short code. The JSON shape is the
// on-store format and must stay stable; existing data depends on it.
type Link struct {
	URL     string   `json:"url"`
	Created int64    `json:"created"`           // epoch milliseconds
	Exp     int64    `json:"exp"`               // epoch seconds, 0 = never expires
	Creator *Creator `json:"creator,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

// State reports the lifecycle state of the link at the given time.
// Deleted wins over Expired.
func (l *Link) State(now time.Time) LinkState {
	if l.Deleted {
		return StateDeleted
	}
	if l.Exp != 0 && l.Exp < now.Unix() {
		return StateExpired
	}
	return StateActive
}

// CreatedWithin reports whether the link was created within d of now.
func (l *Link) CreatedWithin(now time.Time, d time.Duration) bool {
	return now.UnixMilli()-l.Created < d.Milliseconds()
}

// ClickLogEntry is one recorded click. Stored newest-first in the log
// namespace; the JSON shape is the on-store format.
type ClickLogEntry struct {
	T   int64    `json:"t"` // epoch milliseconds
	IP  string   `json:"ip"`
	Loc string   `json:"loc"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// CreateLinkRequest is the body of POST /.
type CreateLinkRequest struct {
	Code string `json:"code"`
	URL  string `json:"url"`
	TTL  int64  `json:"ttl"` // seconds, 0 = no expiry
}

// CreateLinkResponse acknowledges a created link.
type CreateLinkResponse struct {
	OK   bool   `json:"ok"`
	Code string `json:"code"`
}

// LinkSummary is one row of the admin list.
type LinkSummary struct {
	Code      string          `json:"code"`
	URL       string          `json:"url"`
	Created   int64           `json:"created"`
	Creator   *Creator        `json:"creator"`
	ExpiresIn *int64          `json:"expiresIn"` // seconds; nil = never expires, -1 = deleted
	Clicks    int64           `json:"clicks"`
	Logs      []ClickLogEntry `json:"logs"` // 3 most recent
}

// StatsResponse is the admin stats payload for one code.
type StatsResponse struct {
	Clicks  int64           `json:"clicks"`
	Logs    []ClickLogEntry `json:"logs"`
	Creator *Creator        `json:"creator"`
}

// DetailResponse is the admin detail payload for one code.
type DetailResponse struct {
	ClicksTotal int64            `json:"clicksTotal"`
	ByDay       map[string]int64 `json:"byDay"`
	ByHour      map[string]int64 `json:"byHour"`
	Points      [][2]float64     `json:"points"`
	Logs        []ClickLogEntry  `json:"logs"` // 100 most recent
}
