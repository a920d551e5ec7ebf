package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jack/golang-slug-link-service/internal/model"
)

// Click is one redirect event queued for recording.
type Click struct {
	Code  string
	Entry model.ClickLogEntry
}

// ClickArchive is the optional durable archive fed alongside the store.
// Implemented by repository.PostgresRepository.
type ClickArchive interface {
	ArchiveClick(ctx context.Context, code string, entry model.ClickLogEntry) error
	PurgeClicks(ctx context.Context, code string) error
}

// ClickRecorder applies analytics bookkeeping off the request path: total
// counter, daily bucket, bounded log prepend, and the archive insert. The
// redirect response never waits on it; a full queue drops the click and logs.
type ClickRecorder struct {
	store   LinkStore
	archive ClickArchive // nil when the archive is disabled
	timeout time.Duration
	queue   chan Click
	wg      sync.WaitGroup
}

func NewClickRecorder(store LinkStore, archive ClickArchive, queueSize int, timeout time.Duration) *ClickRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &ClickRecorder{
		store:   store,
		archive: archive,
		timeout: timeout,
		queue:   make(chan Click, queueSize),
	}
}

// Start launches the worker goroutine.
func (r *ClickRecorder) Start() {
	r.wg.Add(1)
	go r.run()
	log.Printf("Click recorder started (queue: %d)", cap(r.queue))
}

// Stop drains the queue and waits for the worker to finish.
func (r *ClickRecorder) Stop() {
	close(r.queue)
	r.wg.Wait()
	log.Println("Click recorder stopped")
}

// Enqueue hands a click to the worker without blocking. Dropped clicks are
// an accepted loss; the redirect must not stall behind bookkeeping.
func (r *ClickRecorder) Enqueue(c Click) {
	select {
	case r.queue <- c:
	default:
		log.Printf("click dropped, queue full: code=%s", c.Code)
	}
}

func (r *ClickRecorder) run() {
	defer r.wg.Done()

	for c := range r.queue {
		r.record(c)
	}
}

// record applies each write independently; one failing write must not keep
// the others from landing.
func (r *ClickRecorder) record(c Click) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.IncrClicks(ctx, c.Code); err != nil {
		log.Printf("click total incr failed: code=%s err=%v", c.Code, err)
	}

	day := time.UnixMilli(c.Entry.T).UTC().Format(dayFormat)
	if err := r.store.IncrDay(ctx, day, c.Code); err != nil {
		log.Printf("daily bucket incr failed: code=%s day=%s err=%v", c.Code, day, err)
	}

	if err := r.store.PushLog(ctx, c.Code, c.Entry); err != nil {
		log.Printf("click log push failed: code=%s err=%v", c.Code, err)
	}

	if r.archive != nil {
		if err := r.archive.ArchiveClick(ctx, c.Code, c.Entry); err != nil {
			log.Printf("click archive insert failed: code=%s err=%v", c.Code, err)
		}
	}
}
