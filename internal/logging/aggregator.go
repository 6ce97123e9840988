package logging

import (
	"log/slog"
	"sync"
	"time"
)

// eventKey identifies one batched event stream.
type eventKey struct {
	component string
	event     string
}

// eventTally holds the running count and the most recent fields for a stream.
type eventTally struct {
	count  int64
	fields []slog.Attr
}

// Aggregator batches high-frequency events (page arrivals, highlight passes)
// and emits one summary line per stream per flush interval instead of a log
// line per event.
type Aggregator struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	tallies map[eventKey]*eventTally

	done chan struct{}
	wg   sync.WaitGroup
}

// NewAggregator creates an aggregator flushing every intervalSecs seconds.
// A nil logger drops recorded events.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Aggregator{
		logger:   logger,
		interval: time.Duration(intervalSecs) * time.Second,
		tallies:  make(map[eventKey]*eventTally),
		done:     make(chan struct{}),
	}
}

// Start begins the background flush goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go a.loop()
}

// Stop flushes remaining tallies and stops the background goroutine.
func (a *Aggregator) Stop() {
	close(a.done)
	a.wg.Wait()
	a.flush()
}

// Record adds one occurrence of an event. Fields are last-writer-wins.
func (a *Aggregator) Record(component, event string, fields ...slog.Attr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := eventKey{component: component, event: event}
	tally, ok := a.tallies[key]
	if !ok {
		tally = &eventTally{}
		a.tallies[key] = tally
	}
	tally.count++
	if len(fields) > 0 {
		tally.fields = fields
	}
}

func (a *Aggregator) loop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.flush()
		case <-a.done:
			return
		}
	}
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	if len(a.tallies) == 0 {
		a.mu.Unlock()
		return
	}
	tallies := a.tallies
	a.tallies = make(map[eventKey]*eventTally)
	a.mu.Unlock()

	if a.logger == nil {
		return
	}

	for key, tally := range tallies {
		attrs := []any{
			slog.String("component", key.component),
			slog.String("event", key.event),
			slog.Int64("count", tally.count),
			slog.Int("window_seconds", int(a.interval.Seconds())),
		}
		for _, f := range tally.fields {
			attrs = append(attrs, f)
		}
		a.logger.Info("event_summary", attrs...)
	}
}
