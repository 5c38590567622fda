// Package aggregator owns the polling pipeline and its state. Exactly
// one Aggregator runs per deployment; every mutation of the imbalance
// history, the last snapshot and the subscriber registry happens on
// its single goroutine, reached only through the command channels.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"depthsignal/config"
	"depthsignal/internal/analysis"
	"depthsignal/internal/metrics"
	"depthsignal/internal/venue"
	"depthsignal/logger"
	"depthsignal/models"
)

// Aggregator drives the fetch, analyze, synthesize, broadcast cycle.
type Aggregator struct {
	cfg     config.AggregatorConfig
	timeout time.Duration
	venues  []venue.Adapter
	log     *logger.Log

	gets         chan getRequest
	subscribes   chan subscribeRequest
	unsubscribes chan uuid.UUID

	// Owned exclusively by the Run goroutine.
	history     []models.ImbalanceEntry
	last        models.SignalSet
	subscribers map[uuid.UUID]chan models.SignalSet

	mu      sync.Mutex
	running bool

	now func() time.Time
}

// Subscription is a registered snapshot receiver. The channel carries
// the full per-asset signal pair after every completed cycle, starting
// with the latest snapshot when one exists at registration time.
type Subscription struct {
	ID uuid.UUID
	C  <-chan models.SignalSet
}

type getRequest struct {
	reply chan models.SignalSet
}

type subscribeRequest struct {
	reply chan *Subscription
}

type assetCycle struct {
	exchanges map[string]*models.ExchangeData
	whales    []models.WhaleOrder
	combined  float64
}

// New creates the aggregator for the given venue adapters.
func New(cfg config.AggregatorConfig, fetchTimeout time.Duration, venues []venue.Adapter) *Aggregator {
	return &Aggregator{
		cfg:          cfg,
		timeout:      fetchTimeout,
		venues:       venues,
		log:          logger.GetLogger(),
		gets:         make(chan getRequest),
		subscribes:   make(chan subscribeRequest),
		unsubscribes: make(chan uuid.UUID),
		subscribers:  make(map[uuid.UUID]chan models.SignalSet),
		now:          time.Now,
	}
}

// Run executes the polling loop until the context is cancelled. Cycles
// run back to back on a fixed interval and never overlap: the next
// tick is not consumed until the previous cycle's broadcast finished.
func (a *Aggregator) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("aggregator already running")
	}
	a.running = true
	a.mu.Unlock()

	log := a.log.WithComponent("aggregator")
	log.WithFields(logger.Fields{
		"poll_interval":  a.cfg.PollInterval.String(),
		"history_window": a.cfg.HistoryWindow.String(),
		"venues":         len(a.venues),
	}).Info("starting aggregation loop")

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			log.Info("aggregation loop stopped")
			return nil
		case <-ticker.C:
			a.runCycle(ctx)
		case req := <-a.gets:
			a.handleGet(ctx, req)
		case req := <-a.subscribes:
			a.handleSubscribe(req)
		case id := <-a.unsubscribes:
			a.removeSubscriber(id, "unsubscribed")
		}
	}
}

// Signals returns the last published snapshot pair. Before the first
// cycle completes it runs a one-off fetch-and-synthesize pass that
// leaves the actor state untouched.
func (a *Aggregator) Signals(ctx context.Context) (models.SignalSet, error) {
	req := getRequest{reply: make(chan models.SignalSet, 1)}
	select {
	case a.gets <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case set := <-req.reply:
		return set, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a new snapshot receiver. The latest snapshot is
// delivered immediately when one exists.
func (a *Aggregator) Subscribe(ctx context.Context) (*Subscription, error) {
	req := subscribeRequest{reply: make(chan *Subscription, 1)}
	select {
	case a.subscribes <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case sub := <-req.reply:
		return sub, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes a receiver. Unknown IDs are ignored.
func (a *Aggregator) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	select {
	case a.unsubscribes <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runCycle performs one full pipeline pass. Any unexpected failure is
// contained here: the previous snapshot stands and the loop carries on
// at the next tick.
func (a *Aggregator) runCycle(ctx context.Context) {
	log := a.log.WithComponent("aggregator")

	defer func() {
		if r := recover(); r != nil {
			metrics.IncrementCycleError()
			log.WithFields(logger.Fields{"panic": fmt.Sprint(r)}).Error("cycle failed, keeping previous snapshot")
		}
	}()

	start := a.now()
	books := a.fetchAll(ctx)
	cycles := a.analyzeBooks(books)

	entry := models.ImbalanceEntry{
		Timestamp:  start,
		Imbalances: make(map[models.Asset]float64, len(models.Assets)),
	}
	for _, asset := range models.Assets {
		entry.Imbalances[asset] = cycles[asset].combined
	}
	a.history = append(a.history, entry)
	a.trimHistory(start)

	set := a.synthesize(books, cycles, start, true)

	// The snapshot pair is replaced wholesale; readers never observe a
	// partially updated state.
	a.last = set
	a.broadcast(set)
	metrics.IncrementCycleSuccess()

	logger.LogDuration(log, "aggregator", "cycle", time.Since(start), logger.Fields{
		"subscribers": len(a.subscribers),
	})
}

// fetchAll issues all venue/asset fetches concurrently and joins them.
// A failed fetch yields a nil book for that venue only.
func (a *Aggregator) fetchAll(ctx context.Context) map[models.Asset]map[string]*models.OrderBook {
	log := a.log.WithComponent("aggregator")

	type fetchResult struct {
		venue string
		asset models.Asset
		book  *models.OrderBook
	}

	results := make(chan fetchResult, len(a.venues)*len(models.Assets))
	var wg sync.WaitGroup

	for _, adapter := range a.venues {
		for _, asset := range models.Assets {
			wg.Add(1)
			go func(ad venue.Adapter, asset models.Asset) {
				defer wg.Done()

				fctx, cancel := context.WithTimeout(ctx, a.timeout)
				defer cancel()

				book, err := ad.Fetch(fctx, asset)
				if err != nil {
					metrics.IncrementVenueError(ad.Name())
					log.WithError(err).WithFields(logger.Fields{
						"venue": ad.Name(),
						"asset": string(asset),
					}).Warn("venue fetch failed, treating as absent")
					book = nil
				}
				results <- fetchResult{venue: ad.Name(), asset: asset, book: book}
			}(adapter, asset)
		}
	}

	wg.Wait()
	close(results)

	books := make(map[models.Asset]map[string]*models.OrderBook, len(models.Assets))
	for _, asset := range models.Assets {
		books[asset] = make(map[string]*models.OrderBook, len(a.venues))
	}
	for res := range results {
		books[res.asset][res.venue] = res.book
	}
	return books
}

func (a *Aggregator) analyzeBooks(books map[models.Asset]map[string]*models.OrderBook) map[models.Asset]*assetCycle {
	cycles := make(map[models.Asset]*assetCycle, len(models.Assets))
	for _, asset := range models.Assets {
		params := models.ParamsFor(asset)
		cycle := &assetCycle{exchanges: make(map[string]*models.ExchangeData)}

		var sum float64
		var present int
		for _, name := range models.Venues {
			book := books[asset][name]
			if book == nil {
				continue
			}
			data, whales := analysis.AnalyzeBook(book, params.WhaleThreshold)
			cycle.exchanges[name] = data
			cycle.whales = append(cycle.whales, whales...)
			sum += data.Imbalance
			present++
		}
		if present > 0 {
			cycle.combined = sum / float64(present)
		}
		cycles[asset] = cycle
	}
	return cycles
}

func (a *Aggregator) synthesize(books map[models.Asset]map[string]*models.OrderBook, cycles map[models.Asset]*assetCycle, now time.Time, withTrend bool) models.SignalSet {
	set := make(models.SignalSet, len(models.Assets))
	for _, asset := range models.Assets {
		cycle := cycles[asset]

		avg := 0.0
		trend := models.TrendNeutral
		if withTrend {
			avg, trend = analysis.ClassifyTrend(a.history, asset, now, a.cfg.TrendWindow)
		}

		set[asset] = analysis.Synthesize(analysis.SynthesisInput{
			Asset:            asset,
			Exchanges:        cycle.exchanges,
			WhaleOrders:      cycle.whales,
			WhaleConsensus:   analysis.ScoreWhaleConsensus(cycle.whales),
			SupportLevels:    analysis.DetectLevels(books[asset], models.SideBid, asset),
			ResistanceLevels: analysis.DetectLevels(books[asset], models.SideAsk, asset),
			AvgImbalance:     avg,
			Trend:            trend,
			Timestamp:        now,
		})
	}
	return set
}

func (a *Aggregator) trimHistory(now time.Time) {
	cutoff := now.Add(-a.cfg.HistoryWindow)
	kept := a.history[:0]
	for _, entry := range a.history {
		if !entry.Timestamp.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	a.history = kept
}

// handleGet serves a synchronous read. A cold read before the first
// cycle triggers a one-off pass that bypasses the history-based trend
// and mutates nothing.
func (a *Aggregator) handleGet(ctx context.Context, req getRequest) {
	if a.last != nil {
		req.reply <- a.last
		return
	}

	books := a.fetchAll(ctx)
	cycles := a.analyzeBooks(books)
	req.reply <- a.synthesize(books, cycles, a.now(), false)
}

func (a *Aggregator) handleSubscribe(req subscribeRequest) {
	id := uuid.New()
	ch := make(chan models.SignalSet, a.cfg.SubscriberBuffer)
	a.subscribers[id] = ch
	metrics.SetSubscribers(len(a.subscribers))

	a.log.WithComponent("aggregator").WithFields(logger.Fields{
		"subscriber": id.String(),
		"total":      len(a.subscribers),
	}).Info("subscriber registered")

	if a.last != nil {
		ch <- a.last
	}
	req.reply <- &Subscription{ID: id, C: ch}
}

// broadcast delivers the snapshot to every subscriber independently.
// A receiver that cannot keep up is unregistered; the rest are
// unaffected.
func (a *Aggregator) broadcast(set models.SignalSet) {
	for id, ch := range a.subscribers {
		select {
		case ch <- set:
			metrics.IncrementBroadcast()
		default:
			a.removeSubscriber(id, "send failed")
		}
	}
}

func (a *Aggregator) removeSubscriber(id uuid.UUID, reason string) {
	ch, ok := a.subscribers[id]
	if !ok {
		return
	}
	delete(a.subscribers, id)
	close(ch)
	metrics.SetSubscribers(len(a.subscribers))

	a.log.WithComponent("aggregator").WithFields(logger.Fields{
		"subscriber": id.String(),
		"reason":     reason,
		"total":      len(a.subscribers),
	}).Info("subscriber removed")
}

func (a *Aggregator) shutdown() {
	for id := range a.subscribers {
		a.removeSubscriber(id, "shutdown")
	}
}
