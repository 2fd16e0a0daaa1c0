package commandqueue

import (
	"sync"
	"time"
)

// dedupCache remembers task outcomes by request ID for a bounded
// window. Chat transports can redeliver the same update after a
// reconnect; remembering the outcome keeps a redelivered message from
// producing a second reply.
type dedupCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]cacheEntry
	quit chan struct{}
	once sync.Once
}

type cacheEntry struct {
	res result
	at  time.Time
}

func newDedupCache(ttl time.Duration) *dedupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	dc := &dedupCache{
		ttl:  ttl,
		seen: make(map[string]cacheEntry),
		quit: make(chan struct{}),
	}
	go dc.sweep()

	return dc
}

// Get returns the remembered outcome for requestID, if still fresh.
func (dc *dedupCache) Get(requestID string) (result, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.seen[requestID]
	if !ok || time.Since(e.at) > dc.ttl {
		return result{}, false
	}
	return e.res, true
}

// Set remembers the outcome for requestID.
func (dc *dedupCache) Set(requestID string, res result) {
	dc.mu.Lock()
	dc.seen[requestID] = cacheEntry{res: res, at: time.Now()}
	dc.mu.Unlock()
}

// Size reports how many outcomes are currently remembered.
func (dc *dedupCache) Size() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.seen)
}

// Stop ends the background sweeper. Safe to call more than once.
func (dc *dedupCache) Stop() {
	dc.once.Do(func() { close(dc.quit) })
}

// sweep drops expired entries once a minute.
func (dc *dedupCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-dc.quit:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-dc.ttl)
			dc.mu.Lock()
			for id, e := range dc.seen {
				if e.at.Before(cutoff) {
					delete(dc.seen, id)
				}
			}
			dc.mu.Unlock()
		}
	}
}
