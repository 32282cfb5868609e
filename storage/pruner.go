package storage

import (
	"log/slog"
	"sync"
	"time"

	"Flicker/lib/sl"
)

const pruneCheckFreq = 1 * time.Hour

// Pruner periodically removes generation records older than the configured
// retention from the underlying storage.
type Pruner struct {
	store     GenerationStorage
	log       *slog.Logger
	retention time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewPruner(store GenerationStorage, retention time.Duration, log *slog.Logger) *Pruner {
	return &Pruner{
		store:     store,
		log:       log.With(sl.Module("pruner")),
		retention: retention,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the background retention sweep
func (p *Pruner) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(pruneCheckFreq)
		defer ticker.Stop()

		p.log.Info("retention pruning started", slog.Duration("retention", p.retention))

		for {
			select {
			case <-ticker.C:
				p.prune()
			case <-p.stopChan:
				p.log.Info("retention pruning stopped")
				return
			}
		}
	}()
}

// Stop stops the pruner and waits for the sweep goroutine to complete
func (p *Pruner) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Pruner) prune() {
	cutoff := time.Now().Add(-p.retention)
	removed, err := p.store.DeleteOlderThan(cutoff)
	if err != nil {
		p.log.Error("pruning records", sl.Err(err))
		return
	}
	if removed > 0 {
		p.log.Info("pruned old records", slog.Int64("removed", removed))
	}
}
