// Package ingestion persists decoded transfer events. One event flows
// through exactly one dedup decision, one insert, and at most one token
// creation; a failure on any single event never stops the loop.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-pump-tracker/internal/developer"
	"solana-pump-tracker/internal/domain"
	"solana-pump-tracker/internal/observability"
	"solana-pump-tracker/internal/storage"
)

const defaultArchiveBatchSize = 64

// CreationPredicate decides whether an event represents a token launch.
type CreationPredicate func(*domain.TransferEvent) bool

// DefaultCreationPredicate mirrors the stream subscription filter: the
// subscription only carries WSOL-denominated transfers, so any event
// whose mint matches is treated as launch activity for its receiver.
func DefaultCreationPredicate(ev *domain.TransferEvent) bool {
	return ev.MintAddress == domain.WSOLMint
}

// EventSource is the read side of a stream consumer.
type EventSource interface {
	Events() <-chan *domain.TransferEvent
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Tokens     storage.TokenStore
	Transfers  storage.TransferStore
	Developers *developer.Updater

	// Archive receives every stored transfer, batched. Optional.
	Archive          storage.TransferArchive
	ArchiveBatchSize int

	IsCreation CreationPredicate
	Logger     *log.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// Pipeline applies dedup and persistence to transfer events.
type Pipeline struct {
	tokens     storage.TokenStore
	transfers  storage.TransferStore
	developers *developer.Updater
	archive    storage.TransferArchive
	batchSize  int
	isCreation CreationPredicate
	logger     *log.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	pending []*domain.TokenTransfer
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.IsCreation == nil {
		opts.IsCreation = DefaultCreationPredicate
	}
	if opts.ArchiveBatchSize <= 0 {
		opts.ArchiveBatchSize = defaultArchiveBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		tokens:     opts.Tokens,
		transfers:  opts.Transfers,
		developers: opts.Developers,
		archive:    opts.Archive,
		batchSize:  opts.ArchiveBatchSize,
		isCreation: opts.IsCreation,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
}

// Ingest processes a single event. It reports whether the event was
// stored; duplicates return (false, nil). Re-ingesting the same hash is
// a no-op regardless of how many times it arrives.
func (p *Pipeline) Ingest(ctx context.Context, ev *domain.TransferEvent) (bool, error) {
	if ev == nil || ev.TxHash == "" {
		return false, storage.ErrInvalidInput
	}

	seen, err := p.transfers.Exists(ctx, ev.TxHash)
	if err != nil {
		p.countError("dedup")
		return false, fmt.Errorf("dedup check %s: %w", ev.TxHash, err)
	}
	if seen {
		p.countDuplicate()
		return false, nil
	}

	rec := ev.Record(p.now().UTC().UnixMilli())
	if err := p.transfers.Insert(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost a race with a concurrent insert of the same hash.
			p.countDuplicate()
			return false, nil
		}
		p.countError("insert")
		return false, fmt.Errorf("insert transfer %s: %w", ev.TxHash, err)
	}
	if p.metrics != nil {
		p.metrics.EventsIngested.Inc()
	}

	p.enqueueArchive(ctx, rec)

	if p.isCreation(ev) {
		if err := p.handleCreation(ctx, ev); err != nil {
			p.countError("creation")
			p.logger.Printf("creation handling for %s: %v", ev.TxHash, err)
		}
	}
	return true, nil
}

// handleCreation records a token launch. The receiver of the launch
// transfer is the token account and the sender is the creator wallet.
func (p *Pipeline) handleCreation(ctx context.Context, ev *domain.TransferEvent) error {
	address := ev.Receiver
	creator := ev.Sender
	if address == "" {
		return nil
	}
	if creator != "" && !ValidAddress(creator) {
		p.logger.Printf("skipping creator stats for off-curve address %s", creator)
		creator = ""
	}

	token := &domain.Token{
		Address:        address,
		CreatorAddress: creator,
		CreationTime:   ev.BlockTime,
	}
	if ev.TokenName != "" {
		name := ev.TokenName
		token.Name = &name
	}
	if ev.TokenSymbol != "" {
		symbol := ev.TokenSymbol
		token.Symbol = &symbol
	}

	err := p.CreateToken(ctx, token)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// CreateToken registers a token directly, outside the stream path. The
// last-updated stamp is set here; inserting an already known address
// returns ErrDuplicateKey.
func (p *Pipeline) CreateToken(ctx context.Context, token *domain.Token) error {
	if token == nil || token.Address == "" {
		return storage.ErrInvalidInput
	}
	if token.LastUpdated == 0 {
		token.LastUpdated = p.now().UTC().UnixMilli()
	}

	if err := p.tokens.Insert(ctx, token); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("insert token %s: %w", token.Address, err)
	}

	if p.metrics != nil {
		p.metrics.TokensCreated.Inc()
	}
	p.logger.Printf("new token %s by %s", token.Address, token.CreatorAddress)

	if p.developers != nil && token.CreatorAddress != "" {
		if err := p.developers.RecordCreation(ctx, token.CreatorAddress, token.CreationTime); err != nil {
			return fmt.Errorf("developer stats for %s: %w", token.CreatorAddress, err)
		}
	}
	return nil
}

// RunLoop drains events from the source until the context is cancelled
// or the event channel closes. Per-event failures are logged and the
// loop moves on.
func (p *Pipeline) RunLoop(ctx context.Context, source EventSource) error {
	events := source.Events()
	defer p.flushArchive(context.WithoutCancel(ctx))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := p.Ingest(ctx, ev); err != nil {
				p.logger.Printf("ingest: %v", err)
			}
		}
	}
}

func (p *Pipeline) enqueueArchive(ctx context.Context, rec *domain.TokenTransfer) {
	if p.archive == nil {
		return
	}
	p.pending = append(p.pending, rec)
	if len(p.pending) >= p.batchSize {
		p.flushArchive(ctx)
	}
}

// flushArchive pushes buffered records to the analytics sink. Archive
// failures are logged only; the rows are already durable in the primary
// store.
func (p *Pipeline) flushArchive(ctx context.Context) {
	if p.archive == nil || len(p.pending) == 0 {
		return
	}
	if err := p.archive.Archive(ctx, p.pending); err != nil {
		p.countError("archive")
		p.logger.Printf("archive %d transfers: %v", len(p.pending), err)
	}
	p.pending = p.pending[:0]
}

func (p *Pipeline) countDuplicate() {
	if p.metrics != nil {
		p.metrics.DuplicatesSkipped.Inc()
	}
}

func (p *Pipeline) countError(stage string) {
	if p.metrics != nil {
		p.metrics.IngestErrors.WithLabelValues(stage).Inc()
	}
}
