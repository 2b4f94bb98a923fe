// Package ingestor scans HTLC contract logs block range by block range and
// forwards the decoded events to the event queue.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/event"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultBlockRange = 100

// BlockRange is an inclusive span of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

// GenerateRanges splits [from, to] into contiguous, non-overlapping chunks
// of at most size blocks. It returns nil when from > to.
func GenerateRanges(from, to, size uint64) []BlockRange {
	if from > to {
		return nil
	}
	if size == 0 {
		size = DefaultBlockRange
	}
	ranges := make([]BlockRange, 0, (to-from)/size+1)
	for start := from; start <= to; {
		end := start + size - 1
		if end > to || end < start {
			end = to
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges
}

type Config struct {
	BlockRange uint64
	Job        queue.EnqueueOptions // attempts and backoff of forwarded events
}

// Ingestor tracks one network. Only the watermark is persisted; a failed
// tick replays from it on the next run.
type Ingestor struct {
	client     chain.Client
	decoder    chain.LogDecoder
	watermarks store.WatermarkStore
	events     queue.Producer
	cfg        Config
	network    model.Network
	logger     *slog.Logger
}

func New(client chain.Client, decoder chain.LogDecoder, watermarks store.WatermarkStore, events queue.Producer, cfg Config, logger *slog.Logger) *Ingestor {
	if cfg.BlockRange == 0 {
		cfg.BlockRange = DefaultBlockRange
	}
	if logger == nil {
		logger = slog.Default()
	}
	network := client.Network()
	return &Ingestor{
		client:     client,
		decoder:    decoder,
		watermarks: watermarks,
		events:     events,
		cfg:        cfg,
		network:    network,
		logger:     logger.With("component", "ingestor", "network", network),
	}
}

// Tick scans from the watermark to the current head and advances the
// watermark once every chunk was forwarded.
func (i *Ingestor) Tick(ctx context.Context) (err error) {
	networkLabel := i.network.String()
	metrics.IngestorTicksTotal.WithLabelValues(networkLabel).Inc()
	start := time.Now()

	ctx, span := tracing.Start(ctx, "ingestor", "tick", attribute.String("network", networkLabel))
	defer func() {
		metrics.IngestorTickLatency.WithLabelValues(networkLabel).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.IngestorTickErrors.WithLabelValues(networkLabel).Inc()
		}
		tracing.End(span, err)
	}()

	head, err := i.client.CurrentBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("current block height: %w", err)
	}

	chainID := i.client.ChainID()
	last, ok, err := i.watermarks.GetWatermark(ctx, chainID)
	if err != nil {
		return fmt.Errorf("get watermark: %w", err)
	}
	if !ok || last == 0 {
		if err := i.watermarks.SetWatermark(ctx, chainID, head); err != nil {
			return fmt.Errorf("initialize watermark: %w", err)
		}
		metrics.IngestorWatermark.WithLabelValues(networkLabel).Set(float64(head))
		i.logger.Info("watermark initialized at head", "head", head)
		return nil
	}
	if last >= head {
		return nil
	}

	ranges := GenerateRanges(last+1, head, i.cfg.BlockRange)
	span.SetAttributes(
		attribute.Int64("from_block", int64(last+1)),
		attribute.Int64("to_block", int64(head)),
		attribute.Int("chunks", len(ranges)),
	)
	metrics.IngestorScanSpan.WithLabelValues(networkLabel).Set(float64(head - last))

	forwarded := 0
	for _, r := range ranges {
		n, err := i.scanRange(ctx, r)
		if err != nil {
			return fmt.Errorf("scan blocks %d-%d: %w", r.From, r.To, err)
		}
		forwarded += n
	}

	if err := i.watermarks.SetWatermark(ctx, chainID, head); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	metrics.IngestorWatermark.WithLabelValues(networkLabel).Set(float64(head))
	i.logger.Info("blocks scanned", "from", last+1, "to", head, "chunks", len(ranges), "events", forwarded)
	return nil
}

func (i *Ingestor) scanRange(ctx context.Context, r BlockRange) (int, error) {
	logs, err := i.client.EventLogs(ctx, r.From, r.To)
	if err != nil {
		return 0, fmt.Errorf("event logs: %w", err)
	}

	specs := make([]queue.JobSpec, 0, len(logs))
	for _, raw := range logs {
		ev, ok := i.decode(raw)
		if !ok {
			continue
		}
		payload, err := event.Marshal(ev)
		if err != nil {
			return 0, err
		}
		opts := i.cfg.Job
		opts.ID = eventJobID(ev.Source())
		specs = append(specs, queue.JobSpec{Name: queue.JobProcessEvent, Payload: payload, Options: opts})
		metrics.IngestorEventsForwarded.WithLabelValues(i.network.String(), string(ev.Kind())).Inc()
	}
	if len(specs) == 0 {
		return 0, nil
	}
	if err := i.events.EnqueueBulk(ctx, specs); err != nil {
		return 0, fmt.Errorf("enqueue events: %w", err)
	}
	return len(specs), nil
}

func (i *Ingestor) decode(raw chain.RawLog) (event.Event, bool) {
	networkLabel := i.network.String()
	if raw.Removed {
		metrics.IngestorEventsDropped.WithLabelValues(networkLabel, "removed").Inc()
		return nil, false
	}
	ev, err := i.decoder.Decode(raw)
	if errors.Is(err, chain.ErrUnknownEvent) {
		metrics.IngestorEventsDropped.WithLabelValues(networkLabel, "unknown").Inc()
		return nil, false
	}
	if err != nil {
		// The watermark still moves past the log; the record below is the
		// only trace of it.
		metrics.IngestorEventsDropped.WithLabelValues(networkLabel, "decode_error").Inc()
		i.logger.Error("dropping undecodable htlc log",
			"block", raw.BlockNumber,
			"tx_hash", raw.TxHash,
			"log_index", raw.Index,
			"error", err,
		)
		return nil, false
	}
	if locked, ok := ev.(event.Locked); ok && !locked.HasReward() {
		metrics.IngestorEventsDropped.WithLabelValues(networkLabel, "no_reward").Inc()
		return nil, false
	}
	return ev, true
}

// eventJobID dedupes a log delivered twice while its job is still live.
func eventJobID(o event.Origin) string {
	return fmt.Sprintf("evt:%s:%s:%d", o.Network, o.TxHash, o.LogIndex)
}
