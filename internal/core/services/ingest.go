package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/quarry-labs/quarry-cli/internal/chunker"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-cli/internal/core/ports/driving"
	"github.com/quarry-labs/quarry-cli/internal/logger"
)

// maxRecordLine bounds one NDJSON line on the load path. Document bodies
// travel inline, so lines run far past bufio's default limit.
const maxRecordLine = 16 << 20

// Ensure IngestService implements the interface.
var _ driving.IngestOrchestrator = (*IngestService)(nil)

// IngestService coordinates the fetch-normalise-chunk-index pipeline.
// Source pipelines run in parallel on a bounded worker pool; each one owns
// its report and only the shared run counters are locked.
type IngestService struct {
	connectors map[domain.SourceType]driven.Connector
	order      []domain.SourceType
	registry   driven.NormaliserRegistry
	splitter   *chunker.Chunker
	embedder   driven.EmbeddingService
	index      driven.VectorStore
	states     driven.SyncStateStore
	batchSize  int
	parallel   int
}

// NewIngestService creates an ingest orchestrator over the given connectors.
// Connector order is preserved for reporting; a duplicate source keeps the
// first connector registered for it. batchSize bounds one embedding request,
// parallel bounds concurrent source pipelines; both floor at 1.
func NewIngestService(
	connectors []driven.Connector,
	registry driven.NormaliserRegistry,
	splitter *chunker.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorStore,
	states driven.SyncStateStore,
	batchSize, parallel int,
) *IngestService {
	if batchSize <= 0 {
		batchSize = 1
	}
	if parallel <= 0 {
		parallel = 1
	}

	svc := &IngestService{
		connectors: make(map[domain.SourceType]driven.Connector, len(connectors)),
		registry:   registry,
		splitter:   splitter,
		embedder:   embedder,
		index:      index,
		states:     states,
		batchSize:  batchSize,
		parallel:   parallel,
	}
	for _, conn := range connectors {
		source := conn.Source()
		if _, dup := svc.connectors[source]; dup {
			continue
		}
		svc.connectors[source] = conn
		svc.order = append(svc.order, source)
	}
	return svc
}

// IngestAll runs every configured source pipeline in parallel and merges
// their reports into one summary. A source failure is recorded on its
// report and does not stop the others; an index write failure cancels the
// remaining pipelines and is returned alongside the partial summary.
func (s *IngestService) IngestAll(ctx context.Context) (*domain.RunSummary, error) {
	run := domain.NewIngestionRun()
	if len(s.order) == 0 {
		summary := run.Summary()
		return &summary, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(s.parallel)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	logger.Section("Ingest")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fatalErr error
	)
	fatal := func(err error) {
		mu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		mu.Unlock()
		cancel()
	}

	for _, source := range s.order {
		conn := s.connectors[source]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := s.ingestSource(ctx, run, conn); err != nil {
				fatal(err)
			}
		})
		if err != nil {
			wg.Done()
			fatal(fmt.Errorf("submit %s pipeline: %w", source, err))
		}
	}
	wg.Wait()

	summary := run.Summary()
	if fatalErr != nil {
		return &summary, fatalErr
	}
	logger.Info("Run complete: %s", summary)
	return &summary, nil
}

// IngestSource runs the pipeline for a single source.
func (s *IngestService) IngestSource(ctx context.Context, source domain.SourceType) (*domain.RunSummary, error) {
	conn, ok := s.connectors[source]
	if !ok {
		return nil, fmt.Errorf("no %s connector configured: %w", source, domain.ErrNotFound)
	}

	run := domain.NewIngestionRun()
	err := s.ingestSource(ctx, run, conn)
	summary := run.Summary()
	if err != nil {
		return &summary, err
	}
	return &summary, nil
}

// ingestSource drives one source from fetch to index. The returned error is
// fatal for the whole run (index write failure or cancellation); transport
// and validation failures stay on the source's report so other pipelines
// carry on.
//
//nolint:gocognit,gocyclo // Orchestration function with necessary sequential steps
func (s *IngestService) ingestSource(ctx context.Context, run *domain.IngestionRun, conn driven.Connector) error {
	source := conn.Source()
	report := domain.SourceReport{Source: source}
	started := time.Now()
	defer func() {
		report.Duration = time.Since(started)
		run.AddReport(report)
	}()

	// 1. Check connectivity and credentials before paginating.
	if err := conn.Validate(ctx); err != nil {
		report.Err = err
		logger.Warn("Skipping %s: %v", source, err)
		return nil
	}

	// 2. Load sync state to choose between a full and an incremental fetch.
	var (
		records <-chan domain.RawRecord
		errs    <-chan error
	)
	state, err := s.states.Get(ctx, source)
	switch {
	case err == nil && state.Cursor != "":
		logger.Info("Ingesting %s since last sync", source)
		records, errs = conn.FetchSince(ctx, *state)
	case err == nil || errors.Is(err, domain.ErrNotFound):
		logger.Info("Ingesting %s from scratch", source)
		records, errs = conn.FetchAll(ctx)
	default:
		report.Err = fmt.Errorf("get sync state: %w", err)
		return nil
	}

	// 3. Drain the stream, classifying and embedding as records arrive.
	batch := s.newBatch(run, &report)
	cursor, complete, err := s.drainRecords(ctx, records, errs, batch, &report)
	if err != nil {
		return err
	}

	// 4. Flush the tail batch. Records yielded before an abort were still
	// classified and stay in the run.
	if err := batch.flush(ctx); err != nil {
		return err
	}

	if report.Err != nil {
		logger.Warn("Source %s aborted: %v", source, report.Err)
		return nil
	}

	// 5. Persist the cursor only after a clean pass, so an aborted run
	// resumes from the previous position.
	if complete {
		newState := domain.SyncState{Source: source, Cursor: cursor, LastSync: time.Now().UTC()}
		if err := s.states.Save(ctx, newState); err != nil {
			report.Err = fmt.Errorf("save sync state: %w", err)
			return nil
		}
	}

	logger.Info("Source %s done: records=%d chunks=%d new=%d updated=%d skipped=%d failed=%d",
		source, report.Records, report.Chunks,
		report.New, report.Updated, report.Skipped, report.Failed)
	return nil
}

// drainRecords consumes the connector stream until both channels close.
// A connector failure lands on the report and ends the drain; the records
// already processed stay counted. Only cancellation and index failures are
// returned as errors.
func (s *IngestService) drainRecords(
	ctx context.Context,
	records <-chan domain.RawRecord,
	errs <-chan error,
	batch *upsertBatch,
	report *domain.SourceReport,
) (string, bool, error) {
	var (
		cursor   string
		complete bool
	)
	// The records channel can close before the completion marker is read,
	// so drain both channels to the end rather than stopping at the first
	// close.
	for records != nil || errs != nil {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if sc, done := driven.IsSyncComplete(err); done {
				cursor = sc.Cursor
				complete = true
				continue
			}
			report.Err = err
			return cursor, false, nil

		case record, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if err := s.processRecord(ctx, &record, batch, report); err != nil {
				return cursor, complete, err
			}
		}
	}
	return cursor, complete, nil
}

// processRecord normalises and chunks one record and hands the chunks to
// the batcher. A record the normaliser rejects is counted and skipped.
func (s *IngestService) processRecord(
	ctx context.Context,
	record *domain.RawRecord,
	batch *upsertBatch,
	report *domain.SourceReport,
) error {
	report.Records++

	doc, err := s.registry.Normalise(ctx, record)
	if err != nil {
		report.Malformed++
		logger.Debug("Skipping %s record %s: %v", record.Source, record.SourceID, err)
		return nil
	}

	// An empty body yields no chunks and touches nothing.
	chunks := s.splitter.Split(doc)
	if len(chunks) == 0 {
		return nil
	}
	report.Chunks += len(chunks)

	return batch.add(ctx, chunks)
}

// Extract streams raw records from the given sources to w as NDJSON, one
// envelope per line, without touching the index or the sync state. An empty
// source list means every configured source. Returns the number of records
// written; on failure the lines already written remain valid.
func (s *IngestService) Extract(ctx context.Context, sources []domain.SourceType, w io.Writer) (int, error) {
	targets := sources
	if len(targets) == 0 {
		targets = s.order
	}

	enc := json.NewEncoder(w)
	total := 0
	for _, source := range targets {
		conn, ok := s.connectors[source]
		if !ok {
			return total, fmt.Errorf("no %s connector configured: %w", source, domain.ErrNotFound)
		}
		logger.Info("Extracting %s", source)
		n, err := s.extractSource(ctx, conn, enc)
		total += n
		if err != nil {
			return total, fmt.Errorf("extract %s: %w", source, err)
		}
	}
	return total, nil
}

// extractSource dumps one connector's full stream to the encoder.
func (s *IngestService) extractSource(ctx context.Context, conn driven.Connector, enc *json.Encoder) (int, error) {
	records, errs := conn.FetchAll(ctx)
	count := 0
	for records != nil || errs != nil {
		select {
		case <-ctx.Done():
			return count, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if _, done := driven.IsSyncComplete(err); done {
				continue
			}
			return count, err

		case record, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			if err := enc.Encode(record); err != nil {
				return count, fmt.Errorf("write record: %w", err)
			}
			count++
		}
	}
	return count, nil
}

// Load replays previously extracted NDJSON records through the
// normalise-chunk-index pipeline. Blank lines are skipped; a line that does
// not parse as a record envelope is fatal, since the input is a machine
// written artifact and a broken line means it is damaged. Reports are
// grouped by the source each record names.
func (s *IngestService) Load(ctx context.Context, r io.Reader) (*domain.RunSummary, error) {
	run := domain.NewIngestionRun()

	batches := make(map[domain.SourceType]*upsertBatch)
	reports := make(map[domain.SourceType]*domain.SourceReport)
	var order []domain.SourceType

	finish := func(err error) (*domain.RunSummary, error) {
		for _, source := range order {
			run.AddReport(*reports[source])
		}
		summary := run.Summary()
		return &summary, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record domain.RawRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return finish(fmt.Errorf("line %d: decode record: %w", lineNo, err))
		}

		source := record.Source
		report, ok := reports[source]
		if !ok {
			report = &domain.SourceReport{Source: source}
			reports[source] = report
			batches[source] = s.newBatch(run, report)
			order = append(order, source)
		}
		if err := s.processRecord(ctx, &record, batches[source], report); err != nil {
			return finish(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return finish(fmt.Errorf("read records: %w", err))
	}

	for _, source := range order {
		if err := batches[source].flush(ctx); err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

// Reset clears stored sync state for the given sources, or every configured
// source when the list is empty. The next ingestion fetches from scratch;
// unchanged chunks are still skipped by their content hash.
func (s *IngestService) Reset(ctx context.Context, sources []domain.SourceType) error {
	targets := sources
	if len(targets) == 0 {
		targets = s.order
	}

	for _, source := range targets {
		if err := s.states.Delete(ctx, source); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("reset %s: %w", source, err)
		}
	}
	return nil
}

// Status reports the index size and the recorded sync state per source.
// Sources that never completed a sync appear with a zero LastSync.
func (s *IngestService) Status(ctx context.Context) (*driving.IngestStatus, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}

	status := &driving.IngestStatus{ChunkCount: stats.Count}
	for _, source := range s.order {
		state, err := s.states.Get(ctx, source)
		if errors.Is(err, domain.ErrNotFound) {
			status.Sources = append(status.Sources, domain.SyncState{Source: source})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s sync state: %w", source, err)
		}
		status.Sources = append(status.Sources, *state)
	}
	return status, nil
}

// pendingChunk is a chunk waiting for its embedding, with the disposition
// decided at classification time.
type pendingChunk struct {
	chunk domain.Chunk
	isNew bool
}

// upsertBatch classifies incoming chunks against the index and embeds the
// changed ones in bounded batches. Unchanged chunks are counted as skipped
// the moment they are classified; batch boundaries never change a chunk's
// disposition.
type upsertBatch struct {
	index   driven.VectorStore
	embed   driven.EmbeddingService
	size    int
	run     *domain.IngestionRun
	report  *domain.SourceReport
	pending []pendingChunk
}

// newBatch creates a batcher writing to the given run and report.
func (s *IngestService) newBatch(run *domain.IngestionRun, report *domain.SourceReport) *upsertBatch {
	return &upsertBatch{
		index:  s.index,
		embed:  s.embedder,
		size:   s.batchSize,
		run:    run,
		report: report,
	}
}

// add classifies chunks against their stored entries and queues the new and
// updated ones, flushing whenever the batch fills.
func (b *upsertBatch) add(ctx context.Context, chunks []domain.Chunk) error {
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}
	existing, err := b.index.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up chunks: %w", err)
	}

	for _, chunk := range chunks {
		entry, ok := existing[chunk.ID]
		switch {
		case ok && entry.ContentHash == chunk.ContentHash:
			// Unchanged content: no embedding call, no write.
			b.run.RecordSkipped(1)
			b.report.Skipped++
			continue
		case ok:
			b.pending = append(b.pending, pendingChunk{chunk: chunk, isNew: false})
		default:
			b.pending = append(b.pending, pendingChunk{chunk: chunk, isNew: true})
		}

		if len(b.pending) >= b.size {
			if err := b.flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// flush embeds the queued chunks and writes them to the index. A failed
// embedding call marks the batch's chunks failed and the run continues; a
// failed index write is fatal. New and updated counters move only after
// the write lands.
func (b *upsertBatch) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(b.pending) == 0 {
		return nil
	}

	pending := b.pending
	b.pending = nil

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.chunk.Text
	}

	vectors, err := b.embed.EmbedBatch(ctx, texts)
	if err != nil {
		ids := make([]string, len(pending))
		for i, p := range pending {
			ids[i] = p.chunk.ID
		}
		b.run.RecordFailed(len(pending))
		b.report.Failed += len(pending)
		logger.Warn("Continuing after %v", &domain.EmbeddingProviderError{ChunkIDs: ids, Err: err})
		return nil
	}

	now := time.Now().UTC()
	entries := make([]domain.IndexEntry, len(pending))
	for i, p := range pending {
		entries[i] = domain.IndexEntry{
			ChunkID:     p.chunk.ID,
			ContentHash: p.chunk.ContentHash,
			Embedding:   vectors[i],
			Text:        p.chunk.Text,
			Metadata:    p.chunk.Metadata,
			UpdatedAt:   now,
		}
	}
	if err := b.index.Upsert(ctx, entries); err != nil {
		return err
	}

	var created, updated int
	for _, p := range pending {
		if p.isNew {
			created++
		} else {
			updated++
		}
	}
	if created > 0 {
		b.run.RecordNew(created)
		b.report.New += created
	}
	if updated > 0 {
		b.run.RecordUpdated(updated)
		b.report.Updated += updated
	}
	return nil
}
