package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter buffers case writes and commits them in transactional
// batches, so ingesting a snapshot costs one transaction per batch instead
// of one per record. A timed flush keeps progress checkpoints moving even
// when the final partial batch is small.
type BatchWriter struct {
	mu          sync.Mutex
	buf         []WriteFunc
	cap         int
	flushTicker *time.Ticker
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	commitCh chan []WriteFunc
	db       *sql.DB

	// OnError is invoked for asynchronous flush failures.
	OnError func(error)

	// lastErr stores the first asynchronous error seen by the writer.
	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter creates a writer that flushes every batchSize submissions
// or every flushInterval (0 disables the timer).
func NewBatchWriter(db *sql.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	if batchSize <= 0 {
		batchSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		buf:      make([]WriteFunc, 0, batchSize),
		cap:      batchSize,
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []WriteFunc, 2),
		db:       db,
	}

	bw.wg.Add(1)
	go bw.committer()

	if flushInterval > 0 {
		bw.flushTicker = time.NewTicker(flushInterval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// Submit enqueues a write function.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.cap {
		bw.flushLocked()
	}
	return nil
}

// flushLocked assumes bw.mu is held. If the committer cannot keep up,
// Submit blocks here; that backpressure is intentional.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.cap)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.recordErr(fmt.Errorf("batch writer: dropping batch of %d items due to shutdown", len(batch)))
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.executeBatch(batch); err != nil {
			bw.recordErr(err)
		}
	}
}

func (bw *BatchWriter) executeBatch(batch []WriteFunc) error {
	// No DB configured (tests): run callbacks with a nil tx.
	if bw.db == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Flush with a background context so a closing writer still lands its
	// final batch.
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.flushTicker.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

func (bw *BatchWriter) recordErr(err error) {
	bw.errMu.Lock()
	if bw.lastErr == nil {
		bw.lastErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

// Close stops accepting submissions, flushes pending writes and returns the
// first asynchronous error seen, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.flushTicker != nil {
		bw.flushTicker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()        // stop the ticker loop
	close(bw.commitCh) // let the committer drain and exit
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
