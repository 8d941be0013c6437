package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"
)

// Store is the summary-session state manager.
type Store struct {
	mu         sync.Mutex
	records    []*Record // newest first
	staged     Staging
	extracting int
	seq        uint64 // last request generation issued by this store

	summarizer Summarizer
	extractor  Extractor
	newID      func() string
	now        func() time.Time
	observers  []func(Event)
	metrics    Metrics
	logger     *slog.Logger

	inflight int
	drained  chan struct{} // closed when inflight drops to zero
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the shortuuid id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces time.Now for titles and timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// WithObserver registers a callback invoked after every applied mutation.
// Callbacks run outside the store lock and may call back into the store.
func WithObserver(fn func(Event)) Option {
	return func(s *Store) { s.observers = append(s.observers, fn) }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty session. The extractor may be nil when only
// plain-text files are expected.
func NewStore(summarizer Summarizer, extractor Extractor, opts ...Option) *Store {
	s := &Store{
		summarizer: summarizer,
		extractor:  extractor,
		newID:      shortuuid.New,
		now:        time.Now,
		metrics:    nopMetrics{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a Pending record for text and starts summarizing it.
// Whitespace-only text is ignored and reported with ok == false.
// The call returns as soon as the record exists; the request completes
// in the background.
func (s *Store) Submit(ctx context.Context, text, fileName string) (id string, ok bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	s.mu.Lock()
	now := s.now()
	rec := &Record{
		ID:           s.uniqueIDLocked(),
		Title:        FormatTitle(fileName, now),
		OriginalText: text,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.seq++
	rec.gen = s.seq
	s.records = append([]*Record{rec}, s.records...)
	s.staged.Text = ""
	s.staged.FileName = ""
	snapshot := *rec
	count := len(s.records)
	s.mu.Unlock()

	s.metrics.SetRecords(count)
	s.logger.Debug("session: record submitted", "id", snapshot.ID, "title", snapshot.Title, "length", len(text))
	s.emit(Event{Kind: EventCreated, Record: snapshot})
	s.dispatch(ctx, snapshot.ID, snapshot.gen, text)
	return snapshot.ID, true
}

// SubmitStaged submits the staged text under the staged filename.
func (s *Store) SubmitStaged(ctx context.Context) (string, bool) {
	s.mu.Lock()
	text, fileName := s.staged.Text, s.staged.FileName
	s.mu.Unlock()
	return s.Submit(ctx, text, fileName)
}

// Reload re-summarizes an existing record from its original text.
// It is a no-op for unknown ids and for records that are still Pending.
func (s *Store) Reload(ctx context.Context, id string) bool {
	s.mu.Lock()
	rec := s.findLocked(id)
	if rec == nil || rec.Status == StatusPending {
		s.mu.Unlock()
		return false
	}
	rec.Status = StatusPending
	rec.SummaryText = ""
	rec.Message = ""
	rec.UpdatedAt = s.now()
	s.seq++
	rec.gen = s.seq
	snapshot := *rec
	s.mu.Unlock()

	s.logger.Debug("session: record reloaded", "id", id)
	s.emit(Event{Kind: EventUpdated, Record: snapshot})
	s.dispatch(ctx, id, snapshot.gen, snapshot.OriginalText)
	return true
}

// Delete removes a record regardless of its status. In-flight requests are
// not canceled; their results are dropped when they arrive.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	removed := *s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	count := len(s.records)
	s.mu.Unlock()

	s.metrics.SetRecords(count)
	s.logger.Debug("session: record deleted", "id", id, "status", removed.Status)
	s.emit(Event{Kind: EventDeleted, Record: removed})
	return true
}

// ExtractText turns a picked file into staged input text.
//
// Plain-text files are decoded locally; everything else goes through the
// Extractor. On success the text and filename are staged. On failure the
// staging area is left as it was.
func (s *Store) ExtractText(ctx context.Context, file *File) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}

	s.setExtracting(true)
	defer s.setExtracting(false)

	var text string
	if IsPlainText(file.MediaType) {
		if !utf8.Valid(file.Data) {
			return "", ErrInvalidText
		}
		text = strings.TrimPrefix(string(file.Data), "\ufeff")
	} else {
		if s.extractor == nil {
			return "", fmt.Errorf("%w: no extraction service configured", ErrExtractionFailed)
		}
		extracted, err := s.extractor.Extract(ctx, file)
		if err != nil {
			s.logger.Warn("session: extraction failed", "file", file.Name, "media_type", file.MediaType, "error", err)
			return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		text = extracted
	}

	s.mu.Lock()
	s.staged.Text = text
	s.staged.FileName = file.Name
	s.mu.Unlock()
	return text, nil
}

// PickFile asks picker for a file and extracts it. A canceled pick leaves
// the session untouched and returns ErrPickCanceled.
func (s *Store) PickFile(ctx context.Context, picker FilePicker) (string, error) {
	file, err := picker.Pick(ctx)
	if err != nil {
		return "", err
	}
	return s.ExtractText(ctx, file)
}

// Stage replaces the staged input text.
func (s *Store) Stage(text string) {
	s.mu.Lock()
	s.staged.Text = text
	s.mu.Unlock()
}

// ClearStaging drops the staged text and filename.
func (s *Store) ClearStaging() {
	s.mu.Lock()
	s.staged.Text = ""
	s.staged.FileName = ""
	s.mu.Unlock()
}

// Staged returns a snapshot of the staging area.
func (s *Store) Staged() Staging {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.staged
	st.Extracting = s.extracting > 0
	return st
}

// Records returns a snapshot of the collection, newest first.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	for i, rec := range s.records {
		out[i] = *rec
	}
	return out
}

// Get returns a snapshot of one record.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.findLocked(id); rec != nil {
		return *rec, true
	}
	return Record{}, false
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Wait blocks until no request is in flight or ctx ends.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	drained := s.drained
	s.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) dispatch(ctx context.Context, id string, gen uint64, text string) {
	// Deleting a record never cancels its request, so callers' cancellation
	// does not propagate either.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	if s.inflight == 0 {
		s.drained = make(chan struct{})
	}
	s.inflight++
	s.mu.Unlock()

	go func() {
		defer s.requestDone()
		start := time.Now()
		result, err := s.summarizer.Summarize(ctx, text)
		s.complete(id, gen, result, err, time.Since(start))
	}()
}

func (s *Store) complete(id string, gen uint64, result any, err error, elapsed time.Duration) {
	var summary string
	if err == nil {
		summary = Normalize(result)
	}

	s.mu.Lock()
	rec := s.findLocked(id)
	if rec == nil || rec.gen != gen || rec.Status != StatusPending {
		s.mu.Unlock()
		s.logger.Debug("session: discarding stale completion", "id", id, "gen", gen)
		return
	}
	if err != nil {
		rec.Status = StatusError
		rec.SummaryText = ""
		rec.Message = FailureMessage
	} else {
		rec.Status = StatusDone
		rec.SummaryText = summary
		rec.Message = ""
	}
	rec.UpdatedAt = s.now()
	snapshot := *rec
	s.mu.Unlock()

	s.metrics.ObserveSummarize(snapshot.Status, elapsed)
	if err != nil {
		s.logger.Warn("session: summarization failed", "id", id, "error", err, "duration_ms", elapsed.Milliseconds())
	} else {
		s.logger.Debug("session: summarization completed", "id", id, "summary_length", len(summary), "duration_ms", elapsed.Milliseconds())
	}
	s.emit(Event{Kind: EventUpdated, Record: snapshot})
}

func (s *Store) requestDone() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		close(s.drained)
	}
	s.mu.Unlock()
}

func (s *Store) setExtracting(on bool) {
	s.mu.Lock()
	if on {
		s.extracting++
	} else if s.extracting > 0 {
		s.extracting--
	}
	s.mu.Unlock()
}

func (s *Store) emit(ev Event) {
	for _, fn := range s.observers {
		fn(ev)
	}
}

// uniqueIDLocked draws ids until one is free. Must be called with lock held.
func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if s.indexLocked(id) < 0 {
			return id
		}
	}
}

func (s *Store) findLocked(id string) *Record {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.records[idx]
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, rec := range s.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}
