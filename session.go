package csvsql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nao1215/csvsql/metrics"
	"github.com/rs/zerolog"
)

// defaultEventBuffer is the capacity of the completion event channel.
const defaultEventBuffer = 16

// EventKind identifies the operation an Event completes.
type EventKind int

const (
	// EventQueryCompleted is sent when a query batch finishes
	EventQueryCompleted EventKind = iota
	// EventExportCompleted is sent when an export finishes
	EventExportCompleted
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventQueryCompleted:
		return "query completed"
	case EventExportCompleted:
		return "export completed"
	default:
		return "unknown"
	}
}

// Event reports the completion, successful or not, of a submitted job.
type Event struct {
	Kind  EventKind
	JobID string
	Err   error
	// Page is the first page of the new current result. It is set only for a
	// successful query, as reported by HasPage.
	Page    PagedResult
	HasPage bool
}

// Session drives queries and exports for an interactive front end. It owns
// the single-flight guard and the current result; completions are delivered
// on Events.
type Session struct {
	db       *sql.DB
	executor *StatementExecutor
	pager    *ResultPager
	guard    *SingleFlightGuard

	mu      sync.RWMutex
	current *StatementResult

	events chan Event
	done   chan struct{}

	// lifecycle orders job starts against Close so that no worker is
	// added to wg once Close has begun waiting.
	lifecycle sync.Mutex
	closed    bool
	wg        sync.WaitGroup

	logger  zerolog.Logger
	metrics metrics.Collector
}

type sessionConfig struct {
	hiddenColumn string
	pageSize     int
	eventBuffer  int
	logger       zerolog.Logger
	metrics      metrics.Collector
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithHiddenColumn sets the column name excluded from query results.
func WithHiddenColumn(name string) SessionOption {
	return func(c *sessionConfig) {
		c.hiddenColumn = name
	}
}

// WithPageSize sets the number of rows per page.
func WithPageSize(n int) SessionOption {
	return func(c *sessionConfig) {
		c.pageSize = n
	}
}

// WithEventBuffer sets the capacity of the event channel.
func WithEventBuffer(n int) SessionOption {
	return func(c *sessionConfig) {
		if n >= 0 {
			c.eventBuffer = n
		}
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithSessionMetrics sets the metrics collector.
func WithSessionMetrics(collector metrics.Collector) SessionOption {
	return func(c *sessionConfig) {
		if collector != nil {
			c.metrics = collector
		}
	}
}

// NewSession creates a session executing against db.
func NewSession(db *sql.DB, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		hiddenColumn: DefaultRawIDColumn,
		pageSize:     DefaultPageSize,
		eventBuffer:  defaultEventBuffer,
		logger:       zerolog.Nop(),
		metrics:      metrics.NewNoOpCollector(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		db:       db,
		executor: NewStatementExecutor(cfg.hiddenColumn, WithExecutorLogger(cfg.logger)),
		pager:    NewResultPager(cfg.pageSize),
		guard:    NewSingleFlightGuard(),
		events:   make(chan Event, cfg.eventBuffer),
		done:     make(chan struct{}),
		logger:   cfg.logger,
		metrics:  cfg.metrics,
	}
}

// SubmitQuery starts executing sqlText on a worker. It returns false without
// side effects while another query is in flight or after Close. A started
// query is not cancelled when ctx is.
func (s *Session) SubmitQuery(ctx context.Context, sqlText string) (string, bool) {
	if !s.start(OperationQuery) {
		return "", false
	}

	jobID := uuid.NewString()
	go s.runQuery(context.WithoutCancel(ctx), jobID, sqlText)
	return jobID, true
}

// SubmitExport starts writing the current result to sink on a worker. It
// returns false without side effects while another export is in flight or
// after Close. Exporting without a current result, or with an empty one,
// completes with ErrEmptyResult.
func (s *Session) SubmitExport(ctx context.Context, sink ExportSink) (string, bool) {
	if !s.start(OperationExport) {
		return "", false
	}

	s.mu.RLock()
	result := s.current
	s.mu.RUnlock()

	jobID := uuid.NewString()
	go s.runExport(context.WithoutCancel(ctx), jobID, result, sink)
	return jobID, true
}

// start claims op and registers a worker. Every successful start is matched
// by a wg.Done from the worker it registered.
func (s *Session) start(op Operation) bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.closed {
		return false
	}
	if !s.guard.TryEnter(op) {
		s.metrics.IncrementCounter("csvsql_rejected_requests_total", "operation", op.String())
		s.logger.Debug().Stringer("operation", op).Msg("request rejected while in flight")
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Session) runQuery(ctx context.Context, jobID, sqlText string) {
	defer s.wg.Done()
	defer s.guard.Leave(OperationQuery)

	logger := s.logger.With().Str("job_id", jobID).Logger()
	timer := s.metrics.StartTimer("csvsql_query_duration_seconds")

	ev := Event{Kind: EventQueryCompleted, JobID: jobID}
	results, err := s.executeQuery(ctx, sqlText)
	s.metrics.RecordHistogram("csvsql_query_duration_seconds", timer.Stop())

	if err != nil {
		ev.Err = err
		s.metrics.IncrementCounter("csvsql_queries_total", "status", "error")
		logger.Error().Err(err).Msg("query failed")
	} else {
		last := results[len(results)-1]
		s.mu.Lock()
		s.current = &last
		s.mu.Unlock()

		ev.Page, ev.HasPage = s.pager.Page(last, HomeRequest())
		s.metrics.IncrementCounter("csvsql_queries_total", "status", "success")
		logger.Info().
			Int("statements", len(results)).
			Int("rows", len(last.Rows)).
			Dur("elapsed", last.Elapsed).
			Msg("query completed")
	}
	s.emit(ev)
}

// executeQuery turns a panic in the engine binding into an error.
func (s *Session) executeQuery(ctx context.Context, sqlText string) (results []StatementResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("csvsql: query worker panicked: %v", r)
		}
	}()
	return s.executor.ExecuteSQL(ctx, s.db, sqlText)
}

func (s *Session) runExport(ctx context.Context, jobID string, result *StatementResult, sink ExportSink) {
	defer s.wg.Done()
	defer s.guard.Leave(OperationExport)

	logger := s.logger.With().Str("job_id", jobID).Str("sink", sink.String()).Logger()

	ev := Event{Kind: EventExportCompleted, JobID: jobID}
	ev.Err = s.export(ctx, result, sink)
	if ev.Err != nil {
		s.metrics.IncrementCounter("csvsql_exports_total", "status", "error")
		logger.Error().Err(ev.Err).Msg("export failed")
	} else {
		s.metrics.IncrementCounter("csvsql_exports_total", "status", "success")
		logger.Info().Msg("export completed")
	}
	s.emit(ev)
}

func (s *Session) export(ctx context.Context, result *StatementResult, sink ExportSink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("csvsql: export worker panicked: %v", r)
		}
	}()
	if result == nil {
		return ErrEmptyResult
	}
	return Export(ctx, *result, sink)
}

// emit delivers ev unless the session is closing.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Page returns the requested page of the current result. It reports false
// when there is no current result or the page index is out of range.
func (s *Session) Page(req NavigationRequest) (PagedResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return PagedResult{}, false
	}
	return s.pager.Page(*s.current, req)
}

// Current returns the result of the last successful query.
func (s *Session) Current() (StatementResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return StatementResult{}, false
	}
	return *s.current, true
}

// InFlight reports whether op is running.
func (s *Session) InFlight(op Operation) bool {
	return s.guard.InFlight(op)
}

// Events returns the channel completion events are delivered on.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Wait blocks until every submitted job has finished and released its guard.
// Events must be drained concurrently when more jobs than the buffer holds
// are outstanding.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close refuses new jobs, drops undelivered completions and waits for the
// running workers.
func (s *Session) Close() {
	s.lifecycle.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.lifecycle.Unlock()

	s.wg.Wait()
}
