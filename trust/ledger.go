package trust

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultAlpha is the EWMA weight fixed by §3/§9 open question (a).
	DefaultAlpha = 0.2
	// DefaultExpiredCredit is the point value this runtime fixes within
	// the [0.3, 0.7] partial-credit range §9 open question (c) leaves
	// configurable in the source.
	DefaultExpiredCredit = 0.5
	initialScore         = 0.5
	outcomeRingSize      = 20
)

// Outcome is one entry in a capability bucket's trend-detection ring
// buffer.
type Outcome struct {
	Result float64
	At     time.Time
}

// CapabilityBucket is a per-capability EWMA trust score (§4.4: "a
// worker may be strong at one [capability] and weak at another").
type CapabilityBucket struct {
	Score     float64
	Fulfilled int
	Broken    int
	Expired   int
	Recent    []Outcome
	UpdatedAt time.Time
}

func newCapabilityBucket() *CapabilityBucket {
	return &CapabilityBucket{Score: initialScore}
}

func (b *CapabilityBucket) apply(alpha, r float64, now time.Time) {
	b.Score = clamp01((1-alpha)*b.Score + alpha*r)
	b.UpdatedAt = now
	b.Recent = append(b.Recent, Outcome{Result: r, At: now})
	if len(b.Recent) > outcomeRingSize {
		b.Recent = b.Recent[len(b.Recent)-outcomeRingSize:]
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Record is the per-worker trust state of §3: an aggregate score plus
// per-capability buckets. The aggregate is itself stored as the
// capability bucket keyed by the empty string, so a single code path
// (apply) drives both.
type Record struct {
	WorkerID     string
	Capabilities map[string]*CapabilityBucket
}

// Score returns the aggregate trust score.
func (r *Record) Score() float64 { return r.aggregate().Score }

// CapabilityScore returns the trust score for a specific capability,
// falling back to the aggregate if the worker has no recorded history
// for it yet.
func (r *Record) CapabilityScore(capability string) float64 {
	if capability == "" {
		return r.Score()
	}
	if b, ok := r.Capabilities[capability]; ok {
		return b.Score
	}
	return r.Score()
}

func (r *Record) aggregate() *CapabilityBucket {
	b, ok := r.Capabilities[""]
	if !ok {
		b = newCapabilityBucket()
		r.Capabilities[""] = b
	}
	return b
}

// NewRecord creates a fresh trust record at the initial score of 0.5.
func NewRecord(workerID string) *Record {
	r := &Record{WorkerID: workerID, Capabilities: map[string]*CapabilityBucket{}}
	r.aggregate()
	return r
}

// Config controls the EWMA update (§3/§9).
type Config struct {
	Alpha         float64
	ExpiredCredit float64
}

// DefaultConfig returns the spec-fixed defaults.
func DefaultConfig() Config {
	return Config{Alpha: DefaultAlpha, ExpiredCredit: DefaultExpiredCredit}
}

// Outcome kinds a terminal promise transition can report, mapped to
// the EWMA reward r of §3.
type TerminalOutcome int

const (
	OutcomeFulfilled TerminalOutcome = iota
	OutcomeBroken
	OutcomeExpired
)

// Apply updates r in place for a terminal promise outcome on the given
// capability (empty string updates only the aggregate bucket).
// Invariant TR-1: score stays in [0,1]; counters are monotone.
func (r *Record) Apply(cfg Config, capability string, outcome TerminalOutcome, now time.Time) {
	reward := rewardFor(cfg, outcome)

	agg := r.aggregate()
	bumpCounters(agg, outcome)
	agg.apply(cfg.Alpha, reward, now)

	if capability != "" {
		b, ok := r.Capabilities[capability]
		if !ok {
			b = newCapabilityBucket()
			r.Capabilities[capability] = b
		}
		bumpCounters(b, outcome)
		b.apply(cfg.Alpha, reward, now)
	}
}

func bumpCounters(b *CapabilityBucket, outcome TerminalOutcome) {
	switch outcome {
	case OutcomeFulfilled:
		b.Fulfilled++
	case OutcomeBroken:
		b.Broken++
	case OutcomeExpired:
		b.Expired++
	}
}

func rewardFor(cfg Config, outcome TerminalOutcome) float64 {
	switch outcome {
	case OutcomeFulfilled:
		return 1.0
	case OutcomeBroken:
		return 0.0
	case OutcomeExpired:
		return cfg.ExpiredCredit
	default:
		return cfg.ExpiredCredit
	}
}

// Store is the core's view of the external TrustStore collaborator
// (§6): bulk read on startup, batched upsert, explicit flush. The core
// never talks to a database directly — only through this.
type Store interface {
	GetAll(ctx context.Context) (map[string]*Record, error)
	UpsertBatch(ctx context.Context, updates []*Record) error
	Flush(ctx context.Context) error
}

// LedgerOption configures a Ledger at construction.
type LedgerOption func(*Ledger)

// WithAlpha overrides the EWMA weight.
func WithAlpha(alpha float64) LedgerOption {
	return func(l *Ledger) { l.cfg.Alpha = alpha }
}

// WithExpiredCredit overrides the expired/timeout partial-credit reward.
func WithExpiredCredit(credit float64) LedgerOption {
	return func(l *Ledger) { l.cfg.ExpiredCredit = credit }
}

// WithFlushThreshold sets how many updates accumulate before an
// automatic flush (§4.4 "(a) N updates").
func WithFlushThreshold(n int) LedgerOption {
	return func(l *Ledger) { l.flushThreshold = n }
}

// WithFlushInterval sets the time-based automatic flush trigger
// (§4.4 "(b) T seconds").
func WithFlushInterval(d time.Duration) LedgerOption {
	return func(l *Ledger) { l.flushInterval = d }
}

// Ledger is the in-memory trust cache plus batched-flush coordinator
// of §4.4: a single writer owns the cache (guarded by mu here, the Go
// idiom for the "single-writer + copy-on-write snapshot" design note
// of §9 when the writer is always on the caller's goroutine rather
// than a dedicated one), and updates accumulate until a flush trigger
// fires.
type Ledger struct {
	mu    sync.Mutex
	cfg   Config
	store Store

	cache   map[string]*Record
	pending map[string]*Record // dirty since last flush, keyed by worker id

	flushThreshold int
	flushInterval  time.Duration
	lastFlush      time.Time
}

// NewLedger builds a Ledger over store, reading its initial cache via
// GetAll (§4.4: "Reads are served from an in-memory cache populated on
// startup").
func NewLedger(ctx context.Context, store Store, opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{
		cfg:            DefaultConfig(),
		store:          store,
		pending:        map[string]*Record{},
		flushThreshold: 20,
		flushInterval:  30 * time.Second,
		lastFlush:      time.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}

	cache, err := store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = map[string]*Record{}
	}
	l.cache = cache
	return l, nil
}

// Get returns the trust record for workerID, creating a fresh one at
// the initial score if none exists yet. The returned pointer is a
// private copy; callers must go through Record to mutate state.
func (l *Ledger) Get(workerID string) *Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getLocked(workerID)
}

func (l *Ledger) getLocked(workerID string) *Record {
	r, ok := l.cache[workerID]
	if !ok {
		r = NewRecord(workerID)
		l.cache[workerID] = r
	}
	return cloneRecord(r)
}

func cloneRecord(r *Record) *Record {
	out := &Record{WorkerID: r.WorkerID, Capabilities: make(map[string]*CapabilityBucket, len(r.Capabilities))}
	for k, b := range r.Capabilities {
		cp := *b
		cp.Recent = append([]Outcome(nil), b.Recent...)
		out.Capabilities[k] = &cp
	}
	return out
}

// Record applies a terminal promise outcome to workerID's trust score
// and queues the change for the next flush.
func (l *Ledger) Record(ctx context.Context, workerID, capability string, outcome TerminalOutcome) *Record {
	l.mu.Lock()
	r, ok := l.cache[workerID]
	if !ok {
		r = NewRecord(workerID)
		l.cache[workerID] = r
	}
	r.Apply(l.cfg, capability, outcome, time.Now().UTC())
	l.pending[workerID] = r
	shouldFlush := len(l.pending) >= l.flushThreshold || time.Since(l.lastFlush) >= l.flushInterval
	snapshot := cloneRecord(r)
	l.mu.Unlock()

	if shouldFlush {
		_ = l.Flush(ctx)
	}
	return snapshot
}

// Flush writes every pending update to the backing Store in one batch
// and clears the dirty set. Safe to call concurrently with Record;
// updates arriving during a flush are captured by the next one.
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := make([]*Record, 0, len(l.pending))
	for _, r := range l.pending {
		batch = append(batch, cloneRecord(r))
	}
	l.pending = map[string]*Record{}
	l.lastFlush = time.Now()
	l.mu.Unlock()

	if err := l.store.UpsertBatch(ctx, batch); err != nil {
		return err
	}
	return l.store.Flush(ctx)
}

// Shutdown flushes any remaining pending updates. Call this before
// supervisor-initiated shutdown (§4.4 "(c) before... shutdown").
func (l *Ledger) Shutdown(ctx context.Context) error {
	return l.Flush(ctx)
}
