package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

func testLogger() *logging.Logger {
	return logging.NewNopLogger()
}

func testTracer() *tracing.Tracer {
	t, _ := tracing.New(context.Background(), tracing.DefaultConfig())
	return t
}

// fakeSessionStore is an in-memory SessionStorePort.
type fakeSessionStore struct {
	mu      sync.Mutex
	sess    *dsync.SyncSession
	saveErr error
	loadErr error
	saves   int
	clears  int
}

func (f *fakeSessionStore) Load() (*dsync.SyncSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.sess == nil {
		return nil, nil
	}
	copied := *f.sess
	return &copied, nil
}

func (f *fakeSessionStore) Save(sess *dsync.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *sess
	f.sess = &copied
	f.saves++
	return nil
}

func (f *fakeSessionStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess = nil
	f.clears++
	return nil
}

func (f *fakeSessionStore) current() *dsync.SyncSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess
}

// fakeLocalStore is an in-memory LocalStorePort with injectable
// failures.
type fakeLocalStore struct {
	mu           sync.Mutex
	ledger       map[string]dsync.AppliedEventRecord
	tasks        map[string]entry.Task
	projects     map[string]entry.Project
	logs         map[string]entry.ProgressLog
	transactions map[string]entry.Transaction

	ledgerHasErr   error
	ledgerWriteErr error
	upsertErr      error
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{
		ledger:       make(map[string]dsync.AppliedEventRecord),
		tasks:        make(map[string]entry.Task),
		projects:     make(map[string]entry.Project),
		logs:         make(map[string]entry.ProgressLog),
		transactions: make(map[string]entry.Transaction),
	}
}

func (f *fakeLocalStore) LedgerHas(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerHasErr != nil {
		return false, f.ledgerHasErr
	}
	_, ok := f.ledger[eventID]
	return ok, nil
}

func (f *fakeLocalStore) LedgerWrite(_ context.Context, rec dsync.AppliedEventRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ledgerWriteErr != nil {
		return f.ledgerWriteErr
	}
	if _, ok := f.ledger[rec.EventID]; ok {
		return errors.New("duplicate ledger write")
	}
	f.ledger[rec.EventID] = rec
	return nil
}

func (f *fakeLocalStore) Snapshot(_ context.Context) (*dsync.OutboundSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &dsync.OutboundSnapshot{DeviceID: "dev-1", TakenAt: time.Now().UTC()}
	for _, t := range f.tasks {
		snap.Tasks = append(snap.Tasks, t)
	}
	for _, p := range f.projects {
		snap.Projects = append(snap.Projects, p)
	}
	for _, l := range f.logs {
		snap.ProgressLogs = append(snap.ProgressLogs, l)
	}
	for _, tx := range f.transactions {
		snap.Transactions = append(snap.Transactions, tx)
	}
	return snap, nil
}

func (f *fakeLocalStore) UpsertTask(_ context.Context, t entry.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeLocalStore) UpsertProject(_ context.Context, p entry.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.projects[p.ID] = p
	return nil
}

func (f *fakeLocalStore) UpsertProgressLog(_ context.Context, l entry.ProgressLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.logs[l.ID] = l
	return nil
}

func (f *fakeLocalStore) UpsertTransaction(_ context.Context, tx entry.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.transactions[tx.ID] = tx
	return nil
}

func (f *fakeLocalStore) taskCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeLocalStore) ledgerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ledger)
}

// fakeBackend scripts BackendPort responses.
type fakeBackend struct {
	mu          sync.Mutex
	pairResult  *ports.PairResult
	pairErr     error
	recoverFn   func() (*ports.RecoverResult, error)
	pushErr     error
	pushed      []*dsync.OutboundSnapshot
	registered  []string
	unpaired    []string
	recoverCall int
}

func (f *fakeBackend) Pair(_ context.Context, _ string) (*ports.PairResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pairErr != nil {
		return nil, f.pairErr
	}
	return f.pairResult, nil
}

func (f *fakeBackend) RegisterDevice(_ context.Context, _, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, label)
	return nil
}

func (f *fakeBackend) Recover(_ context.Context, _, _ string) (*ports.RecoverResult, error) {
	f.mu.Lock()
	fn := f.recoverFn
	f.recoverCall++
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("recover not scripted")
	}
	return fn()
}

func (f *fakeBackend) Unpair(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpaired = append(f.unpaired, token)
	return nil
}

func (f *fakeBackend) PushSnapshot(_ context.Context, _ string, snap *dsync.OutboundSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, snap)
	return nil
}

func (f *fakeBackend) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

// fakeConn is a scriptable DuplexConn.
type fakeConn struct {
	events chan dsync.RemoteEvent
	done   chan struct{}
	err    error

	mu     sync.Mutex
	acks   []string
	pings  int
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan dsync.RemoteEvent, 16),
		done:   make(chan struct{}),
	}
}

func (c *fakeConn) Events() <-chan dsync.RemoteEvent { return c.events }

func (c *fakeConn) Ack(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acks = append(c.acks, eventID)
	return nil
}

func (c *fakeConn) Ping(_ context.Context) error { c.mu.Lock(); c.pings++; c.mu.Unlock(); return nil }

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) Err() error { return c.err }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// drop simulates the server side killing the connection.
func (c *fakeConn) drop(err error) {
	c.err = err
	close(c.events)
	close(c.done)
}

func (c *fakeConn) ackList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.acks...)
}

// fakeTransport returns scripted connections or errors in sequence.
type fakeTransport struct {
	mu     sync.Mutex
	script []func(token string) (ports.DuplexConn, error)
	dials  int
	tokens []string
	dialed chan struct{}
}

func newFakeTransport(script ...func(token string) (ports.DuplexConn, error)) *fakeTransport {
	return &fakeTransport{script: script, dialed: make(chan struct{}, 64)}
}

func (f *fakeTransport) Connect(_ context.Context, token string) (ports.DuplexConn, error) {
	f.mu.Lock()
	i := f.dials
	f.dials++
	f.tokens = append(f.tokens, token)
	var fn func(string) (ports.DuplexConn, error)
	if i < len(f.script) {
		fn = f.script[i]
	} else {
		fn = f.script[len(f.script)-1]
	}
	f.mu.Unlock()

	select {
	case f.dialed <- struct{}{}:
	default:
	}
	return fn(token)
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func (f *fakeTransport) tokenAt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.tokens) {
		return ""
	}
	return f.tokens[i]
}

// recordingSignals captures every signal with timestamps.
type recordingSignals struct {
	mu         sync.Mutex
	states     []dsync.ConnectionState
	recovered  int
	expired    []bool
	exhausted  int
	dataChange int
	stateCh    chan dsync.ConnectionState
}

func newRecordingSignals() *recordingSignals {
	return &recordingSignals{stateCh: make(chan dsync.ConnectionState, 64)}
}

func (r *recordingSignals) ConnectionStateChanged(s dsync.ConnectionState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	select {
	case r.stateCh <- s:
	default:
	}
}

func (r *recordingSignals) SessionRecovered() {
	r.mu.Lock()
	r.recovered++
	r.mu.Unlock()
}

func (r *recordingSignals) SessionExpired(recoverable bool) {
	r.mu.Lock()
	r.expired = append(r.expired, recoverable)
	r.mu.Unlock()
}

func (r *recordingSignals) ReconnectExhausted() {
	r.mu.Lock()
	r.exhausted++
	r.mu.Unlock()
}

func (r *recordingSignals) DataChanged() {
	r.mu.Lock()
	r.dataChange++
	r.mu.Unlock()
}

func (r *recordingSignals) stateList() []dsync.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dsync.ConnectionState(nil), r.states...)
}

// waitForState blocks until the given state is signalled or the
// timeout elapses.
func (r *recordingSignals) waitForState(want dsync.ConnectionState, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case s := <-r.stateCh:
			if s == want {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func (r *recordingSignals) recoveredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recovered
}

func (r *recordingSignals) exhaustedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}

func (r *recordingSignals) expiredList() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.expired...)
}

func (r *recordingSignals) dataChangedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dataChange
}
