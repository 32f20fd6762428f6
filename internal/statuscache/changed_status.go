package statuscache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RecordKey identifies a ChangedStatusRecord: the polling panel plus the
// canonical rendering of the polled id set.
type RecordKey struct {
	Panel string
	IDs   string
}

// NewRecordKey builds the key for a panel polling ids. Order and duplicates
// in ids do not matter.
func NewRecordKey(panel string, ids []int) RecordKey {
	return RecordKey{Panel: panel, IDs: joinIDs(canonicalIDs(ids))}
}

func (k RecordKey) String() string {
	return k.Panel + ":" + k.IDs
}

// ChangedStatusRecord tracks which of a fixed set of sensor ids changed since
// the last time a long-poll client collected them.
//
// Thread Safety:
//   - Each record has its own lock, independent of the cache and the table,
//     so waiters only contend with updates to ids they watch.
type ChangedStatusRecord struct {
	key    RecordKey
	polled map[int]struct{}
	ids    []int

	mu         sync.Mutex
	changed    map[int]struct{}
	notify     chan struct{} // closed and replaced on every wake-up
	closed     bool
	waiters    int
	lastAccess time.Time
}

// NewChangedStatusRecord creates a record for panel watching ids.
func NewChangedStatusRecord(panel string, ids []int) *ChangedStatusRecord {
	canon := canonicalIDs(ids)
	polled := make(map[int]struct{}, len(canon))
	for _, id := range canon {
		polled[id] = struct{}{}
	}
	return &ChangedStatusRecord{
		key:        RecordKey{Panel: panel, IDs: joinIDs(canon)},
		polled:     polled,
		ids:        canon,
		changed:    make(map[int]struct{}),
		notify:     make(chan struct{}),
		lastAccess: time.Now(),
	}
}

// Key returns the record's table key.
func (r *ChangedStatusRecord) Key() RecordKey { return r.key }

// PolledIDs returns the watched ids in ascending order.
func (r *ChangedStatusRecord) PolledIDs() []int {
	return append([]int(nil), r.ids...)
}

// ChangedIDs returns the ids changed since the last collection, ascending.
func (r *ChangedStatusRecord) ChangedIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.changed)
}

// Reset clears the changed set.
func (r *ChangedStatusRecord) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = make(map[int]struct{})
}

// Closed reports whether the record was removed from its table.
func (r *ChangedStatusRecord) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Wait blocks until at least one watched id has changed, then returns the
// changed ids and clears them.
//
// Wait returns early with:
//   - (nil, nil) when the record is woken without a change (Notify)
//   - ErrRecordClosed when the record is removed from its table
//   - ErrWaitTimeout when timeout elapses first (timeout <= 0 never times out)
//   - ctx.Err() when ctx is cancelled
func (r *ChangedStatusRecord) Wait(ctx context.Context, timeout time.Duration) ([]int, error) {
	r.mu.Lock()
	r.lastAccess = time.Now()
	if ids, ok := r.takeLocked(); ok {
		r.mu.Unlock()
		return ids, nil
	}
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRecordClosed
	}
	ch := r.notify
	r.waiters++
	r.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var err error
	select {
	case <-ch:
	case <-expired:
		err = ErrWaitTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiters--
	r.lastAccess = time.Now()

	// A change that raced the timeout still wins.
	if ids, ok := r.takeLocked(); ok {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	if r.closed {
		return nil, ErrRecordClosed
	}
	return nil, nil
}

// takeLocked returns and clears the changed ids. r.mu must be held.
func (r *ChangedStatusRecord) takeLocked() ([]int, bool) {
	if len(r.changed) == 0 {
		return nil, false
	}
	ids := sortedKeys(r.changed)
	r.changed = make(map[int]struct{})
	return ids, true
}

func (r *ChangedStatusRecord) watches(id int) bool {
	_, ok := r.polled[id]
	return ok
}

// markChanged records id as changed and wakes waiters.
func (r *ChangedStatusRecord) markChanged(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.changed[id] = struct{}{}
	r.wakeLocked()
}

// wake wakes waiters without recording a change.
func (r *ChangedStatusRecord) wake() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.wakeLocked()
}

func (r *ChangedStatusRecord) wakeLocked() {
	close(r.notify)
	r.notify = make(chan struct{})
}

// close marks the record closed and wakes its waiters for the last time.
func (r *ChangedStatusRecord) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.notify)
}

// idleSince reports whether nobody is waiting and the record has not been
// polled since cutoff.
func (r *ChangedStatusRecord) idleSince(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiters == 0 && r.lastAccess.Before(cutoff)
}

// ChangedStatusTable holds one ChangedStatusRecord per (panel, polled ids)
// pair and fans sensor changes out to every record that watches the sensor.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The table lock only guards
//     membership; record state is guarded by each record's own lock.
type ChangedStatusTable struct {
	mu      sync.RWMutex
	records map[RecordKey]*ChangedStatusRecord
}

// NewChangedStatusTable creates an empty table.
func NewChangedStatusTable() *ChangedStatusTable {
	return &ChangedStatusTable{
		records: make(map[RecordKey]*ChangedStatusRecord),
	}
}

// Insert adds r, replacing and closing any record under the same key.
func (t *ChangedStatusTable) Insert(r *ChangedStatusRecord) {
	if r == nil {
		return
	}
	t.mu.Lock()
	old := t.records[r.key]
	t.records[r.key] = r
	t.mu.Unlock()

	if old != nil && old != r {
		old.close()
	}
}

// Remove closes and removes the record under key, if any.
func (t *ChangedStatusTable) Remove(key RecordKey) {
	t.mu.Lock()
	r, ok := t.records[key]
	delete(t.records, key)
	t.mu.Unlock()

	if ok {
		r.close()
	}
}

// Get returns the record stored under key.
func (t *ChangedStatusTable) Get(key RecordKey) (*ChangedStatusRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[key]
	return r, ok
}

// GetOrInsert returns the record for panel polling ids, creating it if needed.
func (t *ChangedStatusTable) GetOrInsert(panel string, ids []int) *ChangedStatusRecord {
	key := NewRecordKey(panel, ids)

	t.mu.RLock()
	r, ok := t.records[key]
	t.mu.RUnlock()
	if ok {
		return r
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.records[key]; ok {
		return r
	}
	r = NewChangedStatusRecord(panel, ids)
	t.records[key] = r
	return r
}

// UpdateStatusChangedIDs records id as changed in every record that watches
// it and wakes their waiters. Records that do not watch id are untouched.
func (t *ChangedStatusTable) UpdateStatusChangedIDs(id int) {
	for _, r := range t.watching(id) {
		r.markChanged(id)
	}
}

// Notify wakes waiters of every record watching id without recording a change.
func (t *ChangedStatusTable) Notify(id int) {
	for _, r := range t.watching(id) {
		r.wake()
	}
}

// ResetChangedStatusIDs clears the changed set of the record under key.
//
// Deprecated: Wait already clears the ids it returns.
func (t *ChangedStatusTable) ResetChangedStatusIDs(key RecordKey) {
	if r, ok := t.Get(key); ok {
		r.Reset()
	}
}

// ClearAllRecords closes and removes every record.
func (t *ChangedStatusTable) ClearAllRecords() {
	t.mu.Lock()
	old := t.records
	t.records = make(map[RecordKey]*ChangedStatusRecord)
	t.mu.Unlock()

	for _, r := range old {
		r.close()
	}
}

// PruneIdle closes and removes records with no waiters that have not been
// polled for maxIdle. It returns the number removed.
func (t *ChangedStatusTable) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	t.mu.Lock()
	var pruned []*ChangedStatusRecord
	for key, r := range t.records {
		if r.idleSince(cutoff) {
			delete(t.records, key)
			pruned = append(pruned, r)
		}
	}
	t.mu.Unlock()

	for _, r := range pruned {
		r.close()
	}
	return len(pruned)
}

// Len returns the number of records.
func (t *ChangedStatusTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func (t *ChangedStatusTable) watching(id int) []*ChangedStatusRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*ChangedStatusRecord
	for _, r := range t.records {
		if r.watches(id) {
			out = append(out, r)
		}
	}
	return out
}

func canonicalIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
