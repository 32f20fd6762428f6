package statuscache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRecordKey_Canonical(t *testing.T) {
	a := NewRecordKey("panel", []int{3, 1, 2, 3})
	b := NewRecordKey("panel", []int{1, 2, 3})

	if a != b {
		t.Errorf("keys differ: %v vs %v", a, b)
	}
	if a.IDs != "1,2,3" {
		t.Errorf("IDs = %q, want 1,2,3", a.IDs)
	}
	if a.String() != "panel:1,2,3" {
		t.Errorf("String() = %q", a.String())
	}
	if NewRecordKey("other", []int{1, 2, 3}) == a {
		t.Error("panel must be part of the key")
	}
}

func TestRecord_WaitReturnsPendingChanges(t *testing.T) {
	r := NewChangedStatusRecord("panel", []int{1, 2})
	r.markChanged(2)

	ids, err := r.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != 2 {
		t.Errorf("Wait() = %v, want [2]", ids)
	}
	if len(r.ChangedIDs()) != 0 {
		t.Error("Wait should clear collected ids")
	}
}

func TestRecord_WaitTimeout(t *testing.T) {
	r := NewChangedStatusRecord("panel", []int{1})

	start := time.Now()
	_, err := r.Wait(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("Wait() error = %v, want ErrWaitTimeout", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Wait returned before the timeout")
	}
}

func TestRecord_WaitContextCancelled(t *testing.T) {
	r := NewChangedStatusRecord("panel", []int{1})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := r.Wait(ctx, 0)
		done <- err
	}()
	waitForWaiters(t, r, 1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestRecord_WaitOnClosed(t *testing.T) {
	r := NewChangedStatusRecord("panel", []int{1})
	r.close()

	if _, err := r.Wait(context.Background(), time.Second); !errors.Is(err, ErrRecordClosed) {
		t.Errorf("Wait() error = %v, want ErrRecordClosed", err)
	}
	if !r.Closed() {
		t.Error("Closed() = false")
	}
}

func TestTable_WakesOnlyWatchingRecords(t *testing.T) {
	table := NewChangedStatusTable()
	watching := table.GetOrInsert("p1", []int{1, 5})
	other := table.GetOrInsert("p2", []int{2, 3})

	results := make(chan []int, 1)
	go func() {
		ids, _ := watching.Wait(context.Background(), 2*time.Second)
		results <- ids
	}()
	otherDone := make(chan error, 1)
	go func() {
		_, err := other.Wait(context.Background(), 100*time.Millisecond)
		otherDone <- err
	}()

	waitForWaiters(t, watching, 1)
	waitForWaiters(t, other, 1)
	table.UpdateStatusChangedIDs(5)

	select {
	case ids := <-results:
		if len(ids) != 1 || ids[0] != 5 {
			t.Errorf("watching Wait() = %v, want [5]", ids)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watching record not woken")
	}

	if err := <-otherDone; !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("unrelated record woke with %v, want ErrWaitTimeout", err)
	}
	if len(other.ChangedIDs()) != 0 {
		t.Error("unrelated record recorded a change")
	}
}

func TestTable_ChangesKeptBetweenPolls(t *testing.T) {
	table := NewChangedStatusTable()
	r := table.GetOrInsert("p", []int{1, 2})

	table.UpdateStatusChangedIDs(2)
	table.UpdateStatusChangedIDs(1)
	table.UpdateStatusChangedIDs(9)

	same := table.GetOrInsert("p", []int{2, 1})
	if same != r {
		t.Fatal("GetOrInsert should return the existing record")
	}
	ids, err := same.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Wait() = %v, want [1 2]", ids)
	}
}

func TestTable_NotifyWakesWithoutChange(t *testing.T) {
	table := NewChangedStatusTable()
	r := table.GetOrInsert("p", []int{4})

	done := make(chan struct {
		ids []int
		err error
	}, 1)
	go func() {
		ids, err := r.Wait(context.Background(), 2*time.Second)
		done <- struct {
			ids []int
			err error
		}{ids, err}
	}()
	waitForWaiters(t, r, 1)
	table.Notify(4)

	select {
	case res := <-done:
		if res.err != nil || len(res.ids) != 0 {
			t.Errorf("Wait() = %v, %v; want no ids and no error", res.ids, res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Notify did not wake the waiter")
	}
}

func TestTable_InsertReplacesAndCloses(t *testing.T) {
	table := NewChangedStatusTable()
	old := NewChangedStatusRecord("p", []int{1})
	table.Insert(old)
	fresh := NewChangedStatusRecord("p", []int{1})
	table.Insert(fresh)

	if got, _ := table.Get(fresh.Key()); got != fresh {
		t.Error("Get should return the replacement")
	}
	if !old.Closed() {
		t.Error("replaced record should be closed")
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}

	table.Insert(fresh)
	if fresh.Closed() {
		t.Error("re-inserting the same record must not close it")
	}
	table.Insert(nil)
}

func TestTable_Remove(t *testing.T) {
	table := NewChangedStatusTable()
	r := table.GetOrInsert("p", []int{1})
	keep := table.GetOrInsert("q", []int{1})

	table.Remove(r.Key())

	if !r.Closed() {
		t.Error("removed record should be closed")
	}
	if _, ok := table.Get(r.Key()); ok {
		t.Error("removed record still in table")
	}
	if keep.Closed() || table.Len() != 1 {
		t.Errorf("other record affected: closed=%v Len()=%d", keep.Closed(), table.Len())
	}
	table.Remove(NewRecordKey("missing", nil))
}

func TestTable_ResetChangedStatusIDs(t *testing.T) {
	table := NewChangedStatusTable()
	r := table.GetOrInsert("p", []int{1})
	table.UpdateStatusChangedIDs(1)

	table.ResetChangedStatusIDs(r.Key())

	if len(r.ChangedIDs()) != 0 {
		t.Error("ResetChangedStatusIDs should clear the record")
	}
	table.ResetChangedStatusIDs(NewRecordKey("missing", nil))
}

func TestTable_ClearAllRecords(t *testing.T) {
	table := NewChangedStatusTable()
	a := table.GetOrInsert("a", []int{1})
	b := table.GetOrInsert("b", []int{2})

	table.ClearAllRecords()

	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if !a.Closed() || !b.Closed() {
		t.Error("cleared records should be closed")
	}

	// Changes after clearing go nowhere.
	table.UpdateStatusChangedIDs(1)
	if len(a.ChangedIDs()) != 0 {
		t.Error("closed record should not collect changes")
	}
}

func TestTable_PruneIdle(t *testing.T) {
	table := NewChangedStatusTable()
	idle := table.GetOrInsert("idle", []int{1})
	active := table.GetOrInsert("active", []int{2})

	go func() { _, _ = active.Wait(context.Background(), 2*time.Second) }()
	waitForWaiters(t, active, 1)

	idle.mu.Lock()
	idle.lastAccess = time.Now().Add(-time.Hour)
	idle.mu.Unlock()
	active.mu.Lock()
	active.lastAccess = time.Now().Add(-time.Hour)
	active.mu.Unlock()

	if n := table.PruneIdle(time.Minute); n != 1 {
		t.Errorf("PruneIdle() = %d, want 1", n)
	}
	if _, ok := table.Get(idle.Key()); ok {
		t.Error("idle record should be pruned")
	}
	if _, ok := table.Get(active.Key()); !ok {
		t.Error("record with a waiter must survive pruning")
	}
	if !idle.Closed() {
		t.Error("pruned record should be closed")
	}

	table.UpdateStatusChangedIDs(2)
}

func TestRecord_PolledIDsIsCopy(t *testing.T) {
	r := NewChangedStatusRecord("p", []int{3, 1})
	ids := r.PolledIDs()
	ids[0] = 99

	if got := r.PolledIDs(); got[0] != 1 {
		t.Errorf("PolledIDs() = %v, mutation leaked", got)
	}
}
