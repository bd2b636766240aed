package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "queues.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPublishReceiveComplete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.Publish(ctx, "btms_inbound", `{"mrn":"24GB1"}`, "24GB1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := store.Receive(ctx, "btms_inbound")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg == nil || msg.ID != id || msg.Body != `{"mrn":"24GB1"}` || msg.ResourceID != "24GB1" {
		t.Fatalf("received %+v", msg)
	}

	// Claimed messages are invisible to other receivers.
	if again, err := store.Receive(ctx, "btms_inbound"); err != nil || again != nil {
		t.Fatalf("claimed message re-delivered: %+v, %v", again, err)
	}

	if err := store.Complete(ctx, msg.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if depth, err := store.Depth(ctx, "btms_inbound"); err != nil || depth != 0 {
		t.Fatalf("depth = %d, %v", depth, err)
	}
}

func TestReceiveEmptyQueue(t *testing.T) {
	store := openTestStore(t)
	msg, err := store.Receive(context.Background(), "empty")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil, got %+v", msg)
	}
}

func TestReceiveIsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	first, _ := store.Publish(ctx, "q", "one", "")
	if _, err := store.Publish(ctx, "q", "two", ""); err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg, err := store.Receive(ctx, "q")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.ID != first {
		t.Errorf("received %q first, want %q", msg.ID, first)
	}
}

func TestReopenRecoversClaimedMessages(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queues.db")

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	id, err := store.Publish(ctx, "q", "body", "mrn-1")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	msg, err := store.Receive(ctx, "q")
	if err != nil || msg == nil {
		t.Fatalf("receive: %+v, %v", msg, err)
	}
	// Consumer dies while the message is claimed.
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	msg, err = store.Receive(ctx, "q")
	if err != nil {
		t.Fatalf("receive after reopen: %v", err)
	}
	if msg == nil || msg.ID != id {
		t.Fatalf("claimed message lost across restart: %+v", msg)
	}
}

func TestFailRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	id, _ := store.Publish(ctx, "q", "body", "mrn-1")

	dead, err := store.Fail(ctx, id, "boom", 2)
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if dead {
		t.Fatalf("dead-lettered on first attempt")
	}

	// Back to ready: receivable again.
	msg, err := store.Receive(ctx, "q")
	if err != nil || msg == nil {
		t.Fatalf("receive after fail: %+v, %v", msg, err)
	}
	if msg.Attempts != 1 || msg.LastError != "boom" {
		t.Errorf("attempt bookkeeping wrong: %+v", msg)
	}

	dead, err = store.Fail(ctx, id, "boom again", 2)
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if !dead {
		t.Fatalf("expected dead-letter at max attempts")
	}

	deadList, err := store.ListDead(ctx, "q")
	if err != nil {
		t.Fatalf("list dead: %v", err)
	}
	if len(deadList) != 1 || deadList[0].ID != id || deadList[0].LastError != "boom again" {
		t.Errorf("dead list = %+v", deadList)
	}
	if msg, _ := store.Receive(ctx, "q"); msg != nil {
		t.Errorf("dead message still receivable: %+v", msg)
	}
}

func TestRedriveDrainRemove(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	first, _ := store.Publish(ctx, "q", "a", "")
	second, _ := store.Publish(ctx, "q", "b", "")
	for _, id := range []string{first, second} {
		if _, err := store.Fail(ctx, id, "x", 1); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}

	moved, err := store.Redrive(ctx, "q")
	if err != nil || moved != 2 {
		t.Fatalf("redrive moved %d, %v", moved, err)
	}
	msg, err := store.Receive(ctx, "q")
	if err != nil || msg == nil {
		t.Fatalf("receive after redrive: %v", err)
	}
	if msg.Attempts != 0 {
		t.Errorf("redrive must reset attempts, got %d", msg.Attempts)
	}

	// Dead-letter both again, then drain.
	if _, err := store.Fail(ctx, first, "x", 1); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := store.Remove(ctx, second); err != nil {
		t.Fatalf("remove: %v", err)
	}
	removed, err := store.Drain(ctx, "q")
	if err != nil || removed != 1 {
		t.Fatalf("drain removed %d, %v", removed, err)
	}
	if err := store.Remove(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove missing: %v", err)
	}
}
