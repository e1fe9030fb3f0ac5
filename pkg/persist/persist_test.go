package persist

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ripple-dev/ripple/pkg/registry"
	"github.com/ripple-dev/ripple/pkg/resource"
	"github.com/ripple-dev/ripple/pkg/ripple"
)

func TestCaptureSkipsTransient(t *testing.T) {
	reg := registry.NewRegistry()
	registry.SignalFor(reg, registry.Str("name"), "ada")
	registry.SignalFor(reg, registry.Str("token"), "secret", ripple.Transient())

	m := NewManager(reg, NewMemoryStore(), ManagerConfig{}, nil)
	snap := m.Capture()

	if got := len(snap.Cells); got != 1 {
		t.Fatalf("snapshot cells = %d, want 1", got)
	}
	raw, ok := snap.Cells[registry.Str("name").String()]
	if !ok {
		t.Fatal("snapshot should contain the persistent cell")
	}
	if string(raw) != `"ada"` {
		t.Errorf("serialized value = %s, want %q", raw, `"ada"`)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	key := registry.Tuple("counter")

	regA := registry.NewRegistry()
	count := registry.SignalFor(regA, key, 0)
	count.Set(42)

	mA := NewManager(regA, store, ManagerConfig{}, nil)
	if err := mA.Save(context.Background()); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	regB := registry.NewRegistry()
	countB := registry.SignalFor(regB, key, 0)

	runs := 0
	seen := -1
	e := ripple.CreateEffect(func() ripple.Cleanup {
		seen = countB.Get()
		runs++
		return nil
	})
	defer e.Dispose()

	mB := NewManager(regB, store, ManagerConfig{}, nil)
	if err := mB.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	ripple.FlushSync()

	if got := countB.Peek(); got != 42 {
		t.Errorf("restored value = %d, want 42", got)
	}
	if runs != 2 || seen != 42 {
		t.Errorf("effect runs = %d seen = %d, want restore to notify subscribers", runs, seen)
	}
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	reg := registry.NewRegistry()
	sig := registry.SignalFor(reg, registry.Str("x"), 7)

	m := NewManager(reg, NewMemoryStore(), ManagerConfig{}, nil)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() with empty store = %v", err)
	}
	if got := sig.Peek(); got != 7 {
		t.Errorf("value = %d, want the initial 7", got)
	}
}

func TestRestoreSkipsBrokenCell(t *testing.T) {
	store := NewMemoryStore()
	snap := &Snapshot{
		TakenAt: time.Now(),
		Cells: map[string]json.RawMessage{
			registry.Str("counter").String(): json.RawMessage(`"not-an-int"`),
			registry.Str("name").String():    json.RawMessage(`"grace"`),
		},
	}
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	if err := store.Save(context.Background(), "ripple", data); err != nil {
		t.Fatalf("store.Save() = %v", err)
	}

	reg := registry.NewRegistry()
	counter := registry.SignalFor(reg, registry.Str("counter"), 7)
	name := registry.SignalFor(reg, registry.Str("name"), "")

	m := NewManager(reg, store, ManagerConfig{}, nil)
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	if got := counter.Peek(); got != 7 {
		t.Errorf("broken cell value = %d, want the untouched 7", got)
	}
	if got := name.Peek(); got != "grace" {
		t.Errorf("healthy cell value = %q, want %q", got, "grace")
	}
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version":99}`))
	if !errors.Is(err, ErrSnapshotVersion) {
		t.Fatalf("Decode() = %v, want ErrSnapshotVersion", err)
	}
}

func TestAutoSaveLoop(t *testing.T) {
	store := NewMemoryStore()
	reg := registry.NewRegistry()
	registry.SignalFor(reg, registry.Str("beat"), 1)

	m := NewManager(reg, store, ManagerConfig{SaveInterval: 20 * time.Millisecond}, nil)

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := store.Load(context.Background(), "ripple")
		if err != nil {
			t.Fatalf("store.Load() = %v", err)
		}
		if data != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the auto-save loop")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
}

func TestStopSavesFinalState(t *testing.T) {
	store := NewMemoryStore()
	reg := registry.NewRegistry()
	sig := registry.SignalFor(reg, registry.Str("x"), 0)
	sig.Set(5)

	m := NewManager(reg, store, ManagerConfig{}, nil)
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	data, err := store.Load(context.Background(), "ripple")
	if err != nil || data == nil {
		t.Fatalf("store.Load() = %v, %v; want saved data", data, err)
	}
	snap, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got := string(snap.Cells[registry.Str("x").String()]); got != "5" {
		t.Errorf("final value = %s, want 5", got)
	}

	// A second Stop is a no-op.
	if err := m.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestResourceRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	key := registry.Str("answer")

	regA := registry.NewRegistry()
	gate := make(chan struct{})
	resA := registry.ResourceFor(regA, key, func(ctx context.Context) (int, error) {
		<-gate
		return 7, nil
	}, resource.WithPersist())

	done := make(chan struct{})
	resA.OnSuccess(func(int) { close(done) })
	close(gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the fetch to settle")
	}

	mA := NewManager(regA, store, ManagerConfig{}, nil)
	if err := mA.Save(context.Background()); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	regB := registry.NewRegistry()
	resB := registry.ResourceFor(regB, key, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, resource.WithPersist())

	mB := NewManager(regB, store, ManagerConfig{}, nil)
	if err := mB.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() = %v", err)
	}

	if got, _ := resB.Peek(); got != 7 {
		t.Errorf("restored data = %d, want 7", got)
	}
	if got := resB.Status(); got != resource.StatusSuccess {
		t.Errorf("restored status = %v, want success", got)
	}
}

func TestDiskStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore() = %v", err)
	}

	ctx := context.Background()
	if data, err := store.Load(ctx, "app"); err != nil || data != nil {
		t.Fatalf("Load() before save = %v, %v; want nil, nil", data, err)
	}

	payload := []byte(`{"version":1}`)
	if err := store.Save(ctx, "app", payload); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "app.json")); err != nil {
		t.Errorf("expected app.json on disk: %v", err)
	}

	data, err := store.Load(ctx, "app")
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Load() = %s, want %s", data, payload)
	}

	if err := store.Delete(ctx, "app"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if data, err := store.Load(ctx, "app"); err != nil || data != nil {
		t.Fatalf("Load() after delete = %v, %v; want nil, nil", data, err)
	}
	if err := store.Delete(ctx, "app"); err != nil {
		t.Errorf("Delete() of missing key = %v, want nil", err)
	}

	if err := store.Save(ctx, "../evil", payload); err == nil {
		t.Error("Save() with a path-escaping key should fail")
	}
}

func TestManagerWithDiskStore(t *testing.T) {
	dir := t.TempDir()
	key := registry.Str("theme")
	ctx := context.Background()

	storeA, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore() = %v", err)
	}
	regA := registry.NewRegistry()
	registry.SignalFor(regA, key, "dark")
	if err := NewManager(regA, storeA, ManagerConfig{}, nil).Save(ctx); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	storeB, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore() = %v", err)
	}
	regB := registry.NewRegistry()
	theme := registry.SignalFor(regB, key, "light")
	if err := NewManager(regB, storeB, ManagerConfig{}, nil).Restore(ctx); err != nil {
		t.Fatalf("Restore() = %v", err)
	}
	if got := theme.Peek(); got != "dark" {
		t.Errorf("restored value = %q, want %q", got, "dark")
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "app", []byte("x")); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if err := store.Save(ctx, "app", []byte("y")); !errors.Is(err, ErrClosed) {
		t.Errorf("Save() after close = %v, want ErrClosed", err)
	}
	if _, err := store.Load(ctx, "app"); !errors.Is(err, ErrClosed) {
		t.Errorf("Load() after close = %v, want ErrClosed", err)
	}
}
