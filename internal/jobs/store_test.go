package jobs_test

import (
	"sync"
	"testing"
	"time"

	"transcribe/internal/jobs"
)

func TestStoreNotifiesOnlyOnChange(t *testing.T) {
	store := jobs.NewStore()
	var calls int
	unsubscribe := store.Subscribe(func(jobs.Collection) { calls++ })

	if !store.Reconcile(sampleCollection()) {
		t.Fatal("expected first snapshot to change the store")
	}
	if store.Reconcile(sampleCollection()) {
		t.Fatal("expected identical snapshot to be a no-op")
	}
	if calls != 1 {
		t.Fatalf("expected 1 notification, got %d", calls)
	}
	if store.Version() != 1 {
		t.Fatalf("expected version 1, got %d", store.Version())
	}

	if !store.Patch("b", jobs.RatingPatch(2)) {
		t.Fatal("expected patch to change the store")
	}
	if store.Patch("missing", jobs.RatingPatch(2)) {
		t.Fatal("expected unknown id patch to be a no-op")
	}
	if calls != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls)
	}
	job, ok := store.Get("b")
	if !ok || job.Rating != 2 {
		t.Fatalf("unexpected job after patch: %+v", job)
	}

	unsubscribe()
	unsubscribe()
	store.Patch("b", jobs.RatingPatch(4))
	if calls != 2 {
		t.Fatalf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestStoreEmptySnapshotIsNoop(t *testing.T) {
	store := jobs.NewStore()
	if store.Reconcile(jobs.Collection{}) {
		t.Fatal("expected empty snapshot over empty store to be a no-op")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestStoreConcurrentPatchAndReconcile(t *testing.T) {
	store := jobs.NewStore()
	store.Reconcile(sampleCollection())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(r int) {
			defer wg.Done()
			store.Patch("a", jobs.RatingPatch(r%6))
		}(i)
		go func() {
			defer wg.Done()
			store.Reconcile(sampleCollection())
		}()
	}
	wg.Wait()
	if store.Len() != 3 {
		t.Fatalf("expected 3 jobs, got %d", store.Len())
	}
}

func TestStoreSubscribersEndOnLatestSnapshot(t *testing.T) {
	store := jobs.NewStore()
	store.Reconcile(sampleCollection())

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu       sync.Mutex
		calls    int
		lastSeen int
	)
	store.Subscribe(func(list jobs.Collection) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		job, _ := list.Find("b")
		mu.Lock()
		lastSeen = job.Rating
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Patch("b", jobs.RatingPatch(3))
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Patch("b", jobs.RatingPatch(5))
	}()
	deadline := time.Now().Add(2 * time.Second)
	for store.Version() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("second patch never applied")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	job, _ := store.Get("b")
	mu.Lock()
	defer mu.Unlock()
	if job.Rating != 5 || lastSeen != 5 {
		t.Fatalf("store rating=%d, subscriber last saw %d", job.Rating, lastSeen)
	}
}
