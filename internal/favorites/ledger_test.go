package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"moviefinder/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	values  map[string]string
	getErr  error
	setErr  error
	gets    int
	sets    int
	lastSet string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return "", false, s.getErr
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	s.lastSet = value
	return nil
}

// stepClock returns base, base+1s, base+2s, ...
func stepClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current := next
		next = next.Add(time.Second)
		return current
	}
}

func movie(id string) domain.Movie {
	return domain.Movie{ID: 1, Title: "Movie " + id, Year: 2000, ExternalID: id}
}

func TestHydrateFromStoredRecord(t *testing.T) {
	store := newFakeStore()
	store.values[StorageKey] = `[{"id":1,"title":"X","year":2000,"externalId":"tt1","favoritedAt":"2024-01-01T00:00:00.000Z"}]`
	ledger := NewLedger(store)
	ledger.Initialize(context.Background())

	if ledger.Count() != 1 {
		t.Fatalf("expected 1 favorite, got %d", ledger.Count())
	}
	if !ledger.IsFavorited(domain.Movie{ExternalID: "tt1"}) {
		t.Fatal("expected tt1 to be favorited")
	}
	got, ok := ledger.Get("tt1")
	if !ok {
		t.Fatal("expected tt1 to be retrievable")
	}
	wantTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got.Title != "X" || got.Year != 2000 || got.ID != 1 || !got.FavoritedAt.Equal(wantTime) {
		t.Fatalf("unexpected favorite: %+v", got)
	}
}

func TestInitializeHydratesOnce(t *testing.T) {
	store := newFakeStore()
	store.values[StorageKey] = `[{"externalId":"tt1","favoritedAt":"2024-01-01T00:00:00.000Z"}]`
	ledger := NewLedger(store)

	ledger.Initialize(context.Background())
	store.values[StorageKey] = `[]`
	ledger.Initialize(context.Background())

	if store.gets != 1 {
		t.Fatalf("expected a single storage read, got %d", store.gets)
	}
	if ledger.Count() != 1 {
		t.Fatalf("expected hydrated state to survive the second initialize, got %d", ledger.Count())
	}
}

func TestHydrateOverwritesWholesale(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ledger.Add(context.Background(), movie("tt-local"))

	store.values[StorageKey] = `[{"externalId":"tt-remote","favoritedAt":"2024-01-01T00:00:00.000Z"}]`
	ledger.Hydrate(context.Background())

	if ledger.IsFavorited(movie("tt-local")) {
		t.Fatal("expected hydrate to replace, not merge")
	}
	if !ledger.IsFavorited(movie("tt-remote")) || ledger.Count() != 1 {
		t.Fatalf("expected only tt-remote, got %+v", ledger.Favorites())
	}
}

func TestHydrateToleratesBadRecords(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		getErr error
	}{
		{name: "missing"},
		{name: "unparseable", stored: strPtr("{not json")},
		{name: "wrong shape", stored: strPtr(`{"externalId":"tt1"}`)},
		{name: "read failure", getErr: errors.New("disk gone")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.getErr = tt.getErr
			if tt.stored != nil {
				store.values[StorageKey] = *tt.stored
			}
			ledger := NewLedger(store)
			ledger.Initialize(context.Background())
			if ledger.Count() != 0 {
				t.Fatalf("expected empty ledger, got %d", ledger.Count())
			}
		})
	}
}

func TestHydrateAcceptsLegacyIdentifierAndDropsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.values[StorageKey] = `[
		{"id":1,"title":"Legacy","year":1999,"imdbID":"tt1","favoritedAt":"2024-01-01T00:00:00.000Z"},
		{"id":2,"title":"Dup","year":1999,"externalId":"tt1","favoritedAt":"2024-01-02T00:00:00.000Z"},
		{"id":3,"title":"No id","year":1999,"favoritedAt":"2024-01-03T00:00:00.000Z"}
	]`
	ledger := NewLedger(store)
	ledger.Initialize(context.Background())

	favorites := ledger.Favorites()
	if len(favorites) != 1 || favorites[0].Title != "Legacy" {
		t.Fatalf("unexpected favorites: %+v", favorites)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ledger.Add(ctx, movie("tt1"))
	}
	ledger.Add(ctx, domain.Movie{Title: "Renamed", ExternalID: " tt1 "})

	if ledger.Count() != 1 {
		t.Fatalf("expected 1 favorite, got %d", ledger.Count())
	}
	if store.sets != 1 {
		t.Fatalf("expected a single persist for the only effective add, got %d", store.sets)
	}
}

func TestAddIgnoresMovieWithoutExternalID(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	ledger.Add(context.Background(), domain.Movie{Title: "Anonymous"})
	if ledger.Count() != 0 {
		t.Fatalf("expected no favorites, got %d", ledger.Count())
	}
}

func TestAddPersistsStoredShape(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	ledger := NewLedger(store, WithClock(stepClock(base)))
	ledger.Add(context.Background(), domain.Movie{ID: 4, Title: "Waterworld", Year: 1995, ExternalID: "tt0114898"})

	var records []map[string]any
	if err := json.Unmarshal([]byte(store.lastSet), &records); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record["externalId"] != "tt0114898" || record["title"] != "Waterworld" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["favoritedAt"] != "2024-05-06T07:08:09.123Z" {
		t.Fatalf("unexpected timestamp: %v", record["favoritedAt"])
	}
}

func TestRemove(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	ledger.Add(ctx, movie("tt1"))
	ledger.Add(ctx, movie("tt2"))
	ledger.Add(ctx, movie("tt3"))

	ledger.Remove(ctx, movie("tt2"))
	ledger.Remove(ctx, movie("tt-missing"))

	favorites := ledger.Favorites()
	if len(favorites) != 2 || favorites[0].ExternalID != "tt1" || favorites[1].ExternalID != "tt3" {
		t.Fatalf("unexpected favorites: %+v", favorites)
	}
	if _, ok := ledger.Get("tt3"); !ok {
		t.Fatal("expected index to be rebuilt after removal")
	}
	if store.sets != 4 {
		t.Fatalf("expected 4 persists (3 adds, 1 effective remove), got %d", store.sets)
	}
}

func TestToggleTwiceRestoresState(t *testing.T) {
	ledger := NewLedger(newFakeStore())
	ctx := context.Background()
	ledger.Add(ctx, movie("tt-existing"))
	before := ledger.Favorites()

	if !ledger.Toggle(ctx, movie("tt1")) {
		t.Fatal("expected first toggle to add")
	}
	if ledger.Count() != 2 {
		t.Fatalf("expected 2 favorites, got %d", ledger.Count())
	}
	if ledger.Toggle(ctx, movie("tt1")) {
		t.Fatal("expected second toggle to remove")
	}

	after := ledger.Favorites()
	if len(after) != len(before) || after[0] != before[0] {
		t.Fatalf("expected state to be restored, before=%+v after=%+v", before, after)
	}
	if ledger.IsFavorited(movie("tt1")) {
		t.Fatal("expected tt1 not to be favorited")
	}
}

func TestClear(t *testing.T) {
	store := newFakeStore()
	ledger := NewLedger(store)
	ctx := context.Background()
	ledger.Add(ctx, movie("tt1"))
	ledger.Add(ctx, movie("tt2"))

	ledger.Clear(ctx)
	if ledger.Count() != 0 {
		t.Fatalf("expected empty ledger, got %d", ledger.Count())
	}
	if store.lastSet != "[]" {
		t.Fatalf("expected empty list to be persisted, got %q", store.lastSet)
	}
}

func TestSortedByMostRecent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := NewLedger(newFakeStore(), WithClock(stepClock(base)))
	ctx := context.Background()
	ledger.Add(ctx, movie("tt-first"))
	ledger.Add(ctx, movie("tt-second"))
	ledger.Add(ctx, movie("tt-third"))

	sorted := ledger.SortedByMostRecent()
	if sorted[0].ExternalID != "tt-third" || sorted[2].ExternalID != "tt-first" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if favorites := ledger.Favorites(); favorites[0].ExternalID != "tt-first" {
		t.Fatalf("expected insertion order to be untouched, got %+v", favorites)
	}
}

func TestSortedByMostRecentKeepsInsertionOrderOnTies(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := NewLedger(newFakeStore(), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	for _, id := range []string{"tt-a", "tt-b", "tt-c"} {
		ledger.Add(ctx, movie(id))
	}
	sorted := ledger.SortedByMostRecent()
	for i, want := range []string{"tt-a", "tt-b", "tt-c"} {
		if sorted[i].ExternalID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, sorted[i].ExternalID)
		}
	}
}

func TestStorageWriteFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("quota exceeded")
	ledger := NewLedger(store)

	ledger.Add(context.Background(), movie("tt1"))
	if !ledger.IsFavorited(movie("tt1")) {
		t.Fatal("expected in-memory add to succeed despite storage failure")
	}
	if ledger.Toggle(context.Background(), movie("tt1")) {
		t.Fatal("expected toggle to remove")
	}
	if store.sets != 2 {
		t.Fatalf("expected persist attempts for both mutations, got %d", store.sets)
	}
	err := ledger.StorageErr()
	if !errors.Is(err, domain.ErrStorageFailure) || !errors.Is(err, store.setErr) {
		t.Fatalf("expected wrapped storage failure, got %v", err)
	}

	store.setErr = nil
	ledger.Add(context.Background(), movie("tt2"))
	if err := ledger.StorageErr(); err != nil {
		t.Fatalf("expected successful save to clear the failure, got %v", err)
	}
}

func TestStorageReadFailureStartsEmpty(t *testing.T) {
	store := newFakeStore()
	store.values[StorageKey] = `[{"id":1,"title":"X","year":2000,"externalId":"tt1","favoritedAt":"2024-01-01T00:00:00.000Z"}]`
	store.getErr = errors.New("disk unavailable")
	ledger := NewLedger(store)

	ledger.Initialize(context.Background())
	if ledger.Count() != 0 {
		t.Fatalf("expected empty ledger after failed load, got %d", ledger.Count())
	}
	if err := ledger.StorageErr(); !errors.Is(err, domain.ErrStorageFailure) {
		t.Fatalf("expected ErrStorageFailure, got %v", err)
	}
}

func TestLedgerWithoutStoreNeverPersists(t *testing.T) {
	ledger := NewLedger(nil)
	ctx := context.Background()
	ledger.Initialize(ctx)
	ledger.Add(ctx, movie("tt1"))
	ledger.Persist(ctx)

	if ledger.Count() != 1 {
		t.Fatalf("expected in-memory favorite, got %d", ledger.Count())
	}
}

func TestMutationBeforeInitializeHydratesFirst(t *testing.T) {
	store := newFakeStore()
	store.values[StorageKey] = `[{"externalId":"tt-stored","favoritedAt":"2024-01-01T00:00:00.000Z"}]`
	ledger := NewLedger(store)

	ledger.Add(context.Background(), movie("tt-new"))

	if ledger.Count() != 2 || !ledger.IsFavorited(movie("tt-stored")) {
		t.Fatalf("expected stored favorites to be kept, got %+v", ledger.Favorites())
	}
	ledger.Initialize(context.Background())
	if ledger.Count() != 2 {
		t.Fatalf("expected initialize after hydration to be a no-op, got %d", ledger.Count())
	}
}

func TestRoundTripThroughStore(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first := NewLedger(store, WithClock(stepClock(base)))
	first.Add(ctx, movie("tt1"))
	first.Add(ctx, movie("tt2"))

	second := NewLedger(store)
	second.Initialize(ctx)
	a, b := first.Favorites(), second.Favorites()
	if len(a) != len(b) {
		t.Fatalf("expected %d favorites, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Movie != b[i].Movie || !a[i].FavoritedAt.Equal(b[i].FavoritedAt) {
			t.Fatalf("entry %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func strPtr(value string) *string { return &value }
