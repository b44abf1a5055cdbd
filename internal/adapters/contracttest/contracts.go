package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
	mirrorport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
	syncqueueport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/syncqueue"
	userrepoport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type MirrorStoreFactory func(t *testing.T) (mirrorport.Store, CleanupFunc)
type SyncQueueFactory func(t *testing.T) (syncqueueport.Queue, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:       idempotencyport.Key("k-" + uuid.NewString()),
		Requester: domain.UserID("user-1"),
		Method:    "POST",
		Route:     "/trips/{tripId}/cancellation",
		Resource:  "trip-1",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Reserve: ok=%v err=%v", ok, err)
	}

	at := time.Unix(100, 0).UTC()
	staleBefore := at.Add(-time.Minute)
	if _, reserved, err := store.Reserve(ctx, fp, at, staleBefore); err != nil || !reserved {
		t.Fatalf("first Reserve: reserved=%v err=%v", reserved, err)
	}
	existing, reserved, err := store.Reserve(ctx, fp, at.Add(time.Second), staleBefore)
	if err != nil || reserved {
		t.Fatalf("second Reserve: reserved=%v err=%v", reserved, err)
	}
	if !existing.Pending() {
		t.Fatalf("expected pending reservation, got %+v", existing)
	}

	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"tripId":"trip-1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Complete(ctx, fp, rec); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != string(rec.Body) || got.ContentType != rec.ContentType || got.StatusCode != rec.StatusCode {
		t.Fatalf("unexpected record: %+v", got)
	}

	// A completed response is never replaced, even by a later Complete or a stale-looking Reserve.
	loser := rec
	loser.StatusCode = 409
	loser.Body = []byte(`{"error":{}}`)
	if err := store.Complete(ctx, fp, loser); err != nil {
		t.Fatalf("Complete over completed: %v", err)
	}
	if err := store.Release(ctx, fp); err != nil {
		t.Fatalf("Release completed: %v", err)
	}
	existing, reserved, err = store.Reserve(ctx, fp, time.Unix(10_000, 0), time.Unix(9_000, 0))
	if err != nil || reserved || existing.StatusCode != 200 || string(existing.Body) != string(rec.Body) {
		t.Fatalf("Reserve over completed: reserved=%v err=%v rec=%+v", reserved, err, existing)
	}

	// Same key from another requester or for another trip is a different request.
	other := fp
	other.Requester = "user-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other requester: ok=%v err=%v", ok, err)
	}
	other = fp
	other.Resource = "trip-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other resource: ok=%v err=%v", ok, err)
	}

	// Release frees a pending key; a stale reservation is taken over.
	fp2 := fp
	fp2.Key = idempotencyport.Key("k-" + uuid.NewString())
	if _, reserved, err := store.Reserve(ctx, fp2, at, staleBefore); err != nil || !reserved {
		t.Fatalf("Reserve fp2: reserved=%v err=%v", reserved, err)
	}
	if err := store.Release(ctx, fp2); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok, err := store.Get(ctx, fp2); err != nil || ok {
		t.Fatalf("Get after Release: ok=%v err=%v", ok, err)
	}
	if _, reserved, err := store.Reserve(ctx, fp2, at, staleBefore); err != nil || !reserved {
		t.Fatalf("Reserve after Release: reserved=%v err=%v", reserved, err)
	}
	later := at.Add(10 * time.Minute)
	if _, reserved, err := store.Reserve(ctx, fp2, later, later.Add(-time.Minute)); err != nil || !reserved {
		t.Fatalf("Reserve over stale reservation: reserved=%v err=%v", reserved, err)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	id := domain.UserID(uuid.NewString())
	u := domain.User{
		ID:          id,
		DisplayName: "Alice Johnson",
		Email:       "alice@example.com",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DisplayName != u.DisplayName || got.Email != u.Email || !got.CreatedAt.Equal(now) {
		t.Fatalf("GetByID=%+v, want %+v", got, u)
	}

	if err := repo.Create(ctx, u); !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want %v", err, userrepoport.ErrAlreadyExists)
	}
	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want %v", err, userrepoport.ErrNotFound)
	}

	bad := u
	bad.ID = domain.UserID(uuid.NewString())
	bad.Email = "not-an-email"
	if err := repo.Create(ctx, bad); !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("Create malformed err=%v, want %v", err, domain.ErrMalformedRecord)
	}
}

func RunMirrorStore(t *testing.T, newStore MirrorStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	id := domain.TripID(uuid.NewString())
	if _, err := store.GetTrip(ctx, id); !errors.Is(err, mirrorport.ErrNotFound) {
		t.Fatalf("GetTrip missing err=%v, want %v", err, mirrorport.ErrNotFound)
	}

	created := time.Unix(2000, 0).UTC()
	trip := domain.Trip{
		ID:             id,
		DriverID:       "driver-1",
		PassengerIDs:   []domain.UserID{"p-b", "p-a"},
		PricePerSeat:   12,
		Status:         domain.TripStatusActive,
		DepartureLabel: "Oakland",
		ArrivalLabel:   "Tahoe",
		DepartureAt:    created.Add(48 * time.Hour),
		Version:        1,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	syncedAt := created.Add(time.Minute)
	if err := store.UpsertTrip(ctx, trip, syncedAt); err != nil {
		t.Fatalf("UpsertTrip: %v", err)
	}
	rec, err := store.GetTrip(ctx, id)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if rec.Trip.Version != 1 || rec.Trip.Status != domain.TripStatusActive || rec.Trip.PricePerSeat != 12 {
		t.Fatalf("GetTrip=%+v", rec.Trip)
	}
	if len(rec.Trip.PassengerIDs) != 2 || rec.Trip.PassengerIDs[0] != "p-a" || rec.Trip.PassengerIDs[1] != "p-b" {
		t.Fatalf("expected sorted passengers, got %v", rec.Trip.PassengerIDs)
	}
	if !rec.SyncedAt.Equal(syncedAt) || !rec.Trip.DepartureAt.Equal(trip.DepartureAt) {
		t.Fatalf("unexpected timestamps: %+v", rec)
	}

	// Replaying the same version is a no-op.
	if err := store.UpsertTrip(ctx, trip, syncedAt.Add(time.Hour)); err != nil {
		t.Fatalf("UpsertTrip replay: %v", err)
	}
	rec, err = store.GetTrip(ctx, id)
	if err != nil || !rec.SyncedAt.Equal(syncedAt) {
		t.Fatalf("expected replay to leave record unchanged, got %+v err=%v", rec, err)
	}

	next := trip.Clone()
	next.Status = domain.TripStatusCancelled
	next.PassengerIDs = []domain.UserID{}
	next.Version = 2
	next.UpdatedAt = created.Add(time.Hour)
	if err := store.UpsertTrip(ctx, next, syncedAt.Add(2*time.Hour)); err != nil {
		t.Fatalf("UpsertTrip v2: %v", err)
	}

	// An older version arriving late must not regress the record.
	if err := store.UpsertTrip(ctx, trip, syncedAt.Add(3*time.Hour)); err != nil {
		t.Fatalf("UpsertTrip stale: %v", err)
	}
	rec, err = store.GetTrip(ctx, id)
	if err != nil {
		t.Fatalf("GetTrip v2: %v", err)
	}
	if rec.Trip.Version != 2 || rec.Trip.Status != domain.TripStatusCancelled || len(rec.Trip.PassengerIDs) != 0 {
		t.Fatalf("expected cancelled v2 with no passengers, got %+v", rec.Trip)
	}
}

func RunSyncQueue(t *testing.T, newQueue SyncQueueFactory) {
	t.Helper()
	ctx := context.Background()

	q, cleanup := newQueue(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, ok, err := q.Pop(ctx); err != nil || ok {
		t.Fatalf("Pop empty: ok=%v err=%v", ok, err)
	}

	a := domain.TripID(uuid.NewString())
	b := domain.TripID(uuid.NewString())
	for _, id := range []domain.TripID{a, b, a} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("Push(%s): %v", id, err)
		}
	}
	n, err := q.Len(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Len=%d err=%v, want 2", n, err)
	}

	seen := map[domain.TripID]bool{}
	for i := 0; i < 2; i++ {
		id, ok, err := q.Pop(ctx)
		if err != nil || !ok {
			t.Fatalf("Pop %d: ok=%v err=%v", i, ok, err)
		}
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("Pop returned %v, want %s and %s", seen, a, b)
	}
	if n, err := q.Len(ctx); err != nil || n != 0 {
		t.Fatalf("Len after drain=%d err=%v", n, err)
	}
}
