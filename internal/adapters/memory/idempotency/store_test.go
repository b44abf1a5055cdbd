package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
)

func TestStore_StoredBodyIsNotAliased(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:       "k1",
		Requester: domain.UserID("driver-1"),
		Method:    "POST",
		Route:     "/trips/{tripId}/cancellation",
		Resource:  "t1",
	}
	body := []byte(`{"ok":true}`)
	rec := idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        body,
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Complete(context.Background(), fp, rec); err != nil {
		t.Fatalf("Complete() err=%v", err)
	}
	body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if string(got.Body) != `{"ok":true}` {
		t.Fatalf("Get().Body=%q, want original body", got.Body)
	}
}
