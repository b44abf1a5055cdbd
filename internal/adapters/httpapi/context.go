package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, subjectKey{}, id)
}

func SubjectFromContext(ctx context.Context) (domain.UserID, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.UserID)
	return v, ok && v != ""
}
