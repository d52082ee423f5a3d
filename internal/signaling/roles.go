package signaling

import (
	"context"
	"log/slog"
	"time"
)

// RoleResolver decides whether a joining user is a tutor of the session.
type RoleResolver interface {
	ResolveRole(ctx context.Context, sessionID, userID string, claimed bool) (bool, error)
}

// TrustClaims accepts whatever the client says.
type TrustClaims struct{}

func (TrustClaims) ResolveRole(_ context.Context, _, _ string, claimed bool) (bool, error) {
	return claimed, nil
}

const roleLookupTimeout = 5 * time.Second

// resolveJoin rewrites IsTutor from the resolver. A failed lookup demotes to student.
func resolveJoin(roles RoleResolver, join *JoinSession) {
	ctx, cancel := context.WithTimeout(context.Background(), roleLookupTimeout)
	defer cancel()

	isTutor, err := roles.ResolveRole(ctx, join.SessionID, join.UserID, join.IsTutor)
	if err != nil {
		slog.Warn("role lookup failed", "session", join.SessionID, "user", join.UserID, "error", err)
		isTutor = false
	}
	join.IsTutor = isTutor
}
