package inventory

import (
	"context"

	"itam-api/internal/models"
)

// SystemActor is recorded when no caller identity is attached.
const SystemActor = "system"

type actorKey struct{}

// WithActor attaches the identity recorded in action logs.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the attached actor or SystemActor.
func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return SystemActor
}

func appendLog(ctx context.Context, tx Tx, subject string, subjectID int64, action, details string) error {
	return tx.AppendLog(ctx, &models.ActionLog{
		Subject:     subject,
		SubjectID:   subjectID,
		Action:      action,
		PerformedBy: ActorFrom(ctx),
		Details:     details,
	})
}
