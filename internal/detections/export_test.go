package detections

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/internal/reliability"
)

type Claim = claim

func NewClaim(d Detection, stored FeedbackCommand, fresh bool) Claim {
	return claim{detection: d, stored: stored, fresh: fresh}
}

func ApplyFeedback(
	ctx context.Context,
	claimFn func(context.Context, uuid.UUID, FeedbackCommand) (Claim, error),
	store reliability.Store,
	logger *slog.Logger,
	id uuid.UUID,
	cmd FeedbackCommand,
) (*FeedbackResult, error) {
	return applyFeedback(ctx, claimFn, store, logger, id, cmd)
}
