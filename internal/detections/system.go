package detections

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/pkg/pagination"
)

// System defines the public contract for detection domain operations.
type System interface {
	Handler(maxBundleSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Detection], error)

	Find(ctx context.Context, id uuid.UUID) (*Detection, error)
	Analyze(ctx context.Context, cmd AnalyzeCommand) (*Detection, error)
	AnalyzeBatch(ctx context.Context, cmds []AnalyzeCommand) ([]Detection, error)
	Feedback(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (*FeedbackResult, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Evidence streams the archived evidence bundle for a detection.
	// Returns ErrArchiveDisabled when no archive is configured.
	Evidence(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
