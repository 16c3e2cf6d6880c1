package detections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/metrics"
	"github.com/JaimeStill/verity/internal/reliability"
	"github.com/JaimeStill/verity/pkg/pagination"
	"github.com/JaimeStill/verity/pkg/query"
	"github.com/JaimeStill/verity/pkg/repository"
	"github.com/JaimeStill/verity/pkg/storage"
	"github.com/JaimeStill/verity/pkg/validation"
)

// MaxBatchSize bounds the number of bundles in one batch analysis.
const MaxBatchSize = 100

type repo struct {
	db          *sql.DB
	engine      *fusion.Engine
	reliability reliability.Store
	archive     storage.System
	logger      *slog.Logger
	pagination  pagination.Config
}

// New creates a detection repository implementing the System interface.
// archive may be nil, in which case evidence is only kept in the database.
func New(
	db *sql.DB,
	engine *fusion.Engine,
	store reliability.Store,
	archive storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:          db,
		engine:      engine,
		reliability: store,
		archive:     archive,
		logger:      logger.With("system", "detections"),
		pagination:  pagination,
	}
}

func (r *repo) Handler(maxBundleSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBundleSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Detection], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryValue[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDetection)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Detection, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDetection)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Analyze(ctx context.Context, cmd AnalyzeCommand) (*Detection, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	features := cmd.Evidence
	features.Normalize()

	result := r.engine.Evaluate(ctx, features)

	reasonsJSON, err := json.Marshal(result.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal reasons: %w", err)
	}
	overridesJSON, err := json.Marshal(result.Overrides)
	if err != nil {
		return nil, fmt.Errorf("marshal overrides: %w", err)
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}

	insertQ := `
		INSERT INTO detections(
			id, filename, verdict, probability, raw_probability, estimator,
			reasons, overrides, features
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)` + returning

	insertArgs := []any{
		uuid.New(),
		cmd.Filename,
		string(result.Verdict),
		result.Probability,
		result.RawProbability,
		result.Estimator,
		reasonsJSON,
		overridesJSON,
		featuresJSON,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Detection, error) {
		return repository.QueryOne(ctx, tx, insertQ, insertArgs, scanDetection)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.archiveEvidence(ctx, d.ID, featuresJSON)

	kinds := make([]string, len(result.Overrides))
	for i, o := range result.Overrides {
		kinds[i] = string(o.Kind)
	}
	metrics.ObserveDetection(string(d.Verdict), d.Probability, kinds)

	r.logger.Info("evidence analyzed",
		"id", d.ID,
		"filename", d.Filename,
		"verdict", d.Verdict,
		"probability", d.Probability,
		"estimator", d.Estimator,
	)
	return &d, nil
}

func (r *repo) AnalyzeBatch(ctx context.Context, cmds []AnalyzeCommand) ([]Detection, error) {
	if len(cmds) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(cmds), MaxBatchSize)
	}

	out := make([]Detection, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(cmds)), 1))

	for i, cmd := range cmds {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			d, err := r.Analyze(gctx, cmd)
			if err != nil {
				return fmt.Errorf("bundle %d: %w", i, err)
			}
			out[i] = *d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Feedback folds a user correction into the reliability store at most once
// per detection. The first submission claims the detection under a row lock
// and stores its label; the reliability update is always derived from that
// stored label, so concurrent submissions cannot leave the feedback row and
// the counters disagreeing. A repeated submission re-applies the stored
// feedback, which the store's ledger turns into a no-op once it has landed.
func (r *repo) Feedback(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (*FeedbackResult, error) {
	cmd.Normalize()
	if err := validation.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return applyFeedback(ctx, r.claimFeedback, r.reliability, r.logger, id, cmd)
}

// claim is the outcome of locking a detection for feedback. stored is the
// feedback row holding the detection; fresh reports whether this submission
// wrote it.
type claim struct {
	detection Detection
	stored    FeedbackCommand
	fresh     bool
}

type claimFunc func(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (claim, error)

func applyFeedback(
	ctx context.Context,
	claimFn claimFunc,
	store reliability.Store,
	logger *slog.Logger,
	id uuid.UUID,
	cmd FeedbackCommand,
) (*FeedbackResult, error) {
	c, err := claimFn(ctx, id, cmd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.Feedback.WithLabelValues(metrics.FeedbackNotFound).Inc()
		}
		return nil, err
	}

	fb := NewFeedback(c.detection, c.stored)
	applied, err := store.Record(ctx, fb)
	if err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}

	outcome := metrics.FeedbackDuplicate
	if applied {
		outcome = metrics.FeedbackApplied
	}
	metrics.Feedback.WithLabelValues(outcome).Inc()

	logger.Info("feedback received",
		"id", id,
		"user_label", c.stored.UserLabel,
		"verdict", c.detection.Verdict,
		"correct", fb.Correct,
		"fresh", c.fresh,
		"applied", applied,
	)
	return &FeedbackResult{DetectionID: id, Applied: applied}, nil
}

func (r *repo) claimFeedback(ctx context.Context, id uuid.UUID, cmd FeedbackCommand) (claim, error) {
	lockQ, lockArgs := query.NewBuilder(projection).BuildSingle("ID", id)
	lockQ += " FOR UPDATE"

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (claim, error) {
		d, err := repository.QueryOne(ctx, tx, lockQ, lockArgs, scanDetection)
		if err != nil {
			return claim{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if d.FeedbackReceived {
			stored, err := repository.QueryOne(ctx, tx, `
				SELECT user_label, COALESCE(notes, '')
				FROM feedback
				WHERE detection_id = $1`,
				[]any{id}, scanFeedback,
			)
			if err != nil {
				return claim{}, fmt.Errorf("load stored feedback: %w", err)
			}
			return claim{detection: d, stored: stored}, nil
		}

		var notes *string
		if cmd.Notes != "" {
			notes = &cmd.Notes
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO feedback(detection_id, user_label, notes, correct)
			VALUES ($1, $2, $3, $4)`,
			id, cmd.UserLabel, notes, d.Correct(cmd.UserLabel),
		); err != nil {
			return claim{}, fmt.Errorf("insert feedback: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE detections SET feedback_received = TRUE WHERE id = $1",
			id,
		); err != nil {
			return claim{}, fmt.Errorf("mark feedback received: %w", err)
		}

		d.FeedbackReceived = true
		return claim{detection: d, stored: cmd, fresh: true}, nil
	})
}

func scanFeedback(s repository.Scanner) (FeedbackCommand, error) {
	var c FeedbackCommand
	err := s.Scan(&c.UserLabel, &c.Notes)
	return c, err
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM detections WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if r.archive != nil {
		key := evidenceKey(id)
		if delErr := r.archive.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			r.logger.Warn("evidence delete failed after DB delete", "key", key, "error", delErr)
		}
	}

	r.logger.Info("detection deleted", "id", id)
	return nil
}

func (r *repo) Evidence(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if r.archive == nil {
		return nil, ErrArchiveDisabled
	}

	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	obj, err := r.archive.Get(ctx, evidenceKey(id))
	if err != nil {
		return nil, err
	}
	return obj.Body, nil
}

func (r *repo) archiveEvidence(ctx context.Context, id uuid.UUID, data []byte) {
	if r.archive == nil {
		return
	}

	key := evidenceKey(id)
	if err := r.archive.Put(ctx, key, data, "application/json"); err != nil {
		r.logger.Warn("evidence archive failed", "key", key, "error", err)
	}
}

func evidenceKey(id uuid.UUID) string {
	return fmt.Sprintf("detections/%s/evidence.json", id)
}
