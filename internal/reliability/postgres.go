package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JaimeStill/verity/pkg/repository"
)

const (
	statsQ = `
		SELECT metric, correct_count, incorrect_count
		FROM public.metric_reliability
		ORDER BY metric`

	ledgerQ = `
		INSERT INTO public.reliability_ledger(detection_id, correct)
		VALUES ($1, $2)
		ON CONFLICT (detection_id) DO NOTHING`

	incrementQ = `
		INSERT INTO public.metric_reliability(metric, correct_count, incorrect_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (metric) DO UPDATE SET
			correct_count = metric_reliability.correct_count + EXCLUDED.correct_count,
			incorrect_count = metric_reliability.incorrect_count + EXCLUDED.incorrect_count,
			updated_at = NOW()`
)

type postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates a Store backed by the metric_reliability and
// reliability_ledger tables. The connection is owned by the caller.
func NewPostgres(db *sql.DB, logger *slog.Logger) Store {
	return &postgres{
		db:     db,
		logger: logger.With("system", "reliability", "driver", "postgres"),
	}
}

func (p *postgres) Weights(ctx context.Context) (map[string]float64, error) {
	stats, err := p.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return weights(stats), nil
}

func (p *postgres) Stats(ctx context.Context) ([]Reliability, error) {
	stats, err := repository.QueryMany(ctx, p.db, statsQ, nil, scanReliability)
	if err != nil {
		return nil, fmt.Errorf("query reliability: %w", err)
	}
	return stats, nil
}

func (p *postgres) Record(ctx context.Context, fb Feedback) (bool, error) {
	inc := increments(fb)
	metrics := sortedKeys(inc)

	applied, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (bool, error) {
		if err := repository.ExecExpectOne(ctx, tx, ledgerQ, fb.DetectionID, fb.Correct); err != nil {
			if repository.IsNoRows(err) {
				return false, nil
			}
			return false, fmt.Errorf("insert ledger entry: %w", err)
		}

		for _, m := range metrics {
			d := inc[m]
			if _, err := tx.ExecContext(ctx, incrementQ, m, d[0], d[1]); err != nil {
				return false, fmt.Errorf("increment %s: %w", m, err)
			}
		}
		return true, nil
	})

	if err != nil {
		return false, err
	}

	p.logger.Info("feedback recorded",
		"detection_id", fb.DetectionID,
		"correct", fb.Correct,
		"metrics", len(metrics),
		"applied", applied,
	)
	return applied, nil
}

// Close is a no-op; the database connection belongs to the database system.
func (p *postgres) Close() error {
	return nil
}

func scanReliability(s repository.Scanner) (Reliability, error) {
	var metric string
	var correct, incorrect float64
	if err := s.Scan(&metric, &correct, &incorrect); err != nil {
		return Reliability{}, err
	}
	return NewReliability(metric, correct, incorrect), nil
}

// Rows are locked in a stable order so concurrent feedback cannot deadlock.
func sortedKeys(m map[string][2]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
