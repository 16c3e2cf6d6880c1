package detections

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/pkg/query"
	"github.com/JaimeStill/verity/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "detections", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("verdict", "Verdict").
	Project("probability", "Probability").
	Project("raw_probability", "RawProbability").
	Project("estimator", "Estimator").
	Project("reasons", "Reasons").
	Project("overrides", "Overrides").
	Project("features", "Features").
	Project("feedback_received", "FeedbackReceived").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

const returning = `
		RETURNING id, filename, verdict, probability, raw_probability, estimator,
				  reasons, overrides, features, feedback_received, created_at`

// Filters contains optional filtering criteria for detection queries.
// Nil fields are ignored. Probability and creation bounds are inclusive.
type Filters struct {
	Verdict          *string    `json:"verdict,omitempty"`
	Estimator        *string    `json:"estimator,omitempty"`
	FeedbackReceived *bool      `json:"feedback_received,omitempty"`
	MinProbability   *float64   `json:"min_probability,omitempty"`
	MaxProbability   *float64   `json:"max_probability,omitempty"`
	CreatedAfter     *time.Time `json:"created_after,omitempty"`
	CreatedBefore    *time.Time `json:"created_before,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Verdict", f.Verdict).
		WhereEquals("Estimator", f.Estimator).
		WhereEquals("FeedbackReceived", f.FeedbackReceived).
		WhereCompare("Probability", ">=", f.MinProbability).
		WhereCompare("Probability", "<=", f.MaxProbability).
		WhereCompare("CreatedAt", ">=", f.CreatedAfter).
		WhereCompare("CreatedAt", "<=", f.CreatedBefore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Verdicts are matched upper-cased. Unparseable booleans, probabilities and
// RFC 3339 timestamps are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("verdict"); v != "" {
		v = strings.ToUpper(v)
		f.Verdict = &v
	}

	if e := values.Get("estimator"); e != "" {
		f.Estimator = &e
	}

	if fr := values.Get("feedback_received"); fr != "" {
		if b, err := strconv.ParseBool(fr); err == nil {
			f.FeedbackReceived = &b
		}
	}

	f.MinProbability = parseProbability(values.Get("min_probability"))
	f.MaxProbability = parseProbability(values.Get("max_probability"))
	f.CreatedAfter = parseTime(values.Get("created_after"))
	f.CreatedBefore = parseTime(values.Get("created_before"))

	return f
}

func parseProbability(s string) *float64 {
	if s == "" {
		return nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 || p > 1 {
		return nil
	}
	return &p
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func scanDetection(s repository.Scanner) (Detection, error) {
	var d Detection
	var reasonsRaw, overridesRaw, featuresRaw []byte

	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.Verdict,
		&d.Probability,
		&d.RawProbability,
		&d.Estimator,
		&reasonsRaw,
		&overridesRaw,
		&featuresRaw,
		&d.FeedbackReceived,
		&d.CreatedAt,
	)

	if err != nil {
		return d, err
	}

	if len(reasonsRaw) > 0 {
		if err := json.Unmarshal(reasonsRaw, &d.Reasons); err != nil {
			return d, fmt.Errorf("unmarshal reasons: %w", err)
		}
	}

	if len(overridesRaw) > 0 {
		if err := json.Unmarshal(overridesRaw, &d.Overrides); err != nil {
			return d, fmt.Errorf("unmarshal overrides: %w", err)
		}
	}

	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &d.Features); err != nil {
			return d, fmt.Errorf("unmarshal features: %w", err)
		}
	}

	if d.Reasons == nil {
		d.Reasons = []fusion.Reason{}
	}
	if d.Overrides == nil {
		d.Overrides = []fusion.Override{}
	}

	return d, nil
}
