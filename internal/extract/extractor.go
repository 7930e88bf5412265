// Package extract reads the review table off the results page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/reviewwatch/internal/browser"
	"github.com/law-makers/reviewwatch/internal/config"
	"github.com/law-makers/reviewwatch/internal/runctx"
	"github.com/law-makers/reviewwatch/pkg/models"
)

// Fixed column positions in a review row.
const (
	colExpert  = 0
	colTime    = 1
	colOverall = 6
	colResult  = 7

	// MinCells is the smallest row that counts as a review; shorter rows are
	// spacers or placeholder rows.
	MinCells = 5
)

// ErrNoTable is returned when the results container never appeared.
var ErrNoTable = errors.New("results table not found")

// Options configures an Extractor.
type Options struct {
	Selectors      config.SelectorConfig
	ElementTimeout time.Duration
	// RenderDelay is waited after the container appears so the rows can fill in.
	RenderDelay time.Duration
	// Now stamps ExtractTime; defaults to time.Now.
	Now func() time.Time
}

// Extractor turns the rendered page into a Snapshot.
type Extractor struct {
	driver browser.Driver
	opts   Options
}

// New creates an Extractor.
func New(d browser.Driver, opts Options) *Extractor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Extractor{driver: d, opts: opts}
}

// Extract reads the review table. It is all-or-nothing: on any error the
// snapshot is nil, never partial.
func (e *Extractor) Extract(ctx context.Context) (*models.Snapshot, error) {
	snap, err := e.extract(ctx)
	if err != nil {
		runctx.Logger(ctx).Warn().Err(err).Msg("Extraction failed")
		return nil, err
	}

	runctx.Logger(ctx).Info().
		Int("reviews", len(snap.Reviews)).
		Str("final_result", snap.FinalResult).
		Msg("Extracted review results")
	return snap, nil
}

func (e *Extractor) extract(ctx context.Context) (*models.Snapshot, error) {
	sel := e.opts.Selectors
	logger := runctx.Logger(ctx)

	if err := e.driver.WaitFor(ctx, sel.Table, e.opts.ElementTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTable, err)
	}
	if err := pause(ctx, e.opts.RenderDelay); err != nil {
		return nil, err
	}

	tables, err := e.driver.FindAll(ctx, nil, sel.Table)
	if err != nil {
		return nil, err
	}
	table, ok := SelectTable(tables)
	if !ok {
		return nil, ErrNoTable
	}
	if len(tables) < 2 {
		logger.Warn().Int("tables", len(tables)).Msg("Second results region missing, using the first")
	}

	rows, err := e.driver.FindAll(ctx, table, sel.Rows)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("rows", len(rows)).Msg("Rows found in results table")

	reviews := make([]models.ReviewRecord, 0, len(rows))
	for i, row := range rows {
		cells, err := e.driver.FindAll(ctx, row, sel.Cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if len(cells) < MinCells {
			logger.Debug().Int("row", i).Int("cells", len(cells)).Msg("Skipping short row")
			continue
		}

		texts := make([]string, len(cells))
		for j, c := range cells {
			t, err := e.driver.ReadText(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("row %d cell %d: %w", i, j, err)
			}
			texts[j] = strings.TrimSpace(t)
		}

		rec := models.ReviewRecord{
			ExpertName:        cell(texts, colExpert),
			ReviewTime:        cell(texts, colTime),
			OverallEvaluation: cell(texts, colOverall),
			ReviewResult:      cell(texts, colResult),
		}
		logger.Debug().
			Str("expert", rec.ExpertName).
			Str("overall", rec.OverallEvaluation).
			Str("result", rec.ReviewResult).
			Msg("Parsed review row")
		reviews = append(reviews, rec)
	}

	final, err := e.footer(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Reviews:     reviews,
		FinalResult: final,
		ExtractTime: e.opts.Now(),
	}, nil
}

// footer returns the overall verdict, or "" when the page has no footer.
func (e *Extractor) footer(ctx context.Context) (string, error) {
	footers, err := e.driver.FindAll(ctx, nil, e.opts.Selectors.Footer)
	if err != nil {
		return "", err
	}
	if len(footers) == 0 {
		return "", nil
	}
	text, err := e.driver.ReadText(ctx, footers[0])
	if err != nil {
		return "", fmt.Errorf("footer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// SelectTable picks the review table among the matching regions. The results
// page renders the applicant summary first and the reviews second, so the
// second region wins whenever there are at least two.
func SelectTable[T any](tables []T) (T, bool) {
	var zero T
	switch len(tables) {
	case 0:
		return zero, false
	case 1:
		return tables[0], true
	default:
		return tables[1], true
	}
}

func cell(texts []string, i int) string {
	if i < len(texts) {
		return texts[i]
	}
	return ""
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
