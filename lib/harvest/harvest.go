// Package harvest runs source scrapers sequentially and folds each
// batch into the shared store.
package harvest

import (
	"context"
	"log/slog"

	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/oppstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/harvest")

// Source is the contract a scraper fulfills: a stable label, one
// scrape producing a batch of records, and an ownership predicate
// identifying its prior records in the store.
type Source interface {
	Name() string
	Scrape(ctx context.Context) ([]opportunity.Opportunity, error)
	Owns(o opportunity.Opportunity) bool
}

type Summary struct {
	Source string
	Found  int
	Err    error
}

// Run scrapes each source to completion before the next starts. A
// failing source contributes nothing and leaves its prior records in
// place; successful sources replace theirs wholesale. The store is
// rewritten after every successful merge so a later failure cannot
// lose earlier work.
func Run(ctx context.Context, store oppstore.Store, sources []Source) []Summary {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	snapshot := store.Load()
	summaries := make([]Summary, 0, len(sources))

	for _, source := range sources {
		ctx, span := tracer.Start(ctx, "scrape")
		span.SetAttributes(attribute.String("source", source.Name()))

		batch, err := source.Scrape(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scrape failed")
			span.End()

			slog.Error("source failed, keeping its previous records", "source", source.Name(), "err", err)
			summaries = append(summaries, Summary{Source: source.Name(), Err: err})
			continue
		}
		span.End()

		snapshot = oppstore.ReplaceSource(snapshot, batch, source.Owns)
		err = store.Write(snapshot)
		if err != nil {
			slog.Error("failed to write store", "source", source.Name(), "err", err)
			summaries = append(summaries, Summary{Source: source.Name(), Found: len(batch), Err: err})
			continue
		}

		slog.Info("merged source batch", "source", source.Name(), "found", len(batch))
		summaries = append(summaries, Summary{Source: source.Name(), Found: len(batch)})
	}

	return summaries
}
