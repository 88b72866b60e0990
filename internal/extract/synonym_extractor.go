package extract

import (
	"context"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/fields"
	"github.com/sumanths012/SymptoSense/internal/synonyms"
)

// SynonymFieldExtractor runs the field locator over whichever catalog snapshot is current
// when the call starts.
type SynonymFieldExtractor struct {
	store *synonyms.Store
}

func NewSynonymFieldExtractor(store *synonyms.Store) *SynonymFieldExtractor {
	return &SynonymFieldExtractor{store: store}
}

func (s *SynonymFieldExtractor) ExtractFields(ctx context.Context, text string, categories []constants.Category) (FieldsResult, error) {
	if err := ctx.Err(); err != nil {
		return FieldsResult{}, err
	}
	snap := s.store.Snapshot()
	res := snap.Extractor.ExtractAll(fields.NewReportText(text), categories)
	return FieldsResult{Result: res, CatalogVersion: snap.Version, CatalogSource: snap.Source}, nil
}
