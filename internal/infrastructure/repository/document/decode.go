package document

import (
	"fmt"

	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// decodeAll decodes and validates every document. Documents that fail either
// step are logged and skipped so one bad row cannot stall a competition.
func decodeAll[T any](docs []docstore.Document, logger *logging.Logger, collection string) ([]T, []string) {
	items := make([]T, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := decodeOne(doc, &item); err != nil {
			logger.Warn("skip malformed document",
				"collection", collection,
				"id", doc.ID,
				"error", err,
			)
			continue
		}
		items = append(items, item)
		ids = append(ids, doc.ID)
	}
	return items, ids
}

func decodeOne(doc docstore.Document, target any) error {
	if err := doc.Decode(target); err != nil {
		return err
	}
	if err := documentValidator.Struct(target); err != nil {
		return fmt.Errorf("validate document %s: %w", doc.ID, err)
	}
	return nil
}
