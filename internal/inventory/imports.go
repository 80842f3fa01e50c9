package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"itam-api/internal/models"
)

// ImportRow is one spreadsheet row already split into fields.
type ImportRow struct {
	Line   int                 `json:"line"`
	Owner  models.UserIdentity `json:"owner"`
	Fields models.ItemFields   `json:"fields"`
}

// RowError reports a row that was not imported.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarises an ImportBatch call.
type ImportResult struct {
	BatchID string           `json:"batch_id"`
	Created []models.ItemRef `json:"created"`
	Errors  []RowError       `json:"errors"`
}

// Import outcomes reported to the Recorder.
const (
	ImportCreated  = "created"
	ImportRejected = "rejected"
	ImportFailed   = "failed"
)

// ImportBatch imports each row in its own transaction. Rows failing
// validation or lookups are reported and skipped. A persistence failure stops
// the batch; rows committed before it stay committed.
func (s *Service) ImportBatch(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	res := &ImportResult{BatchID: uuid.NewString(), Created: []models.ItemRef{}, Errors: []RowError{}}
	ctx = WithActor(ctx, ActorFrom(ctx)+" (import "+res.BatchID+")")

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		fields, err := normalizeFields(row.Fields)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: row.Line, Message: err.Error()})
			s.recorder.ImportRow(ImportRejected)
			continue
		}

		var item *models.Item
		err = s.store.WithTx(ctx, func(tx Tx) error {
			var ownerID *int64
			if !row.Owner.Blank() {
				u, err := s.findOrCreateUser(ctx, tx, row.Owner)
				if err != nil {
					return err
				}
				ownerID = &u.ID
			}
			var err error
			item, err = s.createItemTx(ctx, tx, fields, ownerID)
			return err
		})
		if err != nil {
			err = classify(err)
			if errors.Is(err, ErrPersistence) {
				s.recorder.ImportRow(ImportFailed)
				s.log.Error().Err(err).Str("batch_id", res.BatchID).Int("line", row.Line).Msg("import aborted")
				return res, err
			}
			res.Errors = append(res.Errors, RowError{Line: row.Line, Message: err.Error()})
			s.recorder.ImportRow(ImportRejected)
			continue
		}

		res.Created = append(res.Created, item.Ref())
		s.recorder.ImportRow(ImportCreated)
	}

	s.log.Info().Str("batch_id", res.BatchID).Int("created", len(res.Created)).
		Int("rejected", len(res.Errors)).Msg("import batch finished")
	return res, nil
}
