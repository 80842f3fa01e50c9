package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

func init() {
	goose.AddMigrationContext(upImportLegacyLedgers, downImportLegacyLedgers)
}

type legacyLedger struct {
	ownerID     int64
	acid        string
	trid        string
	assetIDs    string
	computerIDs string
}

// upImportLegacyLedgers first copies legacy users, assets and computers into
// users and items, then copies a legacy user_accountability_lists table, when
// present, into ledgers and ledger_items. Its comma-joined id columns are
// parsed leniently; ids that do not resolve to a live item of the right kind
// are dropped, and ledgers left with no items are not created. The code
// counters are then seeded past every code ever issued, so new codes never
// collide with legacy ones.
func upImportLegacyLedgers(ctx context.Context, tx *sql.Tx) error {
	ids, err := importLegacyRecords(ctx, tx)
	if err != nil {
		return err
	}

	hasLedgers, err := tableExists(ctx, tx, "user_accountability_lists")
	if err != nil {
		return err
	}

	codes := map[inventory.CodeKind][]string{}
	if hasLedgers {
		legacy, err := readLegacyLedgers(ctx, tx)
		if err != nil {
			return err
		}
		for _, l := range legacy {
			codes[inventory.AccountabilityCode] = append(codes[inventory.AccountabilityCode], l.acid)
			codes[inventory.TrackingCode] = append(codes[inventory.TrackingCode], l.trid)
			if err := importLegacyLedger(ctx, tx, l, ids); err != nil {
				return err
			}
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT accountability_code, tracking_code FROM ledgers`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var acid, trid string
		if err := rows.Scan(&acid, &trid); err != nil {
			return err
		}
		codes[inventory.AccountabilityCode] = append(codes[inventory.AccountabilityCode], acid)
		codes[inventory.TrackingCode] = append(codes[inventory.TrackingCode], trid)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, kind := range inventory.CodeKinds {
		highest := inventory.HighestCodeNumber(codes[kind])
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_code_counters (kind, value) VALUES ($1, $2)
			ON CONFLICT (kind) DO UPDATE SET value = GREATEST(ledger_code_counters.value, EXCLUDED.value)`,
			kind.String(), highest); err != nil {
			return fmt.Errorf("seed %s counter: %w", kind, err)
		}
	}
	return nil
}

// downImportLegacyLedgers keeps the imported rows; the legacy tables are left
// untouched by up, so there is nothing to restore.
func downImportLegacyLedgers(context.Context, *sql.Tx) error {
	return nil
}

func readLegacyLedgers(ctx context.Context, tx *sql.Tx) ([]legacyLedger, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT owner_id, COALESCE(accountability_code, ''), COALESCE(tracking_code, ''),
		       COALESCE(asset_ids, ''), COALESCE(computer_ids, '')
		FROM user_accountability_lists
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy ledgers: %w", err)
	}
	defer rows.Close()

	var out []legacyLedger
	for rows.Next() {
		var l legacyLedger
		if err := rows.Scan(&l.ownerID, &l.acid, &l.trid, &l.assetIDs, &l.computerIDs); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func importLegacyLedger(ctx context.Context, tx *sql.Tx, l legacyLedger, ids legacyIDs) error {
	ownerID, ok := ids.user(l.ownerID)
	if !ok {
		return nil
	}

	var refs []models.ItemRef
	for _, set := range []struct {
		kind models.ItemKind
		ids  models.IDSet
	}{
		{models.KindAsset, models.ParseIDSet(l.assetIDs)},
		{models.KindComputer, models.ParseIDSet(l.computerIDs)},
	} {
		for _, legacyID := range set.ids {
			id, ok := ids.item(set.kind, legacyID)
			if !ok {
				continue
			}
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM items WHERE id = $1 AND kind = $2 AND NOT is_deleted)`,
				id, string(set.kind)).Scan(&ok)
			if err != nil {
				return err
			}
			if ok {
				refs = append(refs, models.ItemRef{Kind: set.kind, ID: id})
			}
		}
	}
	if len(refs) == 0 {
		return nil
	}

	var ledgerID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO ledgers (owner_id, accountability_code, tracking_code)
		SELECT $1, $2, $3 WHERE EXISTS (SELECT 1 FROM users WHERE id = $1)
		ON CONFLICT DO NOTHING
		RETURNING id`, ownerID, l.acid, l.trid).Scan(&ledgerID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("import legacy ledger %s: %w", l.acid, err)
	}

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_items (ledger_id, item_kind, item_id) VALUES ($1, $2, $3)
			ON CONFLICT (item_kind, item_id) DO NOTHING`,
			ledgerID, string(ref.Kind), ref.ID); err != nil {
			return fmt.Errorf("import legacy ledger item %d: %w", ref.ID, err)
		}
	}
	return nil
}
