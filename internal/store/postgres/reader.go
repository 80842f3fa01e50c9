package postgres

import (
	"context"
	"fmt"
	"strings"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

func (s *Store) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	var it models.Item
	if err := s.get(ctx, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context, f inventory.ItemFilter) ([]models.Item, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(f.Kind))
	}
	if f.VacantOnly {
		where = append(where, "owner_id IS NULL")
	}
	if f.OwnerID != nil {
		where = append(where, "owner_id = "+arg(*f.OwnerID))
	}
	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf(
			"(barcode ILIKE %[1]s OR type ILIKE %[1]s OR brand ILIKE %[1]s OR model ILIKE %[1]s OR serial_no ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.get(ctx, &total, `SELECT count(*) FROM items`+clause, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + itemColumns + ` FROM items` + clause + buildOrderBy(f.Sort, itemSortColumns) + limitOffset(f.Page, arg)
	items := []models.Item{}
	if err := s.selectAll(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) Components(ctx context.Context, computerID int64) ([]models.Component, error) {
	comps := []models.Component{}
	err := s.selectAll(ctx, &comps, `SELECT `+componentColumns+` FROM components WHERE computer_id = $1 ORDER BY id`, computerID)
	return comps, err
}

func (s *Store) GetLedger(ctx context.Context, id int64) (*models.Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return loadLedger(ctx, s.pool, `SELECT `+ledgerColumns+` FROM ledgers l WHERE l.id = $1`, id)
}

func (s *Store) GetLedgerByOwner(ctx context.Context, ownerID int64) (*models.Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return loadLedger(ctx, s.pool, `SELECT `+ledgerColumns+` FROM ledgers l WHERE l.owner_id = $1`, ownerID)
}

func (s *Store) ListLedgers(ctx context.Context, p inventory.Page) ([]models.Ledger, int, error) {
	var total int
	if err := s.get(ctx, &total, `SELECT count(*) FROM ledgers`); err != nil {
		return nil, 0, err
	}

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	ledgers := []models.Ledger{}
	query := `SELECT ` + ledgerColumns + ` FROM ledgers l` + buildOrderBy(p.Sort, ledgerSortColumns) + limitOffset(p, arg)
	if err := s.selectAll(ctx, &ledgers, query, args...); err != nil {
		return nil, 0, err
	}
	if len(ledgers) == 0 {
		return ledgers, total, nil
	}

	ids := make([]int64, len(ledgers))
	byID := make(map[int64]*models.Ledger, len(ledgers))
	for i := range ledgers {
		ids[i] = ledgers[i].ID
		byID[ledgers[i].ID] = &ledgers[i]
	}
	var members []struct {
		LedgerID int64           `db:"ledger_id"`
		Kind     models.ItemKind `db:"item_kind"`
		ItemID   int64           `db:"item_id"`
	}
	err := s.selectAll(ctx, &members,
		`SELECT ledger_id, item_kind, item_id FROM ledger_items WHERE ledger_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, m := range members {
		byID[m.LedgerID].Set(m.Kind).Add(m.ItemID)
	}
	return ledgers, total, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, q string, p inventory.Page) ([]models.User, int, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	clause := ""
	if q != "" {
		pat := arg("%" + q + "%")
		clause = fmt.Sprintf(" WHERE (name ILIKE %[1]s OR company ILIKE %[1]s OR department ILIKE %[1]s)", pat)
	}

	var total int
	if err := s.get(ctx, &total, `SELECT count(*) FROM users`+clause, args...); err != nil {
		return nil, 0, err
	}
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users` + clause + buildOrderBy(p.Sort, userSortColumns) + limitOffset(p, arg)
	if err := s.selectAll(ctx, &users, query, args...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) ListLogs(ctx context.Context, subject string, subjectID int64) ([]models.ActionLog, error) {
	logs := []models.ActionLog{}
	err := s.selectAll(ctx, &logs, `
		SELECT id, subject, subject_id, action, performed_by, details, created_at
		FROM action_logs WHERE subject = $1 AND subject_id = $2
		ORDER BY id`, subject, subjectID)
	return logs, err
}

func limitOffset(p inventory.Page, arg func(any) string) string {
	out := ""
	if p.Limit > 0 {
		out += " LIMIT " + arg(p.Limit)
	}
	if p.Offset > 0 {
		out += " OFFSET " + arg(p.Offset)
	}
	return out
}
