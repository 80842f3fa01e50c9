package postgres

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

const (
	userColumns = `id, name, company, department, employee_id, email, password_hash, role, created_at`

	itemColumns = `id, kind, type, date_acquired, barcode, brand, model, ram, ssd, hdd, gpu, size, color,
		serial_no, po, warranty, cost, remarks, image_ref, description, history, owner_id, is_deleted,
		created_at, modified_at`

	componentColumns = `id, computer_id, kind, description, barcode, status, owner_id, created_at`

	ledgerColumns = `l.id, l.owner_id, l.accountability_code, l.tracking_code, l.created_at`
)

// identityLockSpace keys the advisory locks FindUser takes on user identities.
const identityLockSpace = 0x1fa7

type txStore struct {
	tx pgx.Tx
}

var _ inventory.Tx = (*txStore)(nil)

func (t *txStore) get(ctx context.Context, dst any, query string, args ...any) error {
	return mapErr(pgxscan.Get(ctx, t.tx, dst, query, args...))
}

func (t *txStore) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.Exec(ctx, query, args...)
	return mapErr(err)
}

func (t *txStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := t.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *txStore) LockUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := t.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *txStore) FindUser(ctx context.Context, name, company, department string) (*models.User, error) {
	if err := t.exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext(lower($2::text) || chr(31) || lower($3::text) || chr(31) || lower($4::text)))`,
		identityLockSpace, name, company, department); err != nil {
		return nil, err
	}

	var u models.User
	err := t.get(ctx, &u, `
		SELECT `+userColumns+` FROM users
		WHERE lower(name) = lower($1) AND lower(company) = lower($2) AND lower(department) = lower($3)
		ORDER BY id
		LIMIT 1`, name, company, department)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *txStore) CreateUser(ctx context.Context, u *models.User) error {
	return t.get(ctx, u, `
		INSERT INTO users (name, company, department, employee_id, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Name, u.Company, u.Department, u.EmployeeID, u.Email, u.PasswordHash, u.Role)
}

func (t *txStore) SetEmployeeID(ctx context.Context, userID int64, employeeID string) error {
	return t.exec(ctx, `UPDATE users SET employee_id = $2 WHERE id = $1`, userID, employeeID)
}

func (t *txStore) CreateItem(ctx context.Context, it *models.Item) error {
	return t.get(ctx, it, `
		INSERT INTO items (kind, type, date_acquired, barcode, brand, model, ram, ssd, hdd, gpu, size, color,
			serial_no, po, warranty, cost, remarks, image_ref, description, history, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING `+itemColumns,
		it.Kind, it.Type, it.DateAcquired, it.Barcode, it.Brand, it.Model, it.RAM, it.SSD, it.HDD, it.GPU,
		it.Size, it.Color, it.SerialNo, it.PO, it.Warranty, it.Cost, it.Remarks, it.ImageRef, it.Description,
		historyArg(it.History), it.OwnerID)
}

func (t *txStore) LockItem(ctx context.Context, id int64) (*models.Item, error) {
	var it models.Item
	if err := t.get(ctx, &it, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *txStore) SaveItem(ctx context.Context, it *models.Item) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE items SET type = $2, date_acquired = $3, barcode = $4, brand = $5, model = $6, ram = $7,
			ssd = $8, hdd = $9, gpu = $10, size = $11, color = $12, serial_no = $13, po = $14, warranty = $15,
			cost = $16, remarks = $17, image_ref = $18, description = $19, history = $20, owner_id = $21,
			is_deleted = $22, modified_at = $23
		WHERE id = $1`,
		it.ID, it.Type, it.DateAcquired, it.Barcode, it.Brand, it.Model, it.RAM, it.SSD, it.HDD, it.GPU,
		it.Size, it.Color, it.SerialNo, it.PO, it.Warranty, it.Cost, it.Remarks, it.ImageRef, it.Description,
		historyArg(it.History), it.OwnerID, it.IsDeleted, it.ModifiedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr(pgx.ErrNoRows)
	}
	return nil
}

func (t *txStore) CreateComponent(ctx context.Context, c *models.Component) error {
	return t.get(ctx, c, `
		INSERT INTO components (computer_id, kind, description, barcode, status, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+componentColumns,
		c.ComputerID, c.Kind, c.Description, c.Barcode, c.Status, c.OwnerID)
}

func (t *txStore) ComponentsOf(ctx context.Context, computerID int64) ([]models.Component, error) {
	comps := []models.Component{}
	err := pgxscan.Select(ctx, t.tx, &comps,
		`SELECT `+componentColumns+` FROM components WHERE computer_id = $1 ORDER BY id FOR UPDATE`, computerID)
	return comps, mapErr(err)
}

func (t *txStore) SaveComponent(ctx context.Context, c *models.Component) error {
	return t.exec(ctx, `UPDATE components SET description = $2, status = $3, owner_id = $4 WHERE id = $1`,
		c.ID, c.Description, c.Status, c.OwnerID)
}

func (t *txStore) LockLedgerByOwner(ctx context.Context, ownerID int64) (*models.Ledger, error) {
	return loadLedger(ctx, t.tx, `SELECT `+ledgerColumns+` FROM ledgers l WHERE l.owner_id = $1 FOR UPDATE`, ownerID)
}

func (t *txStore) LockLedgerHolding(ctx context.Context, ref models.ItemRef) (*models.Ledger, error) {
	return loadLedger(ctx, t.tx, `
		SELECT `+ledgerColumns+`
		FROM ledgers l
		JOIN ledger_items li ON li.ledger_id = l.id
		WHERE li.item_kind = $1 AND li.item_id = $2
		FOR UPDATE OF l`, ref.Kind, ref.ID)
}

func (t *txStore) CreateLedger(ctx context.Context, l *models.Ledger) error {
	return t.get(ctx, l, `
		INSERT INTO ledgers (owner_id, accountability_code, tracking_code)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, accountability_code, tracking_code, created_at`,
		l.OwnerID, l.AccountabilityCode, l.TrackingCode)
}

func (t *txStore) DeleteLedger(ctx context.Context, id int64) error {
	return t.exec(ctx, `DELETE FROM ledgers WHERE id = $1`, id)
}

func (t *txStore) AddLedgerItem(ctx context.Context, ledgerID int64, ref models.ItemRef) error {
	return t.exec(ctx, `INSERT INTO ledger_items (ledger_id, item_kind, item_id) VALUES ($1, $2, $3)`,
		ledgerID, ref.Kind, ref.ID)
}

func (t *txStore) RemoveLedgerItem(ctx context.Context, ledgerID int64, ref models.ItemRef) error {
	return t.exec(ctx, `DELETE FROM ledger_items WHERE ledger_id = $1 AND item_kind = $2 AND item_id = $3`,
		ledgerID, ref.Kind, ref.ID)
}

func (t *txStore) NextCodeValue(ctx context.Context, kind inventory.CodeKind) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ledger_code_counters (kind, value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET value = ledger_code_counters.value + 1
		RETURNING value`, kind.String()).Scan(&n)
	return n, mapErr(err)
}

func (t *txStore) AppendLog(ctx context.Context, entry *models.ActionLog) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO action_logs (subject, subject_id, action, performed_by, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.Subject, entry.SubjectID, entry.Action, entry.PerformedBy, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// loadLedger reads one ledger row and fills its id sets from ledger_items.
func loadLedger(ctx context.Context, q pgxscan.Querier, query string, args ...any) (*models.Ledger, error) {
	var l models.Ledger
	if err := mapErr(pgxscan.Get(ctx, q, &l, query, args...)); err != nil {
		return nil, err
	}

	var members []struct {
		Kind models.ItemKind `db:"item_kind"`
		ID   int64           `db:"item_id"`
	}
	err := pgxscan.Select(ctx, q, &members,
		`SELECT item_kind, item_id FROM ledger_items WHERE ledger_id = $1 ORDER BY id`, l.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	for _, m := range members {
		l.Set(m.Kind).Add(m.ID)
	}
	return &l, nil
}

func historyArg(h []string) []string {
	if h == nil {
		return []string{}
	}
	return h
}
