package migrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"itam-api/internal/models"
)

// legacyIDs maps ids of the legacy tables to rows created from them. Legacy
// assets and computers lived in separate tables whose ids overlap, so items
// are mapped per kind. A nil map means the legacy table was absent and ids
// are taken as they are.
type legacyIDs struct {
	users map[int64]int64
	items map[models.ItemKind]map[int64]int64
}

func (m legacyIDs) user(id int64) (int64, bool) {
	if m.users == nil {
		return id, true
	}
	n, ok := m.users[id]
	return n, ok
}

func (m legacyIDs) item(kind models.ItemKind, id int64) (int64, bool) {
	ids := m.items[kind]
	if ids == nil {
		return id, true
	}
	n, ok := ids[id]
	return n, ok
}

func tableExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var reg sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, name).Scan(&reg); err != nil {
		return false, fmt.Errorf("look up table %s: %w", name, err)
	}
	return reg.Valid, nil
}

// importLegacyRecords copies the legacy "Users", "Assets" and computers
// tables, when present, into users and items. Component rows follow their
// computer by barcode. Rows get fresh ids; the returned maps translate the
// legacy ones.
func importLegacyRecords(ctx context.Context, tx *sql.Tx) (legacyIDs, error) {
	var ids legacyIDs

	ok, err := tableExists(ctx, tx, `"Users"`)
	if err != nil {
		return ids, err
	}
	if ok {
		if ids.users, err = importLegacyUsers(ctx, tx); err != nil {
			return ids, err
		}
	}

	ids.items = map[models.ItemKind]map[int64]int64{}
	computersByBarcode := map[string]int64{}
	for _, src := range []struct {
		table string
		kind  models.ItemKind
	}{
		{`"Assets"`, models.KindAsset},
		{`computers`, models.KindComputer},
	} {
		ok, err := tableExists(ctx, tx, src.table)
		if err != nil {
			return ids, err
		}
		if !ok {
			continue
		}
		items, err := readLegacyItems(ctx, tx, src.table)
		if err != nil {
			return ids, err
		}
		mapped := make(map[int64]int64, len(items))
		for _, it := range items {
			id, err := insertLegacyItem(ctx, tx, src.kind, it, ids)
			if err != nil {
				return ids, err
			}
			mapped[it.id] = id
			if src.kind == models.KindComputer && !it.deleted && it.barcode != "" {
				computersByBarcode[it.barcode] = id
			}
		}
		ids.items[src.kind] = mapped
	}

	ok, err = tableExists(ctx, tx, `computer_components`)
	if err != nil {
		return ids, err
	}
	if ok && len(computersByBarcode) > 0 {
		if err := importLegacyComponents(ctx, tx, computersByBarcode, ids); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

type legacyUser struct {
	id         int64
	name       string
	company    string
	department string
	employeeID sql.NullString
	created    sql.NullTime
}

func importLegacyUsers(ctx context.Context, tx *sql.Tx) (map[int64]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(company, ''), COALESCE(department, ''),
		       NULLIF(employee_id, ''), date_created
		FROM "Users"
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy users: %w", err)
	}
	var users []legacyUser
	for rows.Next() {
		var u legacyUser
		if err := rows.Scan(&u.id, &u.name, &u.company, &u.department, &u.employeeID, &u.created); err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mapped := make(map[int64]int64, len(users))
	for _, u := range users {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (name, company, department, employee_id, created_at)
			VALUES ($1, $2, $3, $4, COALESCE($5, now()))
			RETURNING id`,
			strings.TrimSpace(u.name), strings.TrimSpace(u.company), strings.TrimSpace(u.department),
			u.employeeID, u.created).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("import legacy user %d: %w", u.id, err)
		}
		mapped[u.id] = id
	}
	return mapped, nil
}

type legacyItem struct {
	id          int64
	fields      [14]string
	barcode     string
	cost        string
	history     string
	image       sql.NullString
	ownerID     sql.NullInt64
	deleted     bool
	created     sql.NullTime
	modified    sql.NullTime
	description string
}

func readLegacyItems(ctx context.Context, tx *sql.Tx, table string) ([]legacyItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, COALESCE(type, ''), COALESCE(date_acquired, ''), COALESCE(brand, ''), COALESCE(model, ''),
		       COALESCE(ram, ''), COALESCE(ssd, ''), COALESCE(hdd, ''), COALESCE(gpu, ''), COALESCE(size, ''),
		       COALESCE(color, ''), COALESCE(serial_no, ''), COALESCE(po, ''), COALESCE(warranty, ''),
		       COALESCE(remarks, ''),
		       COALESCE(asset_barcode, ''), COALESCE(cost::text, '0'), COALESCE(history, ''),
		       NULLIF(asset_image, ''), owner_id, COALESCE(is_deleted, false), date_created, date_modified,
		       COALESCE(li_description, '')
		FROM `+table+`
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy %s: %w", table, err)
	}
	defer rows.Close()

	var out []legacyItem
	for rows.Next() {
		var it legacyItem
		dst := []any{&it.id}
		for i := range it.fields {
			dst = append(dst, &it.fields[i])
		}
		dst = append(dst, &it.barcode, &it.cost, &it.history, &it.image, &it.ownerID, &it.deleted,
			&it.created, &it.modified, &it.description)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// legacyHistory decodes the legacy history column, which holds a JSON array
// of entries. Anything else is kept as a single entry.
func legacyHistory(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err == nil {
		return entries
	}
	return []string{raw}
}

func insertLegacyItem(ctx context.Context, tx *sql.Tx, kind models.ItemKind, it legacyItem, ids legacyIDs) (int64, error) {
	var owner *int64
	if it.ownerID.Valid {
		if id, ok := ids.user(it.ownerID.Int64); ok {
			owner = &id
		}
	}
	f := it.fields
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO items (kind, type, date_acquired, brand, model, ram, ssd, hdd, gpu, size, color,
			serial_no, po, warranty, remarks, barcode, cost, history, image_ref, owner_id, is_deleted,
			created_at, modified_at, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17::numeric, $18,
			$19, (SELECT id FROM users WHERE id = $20), $21, COALESCE($22, now()), $23, $24)
		RETURNING id`,
		string(kind), f[0], f[1], f[2], f[3], f[4], f[5], f[6], f[7], f[8], f[9], f[10], f[11], f[12], f[13],
		it.barcode, it.cost, pq.Array(legacyHistory(it.history)), it.image, owner, it.deleted,
		it.created, it.modified, it.description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("import legacy %s %d: %w", kind, it.id, err)
	}
	return id, nil
}

type legacyComponent struct {
	kind        string
	description string
	barcode     string
	status      string
	ownerID     sql.NullInt64
}

// importLegacyComponents attaches legacy computer_components rows to the
// computer carrying the same barcode. Rows with a kind or status outside the
// current vocabulary are skipped.
func importLegacyComponents(ctx context.Context, tx *sql.Tx, computers map[string]int64, ids legacyIDs) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT COALESCE(type, ''), COALESCE(description, ''), COALESCE(asset_barcode, ''),
		       COALESCE(status, ''), owner_id
		FROM computer_components
		ORDER BY id`)
	if err != nil {
		return fmt.Errorf("read legacy components: %w", err)
	}
	var comps []legacyComponent
	for rows.Next() {
		var c legacyComponent
		if err := rows.Scan(&c.kind, &c.description, &c.barcode, &c.status, &c.ownerID); err != nil {
			rows.Close()
			return err
		}
		comps = append(comps, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range comps {
		computerID, ok := computers[c.barcode]
		if !ok || !legacyComponentKind(c.kind) || !legacyComponentStatus(c.status) {
			continue
		}
		var owner *int64
		if c.ownerID.Valid {
			if id, ok := ids.user(c.ownerID.Int64); ok {
				owner = &id
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO components (computer_id, kind, description, barcode, status, owner_id)
			VALUES ($1, $2, $3, $4, $5, (SELECT id FROM users WHERE id = $6))`,
			computerID, strings.ToUpper(c.kind), c.description, c.barcode, c.status, owner); err != nil {
			return fmt.Errorf("import legacy component of %s: %w", c.barcode, err)
		}
	}
	return nil
}

func legacyComponentKind(k string) bool {
	switch models.ComponentKind(strings.ToUpper(k)) {
	case models.ComponentRAM, models.ComponentSSD, models.ComponentHDD, models.ComponentGPU:
		return true
	}
	return false
}

func legacyComponentStatus(s string) bool {
	switch models.ComponentStatus(s) {
	case models.StatusNew, models.StatusAvailable, models.StatusReleased:
		return true
	}
	return false
}
