package memstore

import (
	"context"
	"sort"
	"strings"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

func (s *Store) GetItem(_ context.Context, id int64) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.st.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	it = cloneItem(it)
	return &it, nil
}

func (s *Store) ListItems(_ context.Context, f inventory.ItemFilter) ([]models.Item, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(f.Query)
	var matched []models.Item
	for _, it := range s.st.items {
		if it.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.Kind != "" && it.Kind != f.Kind {
			continue
		}
		if f.VacantOnly && it.OwnerID != nil {
			continue
		}
		if f.OwnerID != nil && !it.HasOwner(*f.OwnerID) {
			continue
		}
		if q != "" && !matchesQuery(&it, q) {
			continue
		}
		matched = append(matched, cloneItem(it))
	}

	sortItems(matched, f.Sort)
	return paginate(matched, f.Page), len(matched), nil
}

func matchesQuery(it *models.Item, q string) bool {
	for _, v := range []string{it.Barcode, it.Type, it.Brand, it.Model, it.SerialNo, it.Description} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// sortItems honours the first recognised key of a comma-separated sort
// parameter; '-' prefix means descending. Default is id ascending.
func sortItems(items []models.Item, sortParam string) {
	less := func(a, b *models.Item) bool { return a.ID < b.ID }
	desc := false
	for _, raw := range strings.Split(sortParam, ",") {
		key := strings.TrimSpace(raw)
		d := strings.HasPrefix(key, "-")
		key = strings.TrimPrefix(key, "-")
		switch key {
		case "id":
			less = func(a, b *models.Item) bool { return a.ID < b.ID }
		case "barcode":
			less = func(a, b *models.Item) bool { return a.Barcode < b.Barcode }
		case "type":
			less = func(a, b *models.Item) bool { return a.Type < b.Type }
		case "created_at":
			less = func(a, b *models.Item) bool { return a.CreatedAt.Before(b.CreatedAt) }
		default:
			continue
		}
		desc = d
		break
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(&items[j], &items[i])
		}
		return less(&items[i], &items[j])
	})
}

func paginate[T any](all []T, p inventory.Page) []T {
	if p.Offset >= len(all) {
		return []T{}
	}
	all = all[p.Offset:]
	if p.Limit > 0 && p.Limit < len(all) {
		all = all[:p.Limit]
	}
	return all
}

func (s *Store) Components(_ context.Context, computerID int64) ([]models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return componentsOf(s.st, computerID), nil
}

func (s *Store) GetLedger(_ context.Context, id int64) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.st.ledgers[id]
	if !ok {
		return nil, notFound("ledger", id)
	}
	return l.Clone(), nil
}

func (s *Store) GetLedgerByOwner(_ context.Context, ownerID int64) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledgerByOwner(s.st, ownerID)
}

func (s *Store) ListLedgers(_ context.Context, p inventory.Page) ([]models.Ledger, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.Ledger, 0, len(s.st.ledgers))
	for _, id := range sortedLedgerIDs(s.st) {
		l := s.st.ledgers[id]
		all = append(all, *l.Clone())
	}
	return paginate(all, p), len(all), nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (s *Store) ListUsers(_ context.Context, q string, p inventory.Page) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = strings.ToLower(q)
	var all []models.User
	for _, u := range s.st.users {
		if q != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Company+" "+u.Department), q) {
			continue
		}
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, p), len(all), nil
}

func (s *Store) ListLogs(_ context.Context, subject string, subjectID int64) ([]models.ActionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ActionLog{}
	for _, l := range s.st.logs {
		if l.Subject == subject && l.SubjectID == subjectID {
			out = append(out, l)
		}
	}
	return out, nil
}
