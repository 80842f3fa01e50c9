package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"itam-api/internal/auth"
	"itam-api/internal/models"
)

// GetItem returns an item with its owner resolved. History is trimmed to the
// most recent limit entries; limit <= 0 uses the configured default.
func (s *Service) GetItem(ctx context.Context, id int64, limit int) (*models.ItemView, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("item %d", id)
		}
		return nil, classify(err)
	}

	view := &models.ItemView{Item: *item}
	view.HistoryTotal = capHistory(&view.Item, s.limit(limit))
	if item.OwnerID != nil {
		owner, err := s.store.FindUserByID(ctx, *item.OwnerID)
		switch {
		case err == nil:
			view.Owner = owner
		case !errors.Is(err, ErrNotFound):
			return nil, classify(err)
		}
	}
	return view, nil
}

// ListItems returns a page of items and the total match count.
func (s *Service) ListItems(ctx context.Context, f ItemFilter) ([]models.Item, int, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, 0, validationf("unknown kind %q", f.Kind)
	}
	f.Query = strings.TrimSpace(f.Query)
	items, total, err := s.store.ListItems(ctx, f)
	if err != nil {
		return nil, 0, classify(err)
	}
	for i := range items {
		capHistory(&items[i], s.historyLimit)
	}
	return items, total, nil
}

// Components lists the components of a computer.
func (s *Service) Components(ctx context.Context, computerID int64) ([]models.Component, error) {
	item, err := s.store.GetItem(ctx, computerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("item %d", computerID)
		}
		return nil, classify(err)
	}
	if item.Kind != models.KindComputer {
		return []models.Component{}, nil
	}
	comps, err := s.store.Components(ctx, computerID)
	if err != nil {
		return nil, classify(err)
	}
	return comps, nil
}

// ItemLogs returns the action log of an item, oldest first.
func (s *Service) ItemLogs(ctx context.Context, itemID int64) ([]models.ActionLog, error) {
	logs, err := s.store.ListLogs(ctx, models.SubjectItem, itemID)
	if err != nil {
		return nil, classify(err)
	}
	return logs, nil
}

// GetLedger returns a ledger by id.
func (s *Service) GetLedger(ctx context.Context, id int64) (*models.LedgerView, error) {
	l, err := s.store.GetLedger(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("ledger %d", id)
		}
		return nil, classify(err)
	}
	return s.ledgerView(ctx, l)
}

// LedgerForOwner returns the owner's ledger. Owners without items have none.
func (s *Service) LedgerForOwner(ctx context.Context, ownerID int64) (*models.LedgerView, error) {
	l, err := s.store.GetLedgerByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("ledger for user %d", ownerID)
		}
		return nil, classify(err)
	}
	return s.ledgerView(ctx, l)
}

// ListLedgers returns a page of ledgers and the total count.
func (s *Service) ListLedgers(ctx context.Context, p Page) ([]models.Ledger, int, error) {
	ledgers, total, err := s.store.ListLedgers(ctx, p)
	if err != nil {
		return nil, 0, classify(err)
	}
	return ledgers, total, nil
}

func (s *Service) ledgerView(ctx context.Context, l *models.Ledger) (*models.LedgerView, error) {
	view := &models.LedgerView{Ledger: *l}
	owner, err := s.store.FindUserByID(ctx, l.OwnerID)
	switch {
	case err == nil:
		view.Owner = owner
	case !errors.Is(err, ErrNotFound):
		return nil, classify(err)
	}
	return view, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("user %d", id)
		}
		return nil, classify(err)
	}
	return u, nil
}

// UserByEmail returns the login user registered under email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.store.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("user")
		}
		return nil, classify(err)
	}
	return u, nil
}

// Authenticate returns the user registered under email when password matches
// its hash. Unknown emails, users without a password and wrong passwords all
// report the same NotFound error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil || u.PasswordHash == nil || !auth.CheckPassword(*u.PasswordHash, password) {
		return nil, notFoundf("invalid credentials")
	}
	return u, nil
}

// ListUsers returns a page of users matching q.
func (s *Service) ListUsers(ctx context.Context, q string, p Page) ([]models.User, int, error) {
	users, total, err := s.store.ListUsers(ctx, strings.TrimSpace(q), p)
	if err != nil {
		return nil, 0, classify(err)
	}
	return users, total, nil
}

// CreateUser stores a user. PasswordHash, when set, must already be hashed.
func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Company = strings.TrimSpace(u.Company)
	u.Department = strings.TrimSpace(u.Department)
	if u.Name == "" {
		return validationf("name is required")
	}
	if u.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*u.Email))
		if !strings.Contains(e, "@") {
			return validationf("email is invalid")
		}
		u.Email = &e
		if _, err := s.store.FindUserByEmail(ctx, e); err == nil {
			return conflictf("email %s is already registered", e)
		}
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	u.CreatedAt = s.now()

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return appendLog(ctx, tx, models.SubjectUser, u.ID, "User Created",
			fmt.Sprintf("User %s (%s, %s) created.", u.Name, u.Company, u.Department))
	})
	return classify(err)
}

func (s *Service) limit(n int) int {
	if n <= 0 {
		return s.historyLimit
	}
	return n
}

// capHistory keeps the last n entries and returns the full length.
func capHistory(it *models.Item, n int) int {
	total := len(it.History)
	if total > n {
		it.History = append([]string(nil), it.History[total-n:]...)
	}
	if it.History == nil {
		it.History = []string{}
	}
	return total
}
