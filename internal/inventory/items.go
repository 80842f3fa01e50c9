package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"itam-api/internal/models"
)

// DefaultRole is given to users created implicitly as item owners.
const DefaultRole = "viewer"

var allowedImageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

// CreateItem stores a new item. Without an owner it is a vacant item and no
// ledger is touched.
func (s *Service) CreateItem(ctx context.Context, fields models.ItemFields, ownerID *int64) (*models.Item, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	if ownerID != nil && *ownerID <= 0 {
		return nil, validationf("owner_id must be positive")
	}

	var item *models.Item
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		item, err = s.createItemTx(ctx, tx, fields, ownerID)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return item, nil
}

// CreateItemFor stores a new item owned by the user matching owner, creating
// that user when no match exists. A blank owner creates a vacant item.
func (s *Service) CreateItemFor(ctx context.Context, fields models.ItemFields, owner models.UserIdentity) (*models.Item, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	var item *models.Item
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var ownerID *int64
		if !owner.Blank() {
			u, err := s.findOrCreateUser(ctx, tx, owner)
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
		return nil, classify(err)
	}
	return item, nil
}

func (s *Service) createItemTx(ctx context.Context, tx Tx, fields models.ItemFields, ownerID *int64) (*models.Item, error) {
	if ownerID != nil {
		if _, err := tx.GetUser(ctx, *ownerID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, notFoundf("owner %d", *ownerID)
			}
			return nil, err
		}
	}

	item := &models.Item{
		Kind:        s.classifier.Classify(fields.Type),
		ItemFields:  fields,
		Description: fields.Description(),
		History:     []string{},
		OwnerID:     copyID(ownerID),
		CreatedAt:   s.now(),
	}
	if err := tx.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if item.Kind == models.KindComputer {
		if _, err := s.components.OnCreate(ctx, tx, item); err != nil {
			return nil, err
		}
	}

	if ownerID != nil {
		l, err := s.ledgers.EnsureLedger(ctx, tx, *ownerID)
		if err != nil {
			return nil, err
		}
		if err := s.ledgers.AddItem(ctx, tx, l, item.Ref()); err != nil {
			return nil, err
		}
	}

	details := fmt.Sprintf("%s created with barcode %s.", item.Kind, item.Barcode)
	if ownerID == nil {
		details = fmt.Sprintf("Vacant %s created with barcode %s.", item.Kind, item.Barcode)
	}
	if err := appendLog(ctx, tx, models.SubjectItem, item.ID, "Created", details); err != nil {
		return nil, err
	}
	return item, nil
}

// AssignOwner makes ownerID accountable for the item. Assigning the current
// owner again changes nothing.
func (s *Service) AssignOwner(ctx context.Context, itemID, ownerID int64) (*models.Item, error) {
	return s.assign(ctx, itemID, ownerID, false)
}

// ClaimVacant assigns a vacant item. It fails with ErrNotFound when the item
// already has an owner.
func (s *Service) ClaimVacant(ctx context.Context, itemID, ownerID int64) (*models.Item, error) {
	return s.assign(ctx, itemID, ownerID, true)
}

func (s *Service) assign(ctx context.Context, itemID, ownerID int64, vacantOnly bool) (*models.Item, error) {
	if ownerID <= 0 {
		return nil, validationf("owner_id must be positive")
	}

	var item *models.Item
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		item, err = lockLiveItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if vacantOnly && !item.Vacant() {
			return notFoundf("vacant item %d", itemID)
		}

		changed, err := s.transfers.Transfer(ctx, tx, item, ownerID)
		if err != nil || !changed {
			return err
		}
		return s.saveUpdated(ctx, tx, item)
	})
	if err != nil {
		return nil, classify(err)
	}
	return item, nil
}

// UpdateItem overwrites the item's descriptive fields and, when newOwnerID
// is set and differs from the current owner, transfers it. The kind chosen
// at creation is kept.
func (s *Service) UpdateItem(ctx context.Context, itemID int64, fields models.ItemFields, newOwnerID *int64) (*models.Item, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	if newOwnerID != nil && *newOwnerID <= 0 {
		return nil, validationf("owner_id must be positive")
	}

	var item *models.Item
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		item, err = lockLiveItem(ctx, tx, itemID)
		if err != nil {
			return err
		}

		if newOwnerID != nil {
			if _, err := s.transfers.Transfer(ctx, tx, item, *newOwnerID); err != nil {
				return err
			}
		}

		if fields.ImageRef == nil {
			fields.ImageRef = item.ImageRef
		}
		item.ItemFields = fields
		item.Description = fields.Description()
		if err := s.saveUpdated(ctx, tx, item); err != nil {
			return err
		}
		return appendLog(ctx, tx, models.SubjectItem, item.ID, "Updated",
			fmt.Sprintf("%s %d fields updated.", item.Kind, item.ID))
	})
	if err != nil {
		return nil, classify(err)
	}
	return item, nil
}

// DeleteItem soft-deletes the item.
func (s *Service) DeleteItem(ctx context.Context, itemID int64) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		_, err := s.deleter.Delete(ctx, tx, itemID)
		return err
	})
	return classify(err)
}

// AttachImage stores a photograph and records its reference on the item.
func (s *Service) AttachImage(ctx context.Context, itemID int64, filename string, r io.Reader) (*models.Item, error) {
	if s.images == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", ErrPersistence)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return nil, validationf("unsupported image type %q", ext)
	}
	if _, err := s.GetItem(ctx, itemID, 0); err != nil {
		return nil, err
	}

	ref, err := s.images.Save(ctx, filename, r)
	if err != nil {
		return nil, classify(err)
	}

	var item *models.Item
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		item, err = lockLiveItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		item.ImageRef = &ref
		return s.saveUpdated(ctx, tx, item)
	})
	if err != nil {
		return nil, classify(err)
	}
	return item, nil
}

// OpenImage returns the stored photograph of an item.
func (s *Service) OpenImage(ctx context.Context, itemID int64) (io.ReadCloser, string, error) {
	if s.images == nil {
		return nil, "", fmt.Errorf("%w: image storage is not configured", ErrPersistence)
	}
	view, err := s.GetItem(ctx, itemID, 0)
	if err != nil {
		return nil, "", err
	}
	if view.ImageRef == nil || *view.ImageRef == "" {
		return nil, "", notFoundf("image of item %d", itemID)
	}
	rc, err := s.images.Open(ctx, *view.ImageRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", notFoundf("image of item %d", itemID)
		}
		return nil, "", classify(err)
	}
	return rc, *view.ImageRef, nil
}

func (s *Service) saveUpdated(ctx context.Context, tx Tx, item *models.Item) error {
	now := s.now()
	item.ModifiedAt = &now
	if err := tx.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("save item %d: %w", item.ID, err)
	}
	if item.Kind == models.KindComputer {
		return s.components.OnUpdate(ctx, tx, item)
	}
	return nil
}

func (s *Service) findOrCreateUser(ctx context.Context, tx Tx, id models.UserIdentity) (*models.User, error) {
	id.Name = strings.TrimSpace(id.Name)
	id.Company = strings.TrimSpace(id.Company)
	id.Department = strings.TrimSpace(id.Department)
	id.EmployeeID = strings.TrimSpace(id.EmployeeID)

	u, err := tx.FindUser(ctx, id.Name, id.Company, id.Department)
	switch {
	case err == nil:
		if id.EmployeeID != "" && (u.EmployeeID == nil || *u.EmployeeID != id.EmployeeID) {
			if err := tx.SetEmployeeID(ctx, u.ID, id.EmployeeID); err != nil {
				return nil, fmt.Errorf("update employee id of user %d: %w", u.ID, err)
			}
			u.EmployeeID = &id.EmployeeID
			if err := appendLog(ctx, tx, models.SubjectUser, u.ID, "Employee ID Updated",
				fmt.Sprintf("Employee ID set to %s.", id.EmployeeID)); err != nil {
				return nil, err
			}
		}
		return u, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	u = &models.User{Name: id.Name, Company: id.Company, Department: id.Department, Role: DefaultRole, CreatedAt: s.now()}
	if id.EmployeeID != "" {
		u.EmployeeID = &id.EmployeeID
	}
	if err := tx.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := appendLog(ctx, tx, models.SubjectUser, u.ID, "User Created",
		fmt.Sprintf("User %s (%s, %s) created.", u.Name, u.Company, u.Department)); err != nil {
		return nil, err
	}
	return u, nil
}

func lockLiveItem(ctx context.Context, tx Tx, itemID int64) (*models.Item, error) {
	item, err := tx.LockItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("item %d", itemID)
		}
		return nil, err
	}
	if item.IsDeleted {
		return nil, conflictf("item %d is deleted", itemID)
	}
	return item, nil
}

func normalizeFields(f models.ItemFields) (models.ItemFields, error) {
	for _, p := range []*string{&f.Type, &f.DateAcquired, &f.Barcode, &f.Brand, &f.Model, &f.RAM, &f.SSD,
		&f.HDD, &f.GPU, &f.Size, &f.Color, &f.SerialNo, &f.PO, &f.Warranty, &f.Remarks} {
		*p = strings.TrimSpace(*p)
	}
	if f.Type == "" {
		return f, validationf("type is required")
	}
	if f.Barcode == "" {
		return f, validationf("barcode is required")
	}
	if f.Cost.IsNegative() {
		return f, validationf("cost must not be negative")
	}
	return f, nil
}
