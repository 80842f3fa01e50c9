package inventory

import (
	"context"
	"io"

	"itam-api/internal/models"
)

// Store is the persistence boundary. Implementations return ErrNotFound
// (possibly wrapped) for missing rows.
type Store interface {
	Reader
	// WithTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes and locking reads available inside a transaction.
type Tx interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// LockUser takes a row lock on the user. Ledger creation for an owner is
	// serialised on it.
	LockUser(ctx context.Context, id int64) (*models.User, error)
	// FindUser matches the identity case-insensitively. It serialises
	// concurrent callers on that identity until the transaction ends, so a
	// find followed by CreateUser cannot race another transaction.
	FindUser(ctx context.Context, name, company, department string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	SetEmployeeID(ctx context.Context, userID int64, employeeID string) error

	CreateItem(ctx context.Context, it *models.Item) error
	LockItem(ctx context.Context, id int64) (*models.Item, error)
	SaveItem(ctx context.Context, it *models.Item) error

	CreateComponent(ctx context.Context, c *models.Component) error
	ComponentsOf(ctx context.Context, computerID int64) ([]models.Component, error)
	SaveComponent(ctx context.Context, c *models.Component) error

	// LockLedgerByOwner returns the owner's ledger with its id sets loaded.
	LockLedgerByOwner(ctx context.Context, ownerID int64) (*models.Ledger, error)
	// LockLedgerHolding returns the ledger whose set contains ref.
	LockLedgerHolding(ctx context.Context, ref models.ItemRef) (*models.Ledger, error)
	CreateLedger(ctx context.Context, l *models.Ledger) error
	DeleteLedger(ctx context.Context, id int64) error
	AddLedgerItem(ctx context.Context, ledgerID int64, ref models.ItemRef) error
	RemoveLedgerItem(ctx context.Context, ledgerID int64, ref models.ItemRef) error

	// NextCodeValue atomically increments and returns the counter for kind.
	NextCodeValue(ctx context.Context, kind CodeKind) (int, error)

	AppendLog(ctx context.Context, entry *models.ActionLog) error
}

// Reader serves the non-locking reads.
type Reader interface {
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context, f ItemFilter) ([]models.Item, int, error)
	Components(ctx context.Context, computerID int64) ([]models.Component, error)

	GetLedger(ctx context.Context, id int64) (*models.Ledger, error)
	GetLedgerByOwner(ctx context.Context, ownerID int64) (*models.Ledger, error)
	ListLedgers(ctx context.Context, p Page) ([]models.Ledger, int, error)

	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, q string, p Page) ([]models.User, int, error)

	ListLogs(ctx context.Context, subject string, subjectID int64) ([]models.ActionLog, error)
}

// Page is a limit/offset window with an optional whitelisted sort.
type Page struct {
	Limit  int
	Offset int
	Sort   string
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Page
	Kind           models.ItemKind
	OwnerID        *int64
	VacantOnly     bool
	Query          string
	IncludeDeleted bool
}

// Recorder receives domain counters. The HTTP layer backs it with Prometheus.
type Recorder interface {
	LedgerOp(op string)
	OwnershipTransferred(kind models.ItemKind)
	ImportRow(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LedgerOp(string)                      {}
func (nopRecorder) OwnershipTransferred(models.ItemKind) {}
func (nopRecorder) ImportRow(string)                     {}

// ImageStore keeps item photographs. Items only hold the returned reference.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
