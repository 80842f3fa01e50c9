// Package memstore is an in-process inventory.Store. Transactions are
// serialised under one mutex and roll back by restoring a snapshot, so it
// honours the same atomicity the Postgres store gives.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

// Store keeps everything in maps.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	users      map[int64]models.User
	items      map[int64]models.Item
	components map[int64]models.Component
	ledgers    map[int64]models.Ledger
	counters   map[inventory.CodeKind]int
	logs       []models.ActionLog
	seq        map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		users:      map[int64]models.User{},
		items:      map[int64]models.Item{},
		components: map[int64]models.Component{},
		ledgers:    map[int64]models.Ledger{},
		counters:   map[inventory.CodeKind]int{},
		seq:        map[string]int64{},
	}}
}

var _ inventory.Store = (*Store)(nil)

// WithTx runs fn with exclusive access and discards its writes when fn
// returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
	}()
	if err := fn(&txn{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// SeedCounter sets the current value of a code counter, as the legacy
// migration does for Postgres.
func (s *Store) SeedCounter(kind inventory.CodeKind, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.counters[kind] = value
}

func (st *state) next(name string) int64 {
	st.seq[name]++
	return st.seq[name]
}

func (st *state) clone() *state {
	c := &state{
		users:      make(map[int64]models.User, len(st.users)),
		items:      make(map[int64]models.Item, len(st.items)),
		components: make(map[int64]models.Component, len(st.components)),
		ledgers:    make(map[int64]models.Ledger, len(st.ledgers)),
		counters:   make(map[inventory.CodeKind]int, len(st.counters)),
		logs:       append([]models.ActionLog(nil), st.logs...),
		seq:        make(map[string]int64, len(st.seq)),
	}
	for k, v := range st.users {
		c.users[k] = cloneUser(v)
	}
	for k, v := range st.items {
		c.items[k] = cloneItem(v)
	}
	for k, v := range st.components {
		c.components[k] = cloneComponent(v)
	}
	for k, v := range st.ledgers {
		c.ledgers[k] = *v.Clone()
	}
	for k, v := range st.counters {
		c.counters[k] = v
	}
	for k, v := range st.seq {
		c.seq[k] = v
	}
	return c
}

func cloneUser(u models.User) models.User {
	u.EmployeeID = cloneStr(u.EmployeeID)
	u.Email = cloneStr(u.Email)
	u.PasswordHash = cloneStr(u.PasswordHash)
	return u
}

func cloneItem(it models.Item) models.Item {
	it.History = append([]string{}, it.History...)
	it.OwnerID = cloneID(it.OwnerID)
	it.ImageRef = cloneStr(it.ImageRef)
	if it.ModifiedAt != nil {
		t := *it.ModifiedAt
		it.ModifiedAt = &t
	}
	return it
}

func cloneComponent(c models.Component) models.Component {
	c.OwnerID = cloneID(c.OwnerID)
	return c
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, inventory.ErrNotFound)
}

// txn implements inventory.Tx over the live state. Locks are implicit: the
// store mutex is held for the whole transaction.
type txn struct {
	st *state
}

func (t *txn) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	u = cloneUser(u)
	return &u, nil
}

func (t *txn) LockUser(ctx context.Context, id int64) (*models.User, error) {
	return t.GetUser(ctx, id)
}

func (t *txn) FindUser(_ context.Context, name, company, department string) (*models.User, error) {
	ids := make([]int64, 0, len(t.st.users))
	for id := range t.st.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		u := t.st.users[id]
		if strings.EqualFold(u.Name, name) && strings.EqualFold(u.Company, company) &&
			strings.EqualFold(u.Department, department) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, notFound("user", name)
}

func (t *txn) CreateUser(_ context.Context, u *models.User) error {
	if u.Email != nil {
		for _, other := range t.st.users {
			if other.Email != nil && strings.EqualFold(*other.Email, *u.Email) {
				return fmt.Errorf("email %s already registered", *u.Email)
			}
		}
	}
	u.ID = t.st.next("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	t.st.users[u.ID] = cloneUser(*u)
	return nil
}

func (t *txn) SetEmployeeID(_ context.Context, userID int64, employeeID string) error {
	u, ok := t.st.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	u.EmployeeID = &employeeID
	t.st.users[userID] = u
	return nil
}

func (t *txn) CreateItem(_ context.Context, it *models.Item) error {
	if !it.Kind.Valid() {
		return fmt.Errorf("invalid item kind %q", it.Kind)
	}
	it.ID = t.st.next("items")
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if it.History == nil {
		it.History = []string{}
	}
	t.st.items[it.ID] = cloneItem(*it)
	return nil
}

func (t *txn) LockItem(_ context.Context, id int64) (*models.Item, error) {
	it, ok := t.st.items[id]
	if !ok {
		return nil, notFound("item", id)
	}
	it = cloneItem(it)
	return &it, nil
}

func (t *txn) SaveItem(_ context.Context, it *models.Item) error {
	if _, ok := t.st.items[it.ID]; !ok {
		return notFound("item", it.ID)
	}
	t.st.items[it.ID] = cloneItem(*it)
	return nil
}

func (t *txn) CreateComponent(_ context.Context, c *models.Component) error {
	parent, ok := t.st.items[c.ComputerID]
	if !ok || parent.Kind != models.KindComputer {
		return fmt.Errorf("component parent %d is not a computer", c.ComputerID)
	}
	c.ID = t.st.next("components")
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	t.st.components[c.ID] = cloneComponent(*c)
	return nil
}

func (t *txn) ComponentsOf(_ context.Context, computerID int64) ([]models.Component, error) {
	return componentsOf(t.st, computerID), nil
}

func (t *txn) SaveComponent(_ context.Context, c *models.Component) error {
	if _, ok := t.st.components[c.ID]; !ok {
		return notFound("component", c.ID)
	}
	t.st.components[c.ID] = cloneComponent(*c)
	return nil
}

func (t *txn) LockLedgerByOwner(_ context.Context, ownerID int64) (*models.Ledger, error) {
	return ledgerByOwner(t.st, ownerID)
}

func (t *txn) LockLedgerHolding(_ context.Context, ref models.ItemRef) (*models.Ledger, error) {
	for _, id := range sortedLedgerIDs(t.st) {
		l := t.st.ledgers[id]
		if l.Contains(ref) {
			return l.Clone(), nil
		}
	}
	return nil, notFound("ledger holding item", ref.ID)
}

func (t *txn) CreateLedger(_ context.Context, l *models.Ledger) error {
	for _, other := range t.st.ledgers {
		if other.OwnerID == l.OwnerID {
			return fmt.Errorf("owner %d already has ledger %d", l.OwnerID, other.ID)
		}
		if other.AccountabilityCode == l.AccountabilityCode || other.TrackingCode == l.TrackingCode {
			return fmt.Errorf("duplicate ledger code %s/%s", l.AccountabilityCode, l.TrackingCode)
		}
	}
	l.ID = t.st.next("ledgers")
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	t.st.ledgers[l.ID] = *l.Clone()
	return nil
}

func (t *txn) DeleteLedger(_ context.Context, id int64) error {
	if _, ok := t.st.ledgers[id]; !ok {
		return notFound("ledger", id)
	}
	delete(t.st.ledgers, id)
	return nil
}

func (t *txn) AddLedgerItem(_ context.Context, ledgerID int64, ref models.ItemRef) error {
	l, ok := t.st.ledgers[ledgerID]
	if !ok {
		return notFound("ledger", ledgerID)
	}
	for id, other := range t.st.ledgers {
		if id != ledgerID && other.Contains(ref) {
			return fmt.Errorf("%s %d already recorded in ledger %d", ref.Kind, ref.ID, id)
		}
	}
	if _, ok := t.st.items[ref.ID]; !ok {
		return notFound("item", ref.ID)
	}
	l = *l.Clone()
	l.Set(ref.Kind).Add(ref.ID)
	t.st.ledgers[ledgerID] = l
	return nil
}

func (t *txn) RemoveLedgerItem(_ context.Context, ledgerID int64, ref models.ItemRef) error {
	l, ok := t.st.ledgers[ledgerID]
	if !ok {
		return notFound("ledger", ledgerID)
	}
	l = *l.Clone()
	l.Set(ref.Kind).Remove(ref.ID)
	t.st.ledgers[ledgerID] = l
	return nil
}

func (t *txn) NextCodeValue(_ context.Context, kind inventory.CodeKind) (int, error) {
	t.st.counters[kind]++
	return t.st.counters[kind], nil
}

func (t *txn) AppendLog(_ context.Context, entry *models.ActionLog) error {
	entry.ID = t.st.next("logs")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.st.logs = append(t.st.logs, *entry)
	return nil
}

func componentsOf(st *state, computerID int64) []models.Component {
	out := []models.Component{}
	for _, c := range st.components {
		if c.ComputerID == computerID {
			out = append(out, cloneComponent(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ledgerByOwner(st *state, ownerID int64) (*models.Ledger, error) {
	for _, l := range st.ledgers {
		if l.OwnerID == ownerID {
			return l.Clone(), nil
		}
	}
	return nil, notFound("ledger for owner", ownerID)
}

func sortedLedgerIDs(st *state) []int64 {
	ids := make([]int64, 0, len(st.ledgers))
	for id := range st.ledgers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
