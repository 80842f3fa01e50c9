package inventory

import (
	"time"

	"github.com/rs/zerolog"

	"itam-api/internal/models"
)

// DefaultHistoryLimit caps the history entries returned by reads.
const DefaultHistoryLimit = 20

// Options configures a Service. The zero value is usable.
type Options struct {
	ComputerTypes []string
	HistoryLimit  int
	Recorder      Recorder
	Images        ImageStore
	Logger        *zerolog.Logger
	Now           func() time.Time
}

// Service exposes the inventory operations. Every mutating call runs in a
// single store transaction.
type Service struct {
	store        Store
	classifier   *Classifier
	ledgers      *LedgerManager
	transfers    *TransferOrchestrator
	components   ComponentSynchronizer
	deleter      *SoftDeleter
	recorder     Recorder
	images       ImageStore
	historyLimit int
	log          zerolog.Logger
	now          func() time.Time
}

// NewService wires the core components around store.
func NewService(store Store, opts Options) *Service {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	ledgers := NewLedgerManager(recorder, logger)
	return &Service{
		store:        store,
		classifier:   NewClassifier(opts.ComputerTypes),
		ledgers:      ledgers,
		transfers:    &TransferOrchestrator{ledgers: ledgers, recorder: recorder},
		deleter:      &SoftDeleter{ledgers: ledgers, now: now},
		recorder:     recorder,
		images:       opts.Images,
		historyLimit: limit,
		log:          logger,
		now:          now,
	}
}

// Classifier returns the classifier in use.
func (s *Service) Classifier() *Classifier {
	return s.classifier
}

// ClassifyRow decides whether a type label denotes an asset or a computer.
func (s *Service) ClassifyRow(typeLabel string) models.ItemKind {
	return s.classifier.Classify(typeLabel)
}
