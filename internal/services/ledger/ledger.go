// Package ledger applies point-changing events to the eco-points ledger.
// Every balance change goes through Post, inside a storage transaction, so
// a user's balance always equals the sum of their transactions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PREETHAM1590/waste-wise/internal/classifier"
	"github.com/PREETHAM1590/waste-wise/internal/domain/models"
	"github.com/PREETHAM1590/waste-wise/internal/lib/apperr"
	"github.com/PREETHAM1590/waste-wise/internal/metrics"
	"github.com/PREETHAM1590/waste-wise/internal/storage"
	"github.com/google/uuid"
)

const defaultClassifyTimeout = 10 * time.Second

type ScanResult struct {
	Item          models.WasteItem `json:"item"`
	Category      models.Category  `json:"waste_type"`
	Confidence    float64          `json:"confidence"`
	Disposal      string           `json:"disposal_method"`
	PointsAwarded int64            `json:"eco_points_earned"`
	Balance       int64            `json:"eco_points"`
	Impact        Impact           `json:"environmental_impact"`
}

type Engine struct {
	log             *slog.Logger
	store           storage.Store
	classifier      classifier.Classifier
	policy          *PointsPolicy
	metrics         *metrics.Metrics
	classifyTimeout time.Duration
	now             func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithClassifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.classifyTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(log *slog.Logger, store storage.Store, cls classifier.Classifier, policy *PointsPolicy, opts ...Option) *Engine {
	e := &Engine{
		log:             log,
		store:           store,
		classifier:      cls,
		policy:          policy,
		classifyTimeout: defaultClassifyTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordScan classifies image and credits the user for it. The waste item,
// the balance increment and the earned transaction are written in one
// storage transaction; a classifier failure aborts before any write.
// imageRef is stored on the item as given.
func (e *Engine) RecordScan(ctx context.Context, userID string, image []byte, imageRef *string) (*ScanResult, error) {
	const op = "ledger.RecordScan"

	log := e.log.With(slog.String("op", op), slog.String("user_id", userID))

	res, err := e.recordScan(ctx, userID, image, imageRef)
	if err != nil {
		e.metrics.ScanFailed(apperr.Kind(err))
		switch {
		case apperr.NeedsReconciliation(err):
			log.Error("scan outcome unknown, ledger needs reconciliation", "error", err)
		case errors.Is(err, apperr.ErrStorageFailure):
			log.Error("failed to record scan", "error", err)
		default:
			log.Info("scan rejected", "kind", apperr.Kind(err), "error", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.metrics.ScanRecorded(string(res.Category), res.PointsAwarded)
	log.Debug("scan recorded",
		slog.String("category", string(res.Category)),
		slog.Int64("points", res.PointsAwarded),
		slog.Int64("balance", res.Balance))

	return res, nil
}

func (e *Engine) recordScan(ctx context.Context, userID string, image []byte, imageRef *string) (*ScanResult, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	if len(image) == 0 && imageRef == nil {
		return nil, apperr.Invalid("image or image reference is required")
	}

	if _, err := e.store.Users().Get(ctx, userID); err != nil {
		return nil, apperr.Storage("get user", err)
	}

	if len(image) == 0 {
		image = []byte(*imageRef)
	}

	cls, err := e.classify(ctx, image)
	if err != nil {
		return nil, err
	}

	points, err := e.policy.Points(cls.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrClassificationUnavailable, err)
	}

	item := models.WasteItem{
		ID:             uuid.NewString(),
		UserID:         userID,
		Category:       cls.Category,
		DisposalMethod: cls.DisposalInstruction,
		PointsEarned:   points,
		ImageRef:       imageRef,
		ScannedAt:      e.now().UTC(),
	}

	var posted *models.EcoTransaction
	err = e.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if err := repos.WasteItems().Create(ctx, &item); err != nil {
			return err
		}
		posted, err = e.Post(ctx, repos, userID, points, fmt.Sprintf("Recycled %s item", cls.Category))
		return err
	})
	if err != nil {
		return nil, txError("record scan", userID, err)
	}

	return &ScanResult{
		Item:          item,
		Category:      cls.Category,
		Confidence:    cls.Confidence,
		Disposal:      cls.DisposalInstruction,
		PointsAwarded: points,
		Balance:       posted.BalanceAfter,
		Impact:        ImpactOf(points),
	}, nil
}

func (e *Engine) classify(ctx context.Context, image []byte) (classifier.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, e.classifyTimeout)
	defer cancel()

	cls, err := e.classifier.Classify(ctx, image)
	if err != nil {
		if errors.Is(err, apperr.ErrClassificationUnavailable) {
			return cls, err
		}
		return cls, fmt.Errorf("%w: %w", apperr.ErrClassificationUnavailable, err)
	}
	if !cls.Category.Valid() {
		return cls, fmt.Errorf("%w: unknown category %q", apperr.ErrClassificationUnavailable, cls.Category)
	}

	return cls, nil
}

// Post applies amount to the user's balance and appends the matching
// transaction through repos, which must be bound to an open storage
// transaction. Positive amounts are earned, negative ones spent. A debit
// that would overdraw the balance fails with apperr.ErrInsufficientPoints.
func (e *Engine) Post(ctx context.Context, repos storage.Repositories, userID string, amount int64, description string) (*models.EcoTransaction, error) {
	const op = "ledger.Post"

	if amount == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.Invalid("amount must be non-zero"))
	}

	balance, err := repos.Users().AddPoints(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	kind := models.TransactionEarned
	if amount < 0 {
		kind = models.TransactionSpent
	}

	tx := &models.EcoTransaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Kind:         kind,
		Description:  description,
		BalanceAfter: balance,
		CreatedAt:    e.now().UTC(),
	}
	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tx, nil
}

// Transact runs fn in one storage transaction and maps its failure to the
// error taxonomy. It is the entry point for other services that post to
// the ledger.
func (e *Engine) Transact(ctx context.Context, op, userID string, fn func(ctx context.Context, repos storage.Repositories) error) error {
	if err := e.store.WithTx(ctx, fn); err != nil {
		return txError(op, userID, err)
	}
	return nil
}

func txError(op, userID string, err error) error {
	if errors.Is(err, storage.ErrOutcomeUnknown) {
		return &apperr.ReconcileError{Op: op, UserID: userID, Err: err}
	}
	return apperr.Storage(op, err)
}
