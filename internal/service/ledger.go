package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"travel-storefront/internal/model"
	"travel-storefront/internal/queue"
	"travel-storefront/internal/repository"

	"go.uber.org/zap"
)

// Ledger is the locally persisted purchase history, newest entry first.
type Ledger interface {
	Record(ctx context.Context, items []model.PurchasedItem, paymentMethodID int64) (model.PurchaseHistoryEntry, error)
	List(ctx context.Context) []model.PurchaseHistoryEntry
	Clear(ctx context.Context) error
}

type ledgerImpl struct {
	store     repository.LocalStoreRepository
	publisher queue.Publisher
	log       *zap.Logger
	key       string
	now       func() time.Time

	// serializes read-modify-write of the single history document
	mu sync.Mutex
}

func NewLedger(store repository.LocalStoreRepository, publisher queue.Publisher, log *zap.Logger, key string) Ledger {
	return &ledgerImpl{
		store:     store,
		publisher: publisher,
		log:       log,
		key:       key,
		now:       time.Now,
	}
}

func (l *ledgerImpl) Record(ctx context.Context, items []model.PurchasedItem, paymentMethodID int64) (model.PurchaseHistoryEntry, error) {
	entry := model.PurchaseHistoryEntry{
		Date:            l.now().UTC(),
		Items:           append([]model.PurchasedItem(nil), items...),
		PaymentMethodID: paymentMethodID,
		Status:          model.StatusCompleted,
	}
	for i := range entry.Items {
		entry.Items[i].PurchasedAt = entry.Date
	}

	l.mu.Lock()
	history, err := l.load(ctx)
	if err != nil && !errors.Is(err, errCorruptHistory) {
		l.mu.Unlock()
		// writing now would overwrite whatever we failed to read
		return model.PurchaseHistoryEntry{}, fmt.Errorf("read history: %w", err)
	}

	history = append([]model.PurchaseHistoryEntry{entry}, history...)
	b, err := json.Marshal(history)
	if err == nil {
		err = l.store.Put(ctx, l.key, string(b))
	}
	l.mu.Unlock()

	if err != nil {
		l.log.Error("write history", zap.Error(err))
		return model.PurchaseHistoryEntry{}, fmt.Errorf("write history: %w", err)
	}

	l.publish(ctx, entry)
	return entry, nil
}

// List never fails: unreadable history is reported as empty.
func (l *ledgerImpl) List(ctx context.Context) []model.PurchaseHistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.load(ctx)
	if err != nil {
		return []model.PurchaseHistoryEntry{}
	}
	return history
}

func (l *ledgerImpl) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, l.key); err != nil {
		l.log.Error("clear history", zap.Error(err))
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

var errCorruptHistory = errors.New("corrupt history document")

func (l *ledgerImpl) load(ctx context.Context) ([]model.PurchaseHistoryEntry, error) {
	raw, err := l.store.Get(ctx, l.key)
	if errors.Is(err, repository.ErrNotFound) {
		return []model.PurchaseHistoryEntry{}, nil
	}
	if err != nil {
		l.log.Warn("read history", zap.Error(err))
		return []model.PurchaseHistoryEntry{}, err
	}

	var history []model.PurchaseHistoryEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		l.log.Warn("history is not valid json, treating it as empty", zap.Error(err))
		return []model.PurchaseHistoryEntry{}, errCorruptHistory
	}
	if history == nil {
		history = []model.PurchaseHistoryEntry{}
	}
	return history, nil
}

func (l *ledgerImpl) publish(ctx context.Context, entry model.PurchaseHistoryEntry) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := l.publisher.PublishPurchaseCompleted(pubCtx, queue.NewPurchaseCompletedEvent(entry)); err != nil {
		l.log.Warn("publish purchase event", zap.Error(err))
	}
}
