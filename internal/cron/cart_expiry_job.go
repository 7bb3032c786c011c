package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox/payloads"
)

const expiryBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CartExpiryJobParams configure the abandoned-cart sweep.
type CartExpiryJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Reader expiredCartReader
	Outbox outboxEmitter
}

type expiredCartReader interface {
	FindExpiredActiveCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

// NewCartExpiryJob builds the cron job that retires carts past their activity
// deadline.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired carts reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &cartExpiryJob{
		logg:   params.Logger,
		db:     params.DB,
		reader: params.Reader,
		outbox: params.Outbox,
		now:    time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg   *logger.Logger
	db     txRunner
	reader expiredCartReader
	outbox outboxEmitter
	now    func() time.Time
}

func (j *cartExpiryJob) Name() string {
	return "cart-expiry"
}

// Run marks stale active carts abandoned, one transaction per cart so a bad
// row cannot poison the batch. The status guard in the update keeps the sweep
// from racing a concurrent checkout.
func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now()
	expired, err := j.reader.FindExpiredActiveCarts(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return fmt.Errorf("find expired carts: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	var errs error
	retired := 0
	for _, cartRow := range expired {
		if err := j.retire(ctx, cartRow, cutoff); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cart %s: %w", cartRow.ID, err))
			continue
		}
		retired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired": len(expired),
		"retired": retired,
	})
	j.logg.Info(logCtx, "abandoned cart sweep finished")
	return errs
}

func (j *cartExpiryJob) retire(ctx context.Context, cartRow models.Cart, cutoff time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Cart{}).
			Where("id = ? AND status = ?", cartRow.ID, enums.CartStatusActive).
			Update("status", enums.CartStatusAbandoned)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Completed or merged since the scan; nothing to retire.
			return nil
		}

		itemCount := 0
		for _, item := range cartRow.Items {
			itemCount += item.Quantity
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartAbandoned,
			AggregateType: enums.AggregateCart,
			AggregateID:   cartRow.ID,
			Data: payloads.CartAbandoned{
				CartID:     cartRow.ID,
				ExpiredAt:  cutoff,
				ItemCount:  itemCount,
				TotalCents: cartRow.TotalCents,
			},
			Version:    1,
			OccurredAt: cutoff,
		})
	})
}
