package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/counters"
	"github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/pricing"
	"github.com/jcalloway/tillpoint-backend/internal/sessions"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
	"github.com/jcalloway/tillpoint-backend/pkg/pagination"
)

// SettleInput finalizes the active session with one or more tenders.
type SettleInput struct {
	Payments []pricing.Payment
	Cashier  string
}

// Result is the outcome of a successful settlement.
type Result struct {
	Transaction *models.Transaction    `json:"transaction"`
	Breakdown   pricing.Breakdown      `json:"breakdown"`
	Payment     pricing.Reconciliation `json:"payment"`
}

// Notifier receives a best-effort nudge after local state changed. It must
// never block the caller.
type Notifier interface {
	Notify()
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service finalizes paid carts into immutable transactions.
type Service interface {
	Settle(ctx context.Context, in SettleInput) (*Result, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, params pagination.Params) ([]models.Transaction, string, error)
}

type service struct {
	manager     *sessions.Manager
	repo        Repository
	catalogRepo catalog.Repository
	memberRepo  members.Repository
	kitchenRepo kitchen.Repository
	tx          txRunner
	loyalty     config.LoyaltyConfig
	metrics     *metrics.OrderMetrics
	notifier    Notifier
	logg        *logger.Logger
}

func NewService(
	manager *sessions.Manager,
	repo Repository,
	catalogRepo catalog.Repository,
	memberRepo members.Repository,
	kitchenRepo kitchen.Repository,
	tx txRunner,
	loyalty config.LoyaltyConfig,
	orderMetrics *metrics.OrderMetrics,
	notifier Notifier,
	logg *logger.Logger,
) (Service, error) {
	if manager == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if memberRepo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if kitchenRepo == nil {
		return nil, fmt.Errorf("kitchen repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		manager:     manager,
		repo:        repo,
		catalogRepo: catalogRepo,
		memberRepo:  memberRepo,
		kitchenRepo: kitchenRepo,
		tx:          tx,
		loyalty:     loyalty,
		metrics:     orderMetrics,
		notifier:    notifier,
		logg:        logg,
	}, nil
}

// Settle turns the active cart into a transaction. Stock deduction, point
// adjustment, the log append, the order-number increment, and the kiosk
// ticket removal commit or roll back together; the session reset and sync
// nudge happen only after the commit.
func (s *service) Settle(ctx context.Context, in SettleInput) (*Result, error) {
	cart, breakdown, err := s.manager.Quote(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "cart is empty")
	}
	if len(in.Payments) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no payments provided")
	}

	reconciliation := pricing.Reconcile(breakdown.Total, in.Payments)
	if !pricing.CanSettle(reconciliation.Due) {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "payment incomplete").
			WithDetails(map[string]any{"due": reconciliation.Due.StringFixed(2)})
	}

	// Re-check the balance at commit time. A redemption in a sibling session
	// may have spent the points since the cart was built.
	var member *models.Member
	if cart.MemberID != nil {
		member, err = s.memberRepo.FindByID(ctx, *cart.MemberID)
		if err != nil {
			return nil, err
		}
		if s.loyalty.Enabled && breakdown.TotalPointsRedeemed > member.Points {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "insufficient points").
				WithDetails(map[string]any{"available": member.Points, "requested": breakdown.TotalPointsRedeemed})
		}
	}

	pointsEarned := pricing.PointsEarned(breakdown.Total, s.loyalty, member)
	transaction := buildTransaction(cart, breakdown, in, member, pointsEarned)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderNumber, err := counters.Next(tx, models.CounterOrderNumber)
		if err != nil {
			return err
		}
		transaction.OrderNumber = orderNumber

		if err := s.repo.WithTx(tx).Append(ctx, transaction); err != nil {
			return err
		}

		for productID, quantity := range trackedQuantities(cart) {
			if err := s.catalogRepo.WithTx(tx).DecrementStockFloored(ctx, productID, quantity); err != nil {
				return err
			}
		}

		if member != nil && s.loyalty.Enabled {
			newPoints := member.Points + pointsEarned - breakdown.TotalPointsRedeemed
			if newPoints < 0 {
				newPoints = 0
			}
			if err := s.memberRepo.WithTx(tx).SetPoints(ctx, member.ID, newPoints); err != nil {
				return err
			}
		}

		if cart.TicketNumber != nil {
			if err := s.kitchenRepo.WithTx(tx).DeleteByTicketNumber(ctx, *cart.TicketNumber); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Remove by id, not by whatever is active now. A switch or create that
	// lands mid-settlement must not cost another cart its contents.
	if err := s.manager.Remove(ctx, cart.ID); err != nil {
		s.logg.Error(ctx, "failed to retire settled session", err)
	}
	s.metrics.IncSettlement()
	if s.notifier != nil {
		s.notifier.Notify()
	}

	return &Result{Transaction: transaction, Breakdown: breakdown, Payment: reconciliation}, nil
}

func buildTransaction(cart *sessions.HeldCart, breakdown pricing.Breakdown, in SettleInput, member *models.Member, pointsEarned int) *models.Transaction {
	transaction := &models.Transaction{
		ID:             uuid.New(),
		Subtotal:       breakdown.Subtotal,
		Discount:       breakdown.CouponDiscount.Add(breakdown.PointsDiscount),
		Tax:            breakdown.Tax,
		Total:          breakdown.Total,
		PointsEarned:   pointsEarned,
		PointsRedeemed: breakdown.TotalPointsRedeemed,
		Cashier:        strings.TrimSpace(in.Cashier),
	}
	if member != nil {
		id := member.ID
		transaction.MemberID = &id
	}
	for _, line := range cart.Lines {
		lineTotal := line.UnitPrice.Add(line.AddonTotal()).
			Mul(decimal.NewFromInt(int64(line.Quantity)))
		names := make([]string, 0, len(line.Addons))
		for _, a := range line.Addons {
			names = append(names, a.Name)
		}
		transaction.Items = append(transaction.Items, models.TransactionItem{
			ID:            uuid.New(),
			TransactionID: transaction.ID,
			ProductID:     line.ProductID,
			Name:          line.ProductName,
			UnitPrice:     line.UnitPrice,
			Quantity:      line.Quantity,
			AddonSummary:  strings.Join(names, ", "),
			Note:          line.Note,
			IsReward:      line.IsReward,
			PointsCost:    line.PointsCost,
			LineTotal:     lineTotal,
		})
	}
	for _, payment := range in.Payments {
		transaction.Payments = append(transaction.Payments, models.PaymentDetail{
			ID:            uuid.New(),
			TransactionID: transaction.ID,
			MethodID:      payment.MethodID,
			MethodName:    payment.MethodName,
			Amount:        payment.Amount,
		})
	}
	return transaction
}

// trackedQuantities pools cart quantities per tracked product. Stock is per
// product, so variants of the same product share one decrement.
func trackedQuantities(cart *sessions.HeldCart) map[uuid.UUID]int {
	out := map[uuid.UUID]int{}
	for _, line := range cart.Lines {
		if line.TrackInventory {
			out[line.ProductID] += line.Quantity
		}
	}
	return out
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Transaction, string, error) {
	return s.repo.List(ctx, params)
}
