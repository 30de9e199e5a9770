package kitchen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/counters"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	dbtypes "github.com/jcalloway/tillpoint-backend/pkg/db/types"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// SubmitItem is one requested line on a kiosk submission.
type SubmitItem struct {
	ProductID      uuid.UUID
	Quantity       int
	AddonOptionIDs []uuid.UUID
	Note           string
}

// SubmitInput is a kiosk order submission.
type SubmitInput struct {
	Items        []SubmitItem
	CustomerName string
	TableNumber  *int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service routes kiosk tickets through the per-station state machine.
type Service interface {
	Submit(ctx context.Context, in SubmitInput) (*models.PendingOrder, error)
	List(ctx context.Context) ([]models.PendingOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PendingOrder, error)
	GetByTicketNumber(ctx context.Context, ticketNumber int64) (*models.PendingOrder, error)
	AdvanceStation(ctx context.Context, id uuid.UUID, station enums.Station, to enums.StationStatus) (*models.PendingOrder, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Service
	tx      txRunner
}

func NewService(repo Repository, catalogSvc catalog.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("kitchen repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, catalog: catalogSvc, tx: tx}, nil
}

// Submit creates a ticket from kiosk selections. The station map gets one
// pending entry per station that has at least one item; stations without
// items carry no entry and stay out of the aggregate.
func (s *service) Submit(ctx context.Context, in SubmitInput) (*models.PendingOrder, error) {
	if len(in.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	var (
		items    models.TicketItems
		total    = decimal.Zero
		statuses = dbtypes.StationStatusMap{}
	)
	for _, req := range in.Items {
		if req.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		product, err := s.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		item := models.TicketItem{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			UnitPrice: product.Price,
			Quantity:  req.Quantity,
			Note:      strings.TrimSpace(req.Note),
		}
		lineTotal := product.Price
		for _, optID := range req.AddonOptionIDs {
			opt, err := findOption(product, optID)
			if err != nil {
				return nil, err
			}
			item.Addons = append(item.Addons, models.TicketAddon{
				OptionID:   opt.ID,
				Name:       opt.Name,
				PriceDelta: opt.PriceDelta,
			})
			lineTotal = lineTotal.Add(opt.PriceDelta)
		}
		total = total.Add(lineTotal.Mul(decimal.NewFromInt(int64(req.Quantity))))
		items = append(items, item)
		statuses[enums.StationFor(product.Category)] = enums.StationStatusPending
	}

	order := &models.PendingOrder{
		ID:              uuid.New(),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		TableNumber:     in.TableNumber,
		Total:           total,
		Status:          enums.OrderStatusPending,
		StationStatuses: statuses,
		Items:           items,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ticket, err := counters.Next(tx, models.CounterTicketNumber)
		if err != nil {
			return err
		}
		order.TicketNumber = ticket
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func findOption(product *models.Product, optionID uuid.UUID) (*models.AddonOption, error) {
	for gi := range product.AddonGroups {
		for oi := range product.AddonGroups[gi].Options {
			if product.AddonGroups[gi].Options[oi].ID == optionID {
				return &product.AddonGroups[gi].Options[oi], nil
			}
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown addon option for product")
}

func (s *service) List(ctx context.Context) ([]models.PendingOrder, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PendingOrder, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByTicketNumber(ctx context.Context, ticketNumber int64) (*models.PendingOrder, error) {
	return s.repo.FindByTicketNumber(ctx, ticketNumber)
}

// AdvanceStation moves one station of a ticket to a new status. Only adjacent
// forward moves and the ready-to-preparing regression are legal; the
// aggregate status is recomputed from the full station map afterward.
func (s *service) AdvanceStation(ctx context.Context, id uuid.UUID, station enums.Station, to enums.StationStatus) (*models.PendingOrder, error) {
	if !station.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown station")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown station status")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current, ok := order.StationStatuses[station]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket has no items for station")
	}
	if !current.CanTransition(to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("station cannot move from %s to %s", current, to))
	}

	order.StationStatuses = order.StationStatuses.Clone()
	order.StationStatuses[station] = to
	order.Status = AggregateStatus(order.StationStatuses)
	if err := s.repo.UpdateStatuses(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Archive completes a ticket and removes it from the pending set regardless
// of station readiness. This is the staff override for walk-aways and
// mistakes, so no readiness guard applies.
func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AggregateStatus derives the ticket-level status from the station map:
// ready when every station is ready, preparing when any station is
// preparing, otherwise pending.
func AggregateStatus(statuses dbtypes.StationStatusMap) enums.OrderStatus {
	if len(statuses) == 0 {
		return enums.OrderStatusPending
	}
	allReady := true
	anyPreparing := false
	for _, status := range statuses {
		if status != enums.StationStatusReady {
			allReady = false
		}
		if status == enums.StationStatusPreparing {
			anyPreparing = true
		}
	}
	if allReady {
		return enums.OrderStatusReady
	}
	if anyPreparing {
		return enums.OrderStatusPreparing
	}
	return enums.OrderStatusPending
}
