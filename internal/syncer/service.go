// Package syncer is the terminal's best-effort link to the shared host. It
// pushes the full local state as one document and pulls the remote document
// as a wholesale replacement. There is no merge: last write wins, and a pull
// overwrites unsynced local changes. That trade keeps offline terminals
// simple and is relied on elsewhere, so do not add merging here.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/settlement"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
	"github.com/jcalloway/tillpoint-backend/pkg/redis"
)

const (
	jobPush = "push"
	jobPull = "pull"
)

// Snapshot is the full terminal state shipped over the wire. It lives under
// the store's shared key, so every terminal in the store pushes and pulls the
// same document; TerminalID only records which terminal wrote it last.
type Snapshot struct {
	TerminalID    string                 `json:"terminal_id"`
	GeneratedAt   time.Time              `json:"generated_at"`
	Products      []models.Product       `json:"products"`
	Coupons       []models.Coupon        `json:"coupons"`
	TaxRates      []models.TaxRate       `json:"tax_rates"`
	Members       []models.Member        `json:"members"`
	PendingOrders []models.PendingOrder  `json:"pending_orders"`
	Transactions  []models.Transaction   `json:"transactions"`
}

// Service pushes and pulls full terminal snapshots.
type Service interface {
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	terminalID  string
	cfg         config.SyncConfig
	store       redis.SnapshotStore
	catalogRepo catalog.Repository
	memberRepo  members.Repository
	kitchenRepo kitchen.Repository
	txLog       settlement.Repository
	tx          txRunner
	metrics     *metrics.SyncJobMetrics
	logg        *logger.Logger
}

func NewService(
	terminalID string,
	cfg config.SyncConfig,
	store redis.SnapshotStore,
	catalogRepo catalog.Repository,
	memberRepo members.Repository,
	kitchenRepo kitchen.Repository,
	txLog settlement.Repository,
	tx txRunner,
	syncMetrics *metrics.SyncJobMetrics,
	logg *logger.Logger,
) (Service, error) {
	if terminalID == "" {
		return nil, fmt.Errorf("terminal id required")
	}
	if cfg.StoreID == "" {
		return nil, fmt.Errorf("store id required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store required")
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
	if txLog == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		terminalID:  terminalID,
		cfg:         cfg,
		store:       store,
		catalogRepo: catalogRepo,
		memberRepo:  memberRepo,
		kitchenRepo: kitchenRepo,
		txLog:       txLog,
		tx:          tx,
		metrics:     syncMetrics,
		logg:        logg,
	}, nil
}

// Push serializes the local state and stores it remotely.
func (s *service) Push(ctx context.Context) error {
	started := time.Now()
	err := s.push(ctx)
	s.metrics.ObserveDuration(jobPush, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(jobPush)
		s.logg.Error(ctx, "snapshot push failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot push failed")
	}
	s.metrics.IncSuccess(jobPush)
	s.logg.Debug(ctx, "snapshot pushed")
	return nil
}

func (s *service) push(ctx context.Context) error {
	snapshot, err := s.collect(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.store.StoreSnapshot(ctx, s.cfg.StoreID, string(raw), s.cfg.SnapshotTTL)
}

func (s *service) collect(ctx context.Context) (*Snapshot, error) {
	products, err := s.catalogRepo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	coupons, err := s.catalogRepo.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	taxRates, err := s.catalogRepo.ListTaxRates(ctx)
	if err != nil {
		return nil, err
	}
	memberRows, err := s.memberRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.kitchenRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.txLog.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		TerminalID:    s.terminalID,
		GeneratedAt:   time.Now().UTC(),
		Products:      products,
		Coupons:       coupons,
		TaxRates:      taxRates,
		Members:       memberRows,
		PendingOrders: pending,
		Transactions:  transactions,
	}, nil
}

// Pull fetches the remote snapshot and replaces local state with it. Local
// rows not present remotely are gone afterward.
func (s *service) Pull(ctx context.Context) error {
	started := time.Now()
	err := s.pull(ctx)
	s.metrics.ObserveDuration(jobPull, time.Since(started))
	if errors.Is(err, redis.Nil) {
		s.logg.Debug(ctx, "no remote snapshot yet")
		return nil
	}
	if err != nil {
		s.metrics.IncFailure(jobPull)
		s.logg.Error(ctx, "snapshot pull failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot pull failed")
	}
	s.metrics.IncSuccess(jobPull)
	s.logg.Info(ctx, "snapshot pulled")
	return nil
}

func (s *service) pull(ctx context.Context) error {
	raw, err := s.store.FetchSnapshot(ctx, s.cfg.StoreID)
	if err != nil {
		return err
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return s.apply(ctx, &snapshot)
}

// apply swaps local state for the snapshot inside a single transaction,
// so a bad snapshot cannot leave the terminal with partially replaced data.
func (s *service) apply(ctx context.Context, snapshot *Snapshot) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.catalogRepo.WithTx(tx).ReplaceCatalog(ctx, snapshot.Products, snapshot.Coupons, snapshot.TaxRates); err != nil {
			return err
		}
		if err := s.memberRepo.WithTx(tx).ReplaceMembers(ctx, snapshot.Members); err != nil {
			return err
		}
		if err := s.kitchenRepo.WithTx(tx).ReplaceOrders(ctx, snapshot.PendingOrders); err != nil {
			return err
		}
		return s.txLog.WithTx(tx).ReplaceTransactions(ctx, snapshot.Transactions)
	})
}
