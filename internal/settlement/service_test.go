package settlement

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/pricing"
	"github.com/jcalloway/tillpoint-backend/internal/sessions"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
	// beforeTx runs ahead of the transaction, standing in for a handler
	// that slips in while settlement is committing.
	beforeTx func()
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.beforeTx != nil {
		r.beforeTx()
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) Notify() { n.calls++ }

type testEnv struct {
	db       *gorm.DB
	tx       *gormTxRunner
	manager  *sessions.Manager
	service  Service
	notifier *countingNotifier
	kitchen  kitchen.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:settlement_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{}, &models.AddonGroup{}, &models.AddonOption{},
		&models.Member{}, &models.Coupon{}, &models.TaxRate{},
		&models.Transaction{}, &models.TransactionItem{}, &models.PaymentDetail{},
		&models.PendingOrder{}, &models.Counter{}, &models.SessionSnapshot{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	loyalty := config.LoyaltyConfig{Enabled: true, EarnRate: 1, RedeemRate: 100}
	tx := &gormTxRunner{db: db}

	catalogRepo := catalog.NewRepository(db)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	memberRepo := members.NewRepository(db)
	memberSvc, err := members.NewService(memberRepo)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	kitchenRepo := kitchen.NewRepository(db)
	kitchenSvc, err := kitchen.NewService(kitchenRepo, catalogSvc, tx)
	if err != nil {
		t.Fatalf("kitchen: %v", err)
	}
	manager, err := sessions.NewManager(catalogSvc, memberSvc, loyalty, sessions.NewSnapshotStore(db), nil, logg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	notifier := &countingNotifier{}
	svc, err := NewService(manager, NewRepository(db), catalogRepo, memberRepo, kitchenRepo, tx, loyalty, nil, notifier, logg)
	if err != nil {
		t.Fatalf("settlement: %v", err)
	}
	return &testEnv{db: db, tx: tx, manager: manager, service: svc, notifier: notifier, kitchen: kitchenSvc}
}

func (e *testEnv) seedProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:             uuid.New(),
		Name:           "latte",
		Category:       enums.CategoryCoffee,
		Price:          decimal.RequireFromString("5.00"),
		TrackInventory: true,
		Stock:          stock,
		IsAvailable:    true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (e *testEnv) seedTaxRate(t *testing.T) {
	t.Helper()
	rate := models.TaxRate{Name: "sales", RatePercent: decimal.NewFromInt(8), Enabled: true}
	if err := e.db.Create(&rate).Error; err != nil {
		t.Fatalf("seed tax rate: %v", err)
	}
}

func (e *testEnv) seedMember(t *testing.T, points int) *models.Member {
	t.Helper()
	member := &models.Member{ID: uuid.New(), Name: "Dana", Phone: "555-0101", Points: points}
	if err := e.db.Create(member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return member
}

func pay(amount string) []pricing.Payment {
	return []pricing.Payment{{MethodID: "cash", MethodName: "Cash", Amount: decimal.RequireFromString(amount)}}
}

func TestSettleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)
	env.seedTaxRate(t)
	member := env.seedMember(t, 40)

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := env.manager.AssignMember(ctx, member.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// 10.00 + 8% tax = 10.80
	result, err := env.service.Settle(ctx, SettleInput{Payments: pay("10.80"), Cashier: "jo"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	if result.Transaction.OrderNumber != 1 {
		t.Fatalf("first order number should be 1, got %d", result.Transaction.OrderNumber)
	}
	if !result.Transaction.Total.Equal(decimal.RequireFromString("10.80")) {
		t.Fatalf("total %s", result.Transaction.Total)
	}
	if result.Transaction.PointsEarned != 10 {
		t.Fatalf("expected floor(10.80×1)=10 points earned, got %d", result.Transaction.PointsEarned)
	}

	var got models.Product
	if err := env.db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Stock != 3 {
		t.Fatalf("stock should drop to 3, got %d", got.Stock)
	}

	var gotMember models.Member
	if err := env.db.First(&gotMember, "id = ?", member.ID).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if gotMember.Points != 50 {
		t.Fatalf("expected 40+10 points, got %d", gotMember.Points)
	}

	// The single settled session resets in place.
	session := env.manager.Active()
	if !session.IsEmpty() || session.MemberID != nil {
		t.Fatalf("session should reset after settlement, got %+v", session)
	}
	if env.notifier.calls != 1 {
		t.Fatalf("expected one sync nudge, got %d", env.notifier.calls)
	}
}

func TestSettleBlocksUnderpayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Total 5.00, paying 4.98 leaves due past the epsilon.
	_, err := env.service.Settle(ctx, SettleInput{Payments: pay("4.98"), Cashier: "jo"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePrecondition {
		t.Fatalf("expected precondition, got %v", err)
	}

	var count int64
	env.db.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Fatal("refused settlement must not record a transaction")
	}
	var got models.Product
	if err := env.db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("stock must be untouched, got %d", got.Stock)
	}

	// Within the epsilon settles.
	if _, err := env.service.Settle(ctx, SettleInput{Payments: pay("4.99"), Cashier: "jo"}); err != nil {
		t.Fatalf("settle within epsilon: %v", err)
	}
}

func TestSettleReturnsChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	result, err := env.service.Settle(ctx, SettleInput{Payments: pay("10.00"), Cashier: "jo"})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !result.Payment.Change.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected 5.00 change, got %s", result.Payment.Change)
	}
}

func TestSettleRejectsEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Settle(context.Background(), SettleInput{Payments: pay("1.00"), Cashier: "jo"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePrecondition {
		t.Fatalf("expected precondition, got %v", err)
	}
}

func TestSettleRevalidatesPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)
	member := env.seedMember(t, 100)

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := env.manager.AssignMember(ctx, member.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.manager.SetPointsToRedeem(ctx, 100); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// The balance shrinks behind the cart's back.
	if err := env.db.Model(&models.Member{}).Where("id = ?", member.ID).Update("points", 10).Error; err != nil {
		t.Fatalf("drain points: %v", err)
	}

	// 5.00 − 1.00 points discount = 4.00 due.
	_, err := env.service.Settle(ctx, SettleInput{Payments: pay("4.00"), Cashier: "jo"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodePrecondition {
		t.Fatalf("stale redemption should be refused, got %v", err)
	}
}

func TestSettleRollsBackAsOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)
	member := env.seedMember(t, 40)

	// Occupy order number 1 so the log append collides mid-transaction.
	blocker := &models.Transaction{
		ID:          uuid.New(),
		OrderNumber: 1,
		Subtotal:    decimal.Zero,
		Discount:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.Zero,
		Cashier:     "seed",
	}
	if err := env.db.Create(blocker).Error; err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := env.manager.AssignMember(ctx, member.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := env.service.Settle(ctx, SettleInput{Payments: pay("10.00"), Cashier: "jo"}); err == nil {
		t.Fatal("expected settlement to fail on the order number collision")
	}

	var got models.Product
	if err := env.db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("failed settlement must leave stock untouched, got %d", got.Stock)
	}
	var gotMember models.Member
	if err := env.db.First(&gotMember, "id = ?", member.ID).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if gotMember.Points != 40 {
		t.Fatalf("failed settlement must leave points untouched, got %d", gotMember.Points)
	}
	if env.manager.Active().IsEmpty() {
		t.Fatal("cart should survive a failed settlement for retry")
	}
	if env.notifier.calls != 0 {
		t.Fatal("failed settlement must not nudge sync")
	}
}

func TestSettleRetiresOnlyTheSettledSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)

	if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	settledID := env.manager.Active().ID

	// Another register opens a session while settlement is committing. The
	// newcomer becomes active, but only the settled cart may be retired.
	var siblingID uuid.UUID
	env.tx.beforeTx = func() {
		env.tx.beforeTx = nil
		sibling := env.manager.Create(ctx)
		siblingID = sibling.ID
		if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
			t.Errorf("sibling add: %v", err)
		}
	}

	if _, err := env.service.Settle(ctx, SettleInput{Payments: pay("5.00"), Cashier: "jo"}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	active := env.manager.Active()
	if active.ID != siblingID {
		t.Fatalf("the sibling must stay active after settlement, got %s", active.ID)
	}
	if active.IsEmpty() {
		t.Fatal("settlement must not touch the sibling cart's lines")
	}
	for _, session := range env.manager.List() {
		if session.ID == settledID {
			t.Fatal("the settled session must be removed")
		}
	}
}

func TestSettleRemovesKioskTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 5)

	ticket, err := env.kitchen.Submit(ctx, kitchen.SubmitInput{
		CustomerName: "Sam",
		Items:        []kitchen.SubmitItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.manager.ImportKioskOrder(ctx, ticket); err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, err := env.service.Settle(ctx, SettleInput{Payments: pay("5.00"), Cashier: "jo"}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if _, err := env.kitchen.Get(ctx, ticket.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("settled kiosk ticket should leave the pending set, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 10)

	for i := 0; i < 3; i++ {
		if _, err := env.manager.AddItem(ctx, sessions.AddItemInput{ProductID: product.ID, Quantity: 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := env.service.Settle(ctx, SettleInput{Payments: pay("5.00"), Cashier: "jo"}); err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
	}

	rows, next, err := env.service.List(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || next == "" {
		t.Fatalf("expected a full page with a cursor, got %d rows", len(rows))
	}
	if rows[0].OrderNumber != 3 || rows[1].OrderNumber != 2 {
		t.Fatalf("log should read newest-first, got %d then %d", rows[0].OrderNumber, rows[1].OrderNumber)
	}

	rest, _, err := env.service.List(ctx, pagination.Params{Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest) != 1 || rest[0].OrderNumber != 1 {
		t.Fatalf("expected the oldest row last, got %+v", rest)
	}
}
