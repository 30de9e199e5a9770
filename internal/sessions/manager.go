package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/pricing"
	"github.com/jcalloway/tillpoint-backend/internal/stockguard"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
)

// AddItemInput describes an add-to-cart request for the active session.
type AddItemInput struct {
	ProductID      uuid.UUID
	Quantity       int
	AddonOptionIDs []uuid.UUID
	Note           string
}

// AddRewardInput describes a loyalty reward-item request.
type AddRewardInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Manager owns the collection of open order sessions and the active one.
// All mutations go through here under one mutex; at least one session always
// exists and exactly one is active.
type Manager struct {
	mu       sync.Mutex
	carts    []*HeldCart
	activeID uuid.UUID
	seq      int

	catalog catalog.Service
	members members.Service
	loyalty config.LoyaltyConfig
	store   SnapshotStore
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
}

func NewManager(catalogSvc catalog.Service, memberSvc members.Service, loyalty config.LoyaltyConfig, store SnapshotStore, orderMetrics *metrics.OrderMetrics, logg *logger.Logger) (*Manager, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if memberSvc == nil {
		return nil, fmt.Errorf("members service required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	m := &Manager{
		catalog: catalogSvc,
		members: memberSvc,
		loyalty: loyalty,
		store:   store,
		metrics: orderMetrics,
		logg:    logg,
	}
	m.appendFreshLocked()
	return m, nil
}

// appendFreshLocked creates a new empty session and makes it active.
func (m *Manager) appendFreshLocked() *HeldCart {
	m.seq++
	cart := &HeldCart{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("Order %d", m.seq),
		CreatedAt: time.Now().UTC(),
	}
	m.carts = append(m.carts, cart)
	m.activeID = cart.ID
	return cart
}

func (m *Manager) findLocked(id uuid.UUID) (*HeldCart, int) {
	for i, c := range m.carts {
		if c.ID == id {
			return c, i
		}
	}
	return nil, -1
}

func (m *Manager) activeLocked() *HeldCart {
	cart, _ := m.findLocked(m.activeID)
	return cart
}

func cloneCart(c *HeldCart) *HeldCart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	for i, l := range c.Lines {
		line := l
		line.Addons = append([]SelectedAddon(nil), l.Addons...)
		out.Lines[i] = line
	}
	if c.TicketNumber != nil {
		n := *c.TicketNumber
		out.TicketNumber = &n
	}
	if c.MemberID != nil {
		id := *c.MemberID
		out.MemberID = &id
	}
	if c.CouponCode != nil {
		code := *c.CouponCode
		out.CouponCode = &code
	}
	return &out
}

// List returns copies of all sessions in creation order.
func (m *Manager) List() []HeldCart {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HeldCart, 0, len(m.carts))
	for _, c := range m.carts {
		out = append(out, *cloneCart(c))
	}
	return out
}

// ActiveID returns the id of the active session.
func (m *Manager) ActiveID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Active returns a copy of the active session.
func (m *Manager) Active() *HeldCart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCart(m.activeLocked())
}

// Get returns a copy of the named session.
func (m *Manager) Get(id uuid.UUID) (*HeldCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, _ := m.findLocked(id)
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return cloneCart(cart), nil
}

// Create opens a new empty session and activates it.
func (m *Manager) Create(ctx context.Context) *HeldCart {
	m.mu.Lock()
	cart := m.appendFreshLocked()
	out := cloneCart(cart)
	m.mu.Unlock()
	m.persist(ctx)
	return out
}

// Remove deletes a session. Removing the last remaining session resets it in
// place instead, so there is never a moment with zero sessions. When the
// removed session was active, the most recently created survivor takes over.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	cart, idx := m.findLocked(id)
	if cart == nil {
		m.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	if len(m.carts) == 1 {
		m.seq++
		cart.reset(fmt.Sprintf("Order %d", m.seq))
		m.activeID = cart.ID
		m.mu.Unlock()
		m.persist(ctx)
		return nil
	}
	m.carts = append(m.carts[:idx], m.carts[idx+1:]...)
	if m.activeID == id {
		newest := m.carts[0]
		for _, c := range m.carts[1:] {
			if c.CreatedAt.After(newest.CreatedAt) {
				newest = c
			}
		}
		m.activeID = newest.ID
	}
	m.mu.Unlock()
	m.persist(ctx)
	return nil
}

// Rename sets a session's display name.
func (m *Manager) Rename(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	m.mu.Lock()
	cart, _ := m.findLocked(id)
	if cart == nil {
		m.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	cart.Name = name
	m.mu.Unlock()
	m.persist(ctx)
	return nil
}

// SwitchActive makes the named session active.
func (m *Manager) SwitchActive(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	cart, _ := m.findLocked(id)
	if cart == nil {
		m.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	m.activeID = id
	m.mu.Unlock()
	m.persist(ctx)
	return nil
}

// ImportKioskOrder brings a kiosk ticket into a session. A session already
// holding the ticket number is reactivated; otherwise a new session is seeded
// from the ticket's items and named after the customer.
func (m *Manager) ImportKioskOrder(ctx context.Context, order *models.PendingOrder) (*HeldCart, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pending order required")
	}
	m.mu.Lock()
	for _, c := range m.carts {
		if c.TicketNumber != nil && *c.TicketNumber == order.TicketNumber {
			m.activeID = c.ID
			out := cloneCart(c)
			m.mu.Unlock()
			m.persist(ctx)
			return out, nil
		}
	}

	ticket := order.TicketNumber
	name := strings.TrimSpace(order.CustomerName)
	if name == "" {
		name = fmt.Sprintf("Ticket %d", ticket)
	}
	cart := &HeldCart{
		ID:           uuid.New(),
		Name:         name,
		TicketNumber: &ticket,
		CreatedAt:    time.Now().UTC(),
	}
	for _, item := range order.Items {
		line := CartLine{
			ID:          uuid.New(),
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Category:    item.Category,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Note:        item.Note,
		}
		for _, a := range item.Addons {
			line.Addons = append(line.Addons, SelectedAddon{
				OptionID:   a.OptionID,
				Name:       a.Name,
				PriceDelta: a.PriceDelta,
			})
		}
		cart.Lines = append(cart.Lines, line)
	}
	m.carts = append(m.carts, cart)
	m.activeID = cart.ID
	out := cloneCart(cart)
	m.mu.Unlock()
	m.persist(ctx)
	return out, nil
}

// resolveAddons validates the selection against the product's groups and
// returns price-delta snapshots. Required groups need at least one option,
// single-select groups allow at most one.
func resolveAddons(product *models.Product, optionIDs []uuid.UUID) ([]SelectedAddon, error) {
	selected := make(map[uuid.UUID]bool, len(optionIDs))
	for _, id := range optionIDs {
		if selected[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate addon option")
		}
		selected[id] = true
	}

	var out []SelectedAddon
	matched := 0
	for _, group := range product.AddonGroups {
		count := 0
		for _, opt := range group.Options {
			if !selected[opt.ID] {
				continue
			}
			count++
			matched++
			out = append(out, SelectedAddon{
				OptionID:   opt.ID,
				GroupID:    group.ID,
				Name:       opt.Name,
				PriceDelta: opt.PriceDelta,
			})
		}
		if group.Required && count == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("addon group %q requires a selection", group.Name))
		}
		if !group.Multiple && count > 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("addon group %q allows one selection", group.Name))
		}
	}
	if matched != len(optionIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown addon option for product")
	}
	return out, nil
}

// admissionDenied counts an admission refusal by its reason before handing
// the error back. Other error kinds pass through untouched.
func (m *Manager) admissionDenied(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAdmissionDenied {
		return err
	}
	reason := "unknown"
	if details, ok := typed.Details().(map[string]any); ok {
		if v, ok := details["reason"].(string); ok {
			reason = v
		}
	}
	m.metrics.IncAdmissionDenial(reason)
	return err
}

// AddItem adds a product to the active cart. An add matching an existing
// line's product, addon set, and note merges into that line instead of
// appending a duplicate.
func (m *Manager) AddItem(ctx context.Context, in AddItemInput) (*HeldCart, error) {
	if in.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := m.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	addons, err := resolveAddons(product, in.AddonOptionIDs)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	if err := stockguard.CanIncrease(product, cart.CommittedQuantity(product.ID), in.Quantity, true); err != nil {
		return nil, m.admissionDenied(err)
	}

	line := CartLine{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ProductName:    product.Name,
		Category:       product.Category,
		UnitPrice:      product.Price,
		TrackInventory: product.TrackInventory,
		Quantity:       in.Quantity,
		Addons:         addons,
		Note:           strings.TrimSpace(in.Note),
	}
	m.mergeOrAppendLocked(cart, line)
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// AddRewardItem adds a zero-price line paid for in loyalty points.
func (m *Manager) AddRewardItem(ctx context.Context, in AddRewardInput) (*HeldCart, error) {
	if in.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := m.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.PointsPrice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not redeemable for points")
	}
	pointsCost := *product.PointsPrice

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	if cart.MemberID == nil {
		return nil, m.admissionDenied(pkgerrors.New(pkgerrors.CodeAdmissionDenied, "no member assigned").
			WithDetails(map[string]any{"reason": stockguard.ReasonPoints}))
	}
	member, err := m.members.Get(ctx, *cart.MemberID)
	if err != nil {
		return nil, err
	}
	if err := stockguard.CanRedeem(member, m.loyalty.Enabled, cart.TotalPointsRedeemed(), pointsCost*in.Quantity); err != nil {
		return nil, m.admissionDenied(err)
	}
	if err := stockguard.CanIncrease(product, cart.CommittedQuantity(product.ID), in.Quantity, true); err != nil {
		return nil, m.admissionDenied(err)
	}

	line := CartLine{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ProductName:    product.Name,
		Category:       product.Category,
		UnitPrice:      decimal.Zero,
		TrackInventory: product.TrackInventory,
		Quantity:       in.Quantity,
		IsReward:       true,
		PointsCost:     pointsCost,
	}
	m.mergeOrAppendLocked(cart, line)
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

func (m *Manager) mergeOrAppendLocked(cart *HeldCart, line CartLine) {
	key := line.MergeKey()
	for i := range cart.Lines {
		if cart.Lines[i].MergeKey() == key {
			cart.Lines[i].Quantity += line.Quantity
			return
		}
	}
	cart.Lines = append(cart.Lines, line)
}

// UpdateQuantity sets a line's quantity on the active cart. Zero removes the
// line; increases pass back through admission control.
func (m *Manager) UpdateQuantity(ctx context.Context, lineID uuid.UUID, quantity int) (*HeldCart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	idx := -1
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	line := &cart.Lines[idx]

	if delta := quantity - line.Quantity; delta > 0 {
		product, err := m.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if err := stockguard.CanIncrease(product, cart.CommittedQuantity(line.ProductID), delta, false); err != nil {
			return nil, m.admissionDenied(err)
		}
		if line.IsReward {
			if cart.MemberID == nil {
				return nil, m.admissionDenied(pkgerrors.New(pkgerrors.CodeAdmissionDenied, "no member assigned").
					WithDetails(map[string]any{"reason": stockguard.ReasonPoints}))
			}
			member, err := m.members.Get(ctx, *cart.MemberID)
			if err != nil {
				return nil, err
			}
			if err := stockguard.CanRedeem(member, m.loyalty.Enabled, cart.TotalPointsRedeemed(), line.PointsCost*delta); err != nil {
				return nil, m.admissionDenied(err)
			}
		}
	}

	if quantity == 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	} else {
		line.Quantity = quantity
	}
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// RemoveItem drops a line from the active cart.
func (m *Manager) RemoveItem(ctx context.Context, lineID uuid.UUID) (*HeldCart, error) {
	return m.UpdateQuantity(ctx, lineID, 0)
}

// SetNote sets the order-level note on the active cart.
func (m *Manager) SetNote(ctx context.Context, note string) (*HeldCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	cart.Note = strings.TrimSpace(note)
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// AssignMember attaches a member to the active cart. Any redemption already
// on the cart must still fit the new member's balance.
func (m *Manager) AssignMember(ctx context.Context, memberID uuid.UUID) (*HeldCart, error) {
	member, err := m.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	if redeemed := cart.TotalPointsRedeemed(); redeemed > 0 {
		if err := stockguard.CanRedeem(member, m.loyalty.Enabled, 0, redeemed); err != nil {
			return nil, m.admissionDenied(err)
		}
	}
	cart.MemberID = &member.ID
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// ClearMember detaches the member. Redemption depends on a member, so the
// manual redemption amount and any reward lines go with it.
func (m *Manager) ClearMember(ctx context.Context) (*HeldCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	cart.MemberID = nil
	cart.PointsToRedeem = 0
	kept := cart.Lines[:0]
	for _, l := range cart.Lines {
		if !l.IsReward {
			kept = append(kept, l)
		}
	}
	cart.Lines = kept
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// ApplyCoupon attaches an enabled coupon by code.
func (m *Manager) ApplyCoupon(ctx context.Context, code string) (*HeldCart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	coupon, err := m.catalog.GetCoupon(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.Enabled {
		return nil, m.admissionDenied(pkgerrors.New(pkgerrors.CodeAdmissionDenied, "coupon is disabled").
			WithDetails(map[string]any{"reason": "coupon"}))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	cart.CouponCode = &coupon.Code
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// ClearCoupon removes the applied coupon.
func (m *Manager) ClearCoupon(ctx context.Context) (*HeldCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	cart.CouponCode = nil
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// SetPointsToRedeem sets the manual redemption amount on the active cart.
func (m *Manager) SetPointsToRedeem(ctx context.Context, points int) (*HeldCart, error) {
	if points < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must not be negative")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	if points > 0 {
		if cart.MemberID == nil {
			return nil, m.admissionDenied(pkgerrors.New(pkgerrors.CodeAdmissionDenied, "no member assigned").
				WithDetails(map[string]any{"reason": stockguard.ReasonPoints}))
		}
		member, err := m.members.Get(ctx, *cart.MemberID)
		if err != nil {
			return nil, err
		}
		if err := stockguard.CanRedeem(member, m.loyalty.Enabled, cart.RewardPointsCost(), points); err != nil {
			return nil, m.admissionDenied(err)
		}
	}
	cart.PointsToRedeem = points
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// ClearCart empties the active cart's lines and pricing context, keeping the
// session itself.
func (m *Manager) ClearCart(ctx context.Context) (*HeldCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.activeLocked()
	name := cart.Name
	cart.reset(name)
	out := cloneCart(cart)
	m.persistLocked(ctx)
	return out, nil
}

// Quote prices the active cart with its assigned member, coupon, and the
// current tax configuration.
func (m *Manager) Quote(ctx context.Context) (*HeldCart, pricing.Breakdown, error) {
	cart := m.Active()

	var member *models.Member
	if cart.MemberID != nil {
		found, err := m.members.Get(ctx, *cart.MemberID)
		if err != nil {
			return nil, pricing.Breakdown{}, err
		}
		member = found
	}
	var coupon *models.Coupon
	if cart.CouponCode != nil {
		found, err := m.catalog.GetCoupon(ctx, *cart.CouponCode)
		if err != nil {
			return nil, pricing.Breakdown{}, err
		}
		coupon = found
	}
	rates, err := m.catalog.EnabledTaxRates(ctx)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}

	breakdown := pricing.Quote(pricing.Input{
		Lines:          cart.PricingLines(),
		PointsToRedeem: cart.PointsToRedeem,
		Member:         member,
		Coupon:         coupon,
		TaxRates:       rates,
		Loyalty:        m.loyalty,
	})
	return cart, breakdown, nil
}

// snapshotDoc is the persisted form of the session list.
type snapshotDoc struct {
	ActiveID uuid.UUID   `json:"active_id"`
	Seq      int         `json:"seq"`
	Carts    []*HeldCart `json:"carts"`
}

func (m *Manager) persist(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistLocked(ctx)
}

func (m *Manager) persistLocked(ctx context.Context) {
	doc := snapshotDoc{ActiveID: m.activeID, Seq: m.seq, Carts: m.carts}
	raw, err := json.Marshal(doc)
	if err != nil {
		m.logg.Error(ctx, "failed to encode session snapshot", err)
		return
	}
	if err := m.store.Save(ctx, string(raw)); err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "failed to persist session snapshot")
	}
}

// Restore reloads the persisted session list. A missing, corrupt, or invalid
// snapshot leaves the manager with one fresh empty session.
func (m *Manager) Restore(ctx context.Context) error {
	payload, ok, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var doc snapshotDoc
	if err := json.Unmarshal([]byte(payload), &doc); err != nil || len(doc.Carts) == 0 {
		m.logg.Warn(ctx, "discarding corrupt session snapshot")
		m.mu.Lock()
		m.carts = nil
		m.seq = 0
		m.appendFreshLocked()
		m.mu.Unlock()
		m.persist(ctx)
		return nil
	}

	m.mu.Lock()
	m.carts = doc.Carts
	m.seq = doc.Seq
	m.activeID = doc.ActiveID
	if active := m.activeLocked(); active == nil {
		m.activeID = m.carts[len(m.carts)-1].ID
	}
	m.mu.Unlock()
	return nil
}
