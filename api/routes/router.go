package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcalloway/tillpoint-backend/api/controllers"
	"github.com/jcalloway/tillpoint-backend/api/middleware"
	catalogsvc "github.com/jcalloway/tillpoint-backend/internal/catalog"
	kitchensvc "github.com/jcalloway/tillpoint-backend/internal/kitchen"
	membersvc "github.com/jcalloway/tillpoint-backend/internal/members"
	settlementsvc "github.com/jcalloway/tillpoint-backend/internal/settlement"
	"github.com/jcalloway/tillpoint-backend/internal/sessions"
	syncersvc "github.com/jcalloway/tillpoint-backend/internal/syncer"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
	"github.com/jcalloway/tillpoint-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gatherer prometheus.Gatherer,
	manager *sessions.Manager,
	catalogService catalogsvc.Service,
	memberService membersvc.Service,
	kitchenService kitchensvc.Service,
	settlementService settlementsvc.Service,
	syncService syncersvc.Service,
	orderMetrics *metrics.OrderMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogList(catalogService, logg))
			r.Get("/products/low-stock", controllers.CatalogLowStock(catalogService, logg))
			r.Get("/products/{productId}", controllers.CatalogDetail(catalogService, logg))
			r.Post("/products/{productId}/restock", controllers.CatalogRestock(catalogService, logg))
			r.Put("/products/{productId}/stock", controllers.CatalogSetStock(catalogService, logg))
			r.Put("/products/{productId}/availability", controllers.CatalogSetAvailability(catalogService, logg))
			r.Get("/coupons/{code}", controllers.CatalogCoupon(catalogService, logg))
			r.Get("/tax-rates", controllers.CatalogTaxRates(catalogService, logg))
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", controllers.MemberList(memberService, logg))
			r.Post("/", controllers.MemberRegister(memberService, logg))
			r.Get("/lookup", controllers.MemberLookup(memberService, logg))
			r.Get("/{memberId}", controllers.MemberDetail(memberService, logg))
			r.Post("/{memberId}/points", controllers.MemberAdjustPoints(memberService, logg))
			r.Put("/{memberId}/frozen", controllers.MemberSetFrozen(memberService, logg))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", controllers.SessionList(manager, logg))
			r.Post("/", controllers.SessionCreate(manager, logg))

			r.Route("/active", func(r chi.Router) {
				r.Get("/", controllers.SessionActive(manager, logg))
				r.Get("/quote", controllers.CartQuote(manager, logg))
				r.Post("/items", controllers.CartAddItem(manager, logg))
				r.Post("/rewards", controllers.CartAddReward(manager, logg))
				r.Put("/items/{lineId}", controllers.CartUpdateQuantity(manager, logg))
				r.Delete("/items/{lineId}", controllers.CartRemoveItem(manager, logg))
				r.Put("/note", controllers.CartSetNote(manager, logg))
				r.Put("/member", controllers.CartAssignMember(manager, logg))
				r.Delete("/member", controllers.CartClearMember(manager, logg))
				r.Put("/coupon", controllers.CartApplyCoupon(manager, logg))
				r.Delete("/coupon", controllers.CartClearCoupon(manager, logg))
				r.Put("/points", controllers.CartSetPoints(manager, logg))
				r.Post("/clear", controllers.CartClear(manager, logg))
				r.Post("/settle", controllers.Settle(settlementService, logg))
			})

			r.Get("/{sessionId}", controllers.SessionDetail(manager, logg))
			r.Delete("/{sessionId}", controllers.SessionRemove(manager, logg))
			r.Put("/{sessionId}/name", controllers.SessionRename(manager, logg))
			r.Post("/{sessionId}/activate", controllers.SessionActivate(manager, logg))
		})

		r.Route("/kitchen", func(r chi.Router) {
			r.Get("/orders", controllers.KitchenList(kitchenService, logg))
			r.Get("/orders/{orderId}", controllers.KitchenDetail(kitchenService, logg))
			r.Post("/orders/{orderId}/stations/{station}", controllers.KitchenAdvanceStation(kitchenService, logg))
			r.Post("/orders/{orderId}/import", controllers.KitchenImport(kitchenService, manager, logg))
			r.Delete("/orders/{orderId}", controllers.KitchenArchive(kitchenService, logg))
		})

		r.Route("/kiosk", func(r chi.Router) {
			r.Post("/orders", controllers.KioskSubmitOrder(cfg, kitchenService, orderMetrics, logg))
			r.Get("/orders/{ticketNumber}", controllers.KioskOrderStatus(kitchenService, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.TransactionList(settlementService, logg))
			r.Get("/{transactionId}", controllers.TransactionDetail(settlementService, logg))
		})

		if syncService != nil {
			r.Route("/sync", func(r chi.Router) {
				r.Post("/push", controllers.SyncPush(syncService, logg))
				r.Post("/pull", controllers.SyncPull(syncService, logg))
			})
		}
	})

	return r
}
