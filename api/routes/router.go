package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/easyshop-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/easyshop-backend/api/controllers/webhooks"
	"github.com/angelmondragon/easyshop-backend/api/middleware"
	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/internal/chat"
	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/internal/payments"
	"github.com/angelmondragon/easyshop-backend/internal/payouts"
	"github.com/angelmondragon/easyshop-backend/internal/wishlist"
	"github.com/angelmondragon/easyshop-backend/internal/withdrawals"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/easyshop-backend/pkg/redis"
)

// Replays of money-moving requests are kept for a week, the rest for a day.
const (
	replayTTL         = 24 * time.Hour
	criticalReplayTTL = 7 * 24 * time.Hour
)

// Deps carries everything the router hands to controllers. Nil services
// answer with an internal error instead of panicking.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	Readiness        map[string]controllers.Pinger
	IdempotencyStore pkgredis.IdempotencyStore
	Metrics          http.Handler

	Cart        cart.Service
	Orders      orders.Service
	Payments    payments.Service
	Withdrawals withdrawals.Service
	Payouts     payouts.Service
	Wishlist    wishlist.Service
	Chat        chat.Service
	Presence    controllers.SocketServer

	StripeSigner webhookcontrollers.SigningSecretSource
	StripeGuard  webhookcontrollers.EventGuard
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins, cfg.App.FrontendURL),
	)

	idem := middleware.Idempotency(d.IdempotencyStore, replayTTL, logg)
	idemCritical := middleware.Idempotency(d.IdempotencyStore, criticalReplayTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.Get("/ws", controllers.PresenceSocket(d.Presence, cfg.JWT, logg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(d.Payments, d.StripeSigner, d.StripeGuard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartSummary(d.Cart, logg))
					r.With(idem).Post("/", controllers.CartAdd(d.Cart, logg))
					r.Delete("/{cartItemId}", controllers.CartRemove(d.Cart, logg))
					r.Put("/{cartItemId}/increment", controllers.CartIncrement(d.Cart, logg))
					r.Put("/{cartItemId}/decrement", controllers.CartDecrement(d.Cart, logg))
				})
				r.Route("/orders", func(r chi.Router) {
					r.With(idemCritical).Post("/", controllers.PlaceOrder(d.Orders, d.Cart, logg))
					r.Get("/", controllers.ListCustomerOrders(d.Orders, logg))
					r.Get("/dashboard", controllers.CustomerDashboard(d.Orders, logg))
					r.Get("/{orderId}", controllers.CustomerOrderDetail(d.Orders, logg))
					r.With(idem).Post("/{orderId}/payment-intent", controllers.CreatePaymentIntent(d.Payments, logg))
				})
				r.Route("/wishlist", func(r chi.Router) {
					r.Get("/", controllers.WishlistList(d.Wishlist, logg))
					r.With(idem).Post("/", controllers.WishlistAdd(d.Wishlist, logg))
					r.Delete("/{itemId}", controllers.WishlistRemove(d.Wishlist, logg))
				})
				r.Post("/chat/customer/messages", controllers.ChatCustomerToSeller(d.Chat, logg))
				r.Get("/chat/customer/messages/{sellerId}", controllers.ChatCustomerConversation(d.Chat, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleSeller))

				r.Route("/seller", func(r chi.Router) {
					r.Get("/orders", controllers.SellerListOrders(d.Orders, logg))
					r.Get("/orders/{sellerOrderId}", controllers.SellerOrderDetail(d.Orders, logg))
					r.Put("/orders/{sellerOrderId}/status", controllers.SellerUpdateOrderStatus(d.Orders, logg))
					r.Get("/payments", controllers.SellerBalance(d.Withdrawals, logg))
					r.With(idemCritical).Post("/withdrawals", controllers.SellerRequestWithdrawal(d.Withdrawals, logg))
					r.With(idem).Post("/stripe/connect", controllers.SellerStripeConnect(d.Payouts, logg))
					r.Put("/stripe/activate/{code}", controllers.SellerStripeActivate(d.Payouts, logg))
				})
				r.Post("/chat/seller/messages", controllers.ChatSellerToCustomer(d.Chat, logg))
				r.Post("/chat/seller/admin-messages", controllers.ChatSellerToAdmin(d.Chat, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

				r.Route("/admin", func(r chi.Router) {
					r.Get("/orders", controllers.AdminListOrders(d.Orders, logg))
					r.Get("/orders/{orderId}", controllers.AdminOrderDetail(d.Orders, logg))
					r.Put("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(d.Orders, logg))
					r.With(idemCritical).Put("/orders/{orderId}/confirm", controllers.AdminConfirmPayment(d.Orders, logg))
					r.Get("/withdrawals", controllers.AdminListWithdrawals(d.Withdrawals, logg))
					r.With(idemCritical).Put("/withdrawals/{withdrawalId}/confirm", controllers.AdminConfirmWithdrawal(d.Withdrawals, logg))
				})
				r.Post("/chat/admin/messages", controllers.ChatAdminToSeller(d.Chat, logg))
			})
		})
	})

	return r
}
