package server

import (
	"context"

	"travel-storefront/internal/handler"
	appmiddleware "travel-storefront/internal/middleware"
	"travel-storefront/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	session         service.Session
	catalogHandler  *handler.CatalogHandler
	cartHandler     *handler.CartHandler
	checkoutHandler *handler.CheckoutHandler
	historyHandler  *handler.HistoryHandler
	sessionHandler  *handler.SessionHandler
}

func NewServer(
	session service.Session,
	notifier service.Notifier,
	catalogService service.CatalogService,
	cartStore service.CartStore,
	checkoutService service.CheckoutService,
	dashboardService service.DashboardService,
	ledger service.Ledger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		session:         session,
		catalogHandler:  handler.NewCatalogHandler(catalogService),
		cartHandler:     handler.NewCartHandler(cartStore),
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		historyHandler:  handler.NewHistoryHandler(dashboardService, ledger, notifier),
		sessionHandler:  handler.NewSessionHandler(session, notifier),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.GET("/session", s.sessionHandler.GetSession)
	api.POST("/session", s.sessionHandler.Login)
	api.DELETE("/session", s.sessionHandler.Logout)
	api.GET("/notices", s.sessionHandler.Notices)

	api.GET("/destinos", s.catalogHandler.ListDestinations)

	// -------- logged in --------
	auth := api.Group("", appmiddleware.RequireSession(s.session))
	auth.GET("/payment-methods", s.catalogHandler.ListPaymentMethods)

	cart := auth.Group("/cart")
	cart.GET("", s.cartHandler.GetCart)
	cart.DELETE("", s.cartHandler.ClearCart)
	cart.PUT("/selection", s.cartHandler.SelectAll)
	cart.POST("/items", s.cartHandler.AddItem)
	cart.DELETE("/items/:id", s.cartHandler.RemoveItem)
	cart.PUT("/items/:id/quantity", s.cartHandler.UpdateQuantity)
	cart.PUT("/items/:id/date", s.cartHandler.UpdateDate)
	cart.PUT("/items/:id/selected", s.cartHandler.SetSelected)
	cart.POST("/items/:id/buy", s.checkoutHandler.BuyNow)

	auth.POST("/checkout", s.checkoutHandler.Checkout)

	auth.GET("/history", s.historyHandler.GetHistory)
	auth.GET("/history/local", s.historyHandler.GetLocalHistory)
	auth.DELETE("/history", s.historyHandler.ClearHistory)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
