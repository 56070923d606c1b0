package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gildedwren/storefront/internal/auth"
)

type RouterDeps struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Products *ProductHandler
	Admin    *AdminHandler
	Misc     *MiscHandler
	Auth     *auth.Service

	RequestTimeout time.Duration
	MaxBodySize    int64
	UploadDir      string
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	if deps.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(deps.MaxBodySize))
	}
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", deps.Misc.Health)

	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", deps.Cart.GetCart)
			r.Post("/items", deps.Cart.AddItem)
			r.Put("/items/{product_id}", deps.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", deps.Cart.RemoveItem)
			r.Delete("/", deps.Cart.ClearCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", deps.Checkout.Begin)
			r.Get("/{id}", deps.Checkout.GetSession)
			r.Post("/{id}/shipping", deps.Checkout.SubmitShipping)
			r.Post("/{id}/payment", deps.Checkout.EnterPayment)
			r.Post("/{id}/back", deps.Checkout.Back)
			r.Post("/{id}/confirm", deps.Checkout.Confirm)
			r.Delete("/{id}", deps.Checkout.Cancel)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", deps.Products.List)
			r.Get("/{id}", deps.Products.Get)

			r.Group(func(r chi.Router) {
				r.Use(AdminMiddleware(deps.Auth))
				r.Post("/", deps.Products.Create)
				r.Delete("/{id}", deps.Products.Delete)
			})
		})

		r.Post("/newsletter", deps.Misc.Newsletter)
		r.Post("/contact", deps.Misc.Contact)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", deps.Admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(AdminMiddleware(deps.Auth))
				r.Post("/logout", deps.Admin.Logout)
				r.Post("/upload", deps.Misc.Upload)
				r.Get("/orders", deps.Admin.ListOrders)
				r.Get("/orders/{id}", deps.Admin.GetOrder)
			})
		})
	})

	return r
}
