// Package http provides the HTTP transport layer: routing, handlers, and
// request middleware.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/MarketGo/internal/auth"
	"github.com/utafrali/MarketGo/internal/domain"
	"github.com/utafrali/MarketGo/internal/service"
	"github.com/utafrali/MarketGo/pkg/health"
	"github.com/utafrali/MarketGo/pkg/middleware"
)

// publicCacheMaxAge is the Cache-Control max-age for public catalog GETs.
const publicCacheMaxAge = 60

// RouterConfig bundles the dependencies for NewRouter.
type RouterConfig struct {
	UserService     *service.UserService
	ProductService  *service.ProductService
	CategoryService *service.CategoryService
	BrandService    *service.BrandService
	BasketService   *service.BasketService
	OrderService    *service.OrderService
	ReviewService   *service.ReviewService

	JWTManager    *auth.JWTManager
	HealthHandler *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("marketgo"))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.HTTPMetrics())

	// Operational endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	// Token validator that bridges to the internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := cfg.JWTManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	requireAuth := middleware.Auth(tokenValidator)
	requireStaff := middleware.RequireRole(domain.RoleManager, domain.RoleAdmin)
	requireAdmin := middleware.RequireRole(domain.RoleAdmin)

	authHandler := NewAuthHandler(cfg.UserService, cfg.Logger)
	userHandler := NewUserHandler(cfg.UserService, cfg.Logger)
	productHandler := NewProductHandler(cfg.ProductService, cfg.Logger)
	categoryHandler := NewCategoryHandler(cfg.CategoryService, cfg.Logger)
	brandHandler := NewBrandHandler(cfg.BrandService, cfg.Logger)
	basketHandler := NewBasketHandler(cfg.BasketService, cfg.Logger)
	orderHandler := NewOrderHandler(cfg.OrderService, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/verify", authHandler.Verify)
				r.Post("/resend-verification", authHandler.ResendVerification)
				r.Post("/change-password", authHandler.ChangePassword)
			})
		})

		// User profile endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", userHandler.GetProfile)
			r.Put("/me", userHandler.UpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/{id}", userHandler.GetUser)
				r.Put("/{id}", userHandler.UpdateUser)
			})
		})

		// Public catalog reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(publicCacheMaxAge))

			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/{slug}", productHandler.GetProduct)
			r.Get("/products/{id}/images", productHandler.ListImages)
			r.Get("/products/{id}/fields", productHandler.ListFieldValues)
			r.Get("/products/{id}/reviews", reviewHandler.ListReviews)
			r.Get("/products/{id}/reviews/summary", reviewHandler.GetReviewSummary)
			r.Get("/product-fields", productHandler.ListFields)
			r.Get("/categories", categoryHandler.ListCategories)
			r.Get("/categories/{slug}", categoryHandler.GetCategory)
			r.Get("/brands", brandHandler.ListBrands)
			r.Get("/brands/{slug}", brandHandler.GetBrand)
		})

		// Catalog management (staff only)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireStaff)

			r.Post("/products", productHandler.CreateProduct)
			r.Put("/products/{id}", productHandler.UpdateProduct)
			r.Delete("/products/{id}", productHandler.DeleteProduct)
			r.Post("/products/{id}/images", productHandler.AddImage)
			r.Delete("/products/{id}/images/{imageId}", productHandler.DeleteImage)
			r.Post("/product-fields", productHandler.CreateField)
			r.Put("/products/{id}/fields/{fieldId}", productHandler.SetFieldValue)
			r.Delete("/products/{id}/fields/{fieldId}", productHandler.DeleteFieldValue)

			r.Post("/categories", categoryHandler.CreateCategory)
			r.Put("/categories/{id}", categoryHandler.UpdateCategory)
			r.Delete("/categories/{id}", categoryHandler.DeleteCategory)
			r.Post("/brands", brandHandler.CreateBrand)
			r.Put("/brands/{id}", brandHandler.UpdateBrand)
			r.Delete("/brands/{id}", brandHandler.DeleteBrand)
		})

		// Basket endpoints (auth required)
		r.Route("/basket", func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/", basketHandler.GetBasket)
			r.Post("/items", basketHandler.AddItem)
			r.Put("/items/{productId}", basketHandler.UpdateItem)
			r.Delete("/items/{productId}", basketHandler.RemoveItem)
		})

		// Order endpoints (auth required)
		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Post("/{id}/cancel", orderHandler.CancelOrder)
		})

		// Review submission (auth required)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/products/{id}/reviews", reviewHandler.CreateReview)
		})

		// Order administration (staff only)
		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(requireAuth, requireStaff)

			r.Get("/", orderHandler.ListAllOrders)
			r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
		})
	})

	return r
}

// ContentTypeJSON enforces that requests with a body have
// Content-Type: application/json. Body-less requests pass through so
// endpoints like cancel and logout work without any header.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
