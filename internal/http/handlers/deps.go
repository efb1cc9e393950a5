package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"marketadmin/internal/domain"
	"marketadmin/internal/metrics"
	"marketadmin/internal/notify"
	"marketadmin/internal/repos"
	"marketadmin/internal/services"
	"marketadmin/internal/storage"
)

type Deps struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics

	AuthHandler     *AuthHandler
	AdminHandler    *AdminHandler
	CategoryHandler *CategoryHandler
	ListingHandler  *ListingHandler
}

func NewDeps(db *sqlx.DB, auth *services.AuthService, files storage.Store, mailer notify.Mailer, events notify.Publisher, m *metrics.Metrics) *Deps {
	userRepo := repos.NewUserRepo(db)
	serviceRepo := repos.NewServiceRepo(db)
	listingRepo := repos.NewAgentServiceRepo(db)

	userSvc := services.NewUserService(userRepo, mailer, events)
	catalogSvc := services.NewCatalogService(serviceRepo, files)
	listingSvc := services.NewListingService(listingRepo, userRepo, serviceRepo, files)

	return &Deps{
		Auth:            auth,
		Metrics:         m,
		AuthHandler:     &AuthHandler{Auth: auth, Metrics: m},
		AdminHandler:    &AdminHandler{Users: userSvc, Metrics: m},
		CategoryHandler: &CategoryHandler{Catalog: catalogSvc, Metrics: m},
		ListingHandler:  &ListingHandler{Listings: listingSvc, Metrics: m},
	}
}

// Mount registers the /api routes on app. loginGuards run in front of the
// login handler (rate limiting in production).
func (d *Deps) Mount(app *fiber.App, loginGuards ...fiber.Handler) {
	api := app.Group("/api", Authenticate(d.Auth))

	login := append(loginGuards, d.AuthHandler.Login)
	api.Post("/auth/login", login...)

	api.Get("/verify-email", d.AdminHandler.VerifyEmail)
	api.Post("/verify-email", d.AdminHandler.VerifyEmail)
	api.Get("/services/category/:categoryType?", d.CategoryHandler.ListByCategory)

	admin := api.Group("/admin", RequireRole(domain.RoleAdmin, d.Metrics))
	admin.Get("/users", d.AdminHandler.ListUsers)
	admin.Delete("/users/:id", d.AdminHandler.DeleteUser)
	admin.Get("/agents", d.AdminHandler.ListAgents)
	admin.Post("/agents", d.AdminHandler.RegisterAgent)

	admin.Post("/services", d.CategoryHandler.Create)
	admin.Get("/services/:id", d.CategoryHandler.View)
	admin.Put("/services/:id", d.CategoryHandler.Update)
	admin.Post("/services/:id", d.CategoryHandler.Update)
	admin.Delete("/services/:id", d.CategoryHandler.Delete)

	admin.Get("/agent-services", d.ListingHandler.List)
	admin.Post("/agent-services", d.ListingHandler.Create)
	admin.Get("/agent-services/:id", d.ListingHandler.View)
	admin.Put("/agent-services/:id", d.ListingHandler.Update)
	admin.Post("/agent-services/:id", d.ListingHandler.Update)
	admin.Delete("/agent-services/:id", d.ListingHandler.Delete)
}
