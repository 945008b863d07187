package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/avorland/course-registration/internal/handler"    // import the handlers that implement business logic
	"github.com/avorland/course-registration/internal/middleware" // import middleware for JWT authentication and admin enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	// Protected endpoint returning the caller's identity.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterCatalogue registers the public lecture and course reads.
// These routes apply no JWT middleware; the optional extra middleware
// (typically the Redis response cache) is applied to all of them.
func RegisterCatalogue(e *echo.Echo, l *handler.LectureHandler, co *handler.CourseHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	g.GET("/lectures", l.ListLectures)
	g.GET("/lectures/:id", l.GetLecture)
	g.GET("/courses", co.ListCourses)
	g.GET("/courses/:id", co.GetCourse)
}

// RegisterRegistrations registers the authenticated signup, selection
// and payment routes.  The extra middleware (typically the Redis token
// bucket rate limiter) is applied on top of JWT auth so bursts of
// signup traffic at registration opening are shed per user.
func RegisterRegistrations(e *echo.Echo, s *handler.SignupHandler, sel *handler.SelectionHandler, p *handler.PaymentHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(mw...)

	g.POST("/signups", s.CreateSignups)
	g.GET("/signups", s.ListSignups)
	g.GET("/signups/:id", s.GetSignup)
	g.PATCH("/signups/:id", s.UpdateSignup)
	g.DELETE("/signups/:id", s.DeleteSignup)

	g.POST("/selections", sel.CreateSelection)
	g.GET("/selections", sel.ListSelections)
	g.GET("/selections/:id", sel.GetSelection)
	g.PATCH("/selections/:id", sel.UpdateSelection)
	g.DELETE("/selections/:id", sel.DeleteSelection)

	g.POST("/payments", p.CreatePayment)
}

// RegisterAdmin registers the admin-only mutations: the lecture and
// course catalogue plus payment bookkeeping.
func RegisterAdmin(e *echo.Echo, l *handler.LectureHandler, co *handler.CourseHandler, p *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireAdmin())

	g.POST("/lectures", l.CreateLecture)
	g.DELETE("/lectures/:id", l.DeleteLecture)

	g.POST("/courses", co.CreateCourse)
	g.PATCH("/courses/:id", co.UpdateCourse)
	g.DELETE("/courses/:id", co.DeleteCourse)

	g.GET("/payments", p.ListPayments)
	g.GET("/payments/:id", p.GetPayment)
	g.DELETE("/payments/:id", p.DeletePayment)
}
