package server

import "github.com/jrsteele09/crec-session/users"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.Health())

	// OAuth2 / OIDC API routes
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware(s.RateLimitLogins)...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Revoke, ChainMiddleware(s.Revoke(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteUserInfo, ChainMiddleware(s.UserInfo(), s.APIMiddleware(s.RequireAuth())...))

	// FabLab
	s.RegisterRouteHandler("POST "+RouteFabLabVerify, ChainMiddleware(s.FabLabVerify(), s.APIMiddleware(s.RateLimitLogins)...))
	s.RegisterRouteHandler("GET "+RouteFabLabEquipment, ChainMiddleware(s.FabLabEquipment(), s.APIMiddleware(s.RequireAuth(), s.RequireMember())...))

	// Admin API
	s.RegisterRouteHandler("GET "+RouteAdminCourses, ChainMiddleware(s.AdminCourses(), s.APIMiddleware(s.RequireAuth(), s.RequirePermission(users.PermCoursesRead))...))

	// Preflight for every API route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.NoContent(), s.APIMiddleware()...))
}
