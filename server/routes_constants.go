package server

// Route path constants
const (
	// OAuth2 / OIDC Routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteOAuth2Token           = "/oauth2/token"
	RouteOAuth2Revoke          = "/oauth2/revoke"
	RouteUserInfo              = "/userinfo"

	// FabLab Routes
	RouteFabLabVerify    = "/api/fablab/verify"
	RouteFabLabEquipment = "/api/fablab/equipment"

	// Admin API Routes
	RouteAdminCourses = "/api/admin/courses"

	RouteHealth = "/healthz"
)
