package common

import "time"

// AdminTokenCookieName is the cookie that carries the identity provider's
// session token for the admin dashboard.
const AdminTokenCookieName = "admin-token"

// Session lifetimes issued on login.
const (
	SessionMaxAge         = 24 * time.Hour
	SessionRememberMaxAge = 30 * 24 * time.Hour
)
