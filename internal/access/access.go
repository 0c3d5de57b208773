// Package access decides, from the request path and the two credential
// schemes, whether a page request may proceed or must be redirected.
//
// Classification and decision are separate so each can be tested alone.
// Nothing here touches the data store.
package access

import (
	"path"
	"strings"
)

type Category int

const (
	Public Category = iota
	AdminPath
	UserPath
)

func (c Category) String() string {
	switch c {
	case Public:
		return "public"
	case AdminPath:
		return "admin"
	case UserPath:
		return "user"
	default:
		return "unknown"
	}
}

type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectAdminLogin
	RedirectDashboard
	RedirectAdminDashboard
)

const (
	HomePath           = "/"
	LoginPath          = "/login"
	SignupPath         = "/signup"
	DashboardPath      = "/dashboard"
	AdminLoginPath     = "/admin/login"
	AdminDashboardPath = "/admin"
)

var publicPaths = map[string]struct{}{
	HomePath:       {},
	LoginPath:      {},
	SignupPath:     {},
	AdminLoginPath: {},
}

var excludedPrefixes = []string{
	"/api/",
	"/public/",
	"/static/",
}

var excludedPaths = map[string]struct{}{
	"/api":         {},
	"/favicon.ico": {},
	"/robots.txt":  {},
	"/health":      {},
	"/healthz":     {},
}

// Normalize cleans the path so "/login/" and "/login" classify the same way.
func Normalize(p string) string {
	if p == "" {
		return HomePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Excluded reports paths that are not navigable pages: API routes, static
// assets and health probes. The gate lets them through untouched.
func Excluded(p string) bool {
	p = Normalize(p)
	if _, ok := excludedPaths[p]; ok {
		return true
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Classify maps a path to its category. "/admin" and anything under "/admin/"
// is an admin path except the admin login page; "/administrator" is not.
func Classify(p string) Category {
	p = Normalize(p)
	if _, ok := publicPaths[p]; ok {
		return Public
	}
	if p == AdminDashboardPath || strings.HasPrefix(p, AdminDashboardPath+"/") {
		return AdminPath
	}
	return UserPath
}

// Decide returns the outcome for a classified path. hasUser and isAdmin must
// already reflect verification; a token that failed to verify is absent.
func Decide(p string, category Category, hasUser, isAdmin bool) Decision {
	p = Normalize(p)
	switch category {
	case UserPath:
		if !hasUser {
			return RedirectLogin
		}
		return Allow
	case AdminPath:
		if !isAdmin {
			return RedirectAdminLogin
		}
		return Allow
	case Public:
		if hasUser && (p == LoginPath || p == SignupPath) {
			return RedirectDashboard
		}
		if isAdmin && p == AdminLoginPath {
			return RedirectAdminDashboard
		}
		return Allow
	}
	return Allow
}

// Target is the redirect location for a decision, or "" for Allow.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectAdminLogin:
		return AdminLoginPath
	case RedirectDashboard:
		return DashboardPath
	case RedirectAdminDashboard:
		return AdminDashboardPath
	default:
		return ""
	}
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectAdminLogin:
		return "redirect-admin-login"
	case RedirectDashboard:
		return "redirect-dashboard"
	case RedirectAdminDashboard:
		return "redirect-admin-dashboard"
	default:
		return "unknown"
	}
}
