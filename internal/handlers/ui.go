package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Page renders a template. Access is decided by the gate before this runs.
func Page(template, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, template, gin.H{
			"title":  title,
			"path":   c.Request.URL.Path,
			"params": c.Params,
		})
	}
}

// PageRoute pairs a gated page path with its template.
type PageRoute struct {
	Path     string
	Template string
	Title    string
}

var UserPages = []PageRoute{
	{"/", "home.html", "SitePlanner"},
	{"/login", "login.html", "Sign in"},
	{"/signup", "signup.html", "Create account"},
	{"/dashboard", "dashboard.html", "Dashboard"},
	{"/projects", "projects.html", "Projects"},
	{"/projects/:id", "project.html", "Project"},
	{"/queries", "queries.html", "Assistant"},
	{"/activity", "activity.html", "Activity"},
}

var AdminPages = []PageRoute{
	{"/admin/login", "admin_login.html", "Admin sign in"},
	{"/admin", "admin_dashboard.html", "Admin"},
	{"/admin/users", "admin_users.html", "Users"},
	{"/admin/projects", "admin_projects.html", "Projects"},
	{"/admin/queries", "admin_queries.html", "Queries"},
}

func RegisterPages(r gin.IRoutes, pages []PageRoute) {
	for _, p := range pages {
		r.GET(p.Path, Page(p.Template, p.Title))
	}
}
