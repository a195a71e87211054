package access

import (
	"sort"
	"strings"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

// Dashboard routes.
const (
	RouteDashboard     = "/dashboard"
	RoutePerfil        = "/perfil"
	RouteNotFound      = "/404"
	RouteServerError   = "/500"
	RouteCitas         = "/citas"
	RouteSesiones      = "/sesiones"
	RouteUsuarios      = "/usuarios"
	RouteFinanzas      = "/finanzas"
	RouteReclutamiento = "/reclutamiento"
)

var defaultRoutes = []string{RouteDashboard, RoutePerfil, RouteNotFound, RouteServerError}

var roleRoutes = map[string][]string{
	model.RoleFinanzas:     {RouteFinanzas},
	model.RoleRRHH:         {RouteUsuarios, RouteReclutamiento},
	model.RoleCapacitacion: {RouteReclutamiento},
}

// NavOrder is the sidebar order.
var NavOrder = []model.NavItem{
	{Name: "Dashboard", URL: RouteDashboard},
	{Name: "Citas", URL: RouteCitas},
	{Name: "Sesiones", URL: RouteSesiones},
	{Name: "Usuarios", URL: RouteUsuarios},
	{Name: "Finanzas", URL: RouteFinanzas},
	{Name: "Reclutamiento", URL: RouteReclutamiento},
}

// HasAllRoutes reports whether any role opens every route.
func HasAllRoutes(roles []string) bool {
	for _, r := range roles {
		if r == model.RoleDirectorGeneral || r == model.RoleAsistenteGeneral {
			return true
		}
	}
	return false
}

// StaticRoutes returns the routes granted by the role table alone.
func StaticRoutes(roles []string) map[string]struct{} {
	routes := make(map[string]struct{})
	for _, r := range defaultRoutes {
		routes[r] = struct{}{}
	}
	for _, role := range roles {
		for _, r := range roleRoutes[role] {
			routes[r] = struct{}{}
		}
	}
	return routes
}

// RootPath returns the first segment of url with any query or fragment
// removed, e.g. "/citas/nueva?x=1" becomes "/citas".
func RootPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimLeft(url, "/")
	if i := strings.Index(url, "/"); i >= 0 {
		url = url[:i]
	}
	return "/" + url
}

// CanAccess reports whether a may open url.
func CanAccess(a *model.Access, url string) bool {
	if a == nil {
		return false
	}
	if a.AllRoutes {
		return true
	}
	root := RootPath(url)
	for _, r := range a.AllowedRoutes {
		if r == root {
			return true
		}
	}
	return false
}

// NavItems filters NavOrder down to what a may open.
func NavItems(a *model.Access) []model.NavItem {
	items := make([]model.NavItem, 0, len(NavOrder))
	for _, item := range NavOrder {
		if CanAccess(a, item.URL) {
			items = append(items, item)
		}
	}
	return items
}

// RedirectTarget is where a denied navigation lands.
func RedirectTarget(a *model.Access) string {
	if items := NavItems(a); len(items) > 0 {
		return items[0].URL
	}
	return RouteDashboard
}

func sortedRoutes(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
