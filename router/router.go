// Package router maps navigation paths to a view and the controller wiring
// it, and keeps the navigation icons in step with the current screen.
package router

import (
	"context"
	"log/slog"

	"github.com/JoshUrdnb/Billed/controller"
)

const (
	activeIconClass = "active-icon"
	routeAttr       = "data-route"
)

type Route struct {
	Path       string
	View       func() (string, error)
	Controller func(env controller.Env) controller.Controller
}

type Router struct {
	routes map[string]Route
}

// New builds the route registry. Later routes replace earlier ones with the
// same path.
func New(routes ...Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes))}
	for _, route := range routes {
		r.routes[route.Path] = route
	}
	return r
}

// Navigate renders the screen at path into env's document and mounts its
// controller, which it returns. Unknown paths are logged and ignored.
func (r *Router) Navigate(ctx context.Context, env controller.Env, path string) controller.Controller {
	route, ok := r.routes[path]
	if !ok {
		slog.Warn("navigation to unknown route", "path", path)
		return nil
	}

	root := env.Document.ByID("root")
	if root == nil {
		slog.Error("document has no root container", "path", path)
		return nil
	}
	root.Clear()

	if route.View != nil {
		markup, err := route.View()
		if err == nil {
			err = root.SetInnerHTML(markup)
		}
		if err != nil {
			slog.Error("failed to render view", "path", path, "error", err)
			return nil
		}
	}

	var c controller.Controller
	if route.Controller != nil {
		c = route.Controller(env)
		if err := c.Mount(ctx); err != nil {
			slog.Error("failed to mount controller", "path", path, "error", err)
		}
	}

	for _, icon := range env.Document.AllWithAttr(routeAttr) {
		if icon.Attr(routeAttr) == path {
			icon.AddClass(activeIconClass)
		} else {
			icon.RemoveClass(activeIconClass)
		}
	}

	return c
}
