// Package controller holds the behaviour behind each screen. A controller is
// built per navigation from an Env and acts on the document it was given;
// nothing is reached through globals.
package controller

import (
	"context"
	"log/slog"

	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/store"
)

// Env is everything a controller may touch.
type Env struct {
	Document   *dom.Document
	Store      localstore.Store
	Bills      store.Bills
	OnNavigate func(path string)
	Events     eventlogger.Sink
}

// Controller is wired once its view has been rendered into the root.
type Controller interface {
	Mount(ctx context.Context) error
}

func (e Env) navigate(path string) {
	if e.OnNavigate != nil {
		e.OnNavigate(path)
	}
}

func (e Env) event(eventType string, data map[string]string) {
	sink := e.Events
	if sink == nil {
		sink = eventlogger.Discard
	}
	sink.Log(eventlogger.NewEvent(eventlogger.WithType(eventType), eventlogger.WithData(data)))
}

// render replaces the root content with markup. Render failures are logged
// only; the page keeps whatever it showed before.
func (e Env) render(markup string, err error) {
	if err == nil {
		root := e.Document.ByID("root")
		if root == nil {
			slog.Error("document has no root container")
			return
		}
		err = root.SetInnerHTML(markup)
	}
	if err != nil {
		slog.Error("failed to render view", "error", err)
	}
}

// show sets the display of the element carrying testID, when present.
func (e Env) show(testID string, visible bool) *dom.Element {
	el := e.Document.ByTestID(testID)
	if el == nil {
		return nil
	}
	if visible {
		el.SetDisplay("block")
	} else {
		el.SetDisplay("none")
	}
	return el
}
