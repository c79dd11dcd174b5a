package controller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/metrics"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/views"
)

type BillsController struct {
	env Env
	// ShowModal opens the receipt modal.
	ShowModal func(modal *dom.Element)
}

func Bills(env Env) *BillsController {
	return &BillsController{env: env, ShowModal: dom.ShowModal}
}

func (c *BillsController) Mount(ctx context.Context) error {
	c.LoadAndRenderBills(ctx)
	return nil
}

// LoadAndRenderBills replaces the root with the employee's bills, most recent
// first, or with the failure message when they cannot be listed.
func (c *BillsController) LoadAndRenderBills(ctx context.Context) {
	bills, err := c.env.Bills.List(ctx)
	metrics.ObserveRemote("list", err)
	if err != nil {
		slog.Error("failed to list bills", "error", err)
		c.env.render(views.Error(err.Error()))
		return
	}

	bill.SortByDateDesc(bills)
	c.env.render(views.Bills(bills))
}

// HandleClickIconEye returns the click handler of a receipt trigger.
func (c *BillsController) HandleClickIconEye(trigger *dom.Element) func() {
	return func() {
		modal := c.env.Document.ByID("modaleFile")
		if modal == nil {
			slog.Warn("receipt modal missing from document")
			return
		}
		body := modal.ByClass("modal-body")
		if body == nil {
			slog.Warn("receipt modal has no body")
			return
		}

		markup, err := views.Receipt(trigger.Attr("data-bill-url"))
		if err == nil {
			err = body.SetInnerHTML(markup)
		}
		if err != nil {
			slog.Error("failed to render receipt", "error", err)
			return
		}
		c.ShowModal(modal)
	}
}

// OpenReceipt clicks the receipt trigger of bill id. It reports whether the
// bill is on screen.
func (c *BillsController) OpenReceipt(id string) bool {
	for _, eye := range c.env.Document.AllByTestID("icon-eye") {
		if eye.Attr("data-bill-id") == id {
			c.HandleClickIconEye(eye)()
			return true
		}
	}
	return false
}

func (c *BillsController) HandleClickNewBill() {
	c.env.navigate(routes.NewBill)
}

// Export writes every bill of the employee as an XLSX workbook.
func (c *BillsController) Export(ctx context.Context, w io.Writer) error {
	bills, err := c.env.Bills.List(ctx)
	metrics.ObserveRemote("list", err)
	if err != nil {
		return fmt.Errorf("listing bills: %w", err)
	}

	if err := bill.WriteXLSX(w, bills); err != nil {
		return err
	}

	c.env.event(eventlogger.BillsExported, map[string]string{"count": strconv.Itoa(len(bills))})
	return nil
}
