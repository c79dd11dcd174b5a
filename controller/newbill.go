package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/metrics"
	"github.com/JoshUrdnb/Billed/routes"
)

var ErrMissingReceipt = errors.New("a jpg, jpeg or png receipt is required")

type NewBillController struct {
	env  Env
	file *bill.UploadedFile
}

func NewBill(env Env) *NewBillController {
	return &NewBillController{env: env}
}

func (c *NewBillController) Mount(context.Context) error {
	return nil
}

// File returns the receipt retained for the next submit.
func (c *NewBillController) File() (bill.UploadedFile, bool) {
	if c.file == nil {
		return bill.UploadedFile{}, false
	}
	return *c.file, true
}

// HandleChangeFile checks the selected receipt. An unsupported file is
// dropped and the file input cleared, so it can never be submitted.
func (c *NewBillController) HandleChangeFile(file bill.UploadedFile) bool {
	if err := file.CheckReceipt(); err != nil {
		c.file = nil
		c.env.show("file-error", true)
		if input := c.env.Document.ByTestID(bill.FieldFile); input != nil {
			input.SetAttr("value", "")
		}
		metrics.ReceiptsRejected.Inc()
		c.env.event(eventlogger.ReceiptRejected, map[string]string{"file": file.BaseName()})
		return false
	}

	c.file = &file
	c.env.show("file-error", false)
	return true
}

// HandleSubmit creates the bill described by form with the retained receipt,
// then navigates back to the bills list. Create is attempted once.
func (c *NewBillController) HandleSubmit(ctx context.Context, form bill.Values) error {
	c.keep(form)
	c.env.show("form-error", false)

	u, err := localstore.LoadUser(ctx, c.env.Store)
	if err != nil {
		slog.Error("no usable signed-in user", "error", err)
		c.formError("Veuillez vous reconnecter.")
		return err
	}

	b, err := bill.FromForm(form, u.Email)
	if err != nil {
		c.formError(err.Error())
		return err
	}

	file, ok := c.File()
	if !ok {
		c.env.show("file-error", true)
		return ErrMissingReceipt
	}

	created, err := c.env.Bills.Create(ctx, file, b)
	metrics.ObserveRemote("create", err)
	if err != nil {
		slog.Error("failed to create bill", "error", err, "email", u.Email)
		c.env.event(eventlogger.BillCreateFailed, map[string]string{"email": u.Email, "error": err.Error()})
		c.formError(err.Error())
		return err
	}

	c.file = nil
	c.env.event(eventlogger.BillCreated, map[string]string{"bill_id": created.ID, "email": u.Email, "key": created.Key})
	c.env.navigate(routes.Bills)
	return nil
}

func (c *NewBillController) formError(msg string) {
	if el := c.env.show("form-error", true); el != nil {
		el.SetText(msg)
	}
}

// keep writes the submitted values back into the form so a failed submit
// does not lose them.
func (c *NewBillController) keep(form bill.Values) {
	doc := c.env.Document
	for _, field := range []string{bill.FieldName, bill.FieldDate, bill.FieldAmount, bill.FieldVAT, bill.FieldPct} {
		if el := doc.ByTestID(field); el != nil {
			el.SetAttr("value", form.Get(field))
		}
	}
	if el := doc.ByTestID(bill.FieldCommentary); el != nil {
		el.SetText(form.Get(bill.FieldCommentary))
	}
	if sel := doc.ByTestID(bill.FieldType); sel != nil {
		for _, opt := range sel.AllByTag("option") {
			if opt.Attr("value") == form.Get(bill.FieldType) {
				opt.SetAttr("selected", "")
			} else {
				opt.RemoveAttr("selected")
			}
		}
	}
}
