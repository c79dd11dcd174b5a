// Package views renders the markup of every screen. Each function is pure:
// the same input always yields the same markup, and nothing is retained
// between calls.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/JoshUrdnb/Billed/bill"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

//go:embed static
var staticFS embed.FS

// Static holds the stylesheet referenced by the page shell.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// Page is the empty application shell holding the #root container.
func Page() (string, error) {
	return render("page", nil)
}

// Bills renders the employee's bills, most recent first.
func Bills(bills []bill.Bill) (string, error) {
	return render("bills", bill.SortedByDateDesc(bills))
}

// NewBill renders the blank new-bill form.
func NewBill() (string, error) {
	return render("newbill", struct {
		Types      []bill.Type
		DefaultPct int
	}{bill.Types, bill.DefaultPct})
}

// Error renders msg in place of the page content.
func Error(msg string) (string, error) {
	return render("error", msg)
}

// Receipt renders the receipt image shown inside the bills modal.
func Receipt(url string) (string, error) {
	return render("receipt", url)
}

func Loading() (string, error) {
	return render("loading", nil)
}

// Login renders the employee login form, prefilled with email and showing
// errMsg when it is not empty.
func Login(email, errMsg string) (string, error) {
	return render("login", struct {
		Email string
		Error string
	}{email, errMsg})
}
