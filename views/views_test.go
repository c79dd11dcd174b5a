package views_test

import (
	"regexp"
	"testing"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/billtest"
	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var isoDate = regexp.MustCompile(`^(19|20)\d\d[- /.](0[1-9]|1[012])[- /.](0[1-9]|[12][0-9]|3[01])$`)

func mount(t *testing.T, render func() (string, error)) *dom.Document {
	t.Helper()
	markup, err := render()
	require.NoError(t, err)

	page, err := views.Page()
	require.NoError(t, err)
	doc, err := dom.Parse(page)
	require.NoError(t, err)

	root := doc.ByID("root")
	require.NotNil(t, root)
	require.NoError(t, root.SetInnerHTML(markup))
	return doc
}

func TestBills_DatesMostRecentFirst(t *testing.T) {
	doc := mount(t, func() (string, error) { return views.Bills(billtest.Bills()) })

	var dates []string
	for _, td := range doc.AllByTag("td") {
		if isoDate.MatchString(td.Text()) {
			dates = append(dates, td.Text())
		}
	}
	require.Len(t, dates, 4)
	for i := 0; i+1 < len(dates); i++ {
		assert.GreaterOrEqual(t, dates[i], dates[i+1])
	}
}

func TestBills_Markers(t *testing.T) {
	doc := mount(t, func() (string, error) { return views.Bills(billtest.Bills()) })

	assert.Contains(t, doc.Text(), "Mes notes de frais")
	require.NotNil(t, doc.ByTestID("tbody"))
	assert.Len(t, doc.AllByTag("tr"), 5)
	assert.NotNil(t, doc.ByID("modaleFile"))
	assert.Equal(t, "none", doc.ByID("modaleFile").Display())

	eyes := doc.AllByTestID("icon-eye")
	require.Len(t, eyes, 4)
	assert.Equal(t, "47qAXb6fIm2zOKkLzMro", eyes[0].Attr("data-bill-id"))
	assert.Equal(t, "https://receipts.example.com/47qAXb6fIm2zOKkLzMro.jpg", eyes[0].Attr("data-bill-url"))
	assert.Equal(t, routes.Receipt("47qAXb6fIm2zOKkLzMro"), eyes[0].Attr("href"))

	statuses := doc.AllByTestID("bill-status")
	require.Len(t, statuses, 4)
	assert.Equal(t, "En attente", statuses[0].Text())

	assert.Equal(t, routes.NewBill, doc.ByTestID("btn-new-bill").Attr("href"))
	assert.Equal(t, routes.Export, doc.ByTestID("btn-export").Attr("href"))
}

func TestBills_Empty(t *testing.T) {
	doc := mount(t, func() (string, error) { return views.Bills(nil) })

	assert.NotNil(t, doc.ByTestID("tbody"))
	assert.Len(t, doc.AllByTag("tr"), 1)
	assert.Empty(t, doc.AllByTestID("icon-eye"))
}

func TestBills_Deterministic(t *testing.T) {
	a, err := views.Bills(billtest.Bills())
	require.NoError(t, err)
	b, err := views.Bills(billtest.Bills())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewBill_Fields(t *testing.T) {
	doc := mount(t, views.NewBill)

	form := doc.ByTestID("form-new-bill")
	require.NotNil(t, form)
	assert.Equal(t, routes.NewBill, form.Attr("action"))
	assert.Equal(t, "multipart/form-data", form.Attr("enctype"))

	for _, id := range []string{
		bill.FieldType, bill.FieldName, bill.FieldDate, bill.FieldAmount,
		bill.FieldVAT, bill.FieldPct, bill.FieldCommentary, bill.FieldFile,
	} {
		el := doc.ByTestID(id)
		if assert.NotNil(t, el, id) {
			assert.Equal(t, id, el.Attr("name"))
		}
	}

	assert.Len(t, doc.ByTestID(bill.FieldType).AllByTag("option"), len(bill.Types))
	assert.Equal(t, "none", doc.ByTestID("file-error").Display())
	assert.Equal(t, "none", doc.ByTestID("form-error").Display())
	assert.Contains(t, doc.ByID("btn-send-bill").Text(), "Envoyer")
}

func TestLayout_Icons(t *testing.T) {
	doc := mount(t, views.NewBill)

	window := doc.ByTestID("icon-window")
	mail := doc.ByTestID("icon-mail")
	require.NotNil(t, window)
	require.NotNil(t, mail)
	assert.Equal(t, routes.Bills, window.Attr("data-route"))
	assert.Equal(t, routes.NewBill, mail.Attr("data-route"))
	assert.False(t, window.HasClass("active-icon"))
	assert.NotNil(t, doc.ByTestID("layout-disconnect"))
}

func TestError(t *testing.T) {
	doc := mount(t, func() (string, error) { return views.Error("Erreur 404") })

	assert.Equal(t, "Erreur 404", doc.ByTestID("error-message").Text())
	assert.Empty(t, doc.AllByTag("tr"))
}

func TestError_EscapesMessage(t *testing.T) {
	markup, err := views.Error("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, markup, "<script>")
}

func TestLogin(t *testing.T) {
	doc := mount(t, func() (string, error) { return views.Login("", "") })
	assert.Equal(t, "none", doc.ByTestID("login-error").Display())

	doc = mount(t, func() (string, error) { return views.Login("a@a", "Email ou mot de passe incorrect") })
	assert.Equal(t, "", doc.ByTestID("login-error").Display())
	assert.Equal(t, "Email ou mot de passe incorrect", doc.ByTestID("login-error").Text())
	assert.Equal(t, "a@a", doc.ByTestID("employee-email-input").Attr("value"))
}

func TestLoading(t *testing.T) {
	doc := mount(t, views.Loading)
	assert.Equal(t, "Loading...", doc.ByTestID("loading").Text())
}

func TestReceipt(t *testing.T) {
	markup, err := views.Receipt("https://receipts.example.com/a.png")
	require.NoError(t, err)
	doc := dom.MustParse(markup)
	assert.Equal(t, "https://receipts.example.com/a.png", doc.ByTestID("receipt-image").Attr("src"))

	markup, err = views.Receipt("javascript:alert(1)")
	require.NoError(t, err)
	assert.NotContains(t, markup, "javascript:")
}
