package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html><html><head><title>t</title></head><body>
<div id="root"><p data-testid="greeting" class="big">Bonjour</p></div>
<div id="modal" class="modal fade" style="display: none"><div class="modal-body"></div></div>
</body></html>`

func TestQueries(t *testing.T) {
	d := MustParse(page)

	root := d.ByID("root")
	require.NotNil(t, root)
	assert.Equal(t, "div", root.Tag())

	p := d.ByTestID("greeting")
	require.NotNil(t, p)
	assert.Equal(t, "Bonjour", p.Text())
	assert.Nil(t, d.ByTestID("missing"))
	assert.Nil(t, d.ByID(""))
	assert.Len(t, d.AllByTag("div"), 3)
}

func TestClasses(t *testing.T) {
	p := MustParse(page).ByTestID("greeting")

	p.AddClass("active-icon")
	p.AddClass("active-icon")
	assert.Equal(t, []string{"big", "active-icon"}, p.Classes())

	p.RemoveClass("big")
	assert.Equal(t, "active-icon", p.Attr("class"))

	p.RemoveClass("active-icon")
	assert.False(t, p.HasAttr("class"))
	assert.False(t, p.HasClass("active-icon"))
}

func TestStyle(t *testing.T) {
	d := MustParse(page)
	m := d.ByID("modal")
	assert.Equal(t, "none", m.Display())

	m.SetStyle("width", "50%")
	m.SetDisplay("block")
	assert.Equal(t, "block", m.Display())
	assert.Equal(t, "50%", m.Style("width"))
	assert.Equal(t, "display: block; width: 50%", m.Attr("style"))

	p := d.ByTestID("greeting")
	assert.Equal(t, "", p.Display())
	p.SetDisplay("none")
	assert.Equal(t, "display: none", p.Attr("style"))
}

func TestSetInnerHTML(t *testing.T) {
	d := MustParse(page)
	root := d.ByID("root")

	require.NoError(t, root.SetInnerHTML(`<table><tbody data-testid="tbody"><tr><td>1</td></tr></tbody></table>`))
	assert.Nil(t, d.ByTestID("greeting"))
	require.NotNil(t, d.ByTestID("tbody"))
	assert.Len(t, d.AllByTag("tr"), 1)
	assert.Contains(t, root.InnerHTML(), `data-testid="tbody"`)

	root.Clear()
	assert.Empty(t, root.InnerHTML())
}

func TestShowModal(t *testing.T) {
	d := MustParse(page)
	m := d.ByID("modal")

	ShowModal(m)
	assert.True(t, m.HasClass("show"))
	assert.Equal(t, "block", m.Display())
	assert.Equal(t, "false", m.Attr("aria-hidden"))
	assert.Equal(t, "true", m.Attr("aria-modal"))
}

func TestRender(t *testing.T) {
	d := MustParse(page)
	out := d.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Bonjour")
	assert.Contains(t, d.Text(), "Bonjour")
}

func TestSetText_Escapes(t *testing.T) {
	d := MustParse(page)
	p := d.ByTestID("greeting")
	p.SetText("<b>Au revoir</b>")

	assert.Equal(t, "<b>Au revoir</b>", p.Text())
	assert.Equal(t, "&lt;b&gt;Au revoir&lt;/b&gt;", p.InnerHTML())
}
