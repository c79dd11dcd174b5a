package dom

// ShowModal opens a Bootstrap-style modal rendered in its hidden state.
func ShowModal(modal *Element) {
	modal.AddClass("show")
	modal.SetDisplay("block")
	modal.SetAttr("aria-hidden", "false")
	modal.SetAttr("aria-modal", "true")
}

