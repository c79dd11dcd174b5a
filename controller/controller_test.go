package controller_test

import (
	"context"
	"sync"
	"testing"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/controller"
	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/store"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/JoshUrdnb/Billed/views"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type createCall struct {
	file bill.UploadedFile
	bill bill.Bill
}

// fakeBills is a store.Bills whose answers are set by each test.
type fakeBills struct {
	mu        sync.Mutex
	bills     []bill.Bill
	listErr   error
	createErr error
	creates   []createCall
}

func (f *fakeBills) List(context.Context) ([]bill.Bill, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]bill.Bill, len(f.bills))
	copy(out, f.bills)
	return out, nil
}

func (f *fakeBills) Create(_ context.Context, file bill.UploadedFile, b bill.Bill) (*store.CreatedBill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{file: file, bill: b})
	if f.createErr != nil {
		return nil, f.createErr
	}
	b.ID = "new-bill"
	b.FileURL = "https://localhost:3456/images/test.jpg"
	b.FileName = file.BaseName()
	return &store.CreatedBill{Key: "1234", Bill: b}, nil
}

func (f *fakeBills) Update(_ context.Context, b bill.Bill) (*bill.Bill, error) {
	return &b, nil
}

type harness struct {
	doc       *dom.Document
	store     *localstore.Memory
	bills     *fakeBills
	events    *eventlogger.Recorder
	navigated []string
}

// newHarness mounts render into a fresh page with employee a@a signed in.
func newHarness(t *testing.T, render func() (string, error)) *harness {
	t.Helper()
	page, err := views.Page()
	require.NoError(t, err)
	doc, err := dom.Parse(page)
	require.NoError(t, err)

	if render != nil {
		markup, err := render()
		require.NoError(t, err)
		require.NoError(t, doc.ByID("root").SetInnerHTML(markup))
	}

	st := localstore.NewMemory()
	require.NoError(t, localstore.SaveUser(context.Background(), st, user.Current{Type: user.TypeEmployee, Email: "a@a"}))

	return &harness{doc: doc, store: st, bills: &fakeBills{}, events: &eventlogger.Recorder{}}
}

func (h *harness) env() controller.Env {
	return controller.Env{
		Document:   h.doc,
		Store:      h.store,
		Bills:      h.bills,
		Events:     h.events,
		OnNavigate: func(path string) { h.navigated = append(h.navigated, path) },
	}
}

func employee() *user.User {
	return &user.User{ID: uuid.New(), Email: "a@a", Type: user.TypeEmployee}
}
