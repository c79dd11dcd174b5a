package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/controller"
	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/middleware"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/store"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/JoshUrdnb/Billed/views"
	"github.com/go-chi/chi/v5"
)

// screen is the document of one request and the navigation requested while
// it was being handled.
type screen struct {
	doc  *dom.Document
	env  controller.Env
	next string
}

func (s *Server) newScreen(r *http.Request) (*screen, error) {
	page, err := views.Page()
	if err != nil {
		return nil, err
	}
	doc, err := dom.Parse(page)
	if err != nil {
		return nil, err
	}

	st, ok := middleware.GetStore(r.Context())
	if !ok {
		st = localstore.NewMemory()
	}

	sc := &screen{doc: doc}
	sc.env = controller.Env{
		Document:   doc,
		Store:      st,
		Bills:      s.billsFor(r.Context(), st),
		Events:     s.deps.Events,
		OnNavigate: func(path string) { sc.next = path },
	}
	return sc, nil
}

// billsFor picks the bills backend of the signed-in employee, nil for
// anonymous visitors.
func (s *Server) billsFor(ctx context.Context, st localstore.Store) store.Bills {
	current, ok := middleware.GetCurrentUser(ctx)
	if !ok {
		return nil
	}
	if s.deps.BillsAPIURL == "" {
		return store.NewLocal(s.deps.Bills, current.Email)
	}

	token, _, err := st.GetItem(ctx, localstore.TokenKey)
	if err != nil {
		slog.Warn("failed to read api token", "error", err)
	}
	return store.NewHTTPClient(s.deps.BillsAPIURL, token, s.client)
}

// navigate renders path into a fresh screen and returns its controller.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, path string) (*screen, controller.Controller, bool) {
	sc, err := s.newScreen(r)
	if err != nil {
		slog.Error("failed to build page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return sc, s.pages.Navigate(r.Context(), sc.env, path), true
}

func (sc *screen) write(w http.ResponseWriter, status int) {
	var buf bytes.Buffer
	if err := sc.doc.Render(&buf); err != nil {
		slog.Error("failed to render document", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// failed reports whether the screen shows a backend error instead of content.
func (sc *screen) failed() bool {
	return sc.doc.ByTestID("error-message") != nil
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if st, ok := middleware.GetStore(r.Context()); ok && middleware.IsAuthenticated(r.Context()) {
		if u, err := localstore.LoadUser(r.Context(), st); err == nil && u.Type == user.TypeEmployee {
			http.Redirect(w, r, routes.Bills, http.StatusSeeOther)
			return
		}
	}

	sc, _, ok := s.navigate(w, r, routes.Login)
	if !ok {
		return
	}
	sc.write(w, http.StatusOK)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	var started *session.Session
	ctx := context.WithValue(r.Context(), startedKey{}, &started)
	r = r.WithContext(ctx)

	sc, c, ok := s.navigate(w, r, routes.Login)
	if !ok {
		return
	}
	login, ok := c.(*controller.LoginController)
	if !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	err := login.HandleSubmit(ctx, r.PostFormValue("email"), r.PostFormValue("password"))
	if err == nil {
		middleware.SetSessionCookie(w, started, s.deps.SecureCookies)
		http.Redirect(w, r, sc.next, http.StatusSeeOther)
		return
	}

	if started != nil {
		if derr := s.deps.Sessions.Delete(ctx, started.Token); derr != nil {
			slog.Error("failed to discard session", "error", derr)
		}
	}

	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		sc.write(w, http.StatusUnauthorized)
	case errors.Is(err, controller.ErrAdminUnsupported):
		sc.write(w, http.StatusForbidden)
	default:
		sc.write(w, http.StatusInternalServerError)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSession(r.Context()); ok {
		if err := s.deps.Sessions.Delete(r.Context(), sess.Token); err != nil {
			slog.Error("failed to delete session", "error", err)
		}
		s.deps.Events.Log(eventlogger.NewEvent(
			eventlogger.WithType(eventlogger.UserLoggedOut),
			eventlogger.WithData(map[string]string{
				"user_id":    sess.UserID.String(),
				"session_id": sess.ID.String(),
			}),
		))
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, routes.Login, http.StatusSeeOther)
}

func (s *Server) bills(w http.ResponseWriter, r *http.Request) {
	sc, _, ok := s.navigate(w, r, routes.Bills)
	if !ok {
		return
	}
	if sc.failed() {
		sc.write(w, http.StatusBadGateway)
		return
	}
	sc.write(w, http.StatusOK)
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	sc, c, ok := s.navigate(w, r, routes.Bills)
	if !ok {
		return
	}
	if sc.failed() {
		sc.write(w, http.StatusBadGateway)
		return
	}

	bills, ok := c.(*controller.BillsController)
	if !ok || !bills.OpenReceipt(chi.URLParam(r, "id")) {
		sc.write(w, http.StatusNotFound)
		return
	}
	sc.write(w, http.StatusOK)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	sc, err := s.newScreen(r)
	if err != nil {
		slog.Error("failed to build page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := controller.Bills(sc.env).Export(r.Context(), &buf); err != nil {
		slog.Error("failed to export bills", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="notes-de-frais.xlsx"`)
	w.Write(buf.Bytes())
}

func (s *Server) newBill(w http.ResponseWriter, r *http.Request) {
	sc, _, ok := s.navigate(w, r, routes.NewBill)
	if !ok {
		return
	}
	sc.write(w, http.StatusOK)
}

func (s *Server) submitBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	err := r.ParseMultipartForm(maxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "upload exceeds 10 MB", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	sc, c, ok := s.navigate(w, r, routes.NewBill)
	if !ok {
		return
	}
	form, ok := c.(*controller.NewBillController)
	if !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[bill.FieldFile]; len(files) > 0 {
			upload, err := bill.ReadUpload(files[0])
			if err != nil {
				slog.Error("failed to read upload", "error", err)
				http.Error(w, "invalid upload", http.StatusBadRequest)
				return
			}
			form.HandleChangeFile(upload)
		}
	}

	err = form.HandleSubmit(r.Context(), r.PostForm)
	var perr *bill.ParseError
	var remote *store.RemoteError
	switch {
	case err == nil:
		http.Redirect(w, r, sc.next, http.StatusSeeOther)
	case errors.Is(err, localstore.ErrNoUser):
		http.Redirect(w, r, routes.Login, http.StatusSeeOther)
	case errors.Is(err, controller.ErrMissingReceipt), errors.As(err, &perr):
		sc.write(w, http.StatusUnprocessableEntity)
	case errors.As(err, &remote):
		sc.write(w, http.StatusBadGateway)
	default:
		sc.write(w, http.StatusInternalServerError)
	}
}
