package server_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JoshUrdnb/Billed/auth"
	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/billtest"
	"github.com/JoshUrdnb/Billed/dom"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/server"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*user.User

func (f fakeUsers) Authenticate(_ context.Context, email, password string) (*user.User, error) {
	u, ok := f[email]
	if !ok || password != "secret" {
		return nil, user.ErrInvalidCredentials
	}
	return u, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	items    map[uuid.UUID]*localstore.Memory
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &session.Session{ID: uuid.New(), UserID: userID, Token: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[s.Token] = s
	f.items[s.ID] = localstore.NewMemory()
	return s, nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) DeleteByUserID(context.Context, uuid.UUID) error { return nil }

func (f *fakeSessions) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (f *fakeSessions) Items(id uuid.UUID) localstore.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fixture struct {
	srv      *httptest.Server
	handler  http.Handler
	client   *http.Client
	repo     *billtest.Repository
	sessions *fakeSessions
	events   *eventlogger.Recorder
}

// setup serves the application with employee a@a and admin admin@a, both
// signing in with "secret". remote points the screens at the server's own
// JSON API instead of the repository.
func setup(t *testing.T, remote bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:     billtest.NewRepository(billtest.Bills()...),
		sessions: &fakeSessions{sessions: map[string]*session.Session{}, items: map[uuid.UUID]*localstore.Memory{}},
		events:   &eventlogger.Recorder{},
	}

	var handler http.Handler
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	deps := server.Deps{
		Bills: f.repo,
		Users: fakeUsers{
			"a@a":     {ID: uuid.New(), Email: "a@a", Type: user.TypeEmployee},
			"admin@a": {ID: uuid.New(), Email: "admin@a", Type: user.TypeAdmin},
		},
		Sessions: f.sessions,
		Tokens:   auth.NewJWTManager("0123456789abcdef0123456789abcdef", "billed", time.Hour),
		Events:   f.events,
		Metrics:  true,
	}
	if remote {
		deps.BillsAPIURL = f.srv.URL + "/api"
	}
	handler = server.New(deps).Routes()
	f.handler = handler

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *fixture) login(t *testing.T, email, password string) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.PostForm(f.srv.URL+"/login", url.Values{"email": {email}, "password": {password}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	resp, _ := f.login(t, "a@a", "secret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func (f *fixture) submit(t *testing.T, values url.Values, fileName string) (*http.Response, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key := range values {
		require.NoError(t, mw.WriteField(key, values.Get(key)))
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		part.Write([]byte("(file content)"))
	}
	require.NoError(t, mw.Close())

	resp, err := f.client.Post(f.srv.URL+routes.NewBill, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func parse(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(body)
	require.NoError(t, err)
	return doc
}

func validForm() url.Values {
	return url.Values{
		bill.FieldType:   {string(bill.TypeTransports)},
		bill.FieldName:   {"Vol Paris Londres"},
		bill.FieldDate:   {"2024-02-10"},
		bill.FieldAmount: {"348"},
		bill.FieldVAT:    {"70"},
		bill.FieldPct:    {"20"},
	}
}

func TestHome_ShowsLogin(t *testing.T) {
	f := setup(t, false)

	resp, body := f.get(t, routes.Login)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	doc := parse(t, body)
	assert.NotNil(t, doc.ByTestID("form-employee"))
	assert.Equal(t, "none", doc.ByTestID("login-error").Display())
}

func TestEmployeePages_RequireSignIn(t *testing.T) {
	f := setup(t, false)

	for _, path := range []string{routes.Bills, routes.NewBill, routes.Export, routes.Receipt("47qAXb6fIm2zOKkLzMro")} {
		resp, _ := f.get(t, path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, routes.Login, resp.Header.Get("Location"), path)
	}
}

func TestLogin_ThenBills(t *testing.T) {
	f := setup(t, false)

	resp, _ := f.login(t, "a@a", "secret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, routes.Bills, resp.Header.Get("Location"))
	assert.Equal(t, 1, f.sessions.count())
	assert.Contains(t, f.events.Types(), eventlogger.UserLoggedIn)

	resp, body := f.get(t, routes.Bills)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parse(t, body)
	assert.Contains(t, doc.Text(), "Mes notes de frais")
	assert.Len(t, doc.AllByTestID("icon-eye"), 4)
	assert.True(t, doc.ByTestID("icon-window").HasClass("active-icon"))
	assert.False(t, doc.ByTestID("icon-mail").HasClass("active-icon"))

	resp, _ = f.get(t, routes.Login)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, routes.Bills, resp.Header.Get("Location"))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setup(t, false)

	resp, body := f.login(t, "a@a", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, f.sessions.count())
	doc := parse(t, body)
	assert.Equal(t, "Email ou mot de passe incorrect", doc.ByTestID("login-error").Text())
	assert.Equal(t, "a@a", doc.ByTestID("employee-email-input").Attr("value"))
}

func TestLogin_AdminRejected(t *testing.T) {
	f := setup(t, false)

	resp, _ := f.login(t, "admin@a", "secret")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, f.sessions.count())
}

func TestLogout(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, err := f.client.PostForm(f.srv.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, routes.Login, resp.Header.Get("Location"))
	assert.Equal(t, 0, f.sessions.count())
	assert.Contains(t, f.events.Types(), eventlogger.UserLoggedOut)

	resp, _ = f.get(t, routes.Bills)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestBills_BackendFailure(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)
	f.repo.Err = assert.AnError

	resp, body := f.get(t, routes.Bills)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc := parse(t, body)
	assert.Equal(t, "Erreur 500", doc.ByTestID("error-message").Text())
	assert.Nil(t, doc.ByTestID("tbody"))
}

func TestReceipt(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, body := f.get(t, routes.Receipt("47qAXb6fIm2zOKkLzMro"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parse(t, body)
	modal := doc.ByID("modaleFile")
	require.NotNil(t, modal)
	assert.True(t, modal.HasClass("show"))
	assert.Equal(t, "block", modal.Display())
	assert.Equal(t, "https://receipts.example.com/47qAXb6fIm2zOKkLzMro.jpg", doc.ByTestID("receipt-image").Attr("src"))

	resp, _ = f.get(t, routes.Receipt("unknown"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExport(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, body := f.get(t, routes.Export)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(body, "PK"))
	assert.Contains(t, f.events.Types(), eventlogger.BillsExported)
}

func TestNewBill_Form(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, body := f.get(t, routes.NewBill)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parse(t, body)
	assert.NotNil(t, doc.ByTestID("form-new-bill"))
	assert.True(t, doc.ByTestID("icon-mail").HasClass("active-icon"))
	assert.False(t, doc.ByTestID("icon-window").HasClass("active-icon"))
}

func TestSubmitBill(t *testing.T) {
	for _, remote := range []bool{false, true} {
		f := setup(t, remote)
		f.signIn(t)

		resp, _ := f.submit(t, validForm(), "receipt.png")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, "remote=%v", remote)
		assert.Equal(t, routes.Bills, resp.Header.Get("Location"))

		bills, err := f.repo.ListByEmail(context.Background(), "a@a")
		require.NoError(t, err)
		require.Len(t, bills, 5)
		created := bills[4]
		assert.Equal(t, "Vol Paris Londres", created.Name)
		assert.Equal(t, "receipt.png", created.FileName)
		assert.Equal(t, bill.StatusPending, created.Status)

		resp, body := f.get(t, routes.Bills)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, parse(t, body).AllByTestID("icon-eye"), 5)
	}
}

func TestSubmitBill_MissingReceipt(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, body := f.submit(t, validForm(), "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := parse(t, body)
	assert.Equal(t, "block", doc.ByTestID("file-error").Display())
	assert.Equal(t, "Vol Paris Londres", doc.ByTestID(bill.FieldName).Attr("value"))

	bills, err := f.repo.ListByEmail(context.Background(), "a@a")
	require.NoError(t, err)
	assert.Len(t, bills, 4)
}

func TestSubmitBill_RejectedReceipt(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	resp, body := f.submit(t, validForm(), "notes.txt")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "block", parse(t, body).ByTestID("file-error").Display())
	assert.Contains(t, f.events.Types(), eventlogger.ReceiptRejected)
}

func TestSubmitBill_UploadTooLarge(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key := range validForm() {
		require.NoError(t, mw.WriteField(key, validForm().Get(key)))
	}
	part, err := mw.CreateFormFile(bill.FieldFile, "receipt.png")
	require.NoError(t, err)
	part.Write(bytes.Repeat([]byte{0x89}, 11<<20))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, routes.NewBill, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	base, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(base) {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	bills, err := f.repo.ListByEmail(context.Background(), "a@a")
	require.NoError(t, err)
	assert.Len(t, bills, 4)
}

func TestSubmitBill_InvalidForm(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)

	form := validForm()
	form.Del(bill.FieldAmount)
	resp, body := f.submit(t, form, "receipt.png")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "block", parse(t, body).ByTestID("form-error").Display())
}

func TestSubmitBill_BackendFailure(t *testing.T) {
	f := setup(t, false)
	f.signIn(t)
	f.repo.Err = assert.AnError

	resp, body := f.submit(t, validForm(), "receipt.png")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Erreur 500", parse(t, body).ByTestID("form-error").Text())
}

func TestHealthAndMetrics(t *testing.T) {
	f := setup(t, false)

	resp, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
	assert.Contains(t, f.events.Types(), eventlogger.HealthRequested)

	resp, body = f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "billed_http_requests_total")
}

func TestStatic(t *testing.T) {
	f := setup(t, false)

	resp, body := f.get(t, "/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".active-icon")
}
