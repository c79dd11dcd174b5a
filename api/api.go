// Package api is the JSON bills API. Every bill route needs a bearer token
// issued by POST /auth/login; receipts are served to anyone holding their key.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JoshUrdnb/Billed/auth"
	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/store"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/go-chi/chi/v5"
)

// maxUpload caps a whole bill upload, receipt included, at 10 MB.
const maxUpload = 10 << 20

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}

type Handler struct {
	bills  bill.Repository
	users  Authenticator
	tokens *auth.JWTManager
	events eventlogger.Sink
}

func New(bills bill.Repository, users Authenticator, tokens *auth.JWTManager, events eventlogger.Sink) *Handler {
	if events == nil {
		events = eventlogger.Discard
	}
	return &Handler{bills: bills, users: users, tokens: tokens, events: events}
}

// Routes returns the API router, meant to be mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.login)
	r.Get("/receipts/{key}", h.receipt)

	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)
		r.Get("/bills", h.listBills)
		r.Post("/bills", h.createBill)
		r.Patch("/bills/{id}", h.updateBill)
	})

	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.Authenticate(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to authenticate", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.tokens.Generate(u)
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.UserLoggedIn),
		eventlogger.WithData(map[string]string{"user_id": u.ID.String(), "email": u.Email}),
		eventlogger.WithMetadata(map[string]string{"source": "api"}),
	))

	writeJSON(w, http.StatusOK, map[string]string{"jwt": token})
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	bills, err := h.bills.ListByEmail(r.Context(), claims.Email)
	if err != nil {
		h.fail(w, "failed to list bills", err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds 10 MB")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	_, fh, err := r.FormFile(bill.FieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing receipt file")
		return
	}
	file, err := bill.ReadUpload(fh)
	if err != nil {
		h.fail(w, "failed to read receipt", err)
		return
	}
	if err := file.CheckReceipt(); err != nil {
		h.events.Log(eventlogger.NewEvent(
			eventlogger.WithType(eventlogger.ReceiptRejected),
			eventlogger.WithData(map[string]string{"email": claims.Email, "file": file.BaseName()}),
		))
		h.fail(w, "receipt rejected", err)
		return
	}

	b, err := bill.FromForm(r.PostForm, claims.Email)
	if err != nil {
		h.fail(w, "invalid bill", err)
		return
	}

	created, key, err := h.bills.Create(r.Context(), b, file)
	if err != nil {
		h.fail(w, "failed to create bill", err)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.BillCreated),
		eventlogger.WithData(map[string]string{"bill_id": created.ID, "email": created.Email, "key": key}),
		eventlogger.WithMetadata(map[string]string{"source": "api"}),
	))

	writeJSON(w, http.StatusCreated, store.CreatedBill{Key: key, Bill: *created})
}

func (h *Handler) updateBill(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	var b bill.Bill
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		h.fail(w, "invalid bill", &bill.ParseError{Field: "record", Reason: err.Error()})
		return
	}

	current, err := h.bills.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to load bill", err)
		return
	}
	if current.Email != claims.Email {
		h.fail(w, "bill owned by someone else", bill.ErrNotFound)
		return
	}

	b.ID = id
	b.Email = current.Email
	b.Status = current.Status
	b.CommentAdmin = current.CommentAdmin
	updated, err := h.bills.Update(r.Context(), b)
	if err != nil {
		h.fail(w, "failed to update bill", err)
		return
	}

	h.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.BillUpdated),
		eventlogger.WithData(map[string]string{"bill_id": updated.ID, "email": updated.Email}),
	))

	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	file, err := h.bills.Receipt(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, "failed to load receipt", err)
		return
	}
	w.Header().Set("Content-Type", file.MediaType())
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(file.Data)
}

// fail answers with the status matching err. Server faults are logged and
// their details withheld.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := store.StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	slog.Debug(msg, "error", err, "status", status)
	writeError(w, status, err.Error())
}

type claimsKey struct{}

func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.tokens.Validate(token)
		if err != nil {
			slog.Info("rejected bearer token", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
