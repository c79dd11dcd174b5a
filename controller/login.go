package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/localstore"
	"github.com/JoshUrdnb/Billed/metrics"
	"github.com/JoshUrdnb/Billed/routes"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/JoshUrdnb/Billed/views"
)

var ErrAdminUnsupported = errors.New("admin accounts cannot sign in here")

const (
	msgInvalidCredentials = "Email ou mot de passe incorrect"
	msgAdmin              = "Ce compte est un compte administrateur"
	msgUnavailable        = "Service indisponible, réessayez plus tard"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}

// SessionStarter opens a session for u and returns the store bound to it.
type SessionStarter interface {
	Start(ctx context.Context, u *user.User) (localstore.Store, error)
}

type TokenIssuer interface {
	Generate(u *user.User) (string, error)
}

type LoginController struct {
	env      Env
	users    Authenticator
	sessions SessionStarter
	tokens   TokenIssuer
}

func Login(env Env, users Authenticator, sessions SessionStarter, tokens TokenIssuer) *LoginController {
	return &LoginController{env: env, users: users, sessions: sessions, tokens: tokens}
}

func (c *LoginController) Mount(context.Context) error {
	return nil
}

// HandleSubmit signs an employee in: it opens their session, stores who they
// are along with an API token, then navigates to the bills list.
func (c *LoginController) HandleSubmit(ctx context.Context, email, password string) error {
	u, err := c.users.Authenticate(ctx, email, password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		metrics.Logins.WithLabelValues("invalid").Inc()
		c.env.render(views.Login(email, msgInvalidCredentials))
		return err
	}
	if err != nil {
		slog.Error("failed to authenticate", "error", err)
		c.env.render(views.Login(email, msgUnavailable))
		return err
	}

	if u.Type != user.TypeEmployee {
		metrics.Logins.WithLabelValues("admin").Inc()
		c.env.render(views.Login(email, msgAdmin))
		return ErrAdminUnsupported
	}

	if err := c.start(ctx, u); err != nil {
		slog.Error("failed to start session", "error", err, "user_id", u.ID)
		c.env.render(views.Login(email, msgUnavailable))
		return err
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	c.env.event(eventlogger.UserLoggedIn, map[string]string{"user_id": u.ID.String(), "email": u.Email})
	c.env.navigate(routes.Bills)
	return nil
}

func (c *LoginController) start(ctx context.Context, u *user.User) error {
	token, err := c.tokens.Generate(u)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	st, err := c.sessions.Start(ctx, u)
	if err != nil {
		return err
	}
	if err := localstore.SaveUser(ctx, st, u.Current()); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	if err := st.SetItem(ctx, localstore.TokenKey, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}
