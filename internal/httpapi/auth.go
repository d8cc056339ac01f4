package httpapi

import (
	"time"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/middleware"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	Account   account.Account `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type meResponse struct {
	Account account.Account `json:"user"`
}

func (a *API) adminAuthRoutes(r router.Router[Context]) {
	r.Post("/login", a.login(identity.KindAdmin))
	r.Post("/logout", a.logout)
	r.With(requireAdmin()).Get("/me", a.me)
}

func (a *API) customerAuthRoutes(r router.Router[Context]) {
	r.Post("/register", a.register)
	r.Post("/login", a.login(identity.KindCustomer))
	r.Post("/logout", a.logout)
	r.With(requireCustomer()).Get("/me", a.me)
}

func (a *API) register(ctx Context) handler.Response {
	var req registration
	if err := binder.JSON()(ctx.Request(), &req); err != nil {
		return response.Error(err)
	}
	acc, err := a.deps.Accounts.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return response.Error(err)
	}
	resp, err := a.startSession(ctx, acc)
	if err != nil {
		return response.Error(err)
	}
	return response.Created(resp)
}

func (a *API) login(kind identity.Kind) handler.HandlerFunc[Context] {
	return func(ctx Context) handler.Response {
		var req credentials
		if err := binder.JSON()(ctx.Request(), &req); err != nil {
			return response.Error(err)
		}
		acc, err := a.deps.Accounts.Authenticate(ctx, kind, req.Email, req.Password)
		if err != nil {
			return response.Error(err)
		}
		resp, err := a.startSession(ctx, acc)
		if err != nil {
			return response.Error(err)
		}
		return response.JSON(resp)
	}
}

// startSession replaces any session the request carried with a new one for acc.
func (a *API) startSession(ctx Context, acc account.Account) (authResponse, error) {
	r := ctx.Request()
	if token, err := a.deps.Transport.Extract(r); err == nil {
		if err := a.deps.Resolver.Logout(ctx, token); err != nil {
			return authResponse{}, err
		}
	}

	ip, _ := middleware.GetClientIP(ctx)
	sess, err := a.deps.Resolver.Login(ctx, acc.Kind, acc.ID, session.Meta{IP: ip, UserAgent: r.UserAgent()})
	if err != nil {
		return authResponse{}, err
	}
	if err := a.deps.Transport.Embed(ctx.ResponseWriter(), r, sess.Token, sess.ExpiresAt); err != nil {
		return authResponse{}, err
	}
	return authResponse{Account: acc, Token: sess.Token, ExpiresAt: sess.ExpiresAt}, nil
}

// logout always succeeds for the client: the credential is dropped even when
// the session was already gone.
func (a *API) logout(ctx Context) handler.Response {
	r := ctx.Request()
	if token, err := a.deps.Transport.Extract(r); err == nil {
		if err := a.deps.Resolver.Logout(ctx, token); err != nil {
			return response.Error(err)
		}
	}
	a.deps.Transport.Revoke(ctx.ResponseWriter(), r)
	return response.NoContent()
}

func (a *API) me(ctx Context) handler.Response {
	p := principal(ctx)
	acc, err := a.deps.Accounts.Get(ctx, p.Kind, p.ID)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(meResponse{Account: acc})
}
