// Package sessiontransport moves session tokens over HTTP.
//
// Cookie signs the token with cookie.Manager and stores it in an HTTP-only
// cookie. Header reads "Authorization: Bearer <token>". Chain combines them
// so that browsers and API clients share the same session lookup:
//
//	t := sessiontransport.Chain{
//		sessiontransport.NewCookie(cookies, "__session"),
//		sessiontransport.NewHeader(),
//	}
//	token, err := t.Extract(r) // ErrNoToken when the client sent nothing
//
// The package only carries tokens; session lookup and expiry live in
// core/session.
package sessiontransport
