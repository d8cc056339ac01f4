// Package cookie writes and reads HTTP cookies with shared defaults and
// HMAC-signed values.
//
//	mgr, err := cookie.New([]string{current, previous}, cookie.WithSecure(true))
//	_ = mgr.SetSigned(w, "sid", token, cookie.WithMaxAge(604800))
//	token, err := mgr.GetSigned(r, "sid") // ErrInvalidSignature when tampered
//
// Secrets listed after the first are only used for verification.
package cookie
