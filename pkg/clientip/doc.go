// Package clientip extracts the client IP address from an HTTP request.
//
// Headers are checked in order: CF-Connecting-IP, DO-Connecting-IP,
// X-Forwarded-For (leftmost entry), X-Real-IP. RemoteAddr is the fallback.
// Invalid and unspecified addresses are skipped; results are normalized
// with net.IP.String.
//
//	ip := clientip.GetIP(r)
package clientip
