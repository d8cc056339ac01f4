// Package identity resolves session tokens into principals.
//
// A Principal is a customer, an admin, or Anonymous. Every HTTP request and
// websocket handshake goes through Resolver.Resolve, which also slides the
// session expiry forward. Route groups guard themselves with
// Principal.RequireCustomer or Principal.RequireAdmin.
package identity
