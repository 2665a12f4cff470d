// Package ldap is a client implementation of the LDAP wire protocol,
// RFC 4511.  It covers the message envelope, the core protocol
// operations, request controls, and a connection dispatcher that
// correlates asynchronous responses with their requests by message id.
//
// The nested package ber encodes and decodes the ASN.1 Basic Encoding
// Rules values the protocol is built from; this package assembles them
// into protocol operations.
//
// A connection is opened with Dial, DialTLS, or NewConn over an
// established transport.  One background goroutine reads responses and
// routes each to the goroutine awaiting its message id, so operations
// can be issued concurrently:
//
//	conn, err := ldap.Dial("tcp", "ldap.example.com:389")
//	if err != nil {
//		// ...
//	}
//	defer conn.Close()
//
//	if err := conn.Bind(ctx, "cn=admin,dc=example,dc=com", "secret"); err != nil {
//		// ...
//	}
//
//	stream, err := conn.Search(ctx, &ldap.SearchRequest{
//		BaseDN: "dc=example,dc=com",
//		Scope:  ldap.ScopeWholeSubtree,
//		Filter: ldap.FilterEqual{Attribute: "uid", Value: "jdoe"},
//	})
//
// Search results stream: entries are yielded as they arrive, and the
// final result is available once the stream ends.  Referrals and
// continuation references are reported to the caller, never followed.
//
// Server errors are returned as errors carrying the full LDAPResult;
// use GetResult and GetResultCode to inspect them.  Local failures are
// tagged with the client-side result codes (ResultServerDown and up).
package ldap
