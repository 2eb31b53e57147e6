// Package httpapi serves a record source over HTTP and provides a client
// that plugs the remote source back into a collection controller.
//
// Every response uses the same envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"code": "...", "message": "..."}}
//
// Pages are addressed by offset and limit; the filter context travels as
// query parameters (see EncodeQuery).
package httpapi
