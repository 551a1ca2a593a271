package testutil

import "net/http"

// WithCookie attaches a cookie to the request. Empty values are skipped so
// table tests can use "" for "no session".
func WithCookie(req *http.Request, name, value string) *http.Request {
	if value != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}
