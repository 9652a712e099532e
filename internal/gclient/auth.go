package gclient

import "net/http"

type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

// BearerClient returns a client that sends the given pre-acquired token
// on every request. Token refresh is out of scope; a longer-lived
// deployment injects its own authenticated client instead.
func BearerClient(token string) *http.Client {
	return &http.Client{Transport: bearerTransport{base: http.DefaultTransport, token: token}}
}
