package pact

import (
	"net/http"
	"net/http/httptest"
)

type handlerTransport struct {
	handler http.Handler
}

// HandlerTransport serves requests with h in process, so a provider can be verified
// without opening a socket.
func HandlerTransport(h http.Handler) http.RoundTripper {
	return handlerTransport{handler: h}
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	// Server handlers expect RequestURI; client requests must not carry it.
	served := req.Clone(req.Context())
	served.RequestURI = req.URL.RequestURI()

	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, served)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
