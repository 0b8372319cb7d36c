package server

import (
	"net/http"
	"net/http/httputil"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/planboard/internal/auth"
	"github.com/gosuda/planboard/internal/server/middleware"
)

const proxyPrefix = "/api/proxy"

// newBackendProxy forwards /api/proxy/* to the backend root. Browser
// credentials are stripped and the caller's credentials from the request
// context are attached again by the backend transport.
func newBackendProxy(be Backend) http.Handler {
	target := be.BaseURL()

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del(middleware.HeaderAPIKey)
		},
		Transport: credentialTransport{be: be},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("backend proxy")
			http.Error(w, `{"title":"Bad Gateway","status":502,"detail":"backend unavailable"}`, http.StatusBadGateway)
		},
	}

	return http.StripPrefix(proxyPrefix, rp)
}

type credentialTransport struct {
	be Backend
}

func (t credentialTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	creds, _ := auth.CredentialsFromContext(r.Context())
	return t.be.Transport(creds).RoundTrip(r)
}
