// Package gateway routes public API traffic to the backing services.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"openfeed/internal/config"
	"openfeed/internal/transport/httpdto"
	"openfeed/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Proxy forwards requests to the service owning each URL prefix. The
// gateway stays protocol-dumb: auth and rate limits run as middleware
// in front of it, and WebSocket upgrades pass through untouched.
type Proxy struct {
	routes map[string]*httputil.ReverseProxy
	log    *logger.Logger
}

// New builds a proxy from the prefix-to-service mapping.
func New(cfg config.GatewayConfig, log *logger.Logger) (*Proxy, error) {
	targets := map[string]string{
		"/v1/auth":   cfg.IdentityURL,
		"/v1/posts":  cfg.PostsURL,
		"/v1/feed":   cfg.PostsURL,
		"/v1/media":  cfg.MediaURL,
		"/v1/search": cfg.SearchURL,
	}

	routes := make(map[string]*httputil.ReverseProxy, len(targets))
	for prefix, raw := range targets {
		target, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse upstream %s for %s: %w", raw, prefix, err)
		}

		rp := httputil.NewSingleHostReverseProxy(target)
		rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Errorf("proxy %s %s: %v", r.Method, r.URL.Path, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprintf(w, `{"success":false,"error":"upstream unavailable","code":"BAD_GATEWAY"}`)
		}
		routes[prefix] = rp
	}

	return &Proxy{routes: routes, log: log}, nil
}

// Handler returns a gin handler that dispatches on URL prefix.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		for prefix, rp := range p.routes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				rp.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("no such route", "NOT_FOUND"))
	}
}

// Prefixes lists the routed URL prefixes, for route registration.
func (p *Proxy) Prefixes() []string {
	prefixes := make([]string, 0, len(p.routes))
	for prefix := range p.routes {
		prefixes = append(prefixes, prefix)
	}
	return prefixes
}
