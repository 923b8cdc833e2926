// Package server is the HTTP host that enforces redirect decisions and
// passes everything else to an upstream, if one is configured.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/redirect"
	"github.com/redirtxt/redirtxt/internal/rule/action"
)

// NotFoundSink receives requests that ended as not-found without a rule.
type NotFoundSink interface {
	RecordNotFound(uri, userAgent, referrer string)
}

type Server struct {
	addr       string
	redirector *redirect.Redirector
	sink       NotFoundSink
	proxy      *httputil.ReverseProxy
	handler    http.Handler
	httpServer *http.Server
}

func New(cfg *config.Config, rd *redirect.Redirector, sink NotFoundSink) (*Server, error) {
	s := &Server{
		addr:       cfg.Listen,
		redirector: rd,
		sink:       sink,
	}
	if cfg.Upstream != "" {
		target, err := url.Parse(cfg.Upstream)
		if err != nil {
			return nil, fmt.Errorf("url.Parse upstream: %w", err)
		}
		s.proxy = s.newProxy(target)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/*", http.HandlerFunc(s.handle))
	s.handler = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	d := s.redirector.Handle(r)

	switch d.Action.Type {
	case action.TypeRedirect:
		http.Redirect(w, r, d.Target, d.Action.Status)
	case action.TypeDeny:
		w.WriteHeader(d.Action.Status)
	case action.TypeNotFound:
		http.NotFound(w, r)
	default:
		if s.proxy != nil {
			s.proxy.ServeHTTP(w, r)
			return
		}
		s.recordNotFound(r)
		http.NotFound(w, r)
	}
}

func (s *Server) recordNotFound(r *http.Request) {
	if s.sink != nil {
		s.sink.RecordNotFound(r.URL.RequestURI(), r.UserAgent(), r.Referer())
	}
}

func (s *Server) newProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			if resp.StatusCode == http.StatusNotFound {
				s.recordNotFound(resp.Request)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Warn("Upstream error", slog.String("uri", r.URL.RequestURI()), slog.Any("error", err))
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server listen failed: %w", err)
	}
	slog.Info("server started", slog.String("addr", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}()
	return nil
}

func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}
