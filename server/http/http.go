package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/w-h-a/sales-insight/server"
)

type httpServer struct {
	options server.Options
	server  *http.Server
}

func (s *httpServer) Run() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *httpServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *httpServer) Address() string {
	return s.options.Address
}

func NewServer(opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	if options.Handler == nil {
		panic("handler is required")
	}

	handler := options.Handler
	if ms, ok := MiddlewareFrom(options.Context); ok {
		for i := len(ms) - 1; i >= 0; i-- {
			handler = ms[i](handler)
		}
	}

	s := &httpServer{
		options: options,
		server: &http.Server{
			Addr:              options.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	return s
}
