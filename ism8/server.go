// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ism8

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/edgeo/drivers/ism8/ism8/internal/transport"
)

// Server listens for the ISM8 module and binds its connection to an Engine.
// The module connects to us; only one module connection is served at a time.
type Server struct {
	opts     *serverOptions
	engine   *Engine
	listener *transport.TCPListener
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewServer creates a server for addr that feeds engine
func NewServer(addr string, engine *Engine, opts ...ServerOption) *Server {
	options := defaultServerOptions()
	for _, opt := range opts {
		opt(options)
	}

	l := transport.NewTCPListener(addr)
	l.SetKeepAlive(options.keepAlive)

	return &Server{
		opts:     options,
		engine:   engine,
		listener: l,
		logger:   options.logger,
	}
}

// Engine returns the engine fed by the server
func (s *Server) Engine() *Engine {
	return s.engine
}

// Addr returns the listening address once the server is running
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Listen opens the listening socket. ListenAndServe calls it implicitly.
func (s *Server) Listen(ctx context.Context) error {
	return s.listener.Open(ctx)
}

// ListenAndServe opens the socket and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts module connections until ctx is done.
// A connection arriving while another module is attached is refused.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("waiting for ISM8", slog.String("addr", s.listener.Addr().String()))

	defer s.wg.Wait()
	var delay time.Duration
	for {
		nc, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			delay = nextAcceptDelay(delay)
			s.logger.Error("accept failed",
				slog.String("error", err.Error()),
				slog.Duration("retry_in", delay),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		conn := transport.NewConn(nc)
		conn.SetReadTimeout(s.opts.readTimeout)
		conn.SetWriteTimeout(s.opts.writeTimeout)

		peer := nc.RemoteAddr().String()
		if err := s.engine.ConnectionMade(conn, peer); err != nil {
			s.engine.Metrics().Rejected.Inc()
			s.logger.Warn("refusing connection",
				slog.String("peer", peer),
				slog.String("error", err.Error()),
			)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

// Accept retry delays, doubled after every consecutive failure
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev <= 0 {
		return minAcceptDelay
	}
	return min(prev*2, maxAcceptDelay)
}

// Close stops accepting connections
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handle(ctx context.Context, conn *transport.Conn) {
	defer s.wg.Done()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if s.opts.requestOnConnect {
		if err := s.engine.RequestAll(); err != nil {
			s.logger.Warn("read-all request failed", slog.String("error", err.Error()))
		}
	}

	err := s.readLoop(conn)
	conn.Close()
	s.engine.ConnectionLost(err)
}

// readLoop feeds every chunk to the engine until the connection ends.
// It returns nil when the module closed the connection.
func (s *Server) readLoop(conn *transport.Conn) error {
	buf := make([]byte, s.opts.readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.engine.HandleData(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || conn.IsClosed() {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("%w: idle timeout", ErrConnectionClosed)
			}
			return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
	}
}
