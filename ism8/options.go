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
	"log/slog"
	"time"
)

// UpdateHandler is called after a datapoint value has been stored
type UpdateHandler func(dp Datapoint, sv StoredValue)

// engineOptions holds configuration for the protocol engine
type engineOptions struct {
	catalog Catalog
	store   *Store
	metrics *Metrics

	// Callbacks
	onUpdate UpdateHandler

	// Logging
	logger   *slog.Logger
	traceHex bool
}

// defaultOptions returns the default engine options
func defaultOptions() *engineOptions {
	return &engineOptions{
		logger: slog.Default(),
	}
}

// Option is a functional option for configuring the engine
type Option func(*engineOptions)

// WithCatalog sets the datapoint catalogue; DefaultCatalog is used otherwise
func WithCatalog(c Catalog) Option {
	return func(o *engineOptions) {
		o.catalog = c
	}
}

// WithStore shares a value store between engines
func WithStore(s *Store) Option {
	return func(o *engineOptions) {
		o.store = s
	}
}

// WithMetrics shares a metrics instance between engines
func WithMetrics(m *Metrics) Option {
	return func(o *engineOptions) {
		o.metrics = m
	}
}

// WithUpdateHandler registers a callback run for every stored value.
// Callbacks run after the chunk has been processed, on the goroutine
// that called HandleData.
func WithUpdateHandler(h UpdateHandler) Option {
	return func(o *engineOptions) {
		o.onUpdate = h
	}
}

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithHexTrace logs every inbound and outbound frame as hex at debug level
func WithHexTrace(enable bool) Option {
	return func(o *engineOptions) {
		o.traceHex = enable
	}
}

// serverOptions holds configuration for the TCP server
type serverOptions struct {
	readTimeout      time.Duration
	writeTimeout     time.Duration
	keepAlive        time.Duration
	readBufferSize   int
	requestOnConnect bool
	logger           *slog.Logger
}

func defaultServerOptions() *serverOptions {
	return &serverOptions{
		readTimeout:      0,
		writeTimeout:     5 * time.Second,
		keepAlive:        30 * time.Second,
		readBufferSize:   4096,
		requestOnConnect: true,
		logger:           slog.Default(),
	}
}

// ServerOption is a functional option for the TCP server
type ServerOption func(*serverOptions)

// WithIdleTimeout closes the ISM8 connection after d without inbound data.
// Zero disables the timeout.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.readTimeout = d
	}
}

// WithWriteTimeout sets the deadline for every frame written to the module
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.writeTimeout = d
	}
}

// WithKeepAlive sets the TCP keep-alive period of the module connection
func WithKeepAlive(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.keepAlive = d
	}
}

// WithReadBufferSize sets the size of a single socket read
func WithReadBufferSize(n int) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.readBufferSize = n
		}
	}
}

// WithRequestAllOnConnect sends a read-all request as soon as a module connects
func WithRequestAllOnConnect(enable bool) ServerOption {
	return func(o *serverOptions) {
		o.requestOnConnect = enable
	}
}

// WithServerLogger sets the logger for the server
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}
