package ism8

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionState represents the engine connection state
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Engine is the protocol engine for one ISM8 connection.
//
// Inbound chunks are fed through HandleData, which acknowledges every
// complete frame and stores the decoded datapoints. Outbound writes are
// validated against the catalogue before a transmit frame is written.
type Engine struct {
	opts    *engineOptions
	catalog Catalog
	store   *Store
	metrics *Metrics
	logger  *slog.Logger

	state atomic.Int32

	// Outbound connection
	connMu sync.Mutex
	conn   io.Writer
	peer   string

	// Inbound stream
	inMu  sync.Mutex
	reasm Reassembler
}

// NewEngine creates a new protocol engine
func NewEngine(opts ...Option) *Engine {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.catalog == nil {
		options.catalog = DefaultCatalog()
	}
	if options.store == nil {
		options.store = NewStore()
	}
	if options.metrics == nil {
		options.metrics = NewMetrics()
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{
		opts:    options,
		catalog: options.catalog,
		store:   options.store,
		metrics: options.metrics,
		logger:  options.logger,
	}
	e.reasm.OnDiscard = e.frameDiscarded
	return e
}

// State returns the current connection state
func (e *Engine) State() ConnectionState {
	return ConnectionState(e.state.Load())
}

// IsConnected returns true while a module connection is attached
func (e *Engine) IsConnected() bool {
	return e.State() == StateConnected
}

// Peer returns the address of the attached module, or ""
func (e *Engine) Peer() string {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.peer
}

// Store returns the value store
func (e *Engine) Store() *Store {
	return e.store
}

// Catalog returns the datapoint catalogue
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Metrics returns the engine metrics
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Read returns the last value received for id
func (e *Engine) Read(id DatapointID) (Value, bool) {
	return e.store.Read(id)
}

// ConnectionMade attaches the writer acks and writes are sent to
func (e *Engine) ConnectionMade(w io.Writer, peer string) error {
	if !e.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnected)) {
		return ErrAlreadyConnected
	}

	e.connMu.Lock()
	e.conn = w
	e.peer = peer
	e.connMu.Unlock()

	e.inMu.Lock()
	e.reasm.Reset()
	e.inMu.Unlock()

	e.metrics.Connections.Inc()
	e.metrics.Connected.Set(1)
	e.metrics.RecordActivity()

	e.logger.Info("connection from ISM8", slog.String("peer", peer))
	return nil
}

// ConnectionLost detaches the connection. Later sends fail with ErrNotConnected.
func (e *Engine) ConnectionLost(err error) {
	if !e.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		return
	}

	e.connMu.Lock()
	peer := e.peer
	e.conn = nil
	e.peer = ""
	e.connMu.Unlock()

	e.inMu.Lock()
	pending := e.reasm.Pending()
	e.reasm.Reset()
	e.inMu.Unlock()

	e.metrics.Disconnects.Inc()
	e.metrics.Connected.Set(0)

	attrs := []any{slog.String("peer", peer)}
	if pending > 0 {
		attrs = append(attrs, slog.Int("dropped_bytes", pending))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	e.logger.Info("ISM8 connection closed", attrs...)
}

// HandleData processes one inbound chunk. Every complete frame is
// acknowledged before its payload is decoded; errors are logged and
// counted, never returned.
func (e *Engine) HandleData(chunk []byte) {
	start := time.Now()

	e.metrics.BytesReceived.Add(int64(len(chunk)))
	e.metrics.RecordActivity()
	if e.opts.traceHex {
		e.logger.Debug("raw data received", slog.String("data", FormatHex(chunk)))
	}

	var updates []update
	e.inMu.Lock()
	for _, msg := range e.reasm.Feed(chunk) {
		e.metrics.FramesReceived.Inc()
		e.acknowledge(msg)
		updates = e.processPayload(msg.Payload, updates)
	}
	e.inMu.Unlock()

	e.metrics.ProcessLatency.Record(time.Since(start))

	// handlers run unlocked so they may call back into the engine
	if e.opts.onUpdate != nil {
		for _, u := range updates {
			e.opts.onUpdate(u.dp, u.sv)
		}
	}
}

// update is a stored value waiting to be delivered to the update handler
type update struct {
	dp Datapoint
	sv StoredValue
}

// PendingBytes returns the number of received bytes waiting for the rest of a frame
func (e *Engine) PendingBytes() int {
	e.inMu.Lock()
	defer e.inMu.Unlock()
	return e.reasm.Pending()
}

func (e *Engine) acknowledge(msg Message) {
	ack := BuildAckFrame(msg.Raw)
	if e.opts.traceHex {
		e.logger.Debug("sending ack", slog.String("data", FormatHex(ack)))
	}
	if err := e.write(ack); err != nil {
		e.logger.Warn("failed to send ack", slog.String("error", err.Error()))
		return
	}
	e.metrics.AcksSent.Inc()
}

func (e *Engine) frameDiscarded(ferr *FrameError) {
	e.metrics.BytesDiscarded.Add(int64(ferr.Discarded))
	if ferr.Reason == FrameReasonNoMarker {
		e.logger.Debug("skipping bytes outside a frame", slog.Int("bytes", ferr.Discarded))
		return
	}
	e.metrics.FramesDiscarded.Inc()
	e.logger.Warn("discarding broken frame",
		slog.String("reason", ferr.Reason.String()),
		slog.Int("length", ferr.Length),
		slog.Int("available", ferr.Available),
	)
}

func (e *Engine) processPayload(body []byte, updates []update) []update {
	p, err := ParsePayload(body)
	if err != nil {
		e.metrics.DecodeErrors.Inc()
		e.logger.Warn("malformed payload", slog.String("error", err.Error()))
	}
	if p == nil {
		return updates
	}
	if p.Service != ServiceReceive {
		e.logger.Debug("payload with unexpected service",
			slog.String("service", p.Service.String()),
			slog.Int("entries", len(p.Entries)),
		)
	}
	for _, entry := range p.Entries {
		if dp, sv, ok := e.applyEntry(entry); ok {
			updates = append(updates, update{dp: dp, sv: sv})
		}
	}
	return updates
}

// applyEntry decodes one entry with its type resolved from the catalogue
func (e *Engine) applyEntry(entry Entry) (Datapoint, StoredValue, bool) {
	dp, known := e.catalog.Lookup(entry.ID)
	if !known {
		e.metrics.UnknownDatapoints.Inc()
		e.logger.Warn("unknown datapoint",
			slog.Int("datapoint", int(entry.ID)),
			slog.String("data", FormatHex(entry.Raw)),
		)
		dp = Datapoint{ID: entry.ID, Type: TypeUnknown}
	}

	v, err := DecodeValue(dp.Type, entry.Raw)
	if err != nil {
		e.metrics.DecodeErrors.Inc()
		e.logger.Warn("failed to decode datapoint",
			slog.Int("datapoint", int(entry.ID)),
			slog.String("type", dp.Type.String()),
			slog.String("error", err.Error()),
		)
		return dp, StoredValue{}, false
	}
	if known && dp.Type == TypeUnknown {
		e.logger.Debug("datatype unknown, decoded as integer", slog.Int("datapoint", int(entry.ID)))
	}

	sv := e.store.Update(entry.ID, v)
	e.metrics.DatapointsDecoded.Inc()
	e.metrics.DatapointsRetained.Set(int64(e.store.Len()))

	e.logger.Debug("datapoint updated",
		slog.Int("datapoint", int(entry.ID)),
		slog.String("device", dp.Device),
		slog.String("name", dp.Name),
		slog.String("value", v.String()),
	)

	return dp, sv, true
}

// Validate checks that v may be written to id, without encoding it
func (e *Engine) Validate(id DatapointID, v Value) error {
	_, err := e.validate(id, v)
	return err
}

func (e *Engine) validate(id DatapointID, v Value) (Datapoint, error) {
	dp, ok := e.catalog.Lookup(id)
	if !ok {
		return dp, &ValidationError{ID: id, Value: v, Err: ErrUnknownDatapoint}
	}
	if !dp.Writable {
		return dp, &ValidationError{ID: id, Value: v, Err: ErrNotWritable}
	}
	if want := dp.Type.Kind(); v.Kind() != want {
		return dp, &ValidationError{ID: id, Value: v,
			Err: fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, dp.Type, want, v.Kind())}
	}

	x, numeric := v.Number()
	if !numeric {
		return dp, nil
	}
	if dom, ok := e.catalog.AllowedValues(id); ok && !dom.Contains(x) {
		return dp, &ValidationError{ID: id, Value: v,
			Err: fmt.Errorf("%w: %s not in %s", ErrOutOfRange, v, dom)}
	}
	if min, max, ok := dp.Type.Bounds(); ok && (x < min || x > max) {
		return dp, &ValidationError{ID: id, Value: v,
			Err: fmt.Errorf("%w: %s outside %s bounds [%g..%g]", ErrOutOfRange, v, dp.Type, min, max)}
	}
	return dp, nil
}

// EncodeWrite validates v and returns the transmit frame that writes it to id
func (e *Engine) EncodeWrite(id DatapointID, v Value) ([]byte, error) {
	dp, err := e.validate(id, v)
	if err != nil {
		return nil, err
	}
	raw, err := EncodeValue(dp.Type, v)
	if err != nil {
		return nil, &ValidationError{ID: id, Value: v, Err: err}
	}
	if len(raw) == 0 {
		return nil, &ValidationError{ID: id, Value: v, Err: ErrInvalidEnumValue}
	}
	return BuildTransmitFrame(id, raw), nil
}

// Send validates v and writes it to datapoint id on the attached module.
// Validation errors take precedence over ErrNotConnected. The store is not
// updated; the module reports the new value itself.
func (e *Engine) Send(id DatapointID, v Value) error {
	frame, err := e.EncodeWrite(id, v)
	if err != nil {
		e.metrics.WritesRejected.Inc()
		e.logger.Warn("write rejected",
			slog.Int("datapoint", int(id)),
			slog.String("value", v.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	if !e.IsConnected() {
		return ErrNotConnected
	}

	if e.opts.traceHex {
		e.logger.Debug("sending datapoint", slog.Int("datapoint", int(id)), slog.String("data", FormatHex(frame)))
	}
	if err := e.write(frame); err != nil {
		e.metrics.WriteErrors.Inc()
		return fmt.Errorf("send datapoint %d: %w", id, err)
	}
	e.metrics.WritesSent.Inc()

	e.logger.Info("datapoint sent",
		slog.Int("datapoint", int(id)),
		slog.String("value", v.String()),
	)
	return nil
}

// SendText parses text according to the datapoint type and sends it
func (e *Engine) SendText(id DatapointID, text string) error {
	dp, ok := e.catalog.Lookup(id)
	if !ok {
		return &ValidationError{ID: id, Value: LabelValue(text), Err: ErrUnknownDatapoint}
	}
	v, err := ParseValue(dp.Type, text)
	if err != nil {
		return &ValidationError{ID: id, Value: LabelValue(text), Err: err}
	}
	return e.Send(id, v)
}

// RequestAll asks the module to report every datapoint
func (e *Engine) RequestAll() error {
	if !e.IsConnected() {
		return ErrNotConnected
	}
	frame := BuildReadAllFrame()
	if e.opts.traceHex {
		e.logger.Debug("sending read-all request", slog.String("data", FormatHex(frame)))
	}
	if err := e.write(frame); err != nil {
		e.metrics.WriteErrors.Inc()
		return fmt.Errorf("request all datapoints: %w", err)
	}
	e.metrics.ReadAllRequests.Inc()
	return nil
}

// write sends one frame; frames never interleave
func (e *Engine) write(frame []byte) error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.conn == nil {
		return ErrNotConnected
	}
	n, err := e.conn.Write(frame)
	e.metrics.BytesSent.Add(int64(n))
	if err != nil {
		return err
	}
	return nil
}
