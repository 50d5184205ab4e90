// Package ember is a high-performance RESP2/RESP3 server framework built on
// top of gnet. It owns the connection lifecycle (accept, buffer, decode,
// dispatch, reply) around the codec, store, and command packages; it is
// the idiomatic-Go restatement of the per-connection-task model described
// in §4.5/§5 of the protocol this server implements.
//
// # Basic usage
//
//	store := store.New()
//	srv := ember.NewServer(store, ember.Options{Multicore: true})
//	err := ember.ListenAndServe("tcp://127.0.0.1:6379", ember.Options{Multicore: true}, srv)
//
// # Threading model
//
//   - Single-core mode: all connections are handled by a single event loop.
//   - Multi-core mode: multiple event loops distribute connections using the
//     configured load balancing strategy.
//   - Per-connection processing is strictly sequential; the shared *store.Store
//     is the only cross-connection state, and it does its own internal
//     locking (see pkg/store).
package ember

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"

	"github.com/emberkv/ember/internal/metrics"
	"github.com/emberkv/ember/pkg/command"
	"github.com/emberkv/ember/pkg/frame"
	"github.com/emberkv/ember/pkg/resp"
	"github.com/emberkv/ember/pkg/store"
)

// Action represents the type of action to take after processing a unit of
// traffic. Mirrors gnet.Action so callers never need to import gnet
// themselves.
type Action int

const (
	None Action = iota
	Close
	Shutdown
)

// Conn wraps a gnet.Conn for application-visible lifecycle callbacks.
type Conn struct {
	gnet.Conn
}

// Options configures a Server's networking, logging and metrics. The
// networking fields' semantics and defaults are those of the underlying
// gnet knobs.
type Options struct {
	Multicore        bool
	LockOSThread     bool
	ReadBufferCap    int
	LB               gnet.LoadBalancing
	NumEventLoop     int
	ReusePort        bool
	Ticker           bool
	TCPKeepAlive     time.Duration
	TCPKeepCount     int
	TCPKeepInterval  time.Duration
	TCPNoDelay       gnet.TCPSocketOpt
	SocketRecvBuffer int
	SocketSendBuffer int
	EdgeTriggeredIO  bool

	// Logger receives connection lifecycle and error events. A nil Logger
	// uses zap.NewNop(), matching the teacher's "logging is the caller's
	// problem" stance while still giving callers a real hook.
	Logger *zap.Logger

	// Metrics, if non-nil, is updated with connection and per-verb
	// command counts as the server runs.
	Metrics *metrics.Metrics
}

// connBuffer holds the accumulating read buffer for one connection. Unlike
// the byte-buffer-plus-parsed-command-queue shape this grew from, ember's
// decode step is restartable in place: cb.buf always holds exactly the
// unconsumed tail, so there is nothing else to carry between OnTraffic
// calls.
type connBuffer struct {
	buf []byte
}

// Server implements gnet.EventHandler and drives the RESP request/reply
// loop described in §4.5 against a shared *store.Store.
type Server struct {
	store *store.Store
	opts  Options
	log   *zap.Logger

	bufMap  map[gnet.Conn]*connBuffer
	bufMu   sync.RWMutex
	mu      sync.Mutex
	addr    string
	running bool
	engine  gnet.Engine
}

// NewServer creates a Server dispatching commands against s.
func NewServer(s *store.Store, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		store:  s,
		opts:   opts,
		log:    log,
		bufMap: make(map[gnet.Conn]*connBuffer),
	}
}

func (srv *Server) OnBoot(eng gnet.Engine) (action gnet.Action) {
	srv.mu.Lock()
	srv.engine = eng
	srv.mu.Unlock()
	srv.log.Info("server booted")
	return gnet.None
}

func (srv *Server) OnShutdown(eng gnet.Engine) {
	srv.log.Info("server shutting down")
}

func (srv *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	srv.bufMu.Lock()
	srv.bufMap[c] = new(connBuffer)
	srv.bufMu.Unlock()
	if srv.opts.Metrics != nil {
		srv.opts.Metrics.ConnectionsOpened.Inc()
	}
	srv.log.Debug("connection opened", zap.String("remote", c.RemoteAddr().String()))
	return nil, gnet.None
}

func (srv *Server) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	srv.bufMu.Lock()
	delete(srv.bufMap, c)
	srv.bufMu.Unlock()
	if srv.opts.Metrics != nil {
		srv.opts.Metrics.ConnectionsClosed.Inc()
	}
	if err != nil {
		srv.log.Debug("connection closed", zap.Error(err))
	} else {
		srv.log.Debug("connection closed")
	}
	return gnet.None
}

// OnTraffic implements §4.5's connection driver loop: read all available
// bytes, then repeatedly decode-parse-execute-encode until the buffer's
// unconsumed tail no longer holds a complete frame, writing every
// accumulated reply back in one syscall.
func (srv *Server) OnTraffic(c gnet.Conn) (action gnet.Action) {
	srv.bufMu.RLock()
	cb, ok := srv.bufMap[c]
	srv.bufMu.RUnlock()
	if !ok {
		return gnet.None
	}

	chunk, _ := c.Next(-1)
	if len(chunk) > 0 {
		cb.buf = append(cb.buf, chunk...)
	}

	out := bytebufferpool.Get()
	defer bytebufferpool.Put(out)

	closeConn := false
	for {
		f, n, err := resp.Decode(cb.buf)
		if errors.Is(err, resp.ErrIncomplete) {
			break
		}
		if err != nil {
			// §4.5 step 2: malformed frame -> send a final SimpleError,
			// then close the connection.
			out.Write(resp.Encode(frame.NewError("ERR " + err.Error())))
			closeConn = true
			cb.buf = nil
			break
		}
		cb.buf = cb.buf[n:]

		reply := srv.dispatch(f)
		out.Write(resp.Encode(reply))
	}

	if out.Len() > 0 {
		_, _ = c.Write(out.Bytes())
	}
	if closeConn {
		srv.log.Warn("closing connection after malformed frame")
		return gnet.Close
	}
	return gnet.None
}

// dispatch converts a decoded Frame into a Command and executes it,
// turning a parse failure into a SimpleError reply without closing the
// connection (§4.5 step 3).
func (srv *Server) dispatch(f frame.Frame) frame.Frame {
	cmd, err := command.Parse(f)
	if err != nil {
		return frame.NewError(err.Error())
	}
	if srv.opts.Metrics != nil {
		srv.opts.Metrics.ObserveCommand(cmd.Verb.String())
	}
	return cmd.Execute(srv.store)
}

func (srv *Server) OnTick() (delay time.Duration, action gnet.Action) {
	return 0, gnet.None
}

// ListenAndServe starts srv on addr (format "tcp://host:port") and blocks
// until the server stops or an error occurs.
func ListenAndServe(addr string, opts Options, srv *Server) error {
	var gopts []gnet.Option
	if opts.Multicore {
		gopts = append(gopts, gnet.WithMulticore(true))
	}
	if opts.LockOSThread {
		gopts = append(gopts, gnet.WithLockOSThread(true))
	}
	if opts.ReadBufferCap > 0 {
		gopts = append(gopts, gnet.WithReadBufferCap(opts.ReadBufferCap))
	}
	if opts.NumEventLoop > 0 {
		gopts = append(gopts, gnet.WithNumEventLoop(opts.NumEventLoop))
	}
	if opts.LB != gnet.RoundRobin {
		gopts = append(gopts, gnet.WithLoadBalancing(opts.LB))
	}
	if opts.ReusePort {
		gopts = append(gopts, gnet.WithReusePort(true))
	}
	if opts.Ticker {
		gopts = append(gopts, gnet.WithTicker(true))
	}
	if opts.TCPKeepAlive > 0 {
		gopts = append(gopts, gnet.WithTCPKeepAlive(opts.TCPKeepAlive))
	}
	if opts.TCPKeepCount > 0 {
		gopts = append(gopts, gnet.WithTCPKeepCount(opts.TCPKeepCount))
	}
	if opts.TCPKeepInterval > 0 {
		gopts = append(gopts, gnet.WithTCPKeepInterval(opts.TCPKeepInterval))
	}
	gopts = append(gopts, gnet.WithTCPNoDelay(opts.TCPNoDelay))
	if opts.SocketRecvBuffer > 0 {
		gopts = append(gopts, gnet.WithSocketRecvBuffer(opts.SocketRecvBuffer))
	}
	if opts.SocketSendBuffer > 0 {
		gopts = append(gopts, gnet.WithSocketSendBuffer(opts.SocketSendBuffer))
	}
	if opts.EdgeTriggeredIO {
		gopts = append(gopts, gnet.WithEdgeTriggeredIO(true))
	}

	srv.mu.Lock()
	srv.addr = addr
	srv.running = true
	srv.mu.Unlock()

	err := gnet.Run(srv, addr, gopts...)

	srv.mu.Lock()
	srv.running = false
	srv.mu.Unlock()

	return err
}

// Close gracefully stops srv. Safe to call at most once while running.
func (srv *Server) Close() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !srv.running {
		return errors.New("server not running")
	}
	srv.running = false
	return srv.engine.Stop(context.Background())
}
