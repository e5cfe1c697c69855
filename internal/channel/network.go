package channel

import (
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"aprsd/internal/structures"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	TypeNetwork = "inet"

	defaultNetHost     = "localhost"
	defaultNetPort     = 10151
	defaultNetUser     = "TEST"
	defaultNetPass     = "-1"
	defaultNetMaxRetry = 10

	netReadTimeout  = 5 * time.Minute
	netWriteTimeout = 30 * time.Second
	netDialTimeout  = 30 * time.Second
	netMaxBackoff   = 2 * time.Hour

	opDial  = "dial"
	opLogin = "login"
	opRead  = "read"
	opWrite = "write"
)

func init() {
	Register(TypeNetwork, NewNetworkChannel)
}

// NetworkChannel is a client connection to an APRS-IS server.
type NetworkChannel struct {
	*Core

	host     string
	port     int
	user     string
	pass     string
	feed     string
	maxRetry int
	version  string

	retryBase time.Duration
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
	onRetry   func(retry int, delay time.Duration)

	loop   runner
	connMu sync.Mutex
	conn   net.Conn
}

func NewNetworkChannel(cfg structures.ChannelConfig, conf *structures.Config, deps Deps) (Channel, error) {
	props := NewProperties(cfg.Id, cfg.Options)
	n := &NetworkChannel{
		version:   conf.Version,
		retryBase: retryBase,
	}
	var err error
	if n.host, err = props.String("host", defaultNetHost); err != nil {
		return nil, err
	}
	if n.port, err = props.Int("port", defaultNetPort); err != nil {
		return nil, err
	}
	if n.port <= 0 || n.port > 65535 {
		return nil, &ConfigurationError{Channel: cfg.Id, Key: "port", Err: fmt.Errorf("out of range: %d", n.port)}
	}
	if n.user, err = props.String("user", defaultNetUser); err != nil {
		return nil, err
	}
	if n.pass, err = props.String("pass", defaultNetPass); err != nil {
		return nil, err
	}
	if n.feed, err = props.String("filter", ""); err != nil {
		return nil, err
	}
	if n.maxRetry, err = props.Int("maxRetry", defaultNetMaxRetry); err != nil {
		return nil, err
	}

	d := &net.Dialer{Timeout: netDialTimeout}
	n.dial = d.DialContext

	n.Core, err = NewCore(cfg.Id, n.addr(), cfg.Filter, 1, deps)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NetworkChannel) addr() string {
	return net.JoinHostPort(n.host, strconv.Itoa(n.port))
}

func (n *NetworkChannel) Start(ctx context.Context) {
	if n.loop.start(ctx, n.run) {
		n.deps.Logger.Infof(providers.TypeChannel, "[%s] starting", n.descr)
	}
}

// Close stops the channel and releases the connection, even when the read
// loop is blocked. It is safe to call more than once.
func (n *NetworkChannel) Close() error {
	n.loop.stop()
	n.setState(StateOff)
	return nil
}

func (n *NetworkChannel) run(ctx context.Context) {
	retry := 0
	for {
		n.setState(StateStarting)
		lines, err := n.session(ctx)
		if ctx.Err() != nil {
			n.setState(StateOff)
			return
		}
		n.setState(StateFailed)

		if lines > 0 {
			retry = 0
		}
		retry += retryCost(err)
		if retry > n.maxRetry {
			n.deps.Logger.Errorf(providers.TypeChannel, "[%s] %v; giving up after %d retries", n.descr, err, n.maxRetry)
			return
		}

		delay := exponentialBackoff(n.retryBase, retry, netMaxBackoff)
		n.deps.Logger.Warnf(providers.TypeChannel, "[%s] %v; retry %d in %s", n.descr, err, retry, delay)
		if n.onRetry != nil {
			n.onRetry(retry, delay)
		}
		if !sleepCtx(ctx, delay) {
			n.setState(StateOff)
			return
		}
	}
}

// retryCost weighs a failed session. Refused or dropped connections count
// once, read timeouts are free and anything else counts double.
func retryCost(err error) int {
	var te *TransportError
	if errors.As(err, &te) && te.Op == opDial {
		return 1
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 0
	}
	if errors.Is(err, io.EOF) {
		return 1
	}
	return 2
}

// session runs one connection until it fails. It returns the number of
// packet lines received.
func (n *NetworkChannel) session(ctx context.Context) (int, error) {
	addr := n.addr()
	conn, err := n.dial(ctx, "tcp", addr)
	if err != nil {
		return 0, &TransportError{Op: opDial, Err: err}
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	n.deps.Logger.Infof(providers.TypeChannel, "[%s] connected", n.descr)
	if err := n.login(conn); err != nil {
		return 0, err
	}
	n.setConn(conn)
	defer n.setConn(nil)
	n.setState(StateRunning)

	r := bufio.NewReader(conn)
	lines := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(netReadTimeout))
		b, err := r.ReadBytes('\n')
		if len(b) > 0 {
			line := strings.TrimRight(packet.DecodeLine(b), "\r\n")
			if strings.HasPrefix(line, "#") {
				n.deps.Logger.Debugf(providers.TypeChannel, "[%s] server: %s", n.descr, line)
			} else if line != "" {
				lines++
				n.Ingest(line, false)
			}
		}
		if err != nil {
			return lines, &TransportError{Op: opRead, Err: err}
		}
	}
}

func (n *NetworkChannel) login(conn net.Conn) error {
	var b strings.Builder
	fmt.Fprintf(&b, "user %s pass %s vers aprsd %s\r\n", n.user, n.pass, n.version)
	if n.feed != "" {
		fmt.Fprintf(&b, "# filter %s\r\n", n.feed)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(netWriteTimeout))
	if _, err := conn.Write(packet.EncodeLine(b.String())); err != nil {
		return &TransportError{Op: opLogin, Err: err}
	}
	return nil
}

func (n *NetworkChannel) setConn(conn net.Conn) {
	n.connMu.Lock()
	n.conn = conn
	n.connMu.Unlock()
}

// SendPacket writes a packet to the server. Packets without a path are sent
// with TCPIP*.
func (n *NetworkChannel) SendPacket(p *packet.Packet) error {
	if p.Via == "" {
		p = p.WithVia("TCPIP*")
	}
	n.connMu.Lock()
	defer n.connMu.Unlock()
	if n.conn == nil {
		return ErrNotConnected
	}
	_ = n.conn.SetWriteDeadline(time.Now().Add(netWriteTimeout))
	if _, err := n.conn.Write(packet.EncodeLine(packet.Format(p) + "\r\n")); err != nil {
		return &TransportError{Op: opWrite, Err: err}
	}
	n.countSent()
	return nil
}
