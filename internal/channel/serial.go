package channel

import (
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"aprsd/internal/structures"
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	TypeSerial = "tnc2"

	defaultSerialPort     = "/dev/ttyS0"
	defaultSerialBaud     = 9600
	defaultSerialRetryMin = 30
	defaultTxRate         = 6
	serialPathVariants    = 4
	serialReadTimeout     = time.Second

	opOpen = "open"
)

func init() {
	Register(TypeSerial, NewSerialChannel)
}

// SerialChannel talks to a TNC in TNC2 text mode over a serial line.
type SerialChannel struct {
	*Core

	port      string
	baud      int
	myCall    string
	maxRetry  int
	retryTime time.Duration
	limiter   *rate.Limiter

	retryBase time.Duration
	openPort  func(name string, baud int) (io.ReadWriteCloser, error)
	onRetry   func(retry int, delay time.Duration)

	loop   runner
	portMu sync.Mutex
	rw     io.ReadWriteCloser
}

func NewSerialChannel(cfg structures.ChannelConfig, conf *structures.Config, deps Deps) (Channel, error) {
	props := NewProperties(cfg.Id, cfg.Options)
	s := &SerialChannel{
		retryBase: retryBase,
		openPort:  openSerialPort,
	}
	var err error
	if s.port, err = props.String("port", defaultSerialPort); err != nil {
		return nil, err
	}
	if s.baud, err = props.Int("baud", defaultSerialBaud); err != nil {
		return nil, err
	}
	if s.baud <= 0 {
		return nil, &ConfigurationError{Channel: cfg.Id, Key: "baud", Err: fmt.Errorf("invalid baud rate %d", s.baud)}
	}
	ownCall := conf.Stations.OwnCall
	if ownCall == "" {
		ownCall = "NOCALL"
	}
	if s.myCall, err = props.String("mycall", ownCall); err != nil {
		return nil, err
	}
	s.myCall = strings.ToUpper(s.myCall)
	if s.maxRetry, err = props.Int("maxRetry", 0); err != nil {
		return nil, err
	}
	retryMin, err := props.Int("retryTime", defaultSerialRetryMin)
	if err != nil {
		return nil, err
	}
	s.retryTime = time.Duration(retryMin) * time.Minute
	txRate, err := props.Int("txRate", defaultTxRate)
	if err != nil {
		return nil, err
	}
	if txRate <= 0 {
		return nil, &ConfigurationError{Channel: cfg.Id, Key: "txRate", Err: fmt.Errorf("must be positive, got %d", txRate)}
	}
	s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(txRate)), txRate)

	s.Core, err = NewCore(cfg.Id, s.port, cfg.Filter, serialPathVariants, deps)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openSerialPort(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
}

func (s *SerialChannel) Start(ctx context.Context) {
	if s.loop.start(ctx, s.run) {
		s.deps.Logger.Infof(providers.TypeChannel, "[%s] starting", s.descr)
	}
}

// Close stops the channel. The receive loop notices within one read timeout
// and releases the port.
func (s *SerialChannel) Close() error {
	s.loop.stop()
	s.setState(StateOff)
	return nil
}

func (s *SerialChannel) run(ctx context.Context) {
	retry := 0
	for {
		if retry > 0 {
			delay := linearBackoff(s.retryBase, retry, s.retryTime)
			if s.onRetry != nil {
				s.onRetry(retry, delay)
			}
			if !sleepCtx(ctx, delay) {
				s.setState(StateOff)
				return
			}
		}

		s.setState(StateStarting)
		lines, err := s.session(ctx)
		if ctx.Err() != nil {
			s.setState(StateOff)
			return
		}
		s.setState(StateFailed)

		if lines > 0 {
			retry = 0
		}
		retry++
		if s.maxRetry != 0 && retry > s.maxRetry {
			s.deps.Logger.Errorf(providers.TypeChannel, "[%s] %v; giving up after %d retries", s.descr, err, s.maxRetry)
			return
		}
		s.deps.Logger.Warnf(providers.TypeChannel, "[%s] %v; retry %d", s.descr, err, retry)
	}
}

// acquire locks and opens the device.
func (s *SerialChannel) acquire() (io.ReadWriteCloser, io.Closer, error) {
	if _, err := os.Stat(s.port); err != nil {
		return nil, nil, &DeviceError{Port: s.port, Reason: DeviceMissing, Err: err}
	}
	lock, err := lockDevice(s.port)
	if err != nil {
		reason := DeviceMissing
		if errors.Is(err, errDeviceLocked) {
			reason = DeviceBusy
		}
		return nil, nil, &DeviceError{Port: s.port, Reason: reason, Err: err}
	}
	rw, err := s.openPort(s.port, s.baud)
	if err != nil {
		lock.Close()
		return nil, nil, &TransportError{Op: opOpen, Err: err}
	}
	return rw, lock, nil
}

func (s *SerialChannel) session(ctx context.Context) (int, error) {
	rw, lock, err := s.acquire()
	if err != nil {
		return 0, err
	}
	defer lock.Close()
	defer rw.Close()

	s.setPort(rw)
	defer s.setPort(nil)
	s.setState(StateRunning)
	s.deps.Logger.Infof(providers.TypeChannel, "[%s] port open at %d baud", s.descr, s.baud)

	return s.receive(ctx, rw)
}

// receive reads TNC2 frames, one per CR or LF terminated line, until the
// context is done or the port fails. A read that returns nothing is a receive
// timeout.
func (s *SerialChannel) receive(ctx context.Context, r io.Reader) (int, error) {
	buf := make([]byte, 512)
	var pending []byte
	lines := 0
	for ctx.Err() == nil {
		n, err := r.Read(buf)
		pending = append(pending, buf[:n]...)
		for {
			i := bytes.IndexAny(pending, "\r\n")
			if i < 0 {
				break
			}
			if i > 0 {
				lines++
				s.Ingest(packet.DecodeLine(pending[:i]), false)
			}
			pending = pending[i+1:]
		}
		if len(pending) > 4096 {
			pending = pending[:0]
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF) && n == 0:
			if _, serr := os.Stat(s.port); serr != nil {
				return lines, &DeviceError{Port: s.port, Reason: DeviceMissing, Err: serr}
			}
		default:
			return lines, &TransportError{Op: opRead, Err: err}
		}
	}
	return lines, ctx.Err()
}

func (s *SerialChannel) setPort(rw io.ReadWriteCloser) {
	s.portMu.Lock()
	s.rw = rw
	s.portMu.Unlock()
}

// SendPacket transmits a packet through the TNC. Packets from our own call
// are sent as is; anything else goes out as a third party report.
func (s *SerialChannel) SendPacket(p *packet.Packet) error {
	var payload string
	if p.From == s.myCall {
		payload = p.Report + "\r"
	} else {
		path := "TCPIP," + s.myCall + "*"
		payload = packet.ThirdPartyReport(p, &path)
	}

	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.rw == nil {
		return ErrNotConnected
	}
	if !s.limiter.Allow() {
		s.deps.Logger.Warnf(providers.TypeChannel, "[%s] dropped %s: %v", s.descr, p, ErrRateLimited)
		return ErrRateLimited
	}
	if _, err := s.rw.Write(packet.EncodeLine(payload)); err != nil {
		return &TransportError{Op: opWrite, Err: err}
	}
	s.countSent()
	return nil
}
