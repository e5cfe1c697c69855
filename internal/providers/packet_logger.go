package providers

import (
	"aprsd/internal/structures"
	"fmt"
	"github.com/lestrrat-go/strftime"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultPacketFile = "packets-%Y%m%d.log"

// PacketLoggerInterface writes every accepted packet to a daily file.
type PacketLoggerInterface interface {
	Log(channel, line string)
	Close()
}

type PacketLogger struct {
	mu      sync.Mutex
	dir     string
	mode    os.FileMode
	pattern *strftime.Strftime
	name    string
	file    *os.File
	now     func() time.Time
}

func NewPacketLogProvider(conf *structures.Config) (PacketLoggerInterface, error) {
	if !conf.Logger.LogPackets {
		return &noopPacketLogger{}, nil
	}
	pattern := conf.Logger.PacketFile
	if pattern == "" {
		pattern = defaultPacketFile
	}
	p, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid packet log pattern %q: %w", pattern, err)
	}
	mode := os.FileMode(conf.Logger.Mode)
	if mode == 0 {
		mode = 0644
	}
	return &PacketLogger{
		dir:     conf.Logger.Dir,
		mode:    mode,
		pattern: p,
		now:     time.Now,
	}, nil
}

func (l *PacketLogger) Log(channel, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	name := l.pattern.FormatString(now)
	if name != l.name || l.file == nil {
		if l.file != nil {
			_ = l.file.Close()
			l.file = nil
		}
		f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, l.mode)
		if err != nil {
			return
		}
		l.file = f
		l.name = name
	}
	_, _ = fmt.Fprintf(l.file, "%s [%s] %s\n", now.Format("2006-01-02 15:04:05"), channel, line)
}

func (l *PacketLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

type noopPacketLogger struct{}

func (n *noopPacketLogger) Log(_, _ string) {}
func (n *noopPacketLogger) Close()          {}
