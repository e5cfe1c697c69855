//go:build unix

package channel

import (
	"errors"
	"golang.org/x/sys/unix"
	"io"
	"os"
)

// lockDevice takes an exclusive advisory lock on a serial device so two
// channels or processes never share a port. Closing the result releases it.
func lockDevice(name string) (io.Closer, error) {
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errDeviceLocked
		}
		return nil, err
	}
	return f, nil
}
