package channel

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	ErrRateLimited  = errors.New("transmit rate exceeded")
	ErrUnknownType  = errors.New("unknown channel type")
	errDeviceLocked = errors.New("device locked by another process")
)

// ConfigurationError is returned by a constructor when a channel setting is
// missing or invalid. Only that channel is affected.
type ConfigurationError struct {
	Channel string
	Key     string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("channel %s: %v", e.Channel, e.Err)
	}
	return fmt.Sprintf("channel %s: option %s: %v", e.Channel, e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError is a connect, read or write failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

type DeviceReason int

const (
	DeviceMissing DeviceReason = iota
	DeviceBusy
)

func (r DeviceReason) String() string {
	if r == DeviceBusy {
		return "busy"
	}
	return "missing"
}

// DeviceError reports that a serial device could not be acquired.
type DeviceError struct {
	Port   string
	Reason DeviceReason
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("serial port %s %s: %v", e.Port, e.Reason, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
