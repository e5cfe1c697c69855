// Package channel implements the packet channels: the shared ingestion
// pipeline, the APRS-IS network client and the TNC2 serial channel.
package channel

import (
	"aprsd/internal/packet"
	"context"
)

type State int32

const (
	StateOff State = iota
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateFailed:
		return "FAILED"
	default:
		return "OFF"
	}
}

// Receiver gets every packet accepted by a channel. dup is set for packets
// already seen on some channel within the duplicate window.
type Receiver interface {
	ReceivePacket(p *packet.Packet, dup bool)
}

type Channel interface {
	ID() string
	Descr() string
	Start(ctx context.Context)
	Close() error
	SendPacket(p *packet.Packet) error
	State() State
	IsActive() bool
	Stats() Stats
	Heard(call string) bool
	HeardPath(call string) (string, bool)
	AddReceiver(r Receiver)
	RemoveReceiver(r Receiver)
	Receivers() []Receiver
}

type Stats struct {
	Id         string `json:"id"`
	Descr      string `json:"descr"`
	State      string `json:"state"`
	Heard      int    `json:"heard"`
	Packets    uint64 `json:"packets"`
	Duplicates uint64 `json:"duplicates"`
	Sent       uint64 `json:"sent"`
	Rejected   uint64 `json:"rejected"`
	Backup     bool   `json:"backup"`
}
