// Package packet parses and renders APRS packets in the TNC2 text form
// FROM>TO,VIA1,VIA2:report.
package packet

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed packet")

// Source is the channel a packet was received on.
type Source interface {
	ID() string
}

type Packet struct {
	From       string
	To         string
	Via        string
	Report     string
	Type       byte
	ThirdParty bool
	MsgTo      string
	Source     Source
}

// Split breaks a line into header fields and report without interpreting the
// report.
func Split(line string) (*Packet, error) {
	line = strings.TrimRight(line, "\r\n")
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return nil, fmt.Errorf("%w: no report separator", ErrMalformed)
	}
	header, report := line[:colon], line[colon+1:]

	gt := strings.IndexByte(header, '>')
	if gt <= 0 {
		return nil, fmt.Errorf("%w: no source call", ErrMalformed)
	}
	p := &Packet{From: strings.TrimSpace(header[:gt]), Report: report}
	dest := header[gt+1:]
	if comma := strings.IndexByte(dest, ','); comma >= 0 {
		p.To, p.Via = dest[:comma], dest[comma+1:]
	} else {
		p.To = dest
	}
	if p.From == "" || p.To == "" {
		return nil, fmt.Errorf("%w: empty address", ErrMalformed)
	}
	return p, nil
}

// Parse splits and normalizes a line. Third party reports are unwrapped and
// message or object addressees are extracted.
func Parse(line string) (*Packet, error) {
	p, err := Split(line)
	if err != nil {
		return nil, err
	}
	return Normalize(p)
}

// Normalize returns the packet with its report checked and decoded. The
// argument is left unmodified.
func Normalize(p *Packet) (*Packet, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrMalformed)
	}
	report := strings.ReplaceAll(p.Report, "\uffff", " ")
	if len(report) <= 1 {
		return nil, fmt.Errorf("%w: report too short", ErrMalformed)
	}
	report = strings.TrimSuffix(report, "\r")

	out := p.Clone()
	out.Report = report
	out.Type = report[0]

	switch out.Type {
	case '}':
		inner, err := Parse(report[1:])
		if err != nil {
			return nil, fmt.Errorf("third party: %w", err)
		}
		inner.ThirdParty = true
		inner.Source = p.Source
		return inner, nil
	case ':', ';':
		end := min(len(report), 10)
		out.MsgTo = strings.TrimSpace(report[1:end])
	}
	return out, nil
}

func (p *Packet) Clone() *Packet {
	c := *p
	return &c
}

// WithVia returns a copy of the packet using another digipeater path.
func (p *Packet) WithVia(via string) *Packet {
	c := p.Clone()
	c.Via = via
	return c
}

func (p *Packet) String() string {
	return Format(p)
}

func Format(p *Packet) string {
	var b strings.Builder
	b.Grow(len(p.From) + len(p.To) + len(p.Via) + len(p.Report) + 3)
	b.WriteString(p.From)
	b.WriteByte('>')
	b.WriteString(p.To)
	if p.Via != "" {
		b.WriteByte(',')
		b.WriteString(p.Via)
	}
	b.WriteByte(':')
	b.WriteString(p.Report)
	return b.String()
}

// ThirdPartyReport wraps p for transmission through another channel. When
// path is nil the original path of p is used.
func ThirdPartyReport(p *Packet, path *string) string {
	via := p.Via
	if path != nil {
		via = *path
	}
	var b strings.Builder
	b.WriteByte('}')
	b.WriteString(p.From)
	b.WriteByte('>')
	b.WriteString(p.To)
	if via != "" {
		b.WriteByte(',')
		b.WriteString(via)
	}
	b.WriteByte(':')
	b.WriteString(p.Report)
	b.WriteByte('\r')
	return b.String()
}
