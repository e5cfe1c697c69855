package packet

import (
	"fmt"
	"strings"
)

type Position struct {
	Lat      float64
	Lon      float64
	SymTable byte
	Symbol   byte
}

// Report is the decoded content of a position or object report.
type Report struct {
	Pos     Position
	Comment string
	// Object fields, set for ';' reports.
	Object string
	Killed bool
}

const (
	uncompressedLen = 19
	compressedLen   = 13
)

// DecodePosition decodes position ('!', '=', '/', '@') and object (';')
// reports in uncompressed or compressed form.
func DecodePosition(p *Packet) (*Report, error) {
	if p == nil || len(p.Report) < 2 {
		return nil, fmt.Errorf("%w: no position", ErrMalformed)
	}
	info := p.Report
	switch info[0] {
	case '!', '=':
		return decodeLocation(info[1:])
	case '/', '@':
		if len(info) < 8 {
			return nil, fmt.Errorf("%w: short timestamp", ErrMalformed)
		}
		return decodeLocation(info[8:])
	case ';':
		return decodeObject(info)
	}
	return nil, fmt.Errorf("%w: report type %q has no position", ErrMalformed, info[0])
}

// ParseObject decodes an object report ";NAME_____*DDHHMMzPOSITION".
func ParseObject(p *Packet) (*Report, error) {
	if p == nil || len(p.Report) == 0 || p.Report[0] != ';' {
		return nil, fmt.Errorf("%w: not an object report", ErrMalformed)
	}
	return decodeObject(p.Report)
}

func decodeObject(info string) (*Report, error) {
	if len(info) < 18 {
		return nil, fmt.Errorf("%w: short object report", ErrMalformed)
	}
	name := strings.TrimSpace(info[1:10])
	if name == "" {
		return nil, fmt.Errorf("%w: empty object name", ErrMalformed)
	}
	var killed bool
	switch info[10] {
	case '*':
	case '_':
		killed = true
	default:
		return nil, fmt.Errorf("%w: invalid live/killed marker %q", ErrMalformed, info[10])
	}
	r, err := decodeLocation(info[18:])
	if err != nil {
		return nil, err
	}
	r.Object = name
	r.Killed = killed
	return r, nil
}

func decodeLocation(s string) (*Report, error) {
	if len(s) > 0 && isDigit(s[0]) {
		if len(s) < uncompressedLen {
			return nil, fmt.Errorf("%w: short position", ErrMalformed)
		}
		lat, err := latitude(s[0:8])
		if err != nil {
			return nil, err
		}
		lon, err := longitude(s[9:18])
		if err != nil {
			return nil, err
		}
		return &Report{
			Pos:     Position{Lat: lat, Lon: lon, SymTable: s[8], Symbol: s[18]},
			Comment: strings.TrimSpace(s[uncompressedLen:]),
		}, nil
	}

	if len(s) < compressedLen {
		return nil, fmt.Errorf("%w: short compressed position", ErrMalformed)
	}
	y, ok1 := base91(s[1:5])
	x, ok2 := base91(s[5:9])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: invalid compressed position", ErrMalformed)
	}
	table := s[0]
	if table >= 'a' && table <= 'j' {
		table = table - 'a' + '0'
	}
	return &Report{
		Pos: Position{
			Lat:      90 - float64(y)/380926.0,
			Lon:      -180 + float64(x)/190463.0,
			SymTable: table,
			Symbol:   s[9],
		},
		Comment: strings.TrimSpace(s[compressedLen:]),
	}, nil
}

func base91(s string) (int, bool) {
	v := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '!' || c > '{' {
			return 0, false
		}
		v = v*91 + int(c-33)
	}
	return v, true
}

// latitude decodes "ddmm.hhN". Ambiguity spaces count as zero.
func latitude(s string) (float64, error) {
	deg, err := digits(s[0:2])
	if err != nil {
		return 0, err
	}
	if s[4] != '.' {
		return 0, fmt.Errorf("%w: latitude %q", ErrMalformed, s)
	}
	mins, err := minutes(s[2:4] + s[5:7])
	if err != nil {
		return 0, err
	}
	v := float64(deg) + mins/60
	if v > 90 {
		return 0, fmt.Errorf("%w: latitude %q out of range", ErrMalformed, s)
	}
	switch s[7] {
	case 'N', 'n':
	case 'S', 's':
		v = -v
	default:
		return 0, fmt.Errorf("%w: latitude hemisphere %q", ErrMalformed, s[7])
	}
	return v, nil
}

// longitude decodes "dddmm.hhE".
func longitude(s string) (float64, error) {
	deg, err := digits(s[0:3])
	if err != nil {
		return 0, err
	}
	if s[5] != '.' {
		return 0, fmt.Errorf("%w: longitude %q", ErrMalformed, s)
	}
	mins, err := minutes(s[3:5] + s[6:8])
	if err != nil {
		return 0, err
	}
	v := float64(deg) + mins/60
	if v > 180 {
		return 0, fmt.Errorf("%w: longitude %q out of range", ErrMalformed, s)
	}
	switch s[8] {
	case 'E', 'e':
	case 'W', 'w':
		v = -v
	default:
		return 0, fmt.Errorf("%w: longitude hemisphere %q", ErrMalformed, s[8])
	}
	return v, nil
}

func digits(s string) (int, error) {
	v := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, fmt.Errorf("%w: digit expected in %q", ErrMalformed, s)
		}
		v = v*10 + int(s[i]-'0')
	}
	return v, nil
}

// minutes decodes "mmhh" as minutes with two decimals.
func minutes(s string) (float64, error) {
	v := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			c = '0'
		case !isDigit(c):
			return 0, fmt.Errorf("%w: digit expected in %q", ErrMalformed, s)
		}
		v = v*10 + int(c-'0')
	}
	if v >= 6000 {
		return 0, fmt.Errorf("%w: minutes %q out of range", ErrMalformed, s)
	}
	return float64(v) / 100, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
