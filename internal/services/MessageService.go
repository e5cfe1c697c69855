package services

import (
	"aprsd/internal/models"
	"aprsd/internal/packet"
	"aprsd/internal/providers"
	"aprsd/internal/structures"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultInboxSize = 100
	ackDestination   = "APZAPD"
)

// Sender is implemented by channels that can transmit. Replies go out on the
// channel the message arrived on.
type Sender interface {
	SendPacket(p *packet.Packet) error
}

type Message struct {
	Id      int       `json:"id"`
	From    string    `json:"from"`
	Text    string    `json:"text"`
	MsgId   string    `json:"msgId,omitempty"`
	Channel string    `json:"channel,omitempty"`
	Time    time.Time `json:"time"`
}

type messageState struct {
	Next  int       `json:"next"`
	Inbox []Message `json:"inbox"`
}

type MessageProcessorInterface interface {
	Changed() bool
	Save(w *models.RecordWriter) error
	Restore(r *models.RecordReader) (func(), error)
	ReceivePacket(p *packet.Packet, dup bool)
	Inbox() []Message
}

// MessageProcessor keeps the messages addressed to this server and
// acknowledges those carrying a message id.
type MessageProcessor struct {
	logger  providers.Logger
	ownCall string
	size    int
	now     func() time.Time

	mu      sync.Mutex
	next    int
	inbox   []Message
	changed bool
}

func NewMessageProcessor(conf *structures.Config, logger providers.Logger) *MessageProcessor {
	own := strings.ToUpper(conf.Stations.OwnCall)
	if own == "" {
		own = "NOCALL"
	}
	return &MessageProcessor{
		logger:  logger,
		ownCall: own,
		size:    defaultInboxSize,
		now:     time.Now,
		next:    1,
	}
}

// splitMessage parses ":ADDRESSEE:text{id".
func splitMessage(report string) (text, msgId string, ok bool) {
	if len(report) < 11 || report[0] != ':' || report[10] != ':' {
		return "", "", false
	}
	text = report[11:]
	if i := strings.LastIndexByte(text, '{'); i >= 0 {
		text, msgId = text[:i], text[i+1:]
		if j := strings.IndexByte(msgId, '}'); j >= 0 {
			msgId = msgId[:j]
		}
	}
	return text, msgId, true
}

func isAck(text string) bool {
	return strings.HasPrefix(text, "ack") || strings.HasPrefix(text, "rej")
}

func (mp *MessageProcessor) ReceivePacket(p *packet.Packet, dup bool) {
	if p.Type != ':' || !strings.EqualFold(p.MsgTo, mp.ownCall) {
		return
	}
	text, msgId, ok := splitMessage(p.Report)
	if !ok || isAck(text) {
		return
	}
	if msgId != "" {
		mp.ack(p, msgId)
	}
	if dup {
		return
	}

	m := Message{From: p.From, Text: text, MsgId: msgId, Time: mp.now().UTC()}
	if p.Source != nil {
		m.Channel = p.Source.ID()
	}

	mp.mu.Lock()
	m.Id = mp.next
	mp.next++
	mp.inbox = append(mp.inbox, m)
	if len(mp.inbox) > mp.size {
		mp.inbox = mp.inbox[len(mp.inbox)-mp.size:]
	}
	mp.changed = true
	mp.mu.Unlock()

	mp.logger.Infof(providers.TypeApp, "Message %d from %s: %s", m.Id, m.From, m.Text)
}

func (mp *MessageProcessor) ack(p *packet.Packet, msgId string) {
	s, ok := p.Source.(Sender)
	if !ok {
		return
	}
	reply := &packet.Packet{
		From:   mp.ownCall,
		To:     ackDestination,
		Report: fmt.Sprintf(":%-9s:ack%s", p.From, msgId),
	}
	if err := s.SendPacket(reply); err != nil {
		mp.logger.Warnf(providers.TypeApp, "Cannot acknowledge message %s from %s: %s", msgId, p.From, err)
	}
}

func (mp *MessageProcessor) Inbox() []Message {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]Message, len(mp.inbox))
	copy(out, mp.inbox)
	return out
}

func (mp *MessageProcessor) Changed() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.changed
}

func (mp *MessageProcessor) Save(w *models.RecordWriter) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if err := w.Write(models.RecordMessages, messageState{Next: mp.next, Inbox: mp.inbox}); err != nil {
		return err
	}
	mp.changed = false
	return nil
}

func (mp *MessageProcessor) Restore(r *models.RecordReader) (func(), error) {
	var st messageState
	if err := r.Expect(models.RecordMessages, &st); err != nil {
		return nil, err
	}
	if st.Next < 1 {
		return nil, fmt.Errorf("invalid message counter %d", st.Next)
	}
	return func() {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		mp.next = st.Next
		mp.inbox = st.Inbox
		mp.changed = false
	}, nil
}
