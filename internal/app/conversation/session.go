package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/studychat/internal/clock"
	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/entropy"
	"github.com/PabloGalante/studychat/internal/observability"
)

// fallbackReply is delivered when the generator fails or returns nothing.
const fallbackReply = "That's an interesting point! How can I help you further?"

// DelayRange bounds the random delay before a synthetic reply.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

var DefaultDelay = DelayRange{Min: time.Second, Max: 3 * time.Second}

func (r DelayRange) pick(src entropy.Source) time.Duration {
	lo, hi := r.Min, r.Max
	if lo < 0 {
		lo = 0
	}
	if hi < lo {
		hi = lo
	}
	return lo + time.Duration(src.Float64()*float64(hi-lo))
}

// Options holds the collaborators shared by sessions. Nil fields get defaults.
type Options struct {
	Catalog *Catalog
	Clock   clock.Clock
	Rand    entropy.Source
	// Delay of nil means DefaultDelay. A zero range replies immediately.
	Delay *DelayRange
}

func (o Options) withDefaults() Options {
	if o.Catalog == nil {
		o.Catalog = DefaultCatalog()
	}
	if o.Clock == nil {
		o.Clock = clock.System()
	}
	if o.Rand == nil {
		o.Rand = entropy.System()
	}
	if o.Delay == nil {
		d := DefaultDelay
		o.Delay = &d
	}
	return o
}

// Session is one live conversation: the message log, the active partner
// and the queue of user messages still waiting for a synthetic reply.
//
// All mutations are serialized by mu. Reply timers carry the epoch they
// were scheduled under; SwitchPartner and Close bump the epoch, so a timer
// that fires afterwards finds a different epoch and drops its reply.
type Session struct {
	id      domain.SessionID
	catalog *Catalog
	replies domain.ReplyGenerator
	clock   clock.Clock
	rand    entropy.Source
	delay   DelayRange
	log     *slog.Logger

	mu        sync.Mutex
	partner   domain.Partner
	messages  []domain.Message
	queue     []domain.Message
	pending   clock.Timer
	epoch     uint64
	revision  uint64
	closed    bool
	done      chan struct{}
	observers map[int]func(domain.Snapshot)
	nextObs   int
}

// NewSession creates a session seeded with the greeting of partnerID, or of
// the catalog default when partnerID is unknown.
func NewSession(
	id domain.SessionID,
	partnerID domain.PartnerID,
	replies domain.ReplyGenerator,
	opts Options,
) *Session {
	opts = opts.withDefaults()

	partner, ok := opts.Catalog.Lookup(partnerID)
	if !ok {
		partner = opts.Catalog.Default()
	}

	s := &Session{
		id:        id,
		catalog:   opts.Catalog,
		replies:   replies,
		clock:     opts.Clock,
		rand:      opts.Rand,
		delay:     *opts.Delay,
		log:       observability.WithFields("session_id", id),
		partner:   partner,
		done:      make(chan struct{}),
		observers: make(map[int]func(domain.Snapshot)),
	}
	s.appendLocked(Greeting(partner), domain.SenderAssistant)
	return s
}

func (s *Session) ID() domain.SessionID {
	return s.id
}

// SubmitUserMessage appends text as a user message. Blank text is ignored
// and false is returned. Messages sent to an automated partner get exactly
// one synthetic reply each, delivered in submission order.
func (s *Session) SubmitUserMessage(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	msg := s.appendLocked(text, domain.SenderUser)
	if s.partner.IsAutomated {
		s.queue = append(s.queue, msg)
		if len(s.queue) == 1 {
			s.scheduleLocked()
		}
	}
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()

	s.log.Debug("user message appended", "message_id", msg.ID, "awaiting_reply", snap.AwaitingReply)
	publish(snap, obs)
	return true
}

// SwitchPartner resets the conversation to a fresh greeting from the partner
// with the given id and drops any pending reply. Unknown ids are ignored.
func (s *Session) SwitchPartner(id domain.PartnerID) bool {
	partner, ok := s.catalog.Lookup(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	dropped := s.cancelPendingLocked()
	s.partner = partner
	s.messages = nil
	s.appendLocked(Greeting(partner), domain.SenderAssistant)
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()

	observability.PartnerSwitches.WithLabelValues(string(partner.ID)).Inc()
	s.log.Info("partner switched", "partner_id", partner.ID, "dropped_replies", dropped)
	publish(snap, obs)
	return true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(domain.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	key := s.nextObs
	s.nextObs++
	s.observers[key] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, key)
	}
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close tears the session down. Pending replies are cancelled, observers
// are dropped and Done is closed. Calling Close twice is harmless.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	dropped := s.cancelPendingLocked()
	s.closed = true
	s.observers = nil
	close(s.done)

	s.log.Info("session closed", "dropped_replies", dropped)
}

func (s *Session) scheduleLocked() {
	epoch := s.epoch
	d := s.delay.pick(s.rand)

	s.pending = s.clock.AfterFunc(d, func() { s.deliver(epoch) })

	observability.RepliesScheduled.Inc()
	observability.ReplyDelay.Observe(d.Seconds())
}

// cancelPendingLocked invalidates every scheduled reply and returns how
// many queued messages lost theirs.
func (s *Session) cancelPendingLocked() int {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.epoch++

	dropped := len(s.queue)
	s.queue = nil
	if dropped > 0 {
		observability.RepliesCancelled.Add(float64(dropped))
	}
	return dropped
}

func (s *Session) deliver(epoch uint64) {
	s.mu.Lock()
	if s.closed || epoch != s.epoch || len(s.queue) == 0 {
		s.mu.Unlock()
		s.log.Debug("stale reply dropped", "epoch", epoch)
		return
	}
	s.pending = nil
	prompt := s.queue[0]
	convCtx := domain.ConversationContext{
		SessionID: s.id,
		Partner:   s.partner,
		History:   append([]domain.Message(nil), s.messages...),
	}
	s.mu.Unlock()

	text := fallbackReply
	if s.replies != nil {
		reply, err := s.replies.GenerateReply(context.Background(), prompt.Text, convCtx)
		switch {
		case err != nil:
			s.log.Error("reply generation failed", "error", err)
		case strings.TrimSpace(reply) != "":
			text = reply
		}
	}

	s.mu.Lock()
	if s.closed || epoch != s.epoch {
		s.mu.Unlock()
		s.log.Debug("reply discarded after generation", "epoch", epoch)
		return
	}
	s.queue = s.queue[1:]
	msg := s.appendLocked(text, domain.SenderAssistant)
	if len(s.queue) > 0 {
		s.scheduleLocked()
	}
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()

	observability.RepliesDelivered.Inc()
	s.log.Debug("reply delivered", "message_id", msg.ID, "reply_to", prompt.ID)
	publish(snap, obs)
}

func (s *Session) appendLocked(text string, sender domain.Sender) domain.Message {
	msg := domain.Message{
		ID:     newMessageID(),
		Text:   text,
		Sender: sender,
		SentAt: s.clock.Now(),
	}
	s.messages = append(s.messages, msg)
	s.revision++

	observability.MessagesTotal.WithLabelValues(string(sender)).Inc()
	return msg
}

func (s *Session) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		SessionID:     s.id,
		Partner:       s.partner,
		Log:           append([]domain.Message(nil), s.messages...),
		AwaitingReply: len(s.queue) > 0,
		Revision:      s.revision,
	}
}

func (s *Session) observersLocked() []func(domain.Snapshot) {
	out := make([]func(domain.Snapshot), 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func publish(snap domain.Snapshot, observers []func(domain.Snapshot)) {
	for _, fn := range observers {
		fn(snap)
	}
}

// newMessageID returns a UUIDv7 so ids sort in creation order.
func newMessageID() domain.MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.MessageID(uuid.NewString())
	}
	return domain.MessageID(id.String())
}
