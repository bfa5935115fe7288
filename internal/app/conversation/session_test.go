package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/studychat/internal/adapters/llm"
	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/clock"
	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/entropy"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// Fraction 0.5 over the default 1s..3s range gives a 2s delay.
const replyDelay = 2 * time.Second

func newTestSession(t *testing.T, replies domain.ReplyGenerator) (*conversation.Session, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(start)
	s := conversation.NewSession("test-session", "", replies, conversation.Options{
		Clock: fake,
		Rand:  entropy.Fixed{Index: 0, Fraction: 0.5},
	})
	t.Cleanup(s.Close)
	return s, fake
}

func TestNewSessionSeedsGreeting(t *testing.T) {
	s, _ := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	snap := s.Snapshot()
	if len(snap.Log) != 1 {
		t.Fatalf("expected 1 message, got %d", len(snap.Log))
	}
	if snap.Partner.ID != conversation.DefaultPartnerID {
		t.Fatalf("expected default partner, got %q", snap.Partner.ID)
	}
	greeting := snap.Log[0]
	if greeting.Sender != domain.SenderAssistant {
		t.Fatalf("expected assistant greeting, got %q", greeting.Sender)
	}
	if greeting.Text != "Hello! I'm your AI assistant. How can I help you today?" {
		t.Fatalf("unexpected greeting %q", greeting.Text)
	}
	if !greeting.SentAt.Equal(start) {
		t.Fatalf("expected greeting at %v, got %v", start, greeting.SentAt)
	}
	if snap.AwaitingReply {
		t.Fatalf("fresh session must not await a reply")
	}
}

func TestSubmitAppendsTrimmedUserMessage(t *testing.T) {
	cases := map[string]string{
		"hello":          "hello",
		"  padded  ":     "padded",
		"\tline\n":       "line",
		"two words here": "two words here",
	}

	for in, want := range cases {
		s, _ := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

		if !s.SubmitUserMessage(in) {
			t.Fatalf("SubmitUserMessage(%q) rejected", in)
		}

		snap := s.Snapshot()
		if len(snap.Log) != 2 {
			t.Fatalf("expected 2 messages after %q, got %d", in, len(snap.Log))
		}
		last := snap.Last()
		if last.Sender != domain.SenderUser || last.Text != want {
			t.Fatalf("expected user:%q, got %s:%q", want, last.Sender, last.Text)
		}
	}
}

func TestSubmitBlankIsNoop(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))
	before := s.Snapshot()

	for _, in := range []string{"", "   ", "\n\t "} {
		if s.SubmitUserMessage(in) {
			t.Fatalf("SubmitUserMessage(%q) should be ignored", in)
		}
	}

	after := s.Snapshot()
	if len(after.Log) != len(before.Log) || after.Revision != before.Revision {
		t.Fatalf("blank input changed the session: before=%+v after=%+v", before, after)
	}
	if after.AwaitingReply || fake.Pending() != 0 {
		t.Fatalf("blank input must not schedule a reply")
	}
}

func TestReplyDeliveredAfterDelay(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyUniform, nil, entropy.Fixed{Index: 2}))

	s.SubmitUserMessage("hello")

	snap := s.Snapshot()
	if len(snap.Log) != 2 || !snap.AwaitingReply {
		t.Fatalf("expected [greeting, hello] awaiting reply, got %d messages awaiting=%v", len(snap.Log), snap.AwaitingReply)
	}

	fake.Advance(replyDelay - time.Millisecond)
	if got := len(s.Snapshot().Log); got != 2 {
		t.Fatalf("reply arrived early: %d messages", got)
	}

	fake.Advance(time.Millisecond)
	snap = s.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("expected 3 messages after delay, got %d", len(snap.Log))
	}
	last := snap.Last()
	if last.Sender != domain.SenderAssistant {
		t.Fatalf("expected assistant reply, got %q", last.Sender)
	}
	if last.Text != llm.DefaultResponses[2] {
		t.Fatalf("expected %q, got %q", llm.DefaultResponses[2], last.Text)
	}
	if !last.SentAt.Equal(start.Add(replyDelay)) {
		t.Fatalf("expected reply at %v, got %v", start.Add(replyDelay), last.SentAt)
	}
	if snap.AwaitingReply {
		t.Fatalf("awaiting flag must clear after delivery")
	}
	if fake.Pending() != 0 {
		t.Fatalf("expected no outstanding timer, got %d", fake.Pending())
	}
}

func TestSwitchPartnerCancelsPendingReply(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	s.SubmitUserMessage("hi")
	if !s.SwitchPartner("nodejs") {
		t.Fatalf("expected switch to nodejs")
	}

	snap := s.Snapshot()
	if len(snap.Log) != 1 || snap.AwaitingReply {
		t.Fatalf("expected fresh log without pending reply, got %d messages awaiting=%v", len(snap.Log), snap.AwaitingReply)
	}
	if want := "Hello! I'm your Node.js Course assistant. Ask me anything about the course content!"; snap.Log[0].Text != want {
		t.Fatalf("expected %q, got %q", want, snap.Log[0].Text)
	}

	fake.Advance(10 * replyDelay)
	if got := len(s.Snapshot().Log); got != 1 {
		t.Fatalf("stale reply leaked into new conversation: %d messages", got)
	}
}

// leakyClock hands out timers whose Stop does nothing, so a callback can
// still fire after the session tried to cancel it.
type leakyClock struct {
	*clock.Fake
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c leakyClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.Fake.AfterFunc(d, f)
	return leakyTimer{}
}

func TestStaleTimerDroppedByEpochGuard(t *testing.T) {
	fake := clock.NewFake(start)
	s := conversation.NewSession("leaky", "", llm.NewCannedResponder(llm.PolicyFirst, nil, nil), conversation.Options{
		Clock: leakyClock{fake},
		Rand:  entropy.Fixed{Fraction: 0.5},
	})
	defer s.Close()

	s.SubmitUserMessage("hi")
	s.SwitchPartner("python")

	// the old timer still fires here
	fake.Advance(replyDelay)

	snap := s.Snapshot()
	if len(snap.Log) != 1 || snap.Partner.ID != "python" {
		t.Fatalf("expected only the python greeting, got %d messages partner=%q", len(snap.Log), snap.Partner.ID)
	}
}

func TestSwitchUnknownPartnerIsNoop(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))
	s.SubmitUserMessage("hi")
	before := s.Snapshot()

	if s.SwitchPartner("nobody") {
		t.Fatalf("unknown partner must be ignored")
	}

	after := s.Snapshot()
	if after.Partner != before.Partner ||
		len(after.Log) != len(before.Log) ||
		after.AwaitingReply != before.AwaitingReply ||
		after.Revision != before.Revision {
		t.Fatalf("unknown partner changed state: before=%+v after=%+v", before, after)
	}

	// the pending reply survives
	fake.Advance(replyDelay)
	if got := len(s.Snapshot().Log); got != 3 {
		t.Fatalf("expected reply after ignored switch, got %d messages", got)
	}
}

func TestNonAutomatedPartnerNeverReplies(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	s.SwitchPartner("hitish")
	snap := s.Snapshot()
	if want := "Hey! You're now chatting with Hitish. Start the conversation!"; snap.Log[0].Text != want {
		t.Fatalf("expected %q, got %q", want, snap.Log[0].Text)
	}

	s.SubmitUserMessage("are you there?")
	snap = s.Snapshot()
	if len(snap.Log) != 2 || snap.AwaitingReply {
		t.Fatalf("expected 2 messages and no pending reply, got %d awaiting=%v", len(snap.Log), snap.AwaitingReply)
	}
	if fake.Pending() != 0 {
		t.Fatalf("no timer may be scheduled for a human partner")
	}

	fake.Advance(time.Minute)
	if got := len(s.Snapshot().Log); got != 2 {
		t.Fatalf("human partner produced a reply: %d messages", got)
	}
}

func TestQueuedSubmissionsEachGetOneReply(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyEcho, nil, nil))

	s.SubmitUserMessage("first")
	s.SubmitUserMessage("second")

	if fake.Pending() != 1 {
		t.Fatalf("expected a single outstanding timer, got %d", fake.Pending())
	}

	fake.Advance(replyDelay)
	snap := s.Snapshot()
	if len(snap.Log) != 4 || !snap.AwaitingReply {
		t.Fatalf("expected first reply with second still pending, got %d awaiting=%v", len(snap.Log), snap.AwaitingReply)
	}
	if !strings.Contains(snap.Last().Text, `"first"`) {
		t.Fatalf("first reply should answer the first message, got %q", snap.Last().Text)
	}

	fake.Advance(replyDelay)
	snap = s.Snapshot()
	if len(snap.Log) != 5 || snap.AwaitingReply {
		t.Fatalf("expected both replies delivered, got %d awaiting=%v", len(snap.Log), snap.AwaitingReply)
	}
	if !strings.Contains(snap.Last().Text, `"second"`) {
		t.Fatalf("second reply should answer the second message, got %q", snap.Last().Text)
	}

	fake.Advance(time.Minute)
	if got := len(s.Snapshot().Log); got != 5 {
		t.Fatalf("extra replies delivered: %d messages", got)
	}
}

func TestCloseCancelsPendingReply(t *testing.T) {
	fake := clock.NewFake(start)
	s := conversation.NewSession("closing", "", llm.NewCannedResponder(llm.PolicyFirst, nil, nil), conversation.Options{
		Clock: fake,
		Rand:  entropy.Fixed{Fraction: 0.5},
	})

	s.SubmitUserMessage("bye")
	s.Close()
	s.Close()

	fake.Advance(time.Minute)
	if got := len(s.Snapshot().Log); got != 2 {
		t.Fatalf("reply delivered after close: %d messages", got)
	}
	if s.SubmitUserMessage("again") {
		t.Fatalf("closed session must ignore input")
	}
	if s.SwitchPartner("python") {
		t.Fatalf("closed session must ignore partner switches")
	}
}

func TestDoneClosedOnClose(t *testing.T) {
	s := conversation.NewSession("done", "", nil, conversation.Options{Clock: clock.NewFake(start)})

	select {
	case <-s.Done():
		t.Fatalf("done closed before Close")
	default:
	}

	s.Close()
	select {
	case <-s.Done():
	default:
		t.Fatalf("done still open after Close")
	}
}

func TestZeroDelayRepliesImmediately(t *testing.T) {
	fake := clock.NewFake(start)
	s := conversation.NewSession("instant", "", llm.NewCannedResponder(llm.PolicyFirst, nil, nil), conversation.Options{
		Clock: fake,
		Rand:  entropy.Fixed{Fraction: 0.5},
		Delay: &conversation.DelayRange{},
	})
	t.Cleanup(s.Close)

	s.SubmitUserMessage("now please")
	fake.Advance(0)

	snap := s.Snapshot()
	if len(snap.Log) != 3 {
		t.Fatalf("expected reply without delay, got %d messages", len(snap.Log))
	}
	if !snap.Last().SentAt.Equal(start) {
		t.Fatalf("expected reply at %v, got %v", start, snap.Last().SentAt)
	}
}

func TestSubscribeReceivesEveryChange(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	var seen []domain.Snapshot
	unsubscribe := s.Subscribe(func(snap domain.Snapshot) {
		seen = append(seen, snap)
	})

	s.SubmitUserMessage("hello")
	fake.Advance(replyDelay)
	s.SwitchPartner("python")

	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Revision <= seen[i-1].Revision {
			t.Fatalf("revisions must grow: %d then %d", seen[i-1].Revision, seen[i].Revision)
		}
	}
	if !seen[0].AwaitingReply || seen[1].AwaitingReply {
		t.Fatalf("unexpected awaiting flags: %v, %v", seen[0].AwaitingReply, seen[1].AwaitingReply)
	}

	unsubscribe()
	s.SubmitUserMessage("ignored by observer")
	if len(seen) != 3 {
		t.Fatalf("observer called after unsubscribe")
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateReply(context.Context, string, domain.ConversationContext) (string, error) {
	return "", errors.New("boom")
}

func TestGeneratorFailureStillDeliversReply(t *testing.T) {
	s, fake := newTestSession(t, failingGenerator{})

	s.SubmitUserMessage("hello")
	fake.Advance(replyDelay)

	snap := s.Snapshot()
	if len(snap.Log) != 3 || snap.Last().Text == "" || snap.AwaitingReply {
		t.Fatalf("expected a fallback reply, got %+v", snap)
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	for i := 0; i < 5; i++ {
		s.SubmitUserMessage("msg")
	}
	fake.Advance(10 * replyDelay)

	seen := make(map[domain.MessageID]bool)
	for _, m := range s.Snapshot().Log {
		if m.ID == "" || seen[m.ID] {
			t.Fatalf("duplicate or empty id %q", m.ID)
		}
		seen[m.ID] = true
	}
	if len(seen) != 11 {
		t.Fatalf("expected 11 messages, got %d", len(seen))
	}
}

func TestScenarioHelloThenReply(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyUniform, nil, entropy.Fixed{Index: 4}))

	s.SubmitUserMessage("hello")
	snap := s.Snapshot()
	if len(snap.Log) != 2 || snap.Log[1].Text != "hello" || !snap.AwaitingReply {
		t.Fatalf("unexpected state after submit: %+v", snap)
	}

	fake.Advance(3 * time.Second)
	snap = s.Snapshot()
	if len(snap.Log) != 3 || snap.Last().Sender != domain.SenderAssistant || snap.AwaitingReply {
		t.Fatalf("unexpected state after delay: %+v", snap)
	}
}

func TestScenarioSwitchBeforeReply(t *testing.T) {
	s, fake := newTestSession(t, llm.NewCannedResponder(llm.PolicyFirst, nil, nil))

	s.SubmitUserMessage("hi")
	s.SwitchPartner("piyush")
	fake.Advance(time.Minute)

	snap := s.Snapshot()
	if len(snap.Log) != 1 {
		t.Fatalf("expected only the new greeting, got %d messages", len(snap.Log))
	}
	if snap.Log[0].Text != "Hey! You're now chatting with Piyush. Start the conversation!" {
		t.Fatalf("unexpected greeting %q", snap.Log[0].Text)
	}
}

func TestRealClockDelivery(t *testing.T) {
	s := conversation.NewSession("real", "", llm.NewCannedResponder(llm.PolicyFirst, nil, nil), conversation.Options{
		Delay: &conversation.DelayRange{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond},
	})
	defer s.Close()

	done := make(chan domain.Snapshot, 4)
	s.Subscribe(func(snap domain.Snapshot) {
		if !snap.AwaitingReply {
			done <- snap
		}
	})

	s.SubmitUserMessage("ping")

	select {
	case snap := <-done:
		if snap.Last().Sender != domain.SenderAssistant {
			t.Fatalf("expected assistant reply, got %+v", snap.Last())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("reply never arrived")
	}
}
