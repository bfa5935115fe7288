package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/PabloGalante/studychat/internal/domain"
	"github.com/PabloGalante/studychat/internal/observability"
)

// SessionStore keeps the live sessions the service hands out.
type SessionStore interface {
	CreateSession(session *Session) error
	GetSession(id domain.SessionID) (*Session, error)
	DeleteSession(id domain.SessionID) (*Session, error)
	DeleteAll() []*Session
}

type Service struct {
	replies  domain.ReplyGenerator
	sessions SessionStore
	opts     Options
}

func NewService(
	replies domain.ReplyGenerator,
	sessions SessionStore,
	opts Options,
) *Service {
	return &Service{
		replies:  replies,
		sessions: sessions,
		opts:     opts.withDefaults(),
	}
}

// Partners lists the catalog the sessions of this service use.
func (s *Service) Partners() []domain.Partner {
	return s.opts.Catalog.Partners()
}

type StartSessionInput struct {
	PartnerID domain.PartnerID
}

type StartSessionOutput struct {
	Session domain.Snapshot
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	log := observability.LoggerFromContext(ctx).With("partner_id", in.PartnerID)
	log.Info("starting new session")

	session := NewSession(domain.SessionID(uuid.NewString()), in.PartnerID, s.replies, s.opts)

	if err := s.sessions.CreateSession(session); err != nil {
		session.Close()
		log.Error("failed to create session", "error", err)
		return nil, err
	}
	observability.SessionsActive.Inc()

	snap := session.Snapshot()
	log.Info("session started", "session_id", session.ID(), "partner", snap.Partner.ID)

	return &StartSessionOutput{Session: snap}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	// Accepted is false when the text was blank and nothing changed.
	Accepted bool
	Session  domain.Snapshot
}

func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	session, err := s.sessions.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(withSession(ctx, in.SessionID))

	accepted := session.SubmitUserMessage(in.Text)
	snap := session.Snapshot()
	log.Info("send message", "accepted", accepted, "awaiting_reply", snap.AwaitingReply)

	return &SendMessageOutput{Accepted: accepted, Session: snap}, nil
}

type SwitchPartnerInput struct {
	SessionID domain.SessionID
	PartnerID domain.PartnerID
}

type SwitchPartnerOutput struct {
	// Switched is false when the partner id is not in the catalog.
	Switched bool
	Session  domain.Snapshot
}

func (s *Service) SwitchPartner(ctx context.Context, in SwitchPartnerInput) (*SwitchPartnerOutput, error) {
	session, err := s.sessions.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(withSession(ctx, in.SessionID)).With("partner_id", in.PartnerID)

	switched := session.SwitchPartner(in.PartnerID)
	if !switched {
		log.Warn("unknown partner ignored")
	}

	return &SwitchPartnerOutput{Switched: switched, Session: session.Snapshot()}, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (domain.Snapshot, error) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		observability.LoggerFromContext(withSession(ctx, id)).Debug("session lookup failed", "error", err)
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe forwards every change of the session to fn until the returned
// func is called or the session ends. The channel is closed when the
// session ends.
func (s *Service) Subscribe(
	ctx context.Context,
	id domain.SessionID,
	fn func(domain.Snapshot),
) (func(), <-chan struct{}, error) {
	session, err := s.sessions.GetSession(id)
	if err != nil {
		return nil, nil, err
	}
	observability.LoggerFromContext(withSession(ctx, id)).Debug("observer subscribed")
	return session.Subscribe(fn), session.Done(), nil
}

// EndSession closes the session and forgets it.
func (s *Service) EndSession(ctx context.Context, id domain.SessionID) error {
	session, err := s.sessions.DeleteSession(id)
	if err != nil {
		return err
	}
	session.Close()
	observability.SessionsActive.Dec()

	observability.LoggerFromContext(withSession(ctx, id)).Info("session ended")
	return nil
}

// EndAll closes and forgets every session. Used on shutdown.
func (s *Service) EndAll(ctx context.Context) int {
	sessions := s.sessions.DeleteAll()
	for _, session := range sessions {
		session.Close()
		observability.SessionsActive.Dec()
	}

	observability.LoggerFromContext(ctx).Info("all sessions ended", "count", len(sessions))
	return len(sessions)
}

// withSession tags ctx with id so the logger adds session_id exactly once.
func withSession(ctx context.Context, id domain.SessionID) context.Context {
	return observability.WithSessionID(ctx, string(id))
}
