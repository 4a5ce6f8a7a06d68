package siaf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultSessionTTL = 10 * time.Minute

// SessionKey is where the proxy session of a user's pending captcha lives.
func SessionKey(userID uuid.UUID) string {
	return fmt.Sprintf("siaf:session:%s", userID)
}

// SessionStore keeps one proxy session per user between the captcha and the
// consult call.
type SessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSessionStore(client redis.Cmdable, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, userID uuid.UUID, session string) error {
	return s.client.Set(ctx, SessionKey(userID), session, s.ttl).Err()
}

// Take returns and deletes the stored session; found is false when it expired.
func (s *SessionStore) Take(ctx context.Context, userID uuid.UUID) (session string, found bool, err error) {
	session, err = s.client.GetDel(ctx, SessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return session, true, nil
}

// ConsultInput is what a user submits after solving the captcha.
type ConsultInput struct {
	AnoEje     string `json:"anoEje" validate:"required,numeric,len=4"`
	SecEjec    string `json:"secEjec" validate:"required,max=6"`
	Expediente string `json:"expediente" validate:"required,max=10"`
	Captcha    string `json:"j_captcha" validate:"required,max=5"`
}

// Service pairs each user's captcha with the consult that uses it.
type Service struct {
	client   *Client
	sessions *SessionStore
}

func NewService(client *Client, sessions *SessionStore) *Service {
	return &Service{client: client, sessions: sessions}
}

// Captcha fetches a captcha for the actor and keeps its proxy session
// server-side. The session is not returned to the caller.
func (s *Service) Captcha(ctx context.Context, actor domain.Actor) (*CaptchaResult, error) {
	result, err := s.client.Captcha(ctx)
	if err != nil {
		return nil, err
	}

	if result.Session != "" {
		if err := s.sessions.Save(ctx, actor.UserID, result.Session); err != nil {
			return nil, customError.WrapCacheError(err)
		}
	}

	return &CaptchaResult{Success: true, Captcha: result.Captcha, Source: result.Source}, nil
}

// Consult runs the lookup with the session saved by the actor's last captcha.
// A captcha is good for one consult.
func (s *Service) Consult(ctx context.Context, actor domain.Actor, in ConsultInput) (*ConsultResult, error) {
	if err := s.client.validator.Struct(in); err != nil {
		return nil, err
	}

	session, found, err := s.sessions.Take(ctx, actor.UserID)
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}
	if !found {
		return nil, customError.NewInvalidStateError("captcha session expired, request a new captcha")
	}

	return s.client.Consult(ctx, ConsultRequest{
		Session:    session,
		AnoEje:     in.AnoEje,
		SecEjec:    in.SecEjec,
		Expediente: in.Expediente,
		Captcha:    in.Captcha,
	})
}

func (s *Service) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}
