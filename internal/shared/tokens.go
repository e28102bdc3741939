package shared

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/nacl/secretbox"
)

// Tokens is the credential pair issued by the remote API.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether neither token is set.
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}

// TokenStore keeps API tokens per session, sealed with a key derived from the
// session secret. Tokens live apart from the session payload so a background
// refresh never overwrites a concurrent request's session commit.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
	key    [32]byte
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, secret string, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl, key: sha256.Sum256([]byte("tokens|" + secret))}
}

// Save stores tokens for the session and renews their TTL.
func (s *TokenStore) Save(ctx context.Context, sessionID string, t Tokens) error {
	if sessionID == "" {
		return errors.New("token store: session id required")
	}
	plain, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)
	return s.client.Set(ctx, s.redisKey(sessionID), sealed, s.ttl).Err()
}

// Load returns the tokens of the session or ErrNoTokens.
func (s *TokenStore) Load(ctx context.Context, sessionID string) (Tokens, error) {
	var t Tokens
	if sessionID == "" {
		return t, ErrNoTokens
	}
	sealed, err := s.client.Get(ctx, s.redisKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return t, ErrNoTokens
		}
		return t, err
	}
	if len(sealed) < 24 {
		return t, ErrNoTokens
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return t, ErrNoTokens
	}
	if err := json.Unmarshal(plain, &t); err != nil {
		return t, err
	}
	return t, nil
}

// Delete forgets the tokens of the session.
func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.redisKey(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *TokenStore) redisKey(id string) string {
	return "tokens:" + id
}
