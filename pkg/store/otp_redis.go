package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrOTPNotFound is returned when no active code exists for the subject.
	ErrOTPNotFound = errors.New("verification code not found")
	// ErrOTPExpired is returned when the code's lifetime has passed. The
	// stale record is removed as a side effect.
	ErrOTPExpired = errors.New("verification code expired")
	// ErrOTPInvalid is returned when the presented code does not match. The
	// challenge stays live for further attempts.
	ErrOTPInvalid = errors.New("incorrect verification code")
)

// OTPLedger issues and consumes one-time verification codes. One active code
// per subject; issuing again supersedes the previous code.
type OTPLedger interface {
	Issue(ctx context.Context, subjectID string) (string, error)
	Consume(ctx context.Context, subjectID, code string) error
}

type otpChallenge struct {
	SubjectID string    `json:"subjectId"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisOTPLedger stores bcrypt-hashed codes in redis keyed by subject. The
// redis entry outlives the logical expiry by a minute so that an expired code
// is distinguishable from a missing one.
type RedisOTPLedger struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	persist   time.Duration
	now       func() time.Time
}

// NewRedisOTPLedger connects to redis and returns a ledger with the default
// 10-minute code lifetime.
func NewRedisOTPLedger(addr, password string) (*RedisOTPLedger, error) {
	if addr == "" {
		return nil, errors.New("otp redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRedisOTPLedgerWithClient(client, 10*time.Minute), nil
}

// NewRedisOTPLedgerWithClient wraps an existing client with a custom code
// lifetime.
func NewRedisOTPLedgerWithClient(client *redis.Client, ttl time.Duration) *RedisOTPLedger {
	return &RedisOTPLedger{
		client:    client,
		keyPrefix: "bookhive:otp",
		ttl:       ttl,
		persist:   ttl + time.Minute,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a fresh 4-digit code for the subject, replacing any
// previous one. The plaintext code is returned to the caller for delivery
// and never stored.
func (l *RedisOTPLedger) Issue(ctx context.Context, subjectID string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	challenge := otpChallenge{
		SubjectID: subjectID,
		CodeHash:  string(codeHash),
		ExpiresAt: l.now().Add(l.ttl),
	}
	raw, err := json.Marshal(challenge)
	if err != nil {
		return "", fmt.Errorf("marshal challenge: %w", err)
	}
	if err := l.client.Set(ctx, l.key(subjectID), raw, l.persist).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Consume validates the code and retires the challenge. The redis DEL is the
// authoritative consume step: with concurrent verifications of the same code,
// only the caller whose DEL removes the key succeeds; the loser sees
// ErrOTPNotFound.
func (l *RedisOTPLedger) Consume(ctx context.Context, subjectID, code string) error {
	key := l.key(subjectID)
	raw, err := l.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrOTPNotFound
	}
	if err != nil {
		return err
	}
	var challenge otpChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return fmt.Errorf("unmarshal challenge: %w", err)
	}
	if l.now().After(challenge.ExpiresAt) {
		_ = l.client.Del(ctx, key).Err()
		return ErrOTPExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		return ErrOTPInvalid
	}
	deleted, err := l.client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrOTPNotFound
	}
	return nil
}

func (l *RedisOTPLedger) key(subjectID string) string {
	return fmt.Sprintf("%s:%s", l.keyPrefix, subjectID)
}

// generateCode draws a uniform 4-digit code in [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
