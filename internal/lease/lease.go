// internal/lease/lease.go
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrHeld - аренда уже занята другим запуском.
var ErrHeld = errors.New("run already in progress")

const keyPrefix = "flywheel:lease:"

// Local - аренда в пределах одного процесса.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Acquire занимает аренду name или возвращает ErrHeld.
func (l *Local) Acquire(_ context.Context, name string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return nil, ErrHeld
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis - аренда, общая для всех процессов, через SET NX PX.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.Named("lease"),
	}
}

// Acquire занимает аренду на ttl. Ключ истекает сам, если процесс упал, не освободив его.
func (r *Redis) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	r.logger.Debug("Lease acquired", zap.String("key", key), zap.Duration("ttl", r.ttl))

	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release lease %s: %w", key, err)
		}
		if deleted == 0 {
			r.logger.Warn("Lease expired before release", zap.String("key", key))
		}
		return nil
	}, nil
}

// Lease - общий контракт Local и Redis.
type Lease interface {
	Acquire(ctx context.Context, name string) (func(context.Context) error, error)
}

// Open выбирает реализацию: Redis при заданном URL, иначе локальная.
// Возвращаемая функция закрывает соединение.
func Open(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (Lease, func() error, error) {
	if redisURL == "" {
		logger.Info("Using process-local run lease")
		return NewLocal(), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("Using redis run lease", zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return NewRedis(client, ttl, logger), client.Close, nil
}
