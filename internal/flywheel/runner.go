// internal/flywheel/runner.go
package flywheel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sol-flywheel/internal/config"
	"github.com/rovshanmuradov/sol-flywheel/internal/wallet"
)

// Locker не даёт двум запускам для одного подписанта идти одновременно.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, err error)
}

// Runner готовит запуск из конфигурации и передаёт его в Pipeline.
// Подписант и минт собираются заново на каждый запуск.
type Runner struct {
	cfg      *config.Config
	pipeline *Pipeline
	locker   Locker
	logger   *zap.Logger
}

// NewRunner создаёт Runner. locker может быть nil: тогда запуски не сериализуются.
func NewRunner(cfg *config.Config, pipeline *Pipeline, locker Locker, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		pipeline: pipeline,
		locker:   locker,
		logger:   logger.Named("runner"),
	}
}

// Trigger выполняет один запуск. Ошибка возвращается только если запуск
// не удалось начать (конфигурация, ключ, минт, аренда); ошибки шагов
// остаются внутри Result.
func (r *Runner) Trigger(ctx context.Context) (*Result, error) {
	if err := r.cfg.RequireSigner(); err != nil {
		return nil, err
	}
	signer, err := wallet.NewWallet(r.cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("load signer: %w", err)
	}
	mint, err := ParseMint(r.cfg.TokenMint)
	if err != nil {
		return nil, err
	}

	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, signer.PublicKey.String())
		if err != nil {
			r.logger.Warn("Run rejected", zap.String("signer", signer.String()), zap.Error(err))
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				r.logger.Warn("Failed to release lease", zap.Error(err))
			}
		}()
	}

	settings := Settings{
		Mint:         mint,
		SlippageBps:  r.cfg.SlippageBps,
		SOLBuffer:    r.cfg.SOLBuffer,
		BurnPriority: PriorityConfig{PriorityFee: r.cfg.BurnPriorityMicroLamports},
	}
	return r.pipeline.Run(ctx, uuid.NewString(), signer, settings), nil
}
