package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/extra1357/imobiliaria-str-sub001/internal/repositories"
)

// CleanupManager periodically clears expired reset tokens and prunes old
// audit entries.
type CleanupManager struct {
	accountRepo    *repositories.AccountRepository
	auditRepo      *repositories.AuditLogRepository
	logger         *slog.Logger
	interval       time.Duration
	auditRetention int // days
	stopCh         chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	accountRepo *repositories.AccountRepository,
	auditRepo *repositories.AuditLogRepository,
	logger *slog.Logger,
	interval time.Duration,
	auditRetentionDays int,
) *CleanupManager {
	return &CleanupManager{
		accountRepo:    accountRepo,
		auditRepo:      auditRepo,
		logger:         logger,
		interval:       interval,
		auditRetention: auditRetentionDays,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := cm.accountRepo.ClearExpiredResetTokens(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to clear expired reset tokens", slog.Any("error", err))
	} else if cleared > 0 {
		cm.logger.Info("expired reset tokens cleared", slog.Int64("count", cleared))
	}

	pruned, err := cm.auditRepo.Cleanup(cleanupCtx, cm.auditRetention)
	if err != nil {
		cm.logger.Error("failed to prune audit logs", slog.Any("error", err))
	} else if pruned > 0 {
		cm.logger.Info("old audit logs pruned", slog.Int64("count", pruned))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
