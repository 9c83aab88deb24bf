package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/funding-audit-ledger/internal/domain/withdrawal"
)

// WorkerPoolProcessingService bounds how many decisions are applied at once
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ApplyDecision runs the decision on a pool worker and waits for its result.
func (s *WorkerPoolProcessingService) ApplyDecision(ctx context.Context, decision *withdrawal.Decision) error {
	logger := s.logger
	if decision.CorrelationID != "" {
		logger = s.logger.With("correlation_id", decision.CorrelationID)
	}

	logger.Debug("Submitting withdrawal decision to worker pool", "request_id", decision.RequestID.String())

	resultChan := make(chan error, 1)
	decisionCopy := *decision

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ApplyDecision(ctx, &decisionCopy)
	})
	if err != nil {
		logger.Error("Failed to submit withdrawal decision to worker pool",
			"request_id", decision.RequestID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
