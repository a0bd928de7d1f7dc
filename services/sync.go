package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"inventory-sync/automation"
	"inventory-sync/utils"
)

// ErrNeedsRetry means listings stayed unconfirmed after every in-run sync
// cycle. The job should exit with the retry status so the scheduler runs it
// again.
var ErrNeedsRetry = errors.New("listings remain unconfirmed")

// SyncService runs the reconcile, submit and re-verify cycle per account.
type SyncService struct {
	reconciler *Reconciler
	submitter  *Submitter
	attempts   int
	workers    int
	logger     *utils.Logger
}

// NewSyncService runs up to workers accounts at a time in SyncAll.
func NewSyncService(reconciler *Reconciler, submitter *Submitter, attempts, workers int, logger *utils.Logger) *SyncService {
	if attempts < 1 {
		attempts = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &SyncService{reconciler: reconciler, submitter: submitter, attempts: attempts, workers: workers, logger: logger}
}

// SyncAccount reconciles the account and resubmits what is missing, up to
// the configured number of cycles, then verifies once more.
func (s *SyncService) SyncAccount(ctx context.Context, accountID string) error {
	log := s.logger.With("account", accountID)

	for attempt := 1; attempt <= s.attempts; attempt++ {
		rec, err := s.reconciler.Reconcile(ctx, accountID)
		if err != nil {
			if !errors.Is(err, automation.ErrConnection) {
				return err
			}
			log.Warn("[sync] Reconcile attempt %d/%d lost connection: %v", attempt, s.attempts, err)
			continue
		}
		if rec.Unconfirmed == 0 {
			log.Info("[sync] All %d listings confirmed", rec.Assigned)
			return nil
		}

		log.Info("[sync] Attempt %d/%d: %d listings to submit", attempt, s.attempts, rec.Unconfirmed)
		if _, err := s.submitter.SubmitAccount(ctx, accountID); err != nil {
			return err
		}
	}

	rec, err := s.reconciler.Reconcile(ctx, accountID)
	if err != nil {
		if errors.Is(err, automation.ErrConnection) {
			return fmt.Errorf("%w: account %s: %v", ErrNeedsRetry, accountID, err)
		}
		return err
	}
	if rec.Unconfirmed > 0 {
		return fmt.Errorf("%w: account %s has %d after %d attempts", ErrNeedsRetry, accountID, rec.Unconfirmed, s.attempts)
	}
	log.Info("[sync] All %d listings confirmed", rec.Assigned)
	return nil
}

// SyncAll syncs accounts concurrently, at most workers at a time, and joins
// their errors. Accounts not started before ctx is done are reported as the
// context error.
func (s *SyncService) SyncAll(ctx context.Context, accountIDs []string) error {
	var mu sync.Mutex
	var errs []error
	started := 0

	pool := utils.NewWorkerPool(s.workers, 0)
	s.logger.Info("[sync] Syncing %d accounts, %d at a time", len(accountIDs), pool.Size())
	for _, id := range accountIDs {
		id := id
		pool.Submit(ctx, func() {
			mu.Lock()
			started++
			mu.Unlock()

			err := s.SyncAccount(ctx, id)
			if err == nil {
				return
			}
			s.logger.Error("[sync] Account %s: %v", id, err)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		})
	}
	pool.Wait()

	if started < len(accountIDs) {
		errs = append(errs, fmt.Errorf("sync: %d accounts not started: %w", len(accountIDs)-started, ctx.Err()))
	}
	return errors.Join(errs...)
}

// OnlyNeedsRetry reports whether err is non-nil and every error it joins
// is an ErrNeedsRetry.
func OnlyNeedsRetry(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !OnlyNeedsRetry(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, ErrNeedsRetry)
}
