package app

import (
	"context"
	"fmt"

	"oraclewatcher/internal/queue"
)

// AdminSetConfigs discovers queueID and applies SetConfigs against it,
// returning the updated in-memory queue. Pushing the change back on-chain is
// out of this repository's scope (spec §1); this is the reference caller
// SPEC_FULL names for queue.Queue's admin methods.
func (a *App) AdminSetConfigs(ctx context.Context, queueID queue.ID, caller string, cfg queue.Config) (*queue.Queue, error) {
	q, err := a.fetchQueueForAdmin(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := q.SetConfigs(caller, cfg); err != nil {
		return nil, fmt.Errorf("set configs: %w", err)
	}
	a.Logger.Info().Str("queue", fmt.Sprintf("%x", queueID)).Msg("admin: configs updated")
	return q, nil
}

// AdminSetAuthority discovers queueID and transfers its authority.
func (a *App) AdminSetAuthority(ctx context.Context, queueID queue.ID, caller, newAuthority string) (*queue.Queue, error) {
	q, err := a.fetchQueueForAdmin(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := q.SetAuthority(caller, newAuthority); err != nil {
		return nil, fmt.Errorf("set authority: %w", err)
	}
	a.Logger.Info().Str("queue", fmt.Sprintf("%x", queueID)).Str("new_authority", newAuthority).Msg("admin: authority transferred")
	return q, nil
}

// AdminAddFeeCoin discovers queueID and registers coinType as an accepted
// fee coin.
func (a *App) AdminAddFeeCoin(ctx context.Context, queueID queue.ID, caller, coinType string) (*queue.Queue, error) {
	q, err := a.fetchQueueForAdmin(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := q.AddFeeCoin(caller, coinType); err != nil {
		return nil, fmt.Errorf("add fee coin: %w", err)
	}
	a.Logger.Info().Str("queue", fmt.Sprintf("%x", queueID)).Str("coin_type", coinType).Msg("admin: fee coin added")
	return q, nil
}

// AdminRemoveFeeCoin discovers queueID and deregisters coinType.
func (a *App) AdminRemoveFeeCoin(ctx context.Context, queueID queue.ID, caller, coinType string) (*queue.Queue, error) {
	q, err := a.fetchQueueForAdmin(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if err := q.RemoveFeeCoin(caller, coinType); err != nil {
		return nil, fmt.Errorf("remove fee coin: %w", err)
	}
	a.Logger.Info().Str("queue", fmt.Sprintf("%x", queueID)).Str("coin_type", coinType).Msg("admin: fee coin removed")
	return q, nil
}

func (a *App) fetchQueueForAdmin(ctx context.Context, queueID queue.ID) (*queue.Queue, error) {
	discoverer := a.newDiscoverer()
	q, err := discoverer.FetchQueue(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("fetch queue: %w", err)
	}
	return &q, nil
}
