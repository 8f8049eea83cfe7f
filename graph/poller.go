package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"liquidator/core/types"
	"liquidator/observability"
)

// Store is one consistent view of the system: the engine snapshot plus the
// account set it was fetched with. Scans read one store reference for the
// whole batch so a concurrent refresh never changes data mid-account.
type Store struct {
	Snapshot  *types.Snapshot
	Accounts  []*types.Account
	FetchedAt time.Time
}

// Poller refreshes the store from the subgraph on a fixed interval and
// swaps it atomically.
type Poller struct {
	client   *Client
	interval time.Duration
	log      *slog.Logger
	metrics  *observability.GraphPollerMetrics

	store atomic.Pointer[Store]
}

// NewPoller builds a poller around the client.
func NewPoller(client *Client, interval time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		client:   client,
		interval: interval,
		log:      log,
		metrics:  observability.GraphMetrics(),
	}
}

// Store returns the active store, or nil before the first refresh succeeds.
func (p *Poller) Store() *Store {
	return p.store.Load()
}

// Ready reports whether a snapshot is available.
func (p *Poller) Ready() bool {
	return p.store.Load() != nil
}

// Run refreshes immediately, then on every tick until the context ends. A
// failed refresh keeps the previous store active.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		p.log.Error("initial snapshot refresh failed", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.log.Error("snapshot refresh failed", "error", err)
				continue
			}
			if s := p.store.Load(); s != nil {
				p.metrics.SetSnapshot(time.Since(s.FetchedAt), len(s.Accounts))
			}
		}
	}
}

// Refresh fetches currencies, system configuration, and all accounts, then
// swaps in a new store. Nothing is published unless every query succeeds.
func (p *Poller) Refresh(ctx context.Context) error {
	start := time.Now()

	var currencies struct {
		Results []currencyResult `json:"results"`
	}
	if err := p.client.Query(ctx, "currencies", currenciesQuery, &currencies); err != nil {
		return err
	}

	var sysConfig struct {
		SystemConfiguration *systemConfigurationResult `json:"systemConfiguration"`
	}
	if err := p.client.Query(ctx, "systemConfiguration", systemConfigurationQuery, &sysConfig); err != nil {
		return err
	}
	if sysConfig.SystemConfiguration == nil {
		return fmt.Errorf("graph: subgraph returned no system configuration")
	}

	var accounts struct {
		Results []accountResult `json:"results"`
	}
	if err := p.client.Query(ctx, "accounts", allAccountsQuery, &accounts); err != nil {
		return err
	}

	table := make([]*types.Currency, 0, len(currencies.Results))
	for i := range currencies.Results {
		c, err := currencies.Results[i].toCurrency()
		if err != nil {
			return err
		}
		table = append(table, c)
	}

	cfg, err := sysConfig.SystemConfiguration.toConfig()
	if err != nil {
		return err
	}

	snapshot, err := types.NewSnapshot(table, cfg, start.Unix())
	if err != nil {
		return err
	}

	accts := make([]*types.Account, 0, len(accounts.Results))
	for i := range accounts.Results {
		a, err := accounts.Results[i].toAccount()
		if err != nil {
			return err
		}
		accts = append(accts, a)
	}

	p.store.Store(&Store{Snapshot: snapshot, Accounts: accts, FetchedAt: start})
	p.metrics.SetSnapshot(0, len(accts))
	p.log.Info("snapshot refreshed",
		"currencies", len(table),
		"accounts", len(accts),
		"elapsed", time.Since(start).String(),
	)
	return nil
}
