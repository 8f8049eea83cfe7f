package chain

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"liquidator/core/types"
	"liquidator/observability"
)

// CollateralViewer is the node call reconciliation depends on.
type CollateralViewer interface {
	FreeCollateralView(ctx context.Context, account common.Address) (*big.Int, []*big.Int, error)
}

// Reconciler cross-checks local scan results against the node's free
// collateral view, rate limited so a large account set does not hammer the
// RPC endpoint.
type Reconciler struct {
	node    CollateralViewer
	limiter *rate.Limiter
	log     *slog.Logger
	metrics *observability.ReconcileMetrics
}

// NewReconciler builds a reconciler issuing at most callsPerSecond node
// calls.
func NewReconciler(node CollateralViewer, callsPerSecond int, log *slog.Logger) *Reconciler {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Reconciler{
		node:    node,
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), callsPerSecond),
		log:     log,
		metrics: observability.Reconciles(),
	}
}

// Reconcile walks every account, asks the node for its free collateral, and
// counts the accounts the node reports insolvent that the local scan did
// not flag. flagged holds the addresses the local scan produced.
func (r *Reconciler) Reconcile(ctx context.Context, accounts []*types.Account, flagged []common.Address) (int, error) {
	start := time.Now()
	flaggedSet := make(map[common.Address]struct{}, len(flagged))
	for _, addr := range flagged {
		flaggedSet[addr] = struct{}{}
	}

	mismatches := 0
	checked := 0
	for _, acct := range accounts {
		if err := r.limiter.Wait(ctx); err != nil {
			r.metrics.Observe(checked, mismatches, time.Since(start))
			return mismatches, err
		}

		aggregate, _, err := r.node.FreeCollateralView(ctx, acct.Address)
		if err != nil {
			r.log.Warn("free collateral view failed", "account", acct.Address.Hex(), "error", err)
			continue
		}
		checked++

		if aggregate.Sign() < 0 {
			if _, ok := flaggedSet[acct.Address]; !ok {
				mismatches++
				r.log.Error("node reports insolvent account missing from local scan",
					"account", acct.Address.Hex(),
					"freeCollateral", aggregate.String(),
				)
			}
		}
	}

	r.metrics.Observe(checked, mismatches, time.Since(start))
	r.log.Info("reconciliation finished",
		"accounts", checked,
		"mismatches", mismatches,
		"elapsed", time.Since(start).String(),
	)
	return mismatches, nil
}
