package payout

import (
	"context"

	"go.uber.org/zap"

	"payout-core/internal/model"
	"payout-core/pkg/monitor"
)

// recoverStale 推进超过宽限期仍为 pending 的预留，返回本次涉及的创作者
// 先按 reference_id 向网关查询；查不到再用原幂等键重新发起，网关保证不会重复转账
// 返回的创作者本轮不再发起新的打款 (queued 的转账仍可能完成，rejected 留到下一轮)
func (o *Orchestrator) recoverStale(ctx context.Context, summary *Summary, log *zap.Logger) map[string]struct{} {
	touched := make(map[string]struct{})
	cutoff := o.now().Add(-o.opts.RecoveryGrace)
	stale, err := o.writer.Stale(ctx, cutoff, 0)
	if err != nil {
		// 恢复失败不影响本次新的结算，遗留预留会继续阻止重复选择
		summary.Errored++
		log.Error("查询遗留预留失败", zap.Error(err))
		return touched
	}
	if len(stale) == 0 {
		monitor.Business.SetStuck(0)
		return touched
	}
	log.Info("恢复遗留预留", zap.Int("count", len(stale)))

	for i := range stale {
		if ctx.Err() != nil {
			break
		}
		res := &stale[i]
		touched[res.CreatorID] = struct{}{}
		if o.opts.MaxAttempts > 0 && res.Attempts >= o.opts.MaxAttempts {
			summary.Stuck++
			log.Error("预留重试次数耗尽，需要人工处理",
				zap.String("creator_id", res.CreatorID),
				zap.Uint64("reservation_id", res.ID),
				zap.String("reference_id", res.ReferenceID),
				zap.String("amount", res.Amount.StringFixed(2)),
				zap.Int("attempts", res.Attempts),
				zap.String("last_error", res.LastError))
			continue
		}
		status, ok := o.settle(context.WithoutCancel(ctx), res, summary, true, log)
		if ok && status != model.PayoutFailed {
			summary.Recovered++
		}
	}
	monitor.Business.SetStuck(summary.Stuck)
	return touched
}
