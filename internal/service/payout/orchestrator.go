package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"payout-core/internal/gateway"
	"payout-core/internal/model"
	"payout-core/pkg/logger"
	"payout-core/pkg/monitor"
)

// Gateway 打款网关
type Gateway interface {
	CreatePayout(ctx context.Context, req gateway.TransferRequest) (*gateway.Outcome, error)
	FindByReference(ctx context.Context, referenceID string) (*gateway.Outcome, error)
}

// Options 编排参数
type Options struct {
	RecoveryGrace time.Duration // pending 预留超过该时长才进入恢复流程
	MaxAttempts   int           // 达到后标记为卡住，0 表示不限制
	Currency      string        // 仅用于指标
}

// Orchestrator 批处理编排: 恢复 -> 选择 -> 逐个打款 -> 汇总
type Orchestrator struct {
	selector *Selector
	writer   *Writer
	gw       Gateway
	opts     Options
	now      func() time.Time
}

func NewOrchestrator(selector *Selector, writer *Writer, gw Gateway, opts Options) *Orchestrator {
	return &Orchestrator{
		selector: selector,
		writer:   writer,
		gw:       gw,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run 执行一次完整的结算
// 同一时间多次运行不会重复打款，这由账本的预留约束保证
func (o *Orchestrator) Run(ctx context.Context, trigger string) (*Summary, error) {
	summary := o.begin(trigger)
	log := logger.With(zap.String("run_id", summary.RunID), zap.String("trigger", trigger))
	log.Info("开始结算")

	// 1. 恢复上次遗留的 pending 预留
	recovered := o.recoverStale(ctx, summary, log)

	// 2. 选择候选创作者
	creators, err := o.selector.Eligible(ctx)
	if err != nil {
		log.Error("查询候选创作者失败", zap.Error(err))
		return summary, o.finish(ctx, summary, err)
	}
	summary.Selected = len(creators)
	log.Info("候选创作者", zap.Int("count", len(creators)))

	// 3. 逐个打款，单个创作者失败不影响其他人
	for i := range creators {
		if err := ctx.Err(); err != nil {
			log.Warn("结算被取消", zap.Int("remaining", len(creators)-i))
			return summary, o.finish(ctx, summary, err)
		}
		if _, ok := recovered[creators[i].ID]; ok {
			summary.Skipped++
			log.Info("本轮已恢复过该创作者的预留，跳过", zap.String("creator_id", creators[i].ID))
			continue
		}
		o.payCreator(ctx, &creators[i], summary, log)
	}

	// 4. 汇总
	return summary, o.finish(ctx, summary, nil)
}

// RunRecovery 只执行恢复流程
func (o *Orchestrator) RunRecovery(ctx context.Context, trigger string) (*Summary, error) {
	summary := o.begin(trigger)
	log := logger.With(zap.String("run_id", summary.RunID), zap.String("trigger", trigger))
	o.recoverStale(ctx, summary, log)
	return summary, o.finish(ctx, summary, ctx.Err())
}

func (o *Orchestrator) begin(trigger string) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: o.now(),
	}
}

func (o *Orchestrator) finish(ctx context.Context, summary *Summary, runErr error) error {
	summary.FinishedAt = o.now()
	result := "ok"
	if runErr != nil {
		summary.Error = runErr.Error()
		result = "error"
	}
	monitor.Business.ObserveRun(summary.Trigger, result, summary.Duration().Seconds())

	// 汇总保存失败只记录日志，不覆盖运行结果
	if err := o.writer.SaveRun(context.WithoutCancel(ctx), summary.toModel()); err != nil {
		logger.Error("保存运行汇总失败", zap.String("run_id", summary.RunID), zap.Error(err))
	}
	logger.Info("结算结束",
		zap.String("run_id", summary.RunID),
		zap.Int("selected", summary.Selected),
		zap.Int("processed", summary.Processed),
		zap.Int("queued", summary.Queued),
		zap.Int("rejected", summary.Rejected),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errored", summary.Errored),
		zap.Int("recovered", summary.Recovered),
		zap.Int("stuck", summary.Stuck),
		zap.String("processed_total", summary.ProcessedTotal.StringFixed(2)),
	)
	return runErr
}

// payCreator 单个创作者: 预留 -> 占用 -> 调用网关 -> 对账
func (o *Orchestrator) payCreator(ctx context.Context, c *model.Creator, summary *Summary, log *zap.Logger) {
	log = log.With(zap.String("creator_id", c.ID))

	if !c.HasFundAccount() {
		summary.Skipped++
		log.Warn("未绑定收款账户，跳过")
		return
	}
	amount := c.OutstandingAmount.Truncate(2)
	if !amount.IsPositive() {
		summary.Skipped++
		return
	}

	res, err := o.writer.Reserve(ctx, c, amount)
	if err != nil {
		if IsConflict(err) {
			summary.Skipped++
			log.Info("预留冲突，跳过", zap.Error(err))
			return
		}
		summary.Errored++
		log.Error("预留失败", zap.String("amount", amount.StringFixed(2)), zap.Error(err))
		return
	}

	// 预留已落库，后续步骤不再响应取消，避免留下已打款但未对账的状态
	o.settle(context.WithoutCancel(ctx), res, summary, false, log)
}

// settle 从网关调用这一步开始推进一条预留，返回对账后的记录状态
func (o *Orchestrator) settle(ctx context.Context, res *model.PayoutReservation, summary *Summary, lookup bool, log *zap.Logger) (string, bool) {
	log = log.With(
		zap.String("creator_id", res.CreatorID),
		zap.Uint64("reservation_id", res.ID),
		zap.String("reference_id", res.ReferenceID),
		zap.String("amount", res.Amount.StringFixed(2)),
	)

	if err := o.writer.Claim(ctx, res); err != nil {
		if IsConflict(err) {
			summary.Skipped++
			log.Info("预留已被其他实例占用，跳过")
			return "", false
		}
		summary.Errored++
		log.Error("占用预留失败", zap.Error(err))
		return "", false
	}

	result := o.callGateway(ctx, res, lookup)
	if result.Status == model.PayoutFailed {
		log.Warn("网关暂时性错误，预留保持 pending", zap.String("reason", result.FailureReason))
	}

	if err := o.writer.Reconcile(ctx, res, result); err != nil {
		var recErr *ReconciliationError
		switch {
		case IsConflict(err):
			summary.Skipped++
			log.Warn("对账冲突", zap.Error(err))
		case errors.As(err, &recErr):
			summary.Errored++
			log.Error("对账失败，预留保持 pending 等待恢复",
				zap.String("gateway_payout_id", result.GatewayPayoutID),
				zap.String("gateway_status", result.GatewayStatus),
				zap.Error(err))
		default:
			summary.Errored++
			log.Error("对账失败", zap.Error(err))
		}
		return "", false
	}

	summary.record(result.Status, res.Amount)
	monitor.Business.ObserveOutcome(result.Status)
	if result.Status == model.PayoutProcessed {
		monitor.Business.AddPaid(o.opts.Currency, res.Amount)
	}
	log.Info("打款已对账", zap.String("status", result.Status), zap.String("gateway_payout_id", result.GatewayPayoutID))
	return result.Status, true
}

// callGateway lookup 为 true 时先按 reference_id 查询，避免上次结果未知时重复发起
func (o *Orchestrator) callGateway(ctx context.Context, res *model.PayoutReservation, lookup bool) Result {
	if lookup {
		out, err := o.gw.FindByReference(ctx, res.ReferenceID)
		switch {
		case err == nil:
			return ResultFrom(out, nil)
		case !errors.Is(err, gateway.ErrNotFound):
			// 查询失败时不能确认是否已打款，不发起新的请求
			return Result{Status: model.PayoutFailed, FailureReason: fmt.Sprintf("lookup by reference: %v", err)}
		}
	}

	out, err := o.gw.CreatePayout(ctx, gateway.TransferRequest{
		FundAccountID:   res.FundAccountID,
		FundAccountType: res.FundAccountType,
		Amount:          res.Amount,
		ReferenceID:     res.ReferenceID,
		IdempotencyKey:  res.IdempotencyKey,
	})
	return ResultFrom(out, err)
}
