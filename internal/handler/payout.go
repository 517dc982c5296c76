package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"payout-core/internal/handler/response"
	"payout-core/internal/service"
	"payout-core/internal/service/payout"
	"payout-core/pkg/errno"
	"payout-core/pkg/logger"
	"payout-core/pkg/validator"
)

// RunTrigger 手动触发结算 (持有运行锁)
type RunTrigger interface {
	Trigger(ctx context.Context, trigger string) (*payout.Summary, error)
}

// PayoutHandler 结算管理接口
type PayoutHandler struct {
	runs  RunTrigger
	query *payout.Query
}

func NewPayoutHandler(runs RunTrigger, query *payout.Query) *PayoutHandler {
	return &PayoutHandler{runs: runs, query: query}
}

type listQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

type reservationQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending resolved"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// TriggerRun POST /api/v1/admin/payout-runs
// 同步执行一次结算并返回汇总
func (h *PayoutHandler) TriggerRun(c *gin.Context) {
	summary, err := h.runs.Trigger(c.Request.Context(), payout.TriggerAPI)
	if errors.Is(err, service.ErrRunInProgress) {
		response.Abort(c, http.StatusConflict, errno.ErrRunInProgress)
		return
	}
	if err != nil {
		logger.Error("手动结算失败", zap.Error(err))
		response.Error(c, errno.ErrRunFailed.WithMessage(err.Error()))
		return
	}
	response.Success(c, summary)
}

// ListRuns GET /api/v1/admin/payout-runs?limit=
func (h *PayoutHandler) ListRuns(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrInvalidQuery.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	runs, err := h.query.RecentRuns(c.Request.Context(), q.Limit)
	if err != nil {
		response.Error(c, errno.ErrDatabase.WithMessage(err.Error()))
		return
	}
	response.List(c, runs, nil)
}

// CreatorPayouts GET /api/v1/admin/creators/:id/payouts?limit=
func (h *PayoutHandler) CreatorPayouts(c *gin.Context) {
	id := c.Param("id")
	if err := validator.Var(id, "creator_id"); err != nil {
		response.Error(c, errno.ErrInvalidQuery.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrInvalidQuery.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	records, err := h.query.CreatorPayouts(c.Request.Context(), id, q.Limit)
	if errors.Is(err, payout.ErrCreatorNotFound) {
		response.Error(c, errno.ErrCreatorNotFound)
		return
	}
	if err != nil {
		response.Error(c, errno.ErrDatabase.WithMessage(err.Error()))
		return
	}
	response.List(c, records, gin.H{"creator_id": id})
}

// ListReservations GET /api/v1/admin/reservations?status=&limit=
func (h *PayoutHandler) ListReservations(c *gin.Context) {
	var q reservationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, errno.ErrInvalidQuery.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	items, err := h.query.Reservations(c.Request.Context(), q.Status, q.Limit)
	if err != nil {
		response.Error(c, errno.ErrDatabase.WithMessage(err.Error()))
		return
	}
	response.List(c, items, nil)
}
