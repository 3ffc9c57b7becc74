package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/service"
	"greenpick/backend/pkg/response"
)

// CheckinHandler 签到模块 HTTP 处理器
type CheckinHandler struct {
	tokenSvc   service.TokenService
	checkinSvc service.CheckinService
}

// NewCheckinHandler 创建 CheckinHandler
func NewCheckinHandler(tokenSvc service.TokenService, checkinSvc service.CheckinService) *CheckinHandler {
	return &CheckinHandler{tokenSvc: tokenSvc, checkinSvc: checkinSvc}
}

// IssueToken 签发签到码（工人端展示二维码用）
// POST /api/v1/checkin/token
func (h *CheckinHandler) IssueToken(c *gin.Context) {
	workerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.tokenSvc.Issue(c.Request.Context(), workerID)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}

	response.OK(c, result)
}

// Scan 扫码签到
// POST /api/v1/checkin/scan
func (h *CheckinHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.checkinSvc.CheckIn(c.Request.Context(), req.Token, req.BaseID, operatorID)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}

	response.OK(c, result)
}

// ScanJob 指定岗位的扫码签到（同日多报名消歧后重试用）
// POST /api/v1/checkin/scan-job
func (h *CheckinHandler) ScanJob(c *gin.Context) {
	var req dto.ScanJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.checkinSvc.CheckInForJob(c.Request.Context(), req.Token, req.BaseID, req.JobID, operatorID)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}

	response.OK(c, result)
}

// Proxy 基地代签（工人无设备时凭工号签到）
// POST /api/v1/checkin/proxy
func (h *CheckinHandler) Proxy(c *gin.Context) {
	var req dto.ProxyCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.checkinSvc.ProxyCheckIn(c.Request.Context(), req.WorkerUID, req.BaseID, req.JobID, operatorID)
	if err != nil {
		h.handleCheckinError(c, err)
		return
	}

	response.OK(c, result)
}

// handleCheckinError 统一处理签到模块业务错误
func (h *CheckinHandler) handleCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.BadRequest(c, 11001, "签到码无效")
	case errors.Is(err, service.ErrTokenExpired):
		response.BadRequest(c, 11002, "签到码已过期，请重新出示")
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 11003, "工人不存在")
	case errors.Is(err, service.ErrSignUpNotFound):
		response.NotFound(c, 11004, "当日无待签到的报名")
	case errors.Is(err, service.ErrAmbiguousSignUp):
		response.Conflict(c, 11005, "同日存在多条报名，请指定岗位")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 11006, "当前状态不允许签到")
	case errors.Is(err, service.ErrCheckinFailed):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/checkin_handler.go
