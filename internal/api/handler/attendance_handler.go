package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/service"
	"greenpick/backend/pkg/response"
)

// AttendanceHandler 考勤台账 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// CancelSignUp 取消报名
// POST /api/v1/signups/:id/cancel
func (h *AttendanceHandler) CancelSignUp(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	actorRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.Cancel(c.Request.Context(), id, actorID, actorRole)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// MarkAbsent 标记缺勤
// POST /api/v1/signups/:id/absent
func (h *AttendanceHandler) MarkAbsent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.MarkAbsent(c.Request.Context(), id, operatorID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// RecordVolume 录入工作量（hourly 的工时 / piece 的件数）
// PUT /api/v1/attendance/:id/volume
func (h *AttendanceHandler) RecordVolume(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "考勤ID不能为空")
		return
	}

	var req dto.RecordVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if req.WorkHours == nil && req.PieceCount == nil {
		response.BadRequest(c, 10001, "work_hours 与 piece_count 至少填一项")
		return
	}

	operatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.RecordVolume(c.Request.Context(), id, operatorID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// List 某基地某工作日的考勤分页列表
// GET /api/v1/attendance?base_id=xxx&work_date=2026-08-31
func (h *AttendanceHandler) List(c *gin.Context) {
	var req dto.AttendanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.attendanceSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Rollup 某基地某工作日的报名状态汇总
// GET /api/v1/attendance/rollup?base_id=xxx&work_date=2026-08-31
func (h *AttendanceHandler) Rollup(c *gin.Context) {
	var req dto.RollupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.attendanceSvc.Rollup(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAttendanceError 统一处理考勤台账业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSignUpNotFound):
		response.NotFound(c, 12001, "报名不存在")
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 12002, "考勤记录不存在")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 12003, "无权操作该报名")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 12004, "当前状态不允许该操作")
	case errors.Is(err, service.ErrWorkDateNotOver):
		response.BadRequest(c, 12005, "工作日尚未结束，不能标记缺勤")
	case errors.Is(err, service.ErrInvalidVolume):
		response.BadRequest(c, 12006, "工作量不合法")
	case errors.Is(err, service.ErrAlreadySettled):
		response.Conflict(c, 12007, "已结算的考勤不可修改工作量")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/attendance_handler.go
