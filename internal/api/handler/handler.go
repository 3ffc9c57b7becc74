package handler

import "greenpick/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Checkin    *CheckinHandler
	Attendance *AttendanceHandler
	Settlement *SettlementHandler
	Export     *ExportHandler
	Audit      *AuditHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Checkin:    NewCheckinHandler(svc.Token, svc.Checkin),
		Attendance: NewAttendanceHandler(svc.Attendance),
		Settlement: NewSettlementHandler(svc.Settlement),
		Export:     NewExportHandler(svc.Export),
		Audit:      NewAuditHandler(svc.Audit),
	}
}
