package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/model"
)

func TestAuditList_FilterByResource(t *testing.T) {
	repo, mocks := newTestRepository()
	svc := NewAuditService(repo, zap.NewNop())

	mocks.audit.logs = []model.AuditLog{
		{AuditID: "a1", EventType: model.AuditEventCheckin, ResourceType: model.AuditResourceSignUp, ResourceID: "su-1", BeforeStatus: 0, AfterStatus: 1},
		{AuditID: "a2", EventType: model.AuditEventAbsent, ResourceType: model.AuditResourceSignUp, ResourceID: "su-2", BeforeStatus: 0, AfterStatus: 2},
		{AuditID: "a3", EventType: model.AuditEventSettle, ResourceType: model.AuditResourceSalary, ResourceID: "sal-1", BeforeStatus: 0, AfterStatus: 0},
	}

	list, total, err := svc.List(context.Background(), &dto.AuditLogListRequest{
		ResourceType: model.AuditResourceSignUp,
		ResourceID:   "su-1",
	})
	if err != nil {
		t.Fatalf("查询审计记录不应失败: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("应只命中 su-1 的一条记录, got total=%d len=%d", total, len(list))
	}
	if list[0].EventType != model.AuditEventCheckin {
		t.Errorf("事件类型不符, got %s", list[0].EventType)
	}
}

func TestAuditList_Empty(t *testing.T) {
	repo, _ := newTestRepository()
	svc := NewAuditService(repo, zap.NewNop())

	list, total, err := svc.List(context.Background(), &dto.AuditLogListRequest{
		ResourceType: model.AuditResourceSalary,
		ResourceID:   "sal-none",
	})
	if err != nil {
		t.Fatalf("空结果不应报错: %v", err)
	}
	if total != 0 || len(list) != 0 {
		t.Errorf("不存在的资源应返回空列表, got total=%d len=%d", total, len(list))
	}
}
