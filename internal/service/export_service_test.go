package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/model"
)

func setupExportService() (ExportService, *testMocks) {
	repo, mocks := newTestRepository()
	svc := NewExportService(repo, time.UTC, zap.NewNop())
	return svc, mocks
}

func TestExportSettlements_NoRecords(t *testing.T) {
	svc, _ := setupExportService()

	_, _, err := svc.ExportSettlements(context.Background(), &dto.SettlementListRequest{})
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("期望 ErrExportNoRecords，实际: %v", err)
	}
}

func TestExportSettlements_Success(t *testing.T) {
	svc, mocks := setupExportService()

	record := seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusConfirmed)
	record.Worker = &model.Worker{WorkerID: "w1", UID: "GP-0001", Name: "张三"}
	record.Job = &model.Job{JobID: "j1", Title: "草莓采摘", WageModel: model.WageModelFixed}
	record.Base = &model.Base{BaseID: "base-1", Name: "一号基地"}
	record.CreatedAt = time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC)

	buf, filename, err := svc.ExportSettlements(context.Background(), &dto.SettlementListRequest{})
	if err != nil {
		t.Fatalf("ExportSettlements 应成功: %v", err)
	}
	if filename == "" {
		t.Error("文件名不应为空")
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容不是合法的 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("薪资结算表")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题行 + 表头行 + 1 条数据 + 合计行
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际=%d", len(rows))
	}

	wantHeaders := []string{"单号", "工作日", "工号", "姓名", "基地", "岗位", "工价模式", "单价", "工作量", "金额", "状态", "生成时间"}
	for i, want := range wantHeaders {
		if i >= len(rows[1]) || rows[1][i] != want {
			t.Fatalf("表头第 %d 列期望 %q，实际行=%v", i+1, want, rows[1])
		}
	}

	data := rows[2]
	if data[0] != "sal1" {
		t.Errorf("单号列期望 sal1，实际=%s", data[0])
	}
	if data[2] != "GP-0001" || data[3] != "张三" {
		t.Errorf("工号/姓名不符，实际=%v", data)
	}
	if data[9] != "180.00" {
		t.Errorf("金额列期望 180.00，实际=%s", data[9])
	}
	if data[11] != "2026-05-20 18:30:00" {
		t.Errorf("生成时间列期望 2026-05-20 18:30:00，实际=%s", data[11])
	}
}

func TestExportSettlements_FilterByStatus(t *testing.T) {
	svc, mocks := setupExportService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	// 只导已发放：范围内无记录
	paid := int16(model.SalaryStatusPaid)
	_, _, err := svc.ExportSettlements(context.Background(), &dto.SettlementListRequest{Status: &paid})
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("期望 ErrExportNoRecords，实际: %v", err)
	}
}
