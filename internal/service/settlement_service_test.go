package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"greenpick/backend/internal/dto"
	"greenpick/backend/internal/model"
)

func setupSettlementService() (*settlementService, *testMocks) {
	repo, mocks := newTestRepository()
	aud := newAuditor(repo, zap.NewNop())
	svc := NewSettlementService(repo, aud, time.UTC, zap.NewNop()).(*settlementService)
	svc.now = func() time.Time { return testNow }
	return svc, mocks
}

// seedSettledAttendance 预置一条已签到考勤及其岗位
func seedSettledAttendance(mocks *testMocks, wageModel string) *model.AttendanceRecord {
	seedWorker(mocks, "w1", "GP-0001")
	seedJob(mocks, "j1", "base-1", wageModel, "08:00", "18:00")
	att := seedAttendance(mocks, "att1", "su1", "w1", "j1", "base-1", testNow)
	return att
}

// ── 创建结算 ──

func TestCreateSettlement_Fixed(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelFixed)

	resp, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.TotalAmount != "180.00" {
		t.Errorf("固定日薪期望金额 180.00，实际=%s", resp.TotalAmount)
	}
	if resp.Status != int16(model.SalaryStatusPending) {
		t.Errorf("新薪资单应为待确认(0)，实际=%d", resp.Status)
	}
}

func TestCreateSettlement_Hourly(t *testing.T) {
	svc, mocks := setupSettlementService()
	att := seedSettledAttendance(mocks, model.WageModelHourly)
	att.WorkHours = mustDecimal("6")

	resp, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	// 25 × 6 = 150.00
	if resp.TotalAmount != "150.00" {
		t.Errorf("时薪期望金额 150.00，实际=%s", resp.TotalAmount)
	}
	if resp.UnitPriceSnapshot != "25.00" {
		t.Errorf("期望单价快照 25.00，实际=%s", resp.UnitPriceSnapshot)
	}
}

func TestCreateSettlement_Piece(t *testing.T) {
	svc, mocks := setupSettlementService()
	att := seedSettledAttendance(mocks, model.WageModelPiece)
	att.PieceCount = 7

	resp, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	// 1.5 × 7 = 10.50
	if resp.TotalAmount != "10.50" {
		t.Errorf("计件期望金额 10.50，实际=%s", resp.TotalAmount)
	}
}

func TestCreateSettlement_ZeroVolume(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelHourly)

	// 工时未录入按 0 结算，留待修正后走人工流程
	resp, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("零工时应可结算: %v", err)
	}
	if resp.TotalAmount != "0.00" {
		t.Errorf("期望金额 0.00，实际=%s", resp.TotalAmount)
	}
}

func TestCreateSettlement_Idempotent(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelFixed)

	first, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("首次 Create 应成功: %v", err)
	}
	second, err := svc.Create(context.Background(), "att1", "op-2")
	if err != nil {
		t.Fatalf("重复 Create 应幂等成功: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("重复结算应返回同一张薪资单，首次=%s，重复=%s", first.ID, second.ID)
	}
	if first.TotalAmount != second.TotalAmount {
		t.Errorf("重复结算金额应一致，首次=%s，重复=%s", first.TotalAmount, second.TotalAmount)
	}
	if len(mocks.salary.records) != 1 {
		t.Errorf("不应生成第二张薪资单，实际=%d 张", len(mocks.salary.records))
	}
}

func TestCreateSettlement_PriceChangeDoesNotBackdate(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelFixed)

	first, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	// 结算后岗位涨价，已生成的薪资单金额不回溯
	mocks.job.jobs["j1"].SalaryAmount = mustDecimal("999")

	again, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("重复 Create 应成功: %v", err)
	}
	if again.TotalAmount != first.TotalAmount {
		t.Errorf("改价后金额应保持 %s，实际=%s", first.TotalAmount, again.TotalAmount)
	}
	if again.UnitPriceSnapshot != "180.00" {
		t.Errorf("单价快照应保持 180.00，实际=%s", again.UnitPriceSnapshot)
	}
}

func TestCreateSettlement_AttendanceNotFound(t *testing.T) {
	svc, _ := setupSettlementService()

	_, err := svc.Create(context.Background(), "nonexistent", "op-1")
	if !errors.Is(err, ErrAttendanceNotFound) {
		t.Errorf("期望 ErrAttendanceNotFound，实际: %v", err)
	}
}

func TestCreateSettlement_TransientFailureRetried(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelFixed)
	mocks.salary.createFailures = 1

	resp, err := svc.Create(context.Background(), "att1", "op-1")
	if err != nil {
		t.Fatalf("单次瞬时故障应重试成功: %v", err)
	}
	if resp.TotalAmount != "180.00" {
		t.Errorf("重试后的薪资单金额不符，实际=%s", resp.TotalAmount)
	}
}

func TestCreateSettlement_PersistentFailure(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSettledAttendance(mocks, model.WageModelFixed)
	mocks.salary.createFailures = 2

	if _, err := svc.Create(context.Background(), "att1", "op-1"); !errors.Is(err, ErrSettleFailed) {
		t.Errorf("重试仍失败应返回 ErrSettleFailed，实际: %v", err)
	}
	if len(mocks.salary.records) != 0 {
		t.Errorf("失败后不应留下薪资单，实际=%d", len(mocks.salary.records))
	}
}

// ── 复核 / 确认 / 发放 ──

func seedSalary(mocks *testMocks, id, attendanceID, workerID string, status model.SalaryStatus) *model.SalaryRecord {
	r := &model.SalaryRecord{
		SalaryID:          id,
		AttendanceID:      attendanceID,
		WorkerID:          workerID,
		BaseID:            "base-1",
		WorkDate:          testNow,
		WageModel:         model.WageModelFixed,
		UnitPriceSnapshot: mustDecimal("180"),
		WorkVolume:        mustDecimal("1"),
		TotalAmount:       mustDecimal("180"),
		Status:            status,
	}
	r.Version = 1
	mocks.salary.records[id] = r
	return r
}

func TestReview_Success(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	resp, err := svc.Review(context.Background(), "sal1", "op-1")
	if err != nil {
		t.Fatalf("Review 应成功: %v", err)
	}
	if resp.Status != int16(model.SalaryStatusConfirmed) {
		t.Errorf("期望状态=已确认(1)，实际=%d", resp.Status)
	}
	if resp.ConfirmedAt == nil {
		t.Error("ConfirmedAt 不应为空")
	}
}

func TestReview_Idempotent(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusConfirmed)

	resp, err := svc.Review(context.Background(), "sal1", "op-1")
	if err != nil {
		t.Fatalf("重复复核应幂等成功: %v", err)
	}
	if resp.Status != int16(model.SalaryStatusConfirmed) {
		t.Errorf("状态应保持已确认，实际=%d", resp.Status)
	}
}

func TestReview_PaidRejected(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPaid)

	_, err := svc.Review(context.Background(), "sal1", "op-1")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("已发放薪资单不可复核，期望 ErrAlreadySettled，实际: %v", err)
	}
}

func TestWorkerConfirm_Success(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	resp, err := svc.WorkerConfirm(context.Background(), "sal1", "w1")
	if err != nil {
		t.Fatalf("WorkerConfirm 应成功: %v", err)
	}
	if resp.Status != int16(model.SalaryStatusConfirmed) {
		t.Errorf("期望状态=已确认(1)，实际=%d", resp.Status)
	}
}

func TestWorkerConfirm_OtherWorkerForbidden(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	_, err := svc.WorkerConfirm(context.Background(), "sal1", "w2")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("他人薪资单应拒绝，期望 ErrForbidden，实际: %v", err)
	}
	if mocks.salary.records["sal1"].Status != model.SalaryStatusPending {
		t.Error("被拒绝的确认不应改变状态")
	}
}

func TestConfirm_ConcurrentCollapses(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	// 模拟运营复核抢先：版本被占用且状态已确认
	mocks.salary.beforeUpdate = func() {
		stored := mocks.salary.records["sal1"]
		stored.Status = model.SalaryStatusConfirmed
		stored.Version++
	}

	resp, err := svc.WorkerConfirm(context.Background(), "sal1", "w1")
	if err != nil {
		t.Fatalf("并发确认应收敛为成功: %v", err)
	}
	if resp.Status != int16(model.SalaryStatusConfirmed) {
		t.Errorf("期望状态=已确认(1)，实际=%d", resp.Status)
	}
}

func TestMarkPaid_Success(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusConfirmed)

	resp, err := svc.MarkPaid(context.Background(), "sal1", "op-1")
	if err != nil {
		t.Fatalf("MarkPaid 应成功: %v", err)
	}
	if resp.Status != int16(model.SalaryStatusPaid) {
		t.Errorf("期望状态=已发放(2)，实际=%d", resp.Status)
	}
	if resp.PaidAt == nil {
		t.Error("PaidAt 不应为空")
	}
}

func TestMarkPaid_PendingRejected(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)

	_, err := svc.MarkPaid(context.Background(), "sal1", "op-1")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("未确认不可直接发放，期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestMarkPaid_PaidIsTerminal(t *testing.T) {
	svc, mocks := setupSettlementService()
	stored := seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPaid)

	if _, err := svc.MarkPaid(context.Background(), "sal1", "op-1"); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("PAID 终态重复标记应拒绝，实际: %v", err)
	}
	if stored.Status != model.SalaryStatusPaid {
		t.Errorf("状态应保持已发放，实际=%d", stored.Status)
	}
}

func TestSalary_NotFound(t *testing.T) {
	svc, _ := setupSettlementService()

	if _, err := svc.Review(context.Background(), "nonexistent", "op-1"); !errors.Is(err, ErrSalaryNotFound) {
		t.Errorf("期望 ErrSalaryNotFound，实际: %v", err)
	}
}

// ── 查询 ──

func TestMySummary(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)
	seedSalary(mocks, "sal2", "att2", "w1", model.SalaryStatusConfirmed)
	paid := seedSalary(mocks, "sal3", "att3", "w1", model.SalaryStatusPaid)
	paid.TotalAmount = mustDecimal("200")
	seedSalary(mocks, "sal4", "att4", "w2", model.SalaryStatusPending)

	resp, err := svc.MySummary(context.Background(), "w1")
	if err != nil {
		t.Fatalf("MySummary 应成功: %v", err)
	}
	if resp.PendingCount != 2 {
		t.Errorf("期望 PendingCount=2，实际=%d", resp.PendingCount)
	}
	if resp.PendingAmount != "360.00" {
		t.Errorf("期望 PendingAmount=360.00，实际=%s", resp.PendingAmount)
	}
	if resp.PaidAmount != "200.00" {
		t.Errorf("期望 PaidAmount=200.00，实际=%s", resp.PaidAmount)
	}
}

func TestMyList_FilterByStatus(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)
	seedSalary(mocks, "sal2", "att2", "w1", model.SalaryStatusPaid)

	pending := int16(model.SalaryStatusPending)
	list, total, err := svc.MyList(context.Background(), "w1", &dto.MySettlementListRequest{Status: &pending})
	if err != nil {
		t.Fatalf("MyList 应成功: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("期望 1 条待确认薪资单，实际 total=%d len=%d", total, len(list))
	}
	if list[0].ID != "sal1" {
		t.Errorf("期望返回 sal1，实际=%s", list[0].ID)
	}
}

func TestSum_ByStatus(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)
	seedSalary(mocks, "sal2", "att2", "w2", model.SalaryStatusPending)
	seedSalary(mocks, "sal3", "att3", "w1", model.SalaryStatusPaid)

	sums, err := svc.Sum(context.Background(), &dto.SettlementListRequest{})
	if err != nil {
		t.Fatalf("Sum 应成功: %v", err)
	}
	for _, sum := range sums {
		switch model.SalaryStatus(sum.Status) {
		case model.SalaryStatusPending:
			if sum.Count != 2 || sum.TotalAmount != "360.00" {
				t.Errorf("待确认聚合不符: count=%d total=%s", sum.Count, sum.TotalAmount)
			}
		case model.SalaryStatusPaid:
			if sum.Count != 1 || sum.TotalAmount != "180.00" {
				t.Errorf("已发放聚合不符: count=%d total=%s", sum.Count, sum.TotalAmount)
			}
		}
	}
}

func TestSumByWorker(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedSalary(mocks, "sal1", "att1", "w1", model.SalaryStatusPending)
	seedSalary(mocks, "sal2", "att2", "w1", model.SalaryStatusPaid)
	seedSalary(mocks, "sal3", "att3", "w2", model.SalaryStatusPending)

	sums, err := svc.SumByWorker(context.Background(), &dto.SettlementListRequest{})
	if err != nil {
		t.Fatalf("SumByWorker 应成功: %v", err)
	}
	if len(sums) != 2 {
		t.Fatalf("应聚合出 2 个工人, got %d", len(sums))
	}
	for _, sum := range sums {
		switch sum.WorkerID {
		case "w1":
			if sum.Count != 2 || sum.TotalAmount != "360.00" {
				t.Errorf("w1 聚合不符: count=%d total=%s", sum.Count, sum.TotalAmount)
			}
		case "w2":
			if sum.Count != 1 || sum.TotalAmount != "180.00" {
				t.Errorf("w2 聚合不符: count=%d total=%s", sum.Count, sum.TotalAmount)
			}
		default:
			t.Errorf("不应出现的工人: %s", sum.WorkerID)
		}
	}
}

// ── 补结算 ──

func TestBackfillSettlements(t *testing.T) {
	svc, mocks := setupSettlementService()
	seedWorker(mocks, "w1", "GP-0001")
	seedJob(mocks, "j1", "base-1", model.WageModelFixed, "08:00", "18:00")
	seedAttendance(mocks, "att1", "su1", "w1", "j1", "base-1", testNow)
	seedAttendance(mocks, "att2", "su2", "w1", "j1", "base-1", testNow)

	settled, err := svc.BackfillSettlements(context.Background())
	if err != nil {
		t.Fatalf("BackfillSettlements 应成功: %v", err)
	}
	if settled != 2 {
		t.Errorf("期望补结算 2 条，实际=%d", settled)
	}
	if len(mocks.salary.records) != 2 {
		t.Errorf("应生成 2 张薪资单，实际=%d", len(mocks.salary.records))
	}

	// 重复执行幂等：Create 命中已有薪资单，数量不变
	if _, err := svc.BackfillSettlements(context.Background()); err != nil {
		t.Fatalf("重复执行应成功: %v", err)
	}
	if len(mocks.salary.records) != 2 {
		t.Errorf("重复执行不应新增薪资单，实际=%d", len(mocks.salary.records))
	}
}
