package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"greenpick/backend/internal/model"
	"greenpick/backend/internal/repository"
	pkgerrors "greenpick/backend/pkg/errors"
)

// ── Mock WorkerRepository ──

type mockWorkerRepo struct {
	workers map[string]*model.Worker // key: worker_id
}

func newMockWorkerRepo() *mockWorkerRepo {
	return &mockWorkerRepo{workers: make(map[string]*model.Worker)}
}

func (m *mockWorkerRepo) GetByID(_ context.Context, id string) (*model.Worker, error) {
	if w, ok := m.workers[id]; ok {
		return w, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkerRepo) GetByUID(_ context.Context, uid string) (*model.Worker, error) {
	for _, w := range m.workers {
		if w.UID == uid {
			return w, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock JobRepository ──

type mockJobRepo struct {
	jobs map[string]*model.Job
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock SignUpRepository ──

type mockSignUpRepo struct {
	signups map[string]*model.SignUp

	// beforeUpdate 在 UpdateStatus 的 CAS 判定前调用，用于模拟并发抢先修改
	beforeUpdate func()
}

func newMockSignUpRepo() *mockSignUpRepo {
	return &mockSignUpRepo{signups: make(map[string]*model.SignUp)}
}

// copySignUp 返回副本，模拟数据库读取：调用方修改副本不影响存储
func copySignUp(s *model.SignUp) *model.SignUp {
	c := *s
	return &c
}

func (m *mockSignUpRepo) GetByID(_ context.Context, id string) (*model.SignUp, error) {
	if s, ok := m.signups[id]; ok {
		return copySignUp(s), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSignUpRepo) ListOpenByWorkerBaseDate(_ context.Context, workerID, baseID string, workDate time.Time) ([]model.SignUp, error) {
	var result []model.SignUp
	for _, s := range m.signups {
		if s.WorkerID == workerID && s.BaseID == baseID &&
			sameDate(s.WorkDate, workDate) && s.Status == model.SignUpStatusSignedUp {
			result = append(result, *copySignUp(s))
		}
	}
	return result, nil
}

func (m *mockSignUpRepo) GetByWorkerJobDate(_ context.Context, workerID, jobID string, workDate time.Time) (*model.SignUp, error) {
	for _, s := range m.signups {
		if s.WorkerID == workerID && s.JobID == jobID && sameDate(s.WorkDate, workDate) {
			return copySignUp(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSignUpRepo) UpdateStatus(_ context.Context, signup *model.SignUp, to model.SignUpStatus) error {
	if m.beforeUpdate != nil {
		hook := m.beforeUpdate
		m.beforeUpdate = nil
		hook()
	}
	stored, ok := m.signups[signup.SignUpID]
	if !ok || stored.Version != signup.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = to
	stored.Version++
	signup.Status = to
	signup.Version = stored.Version
	return nil
}

func (m *mockSignUpRepo) ListSignedUpBefore(_ context.Context, cutoff time.Time, limit int) ([]model.SignUp, error) {
	var result []model.SignUp
	for _, s := range m.signups {
		if s.Status == model.SignUpStatusSignedUp && s.WorkDate.Before(cutoff) {
			result = append(result, *copySignUp(s))
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockSignUpRepo) ListByBaseAndDate(_ context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.SignUp, int64, error) {
	var result []model.SignUp
	for _, s := range m.signups {
		if s.BaseID == baseID && sameDate(s.WorkDate, workDate) {
			result = append(result, *copySignUp(s))
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSignUpRepo) CountByBaseAndDate(_ context.Context, baseID string, workDate time.Time) ([]repository.StatusCount, error) {
	counts := make(map[model.SignUpStatus]int64)
	for _, s := range m.signups {
		if s.BaseID == baseID && sameDate(s.WorkDate, workDate) {
			counts[s.Status]++
		}
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.AttendanceRecord // key: attendance_id
	nextID  int

	// createFailures 大于 0 时 Create 返回瞬时错误并递减，用于模拟抖动
	createFailures int

	// salary 非 nil 时 UpdateVolume 模拟结算冻结条件
	salary *mockSalaryRepo
	// beforeUpdate 在 UpdateVolume 写入前调用，用于制造并发时序
	beforeUpdate func()
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	if m.createFailures > 0 {
		m.createFailures--
		return fmt.Errorf("connection reset by peer")
	}
	for _, r := range m.records {
		if r.SignUpID == record.SignUpID {
			return fmt.Errorf("duplicate key value violates unique constraint \"uq_attendance_signup\" (SQLSTATE 23505)")
		}
	}
	if record.AttendanceID == "" {
		m.nextID++
		record.AttendanceID = fmt.Sprintf("att-%d", m.nextID)
	}
	m.records[record.AttendanceID] = record
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetBySignUp(_ context.Context, signUpID string) (*model.AttendanceRecord, error) {
	for _, r := range m.records {
		if r.SignUpID == signUpID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) UpdateVolume(_ context.Context, record *model.AttendanceRecord) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	if _, ok := m.records[record.AttendanceID]; !ok {
		return pkgerrors.ErrOptimisticLock
	}
	if m.salary != nil {
		for _, r := range m.salary.records {
			if r.AttendanceID == record.AttendanceID {
				return pkgerrors.ErrOptimisticLock
			}
		}
	}
	m.records[record.AttendanceID] = record
	return nil
}

func (m *mockAttendanceRepo) ListByWorkerBaseDate(_ context.Context, workerID, baseID string, workDate time.Time) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.WorkerID == workerID && r.BaseID == baseID && sameDate(r.WorkDate, workDate) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByBaseAndDate(_ context.Context, baseID string, workDate time.Time, offset, limit int) ([]model.AttendanceRecord, int64, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.BaseID == baseID && sameDate(r.WorkDate, workDate) {
			result = append(result, *r)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockAttendanceRepo) ListUnsettled(_ context.Context, limit int) ([]model.AttendanceRecord, error) {
	// mock 中由测试配合 mockSalaryRepo 使用：未出现在薪资单中的考勤
	var result []model.AttendanceRecord
	for _, r := range m.records {
		result = append(result, *r)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// ── Mock SalaryRepository ──

type mockSalaryRepo struct {
	records map[string]*model.SalaryRecord
	nextID  int

	beforeUpdate   func()
	createFailures int
}

func newMockSalaryRepo() *mockSalaryRepo {
	return &mockSalaryRepo{records: make(map[string]*model.SalaryRecord)}
}

func copySalary(r *model.SalaryRecord) *model.SalaryRecord {
	c := *r
	return &c
}

func (m *mockSalaryRepo) Create(_ context.Context, record *model.SalaryRecord) error {
	if m.createFailures > 0 {
		m.createFailures--
		return fmt.Errorf("write tcp: connection reset by peer")
	}
	for _, r := range m.records {
		if r.AttendanceID == record.AttendanceID {
			return fmt.Errorf("duplicate key value violates unique constraint \"uq_salary_attendance\" (SQLSTATE 23505)")
		}
	}
	if record.SalaryID == "" {
		m.nextID++
		record.SalaryID = fmt.Sprintf("sal-%d", m.nextID)
	}
	if record.Version == 0 {
		record.Version = 1
	}
	m.records[record.SalaryID] = copySalary(record)
	return nil
}

func (m *mockSalaryRepo) GetByID(_ context.Context, id string) (*model.SalaryRecord, error) {
	if r, ok := m.records[id]; ok {
		return copySalary(r), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSalaryRepo) GetByAttendance(_ context.Context, attendanceID string) (*model.SalaryRecord, error) {
	for _, r := range m.records {
		if r.AttendanceID == attendanceID {
			return copySalary(r), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSalaryRepo) UpdateStatus(_ context.Context, record *model.SalaryRecord, to model.SalaryStatus, confirmedAt, paidAt *time.Time) error {
	if m.beforeUpdate != nil {
		hook := m.beforeUpdate
		m.beforeUpdate = nil
		hook()
	}
	stored, ok := m.records[record.SalaryID]
	if !ok || stored.Version != record.Version {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = to
	stored.Version++
	if confirmedAt != nil {
		stored.ConfirmedAt = confirmedAt
	}
	if paidAt != nil {
		stored.PaidAt = paidAt
	}
	record.Status = to
	record.Version = stored.Version
	if confirmedAt != nil {
		record.ConfirmedAt = confirmedAt
	}
	if paidAt != nil {
		record.PaidAt = paidAt
	}
	return nil
}

func (m *mockSalaryRepo) List(_ context.Context, filter repository.SalaryFilter, offset, limit int) ([]model.SalaryRecord, int64, error) {
	var result []model.SalaryRecord
	for _, r := range m.records {
		if m.match(r, filter) {
			result = append(result, *copySalary(r))
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSalaryRepo) ListByWorker(_ context.Context, workerID string, status *model.SalaryStatus, offset, limit int) ([]model.SalaryRecord, int64, error) {
	var result []model.SalaryRecord
	for _, r := range m.records {
		if r.WorkerID != workerID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		result = append(result, *copySalary(r))
	}
	return result, int64(len(result)), nil
}

func (m *mockSalaryRepo) SumByStatus(_ context.Context, filter repository.SalaryFilter) ([]repository.StatusSum, error) {
	sums := make(map[model.SalaryStatus]*repository.StatusSum)
	for _, r := range m.records {
		if !m.match(r, filter) {
			continue
		}
		sum, ok := sums[r.Status]
		if !ok {
			sum = &repository.StatusSum{Status: r.Status, Total: decimal.Zero}
			sums[r.Status] = sum
		}
		sum.Count++
		sum.Total = sum.Total.Add(r.TotalAmount)
	}
	var result []repository.StatusSum
	for _, sum := range sums {
		result = append(result, *sum)
	}
	return result, nil
}

func (m *mockSalaryRepo) SumByWorker(_ context.Context, filter repository.SalaryFilter) ([]repository.WorkerSum, error) {
	sums := make(map[string]*repository.WorkerSum)
	for _, r := range m.records {
		if !m.match(r, filter) {
			continue
		}
		sum, ok := sums[r.WorkerID]
		if !ok {
			sum = &repository.WorkerSum{WorkerID: r.WorkerID, Total: decimal.Zero}
			if r.Worker != nil {
				sum.UID = r.Worker.UID
				sum.Name = r.Worker.Name
			}
			sums[r.WorkerID] = sum
		}
		sum.Count++
		sum.Total = sum.Total.Add(r.TotalAmount)
	}
	var result []repository.WorkerSum
	for _, sum := range sums {
		result = append(result, *sum)
	}
	return result, nil
}

func (m *mockSalaryRepo) Summary(_ context.Context, workerID string) (*repository.WorkerSummary, error) {
	summary := &repository.WorkerSummary{
		PendingAmount: decimal.Zero,
		PaidAmount:    decimal.Zero,
	}
	for _, r := range m.records {
		if r.WorkerID != workerID {
			continue
		}
		if r.Status == model.SalaryStatusPaid {
			summary.PaidAmount = summary.PaidAmount.Add(r.TotalAmount)
		} else {
			summary.PendingCount++
			summary.PendingAmount = summary.PendingAmount.Add(r.TotalAmount)
		}
	}
	return summary, nil
}

func (m *mockSalaryRepo) ListForExport(_ context.Context, filter repository.SalaryFilter) ([]model.SalaryRecord, error) {
	var result []model.SalaryRecord
	for _, r := range m.records {
		if m.match(r, filter) {
			result = append(result, *copySalary(r))
		}
	}
	return result, nil
}

func (m *mockSalaryRepo) match(r *model.SalaryRecord, filter repository.SalaryFilter) bool {
	if filter.BaseID != "" && r.BaseID != filter.BaseID {
		return false
	}
	if filter.DateFrom != nil && r.WorkDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && r.WorkDate.After(*filter.DateTo) {
		return false
	}
	if filter.Status != nil && r.Status != *filter.Status {
		return false
	}
	return true
}

// ── Mock AuditLogRepository ──

// mockAuditLogRepo 审计写入来自后台 goroutine，需要加锁
type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func newMockAuditLogRepo() *mockAuditLogRepo {
	return &mockAuditLogRepo{}
}

func (m *mockAuditLogRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditLogRepo) ListByResource(_ context.Context, resourceType, resourceID string, offset, limit int) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AuditLog
	for _, l := range m.logs {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			result = append(result, l)
		}
	}
	return result, int64(len(result)), nil
}

// ── 测试辅助 ──

func sameDate(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// testMocks 一组相互引用的 mock 仓储
type testMocks struct {
	worker     *mockWorkerRepo
	job        *mockJobRepo
	signup     *mockSignUpRepo
	attendance *mockAttendanceRepo
	salary     *mockSalaryRepo
	audit      *mockAuditLogRepo
}

func newTestRepository() (*repository.Repository, *testMocks) {
	mocks := &testMocks{
		worker:     newMockWorkerRepo(),
		job:        newMockJobRepo(),
		signup:     newMockSignUpRepo(),
		attendance: newMockAttendanceRepo(),
		salary:     newMockSalaryRepo(),
		audit:      newMockAuditLogRepo(),
	}
	mocks.attendance.salary = mocks.salary
	repo := &repository.Repository{
		Worker:     mocks.worker,
		Job:        mocks.job,
		SignUp:     mocks.signup,
		Attendance: mocks.attendance,
		Salary:     mocks.salary,
		AuditLog:   mocks.audit,
	}
	return repo, mocks
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
