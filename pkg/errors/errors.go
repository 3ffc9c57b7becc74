// Package errors 存放跨层共享的基础设施级错误。
package errors

import "errors"

// ErrOptimisticLock 版本号 CAS 更新没有命中任何行。
// 签到与结算的状态迁移都靠它识别并发竞争，调用方回查后
// 判断是收敛为幂等成功还是拒绝迁移。
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
