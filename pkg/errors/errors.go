package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 调用方应重新读取最新状态后决定是否重试，服务层不自动重试
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
