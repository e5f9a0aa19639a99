package task

import (
	"context"

	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台任务的启停
type TaskManager struct {
	expiryTask *ListingExpiryTask
	log        *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	ExpiryEnabled bool
	ExpirySpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		ExpiryEnabled: true,
		ExpirySpec:    DefaultExpirySpec,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(expirer Expirer, cfg *TaskManagerConfig, log *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	tm := &TaskManager{log: log}
	if cfg.ExpiryEnabled && expirer != nil {
		tm.expiryTask = NewListingExpiryTask(expirer, cfg.ExpirySpec, log)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	tm.log.Info("正在启动后台任务")
	if tm.expiryTask != nil {
		if err := tm.expiryTask.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.expiryTask != nil {
		tm.expiryTask.Stop()
	}
	tm.log.Info("后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerExpiry 立即执行一次过期检查
func (tm *TaskManager) TriggerExpiry(ctx context.Context) (int, error) {
	if tm.expiryTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.expiryTask.Execute(ctx)
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"listing_expiry": tm.expiryTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
