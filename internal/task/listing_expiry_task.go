package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultExpirySpec 每小时整点检查一次（秒级 cron）
const DefaultExpirySpec = "0 0 * * * *"

// Expirer 过期处理，由 *service.ListingService 实现
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ListingExpiryTask 把超过有效期的上架 listing 标记为 expired
type ListingExpiryTask struct {
	expirer Expirer
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	log     *zap.Logger

	wg      sync.WaitGroup
	running bool
	mutex   sync.Mutex
}

func NewListingExpiryTask(expirer Expirer, spec string, log *zap.Logger) *ListingExpiryTask {
	if spec == "" {
		spec = DefaultExpirySpec
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingExpiryTask{
		expirer: expirer,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		timeout: 2 * time.Minute,
		log:     log,
	}
}

// Start 启动时先执行一次，然后按 spec 定时执行
func (t *ListingExpiryTask) Start() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return nil
	}

	if _, err := t.cron.AddFunc(t.spec, t.run); err != nil {
		return fmt.Errorf("无法注册过期任务 %q: %w", t.spec, err)
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run()
	}()

	t.cron.Start()
	t.running = true
	t.log.Info("listing 过期任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 等待正在执行的任务结束
func (t *ListingExpiryTask) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return
	}
	<-t.cron.Stop().Done()
	t.wg.Wait()
	t.running = false
	t.log.Info("listing 过期任务已停止")
}

func (t *ListingExpiryTask) run() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if _, err := t.Execute(ctx); err != nil {
		t.log.Error("listing 过期检查失败", zap.Error(err))
	}
}

// Execute 执行一次检查，返回标记数量
func (t *ListingExpiryTask) Execute(ctx context.Context) (int, error) {
	n, err := t.expirer.ExpireDue(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		t.log.Info("listing 已过期", zap.Int("count", n))
	}
	return n, nil
}
