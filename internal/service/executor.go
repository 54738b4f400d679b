package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipilot/clipilot/internal/config"
	"github.com/clipilot/clipilot/internal/journal"
	"github.com/clipilot/clipilot/internal/util"
	"github.com/clipilot/clipilot/pkg/driver"
	"github.com/clipilot/clipilot/pkg/logger"
	"github.com/clipilot/clipilot/pkg/session"
)

// Executor 批量任务执行器：并发推进多台设备，会话经池复用，
// 结果写任务流水，可选写备份存储。
type Executor struct {
	cfg     *config.Config
	dialer  *Dialer
	pool    *session.Pool
	storage StorageWriter
	// creds 池拨号回调需要的连接参数（池键只含端点坐标）
	creds sync.Map
}

// NewExecutor 创建执行器
func NewExecutor(cfg *config.Config) *Executor {
	e := &Executor{
		cfg:     cfg,
		dialer:  NewDialer(cfg),
		storage: NewStorageWriter(cfg),
	}
	e.pool = session.NewPool(&cfg.Pool, e.dialForPool)
	return e
}

// Pool 暴露会话池（健康检查与统计）
func (e *Executor) Pool() *session.Pool { return e.pool }

// Close 关闭执行器持有的全部会话
func (e *Executor) Close(ctx context.Context) error {
	return e.pool.Close(ctx)
}

func poolTarget(t DeviceTarget) session.Target {
	return session.Target{
		Host:     t.Host,
		Port:     t.Port,
		Username: t.Username,
		Platform: driver.Get(t.Platform).Name,
	}
}

func (e *Executor) dialForPool(ctx context.Context, target session.Target) (*session.Session, error) {
	key := fmt.Sprintf("%s:%d@%s", target.Host, target.Port, target.Username)
	v, ok := e.creds.Load(key)
	if !ok {
		return nil, fmt.Errorf("no credentials registered for %s", target.Host)
	}
	return e.dialer.Dial(ctx, v.(DeviceTarget))
}

func (e *Executor) acquire(ctx context.Context, t DeviceTarget) (*session.Session, session.Target, error) {
	key := fmt.Sprintf("%s:%d@%s", t.Host, t.Port, t.Username)
	e.creds.Store(key, t)
	pt := poolTarget(t)
	sess, err := e.pool.Get(ctx, pt)
	return sess, pt, err
}

// RunExec 批量执行显示类命令
func (e *Executor) RunExec(ctx context.Context, req *ExecRequest) []DeviceResult {
	return e.fanOut(ctx, req.Devices, func(ctx context.Context, t DeviceTarget) DeviceResult {
		return e.execDevice(ctx, t, req)
	})
}

// RunConfig 批量下发配置
func (e *Executor) RunConfig(ctx context.Context, req *ConfigRequest) []DeviceResult {
	return e.fanOut(ctx, req.Devices, func(ctx context.Context, t DeviceTarget) DeviceResult {
		return e.configDevice(ctx, t, req)
	})
}

// fanOut 并发推进多台设备，errgroup 限流，失败按配置重试
func (e *Executor) fanOut(ctx context.Context, devices []DeviceTarget, run func(context.Context, DeviceTarget) DeviceResult) []DeviceResult {
	concurrent := e.cfg.Executor.Concurrent
	if concurrent <= 0 {
		concurrent = 8
	}
	taskTimeout := e.cfg.Executor.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = 10 * time.Minute
	}

	results := make([]DeviceResult, len(devices))
	var g errgroup.Group
	g.SetLimit(concurrent)
	for i, dev := range devices {
		idx, target := i, dev
		g.Go(func() error {
			attempts := e.cfg.Executor.Retries + 1
			if attempts < 1 {
				attempts = 1
			}
			var res DeviceResult
			for a := 0; a < attempts; a++ {
				taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
				res = run(taskCtx, target)
				cancel()
				if res.Status == journal.StatusSuccess || res.Status == journal.StatusRejected {
					break
				}
				if ctx.Err() != nil {
					break
				}
				if a < attempts-1 {
					logger.WithDevice(target.Host, target.Platform).
						WithField("attempt", a+1).Warn("device task failed, retrying")
				}
			}
			results[idx] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) execDevice(ctx context.Context, t DeviceTarget, req *ExecRequest) DeviceResult {
	start := time.Now()
	res := DeviceResult{Host: t.Host, Name: t.Name}

	taskID, err := journal.BeginTask(journal.KindExec, t.Host, t.Port, driver.Get(t.Platform).Name, t.Username, strings.Join(req.Commands, "\n"))
	if err != nil {
		logger.WithDevice(t.Host, t.Platform).WithField("error", err).Warn("failed to record task start")
	}
	res.TaskID = taskID

	sess, pt, err := e.acquire(ctx, t)
	if err != nil {
		return e.finish(res, start, taskID, journal.StatusFailed, "", err)
	}
	defer e.pool.Release(pt, sess)
	_ = journal.TouchDevice(t.Host, t.Port, sess.Platform().Name, t.Transport, t.Username)

	var all strings.Builder
	for i, cmd := range req.Commands {
		out, cerr := sess.SendCommand(ctx, cmd, "")
		out = util.EnsureUTF8(out)
		logger.DebugCommandOutput(t.Host, cmd, out)
		ok := cerr == nil
		_ = journal.RecordCommand(taskID, i, cmd, out, ok)
		res.Commands = append(res.Commands, CommandResult{Command: cmd, Output: out, Success: ok})
		all.WriteString(out)
		all.WriteString("\n")
		if cerr != nil {
			return e.finish(res, start, taskID, statusFor(cerr, ctx), all.String(), cerr)
		}
		if req.Backup {
			meta := StorageMeta{
				SaveDir:    req.SaveDir,
				TaskID:     taskID,
				DeviceName: t.Name,
				Host:       t.Host,
				Filename:   cmd,
				Backend:    req.Backend,
			}
			if obj, werr := e.storage.Write(ctx, meta, out); werr != nil {
				logger.WithDevice(t.Host, t.Platform).WithField("error", werr).Warn("backup write failed")
			} else {
				res.BackupURI = obj.URI
			}
		}
	}
	return e.finish(res, start, taskID, journal.StatusSuccess, all.String(), nil)
}

func (e *Executor) configDevice(ctx context.Context, t DeviceTarget, req *ConfigRequest) DeviceResult {
	start := time.Now()
	res := DeviceResult{Host: t.Host, Name: t.Name}

	taskID, err := journal.BeginTask(journal.KindConfig, t.Host, t.Port, driver.Get(t.Platform).Name, t.Username, strings.Join(req.Commands, "\n"))
	if err != nil {
		logger.WithDevice(t.Host, t.Platform).WithField("error", err).Warn("failed to record task start")
	}
	res.TaskID = taskID

	sess, pt, err := e.acquire(ctx, t)
	if err != nil {
		return e.finish(res, start, taskID, journal.StatusFailed, "", err)
	}
	defer e.pool.Release(pt, sess)
	_ = journal.TouchDevice(t.Host, t.Port, sess.Platform().Name, t.Transport, t.Username)

	if _, err := sess.Enable(ctx); err != nil {
		return e.finish(res, start, taskID, statusFor(err, ctx), "", err)
	}

	opts := sess.ConfigSetDefaults()
	if req.ErrorPattern != "" {
		opts.ErrorPattern = req.ErrorPattern
	}
	if req.NoVerify {
		opts.CmdVerify = false
	}
	out, err := sess.SendConfigSet(ctx, req.Commands, opts)
	out = util.EnsureUTF8(out)
	res.Output = out
	if err != nil {
		return e.finish(res, start, taskID, statusFor(err, ctx), out, err)
	}
	if req.SaveConfig {
		saveOut, serr := sess.SaveConfig(ctx)
		out += saveOut
		if serr != nil {
			return e.finish(res, start, taskID, journal.StatusFailed, out, serr)
		}
	}
	return e.finish(res, start, taskID, journal.StatusSuccess, out, nil)
}

func (e *Executor) finish(res DeviceResult, start time.Time, taskID, status, output string, err error) DeviceResult {
	res.Status = status
	res.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Error = err.Error()
	}
	if ferr := journal.FinishTask(taskID, status, output, res.Error); ferr != nil {
		logger.WithField("error", ferr).Warn("failed to record task finish")
	}
	return res
}

// statusFor 错误到任务状态的映射：配置被设备拒绝与外部取消单列
func statusFor(err error, ctx context.Context) string {
	var rejected *session.ConfigRejectedError
	if errors.As(err, &rejected) {
		return journal.StatusRejected
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return journal.StatusCancelled
	}
	return journal.StatusFailed
}
