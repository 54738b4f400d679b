package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipilot/clipilot/internal/journal"
	"github.com/clipilot/clipilot/internal/service"
	"github.com/clipilot/clipilot/pkg/driver"
)

// ExecHandler 命令执行与配置下发接口
type ExecHandler struct {
	executor *service.Executor
}

// NewExecHandler 创建处理器
func NewExecHandler(executor *service.Executor) *ExecHandler {
	return &ExecHandler{executor: executor}
}

// BatchExec 批量执行显示类命令
// POST /api/v1/exec/batch
func (h *ExecHandler) BatchExec(c *gin.Context) {
	var req service.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}
	if len(req.Devices) == 0 || len(req.Commands) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "devices and commands must not be empty",
		})
		return
	}
	results := h.executor.RunExec(c.Request.Context(), &req)
	c.JSON(http.StatusOK, gin.H{
		"code":    "OK",
		"results": results,
	})
}

// BatchConfig 批量下发配置
// POST /api/v1/config/batch
func (h *ExecHandler) BatchConfig(c *gin.Context) {
	var req service.ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}
	if len(req.Devices) == 0 || len(req.Commands) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "devices and commands must not be empty",
		})
		return
	}
	results := h.executor.RunConfig(c.Request.Context(), &req)
	c.JSON(http.StatusOK, gin.H{
		"code":    "OK",
		"results": results,
	})
}

// GetTask 查询任务流水
// GET /api/v1/tasks/:task_id
func (h *ExecHandler) GetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	rec, err := journal.GetTask(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "task not found",
		})
		return
	}
	commands, _ := journal.ListCommands(taskID)
	c.JSON(http.StatusOK, gin.H{
		"code":     "OK",
		"task":     rec,
		"commands": commands,
	})
}

// ListTasks 分页查询任务流水
// GET /api/v1/tasks
func (h *ExecHandler) ListTasks(c *gin.Context) {
	var q struct {
		Kind   string `form:"kind"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		})
		return
	}
	recs, err := journal.ListTasks(q.Kind, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  "OK",
		"tasks": recs,
	})
}

// ListPlatforms 已注册设备平台列表
// GET /api/v1/platforms
func (h *ExecHandler) ListPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":      "OK",
		"platforms": driver.Names(),
	})
}

// Health 健康检查：数据库与会话池
// GET /api/v1/health
func (h *ExecHandler) Health(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}
	if err := journal.Health(); err != nil {
		status = "degraded"
		checks["database"] = err.Error()
	} else {
		checks["database"] = "ok"
	}
	if err := h.executor.Pool().Health(); err != nil {
		status = "degraded"
		checks["session_pool"] = err.Error()
	} else {
		checks["session_pool"] = "ok"
	}
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}

// Stats 会话池统计
// GET /api/v1/stats
func (h *ExecHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": "OK",
		"pool": h.executor.Pool().Stats(),
	})
}
