package summary

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/autumnsgrove/grove-core/internal/models"
	"github.com/autumnsgrove/grove-core/internal/pkg/markdown"
	"github.com/autumnsgrove/grove-core/internal/pkg/pagination"
	"github.com/autumnsgrove/grove-core/internal/pkg/response"
	"github.com/autumnsgrove/grove-core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TaskTypeTrigger  = "summary:trigger"
	TaskTypeBackfill = "summary:backfill"
)

type Handler struct {
	svc     *Service
	taskSvc *taskqueue.Service
	logger  *zap.Logger
}

func NewHandler(svc *Service, taskSvc *taskqueue.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, taskSvc: taskSvc, logger: logger.Named("SummaryHandler")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	timeline := rg.Group("/timeline")
	timeline.GET("", h.listTimeline)
	timeline.GET("/latest", h.latestTimeline)

	admin := rg.Group("/summary", authMW)
	admin.POST("/trigger", h.trigger)
	admin.POST("/backfill", h.backfill)
	admin.GET("/tasks", h.listTasks)
	admin.GET("/requests", h.listRequests)
}

// timelineItem is a daily summary row plus optional rendered HTML.
type timelineItem struct {
	models.DailySummaryModel
	BriefHTML    string `json:"brief_html,omitempty"`
	DetailedHTML string `json:"detailed_html,omitempty"`
}

// GET /timeline?page=&size=&format=html
func (h *Handler) listTimeline(c *gin.Context) {
	q := pagination.FromContext(c)
	renderHTML := c.Query("format") == "html"

	tx := h.svc.db.Model(&models.DailySummaryModel{}).Order("summary_date DESC")
	var rows []models.DailySummaryModel
	pag, err := pagination.Paginate(tx, q, &rows)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	items := make([]timelineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, h.toTimelineItem(row, renderHTML))
	}
	response.Paged(c, items, pag)
}

// GET /timeline/latest?format=html
func (h *Handler) latestTimeline(c *gin.Context) {
	var row models.DailySummaryModel
	err := h.svc.db.Order("summary_date DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "no summaries yet")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, h.toTimelineItem(row, c.Query("format") == "html"))
}

func (h *Handler) toTimelineItem(row models.DailySummaryModel, renderHTML bool) timelineItem {
	item := timelineItem{DailySummaryModel: row}
	if !renderHTML {
		return item
	}
	if row.BriefSummary != nil {
		if html, err := markdown.Render(*row.BriefSummary); err == nil {
			item.BriefHTML = html
		}
	}
	if row.DetailedTimeline != nil {
		if html, err := markdown.Render(*row.DetailedTimeline); err == nil {
			item.DetailedHTML = html
		}
	}
	return item
}

// POST /summary/trigger?date=&model=  [auth]
func (h *Handler) trigger(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.svc.TodayDate()
	}
	if !dateRe.MatchString(date) {
		response.BadRequest(c, "invalid date format, use YYYY-MM-DD")
		return
	}
	modelOverride := c.Query("model")

	ctx := c.Request.Context()
	taskID := h.beginRunRecord(ctx, TaskTypeTrigger, gin.H{"date": date, "model": modelOverride}, date)

	result, err := h.svc.GenerateForDate(ctx, date, modelOverride)
	if err != nil {
		h.finishRunRecord(ctx, taskID, nil, err)
		response.InternalError(c, err)
		return
	}
	h.finishRunRecord(ctx, taskID, result, nil)

	response.OK(c, gin.H{"task_id": taskID, "result": result})
}

// POST /summary/backfill?start=&end=&model=  [auth]
func (h *Handler) backfill(c *gin.Context) {
	startDate := c.Query("start")
	if startDate == "" {
		response.BadRequest(c, "missing start date parameter")
		return
	}
	endDate := c.Query("end")
	modelOverride := c.Query("model")

	ctx := c.Request.Context()
	taskID := h.beginRunRecord(ctx, TaskTypeBackfill, gin.H{"start": startDate, "end": endDate, "model": modelOverride}, startDate+":"+endDate)

	report, err := h.svc.Backfill(ctx, startDate, endDate, modelOverride)
	if err != nil {
		h.finishRunRecord(ctx, taskID, nil, err)
		response.BadRequest(c, err.Error())
		return
	}
	h.finishRunRecord(ctx, taskID, report, nil)

	response.OK(c, gin.H{"task_id": taskID, "report": report})
}

// beginRunRecord opens a Redis run record for an admin-triggered pipeline.
// Run records are observability only: a Redis hiccup never blocks the run.
func (h *Handler) beginRunRecord(ctx context.Context, taskType string, payload interface{}, dedupKey string) string {
	if h.taskSvc == nil {
		return ""
	}
	task, err := h.taskSvc.Enqueue(ctx, taskType, payload, dedupKey)
	if err != nil || task == nil {
		h.logger.Warn("failed to record task run", zap.String("type", taskType), zap.Error(err))
		return ""
	}
	h.taskSvc.UpdateStatus(ctx, task.ID, taskqueue.TaskRunning, nil, "")
	return task.ID
}

func (h *Handler) finishRunRecord(ctx context.Context, taskID string, result interface{}, runErr error) {
	if h.taskSvc == nil || taskID == "" {
		return
	}
	if runErr != nil {
		h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, runErr.Error())
		return
	}
	h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, result, "")
}

// GET /summary/tasks?limit=  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	if h.taskSvc == nil {
		response.OK(c, gin.H{"tasks": []taskqueue.Task{}})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	tasks, err := h.taskSvc.List(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"tasks": tasks})
}

// GET /summary/requests?days=  [auth]
func (h *Handler) listRequests(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		days = 30
	}
	cutoff := time.Now().In(h.svc.loc).AddDate(0, 0, -days).Format("2006-01-02")

	var rows []models.AIRequestModel
	if err := h.svc.db.
		Where("request_date >= ?", cutoff).
		Order("created_at DESC").
		Limit(100).
		Find(&rows).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"days": days, "requests": rows})
}
