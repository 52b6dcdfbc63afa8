package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oxfield/backend/internal/infrastructure/scheduler"
)

// SchedulerHandler exposes admin controls for the billing scheduler
type SchedulerHandler struct {
	BaseHandler
	scheduler *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: sched,
	}
}

// GetStatus godoc
// @Summary      Get scheduler status
// @Description  Report whether the billing scheduler is running and which jobs it knows
// @Tags         scheduler
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=SchedulerStatusData}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/scheduler/status [get]
func (h *SchedulerHandler) GetStatus(c *gin.Context) {
	types := scheduler.AllJobTypes()
	names := make([]string, len(types))
	for i, jobType := range types {
		names[i] = string(jobType)
	}

	h.Success(c, SchedulerStatusData{
		Enabled:        h.scheduler.IsRunning(),
		AvailableTypes: names,
	})
}

// TriggerJob godoc
// @Summary      Trigger a billing job
// @Description  Submit one billing job for immediate execution
// @Tags         scheduler
// @Accept       json
// @Produce      json
// @Param        type path string true "Job type" Enums(MONTHLY_BILLING, OVERDUE_SWEEP, DELINQUENCY_SWEEP, CREDIT_EXPIRY_NOTICE, MONTHLY_REPORT)
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/scheduler/jobs/{type}/run [post]
func (h *SchedulerHandler) TriggerJob(c *gin.Context) {
	jobType := scheduler.JobType(c.Param("type"))

	known := false
	for _, t := range scheduler.AllJobTypes() {
		if t == jobType {
			known = true
			break
		}
	}
	if !known {
		h.BadRequest(c, "Unknown job type")
		return
	}

	if err := h.scheduler.ScheduleJob(jobType, time.Now()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageData{Message: "Job submitted"})
}
