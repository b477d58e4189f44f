package controllers

import (
	"net/http"

	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SendNotificationInput struct {
	NotificationID uint `json:"notificationId" binding:"required"`
}

type RenewalReminderInput struct {
	DaysBefore int `json:"daysBefore"`
}

type SendPendingInput struct {
	Limit int `json:"limit"`
}

type NotificationController struct {
	notifications *services.NotificationService
	logger        *zap.Logger
}

func NewNotificationController(notifications *services.NotificationService, logger *zap.Logger) *NotificationController {
	return &NotificationController{notifications: notifications, logger: logger}
}

// GetNotifications filters by ?type= and ?status=sent|pending.
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	page, limit := utils.PageParams(c)
	rows, total, err := nc.notifications.List(c.Request.Context(), services.NotificationListParams{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse("notifications", rows, page, limit, total))
}

func (nc *NotificationController) GetMyNotifications(c *gin.Context) {
	page, limit := utils.PageParams(c)
	customerID := c.GetUint(utils.ContextCustomerID)
	rows, total, err := nc.notifications.ListForCustomer(c.Request.Context(), customerID, page, limit)
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse("notifications", rows, page, limit, total))
}

func (nc *NotificationController) CreateNotification(c *gin.Context) {
	var req services.CustomNotificationRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := nc.notifications.CreateCustom(c.Request.Context(), req)
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Notification created successfully", "notification": n})
}

func (nc *NotificationController) SendNotification(c *gin.Context) {
	var input SendNotificationInput
	if !bindJSON(c, &input) {
		return
	}
	if err := nc.notifications.SendOne(c.Request.Context(), input.NotificationID); err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification sent successfully"})
}

func scanResponse(message string, run services.ScanRun) gin.H {
	if run.Skipped {
		message = "Scan already running, skipped"
	}
	return gin.H{"message": message, "created": run.Created, "skipped": run.Skipped}
}

func (nc *NotificationController) CreateRenewalReminders(c *gin.Context) {
	var input RenewalReminderInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
		return
	}
	run, err := nc.notifications.CreateRenewalReminders(c.Request.Context(), input.DaysBefore)
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, scanResponse("Renewal reminders created", run))
}

func (nc *NotificationController) CreateExpiryAlerts(c *gin.Context) {
	run, err := nc.notifications.CreateExpiryAlerts(c.Request.Context())
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, scanResponse("Expiry alerts created", run))
}

func (nc *NotificationController) SendPending(c *gin.Context) {
	var input SendPendingInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
		return
	}
	result, err := nc.notifications.SendPending(c.Request.Context(), input.Limit)
	if err != nil {
		respondError(c, nc.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
