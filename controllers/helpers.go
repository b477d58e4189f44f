package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps the service error taxonomy onto HTTP statuses. Unexpected errors are
// logged in full and reported with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		verr     *services.ValidationError
		nf       *services.NotFoundError
		conflict *services.ConflictError
		aerr     *services.AuthError
		rerr     *services.RenderError
		terr     *services.TransportError
	)
	switch {
	case errors.As(err, &verr):
		utils.RespondWithErrors(c, http.StatusBadRequest, "Validation failed", verr.Fields)
	case errors.As(err, &nf):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": nf.Error(), "missing": nf.Missing})
	case errors.As(err, &conflict):
		utils.RespondWithError(c, http.StatusConflict, conflict.Message)
	case errors.As(err, &aerr):
		utils.RespondWithError(c, http.StatusUnauthorized, aerr.Message)
	case errors.As(err, &rerr):
		logger.Error("certificate render failed", requestFields(c, err)...)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate certificate PDF")
	case errors.As(err, &terr):
		logger.Error("notification delivery failed", requestFields(c, err)...)
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to send notification via "+terr.Channel)
	default:
		logger.Error("request failed", requestFields(c, err)...)
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func requestFields(c *gin.Context, err error) []zap.Field {
	return []zap.Field{
		zap.String("request_id", c.GetString("requestId")),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name, entity string) (uint, bool) {
	id, ok := utils.ParseID(c, name)
	if !ok {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+entity+" ID")
	}
	return id, ok
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

func queryBool(c *gin.Context, name string, def bool) bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// optionalDate parses an optional YYYY-MM-DD field, recording a field error on failure.
func optionalDate(value *string, field string, errs map[string]string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	d, err := utils.ParseDate(*value)
	if err != nil {
		errs[field] = "must be YYYY-MM-DD"
		return nil
	}
	return &d
}

func listResponse(key string, rows any, page, limit int, total int64) gin.H {
	return gin.H{key: rows, "pagination": utils.NewPagination(page, limit, total)}
}
