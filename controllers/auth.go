package controllers

import (
	"net/http"

	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type CustomerOTPInput struct {
	Email string `json:"email" binding:"required"`
}

type AuthController struct {
	auth   *services.AuthService
	logger *zap.Logger
}

func NewAuthController(auth *services.AuthService, logger *zap.Logger) *AuthController {
	return &AuthController{auth: auth, logger: logger}
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := ac.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.auth.Me(c.Request.Context(), c.GetUint(utils.ContextUserID))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if !bindJSON(c, &input) {
		return
	}
	userID := c.GetUint(utils.ContextUserID)
	if err := ac.auth.ChangePassword(c.Request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// RequestCustomerOTP emails a one-time code. The code never appears in the response.
func (ac *AuthController) RequestCustomerOTP(c *gin.Context) {
	var input CustomerOTPInput
	if !bindJSON(c, &input) {
		return
	}
	if err := ac.auth.RequestCustomerOTP(c.Request.Context(), input.Email); err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
}

func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req services.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := ac.auth.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "OTP verified successfully",
		"token":    result.Token,
		"customer": result.Customer,
	})
}
