package routes

import (
	"calibration-backend/config"
	"calibration-backend/controllers"
	"calibration-backend/models"
	"calibration-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries everything the router needs; main builds it once.
type Deps struct {
	Config *config.Config
	Logger *zap.Logger

	Auth          *controllers.AuthController
	Customers     *controllers.CustomerController
	Instruments   *controllers.InstrumentController
	TestEquipment *controllers.TestEquipmentController
	Staff         *controllers.CalibrationStaffController
	Certificates  *controllers.CertificateController
	Notifications *controllers.NotificationController
	Reports       *controllers.ReportController
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(config.RequestLogger(d.Logger))

	r.Static("/uploads", d.Config.UploadDir)

	secret := d.Config.JWTSecret
	writers := utils.RequireRole(models.RoleAdmin, models.RoleStaff)
	admins := utils.RequireRole(models.RoleAdmin)

	auth := r.Group("/auth")
	{
		auth.POST("/login", d.Auth.Login)
		auth.POST("/customer-otp", d.Auth.RequestCustomerOTP)
		auth.POST("/verify-otp", d.Auth.VerifyOTP)

		auth.Use(utils.AuthMiddleware(secret))
		auth.GET("/me", d.Auth.Me)
		auth.PUT("/change-password", d.Auth.ChangePassword)
	}

	// Customer portal
	portal := r.Group("/api/customer")
	portal.Use(utils.CustomerAuthMiddleware(secret))
	{
		portal.GET("/my-certificates", d.Certificates.GetMyCertificates)
		portal.GET("/my-notifications", d.Notifications.GetMyNotifications)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(secret))
	{
		customers := api.Group("/customers")
		{
			customers.GET("", d.Customers.GetCustomers)
			customers.POST("", writers, d.Customers.CreateCustomer)
			customers.GET("/:id", d.Customers.GetCustomer)
			customers.PUT("/:id", writers, d.Customers.UpdateCustomer)
			customers.DELETE("/:id", admins, d.Customers.DeleteCustomer)
			customers.POST("/:id/addresses", writers, d.Customers.AddAddress)
		}

		instruments := api.Group("/instruments")
		{
			instruments.GET("/customer/:customerId", d.Instruments.GetCustomerInstruments)
			instruments.GET("/customer/:customerId/for-certificate", d.Instruments.GetInstrumentsForCertificate)
			instruments.POST("", writers, d.Instruments.CreateInstrument)
			instruments.GET("/:id", d.Instruments.GetInstrument)
			instruments.PUT("/:id", writers, d.Instruments.UpdateInstrument)
			instruments.DELETE("/:id", admins, d.Instruments.DeleteInstrument)
		}

		equipment := api.Group("/test-equipment")
		{
			equipment.GET("", d.TestEquipment.GetTestEquipment)
			equipment.POST("", writers, d.TestEquipment.CreateTestEquipment)
			equipment.GET("/for-certificate", d.TestEquipment.GetTestEquipmentForCertificate)
			equipment.GET("/calibration/status", d.TestEquipment.GetCalibrationStatus)
			equipment.GET("/:id", d.TestEquipment.GetTestEquipmentByID)
			equipment.PUT("/:id", writers, d.TestEquipment.UpdateTestEquipment)
			equipment.DELETE("/:id", admins, d.TestEquipment.DeleteTestEquipment)
		}

		staff := api.Group("/calibration-staff")
		{
			staff.GET("", d.Staff.GetStaff)
			staff.POST("", writers, d.Staff.CreateStaff)
			staff.GET("/for-certificate", d.Staff.GetStaffForCertificate)
			staff.GET("/:id", d.Staff.GetStaffByID)
			staff.PUT("/:id", writers, d.Staff.UpdateStaff)
			staff.DELETE("/:id", admins, d.Staff.DeleteStaff)
			staff.POST("/:id/signature", writers, d.Staff.UploadSignature)
		}

		certificates := api.Group("/certificates")
		{
			certificates.GET("", d.Certificates.GetCertificates)
			certificates.POST("", writers, d.Certificates.CreateCertificate)
			certificates.POST("/regenerate-missing", admins, d.Certificates.RegenerateMissing)
			certificates.GET("/:id", d.Certificates.GetCertificate)
			certificates.PUT("/:id", writers, d.Certificates.UpdateStatus)
			certificates.DELETE("/:id", admins, d.Certificates.CancelCertificate)
			certificates.GET("/:id/download", d.Certificates.DownloadCertificate)
			certificates.POST("/:id/regenerate", writers, d.Certificates.RegenerateCertificate)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", d.Notifications.GetNotifications)
			notifications.POST("", admins, d.Notifications.CreateNotification)
			notifications.POST("/send", writers, d.Notifications.SendNotification)
			notifications.POST("/create-renewal-reminders", writers, d.Notifications.CreateRenewalReminders)
			notifications.POST("/create-expiry-alerts", writers, d.Notifications.CreateExpiryAlerts)
			notifications.POST("/send-pending", writers, d.Notifications.SendPending)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/dashboard", d.Reports.GetDashboard)
			reports.GET("/certificates", d.Reports.GetCertificateStats)
			reports.GET("/customers", d.Reports.GetCustomerStats)
			reports.GET("/renewals", d.Reports.GetRenewalStats)
			reports.GET("/export", d.Reports.Export)
		}
	}

	return r
}
