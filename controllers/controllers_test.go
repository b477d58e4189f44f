package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/services"
	"calibration-backend/services/lock"
	"calibration-backend/services/printer"
	"calibration-backend/services/transport"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type harness struct {
	t         *testing.T
	store     *repository.MemoryStore
	router    *gin.Engine
	uploadDir string
	sent      []transport.Message
	sendErr   error

	user       *models.User
	customer   *models.Customer
	instrument *models.Instrument
	staff      *models.CalibrationStaff
	equipment  *models.TestEquipment
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	h := &harness{t: t, store: repository.NewMemoryStore(), uploadDir: t.TempDir()}

	h.user = &models.User{Email: "admin@lab.test", Password: "secret123", FirstName: "Lab", LastName: "Admin", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, h.store.CreateUser(ctx, h.user))
	h.customer = &models.Customer{
		CompanyName: "Acme Labs", ContactPerson: "R. Iyer", Email: "ops@acme.test", IsActive: true,
		Addresses: []models.CustomerAddress{{AddressLine1: "12 Ring Road", City: "Pune", IsDefault: true}},
	}
	require.NoError(t, h.store.CreateCustomer(ctx, h.customer))
	h.instrument = &models.Instrument{CustomerID: h.customer.ID, Name: "Pressure Gauge", SerialNumber: "SN-1", IsActive: true}
	require.NoError(t, h.store.CreateInstrument(ctx, h.instrument))
	h.staff = &models.CalibrationStaff{Name: "K. Menon", Designation: "Engineer", IsActive: true}
	require.NoError(t, h.store.CreateStaff(ctx, h.staff))
	h.equipment = &models.TestEquipment{Name: "Deadweight Tester", IsActive: true}
	require.NoError(t, h.store.CreateTestEquipment(ctx, h.equipment))

	sender := transport.SenderFunc(func(_ context.Context, msg transport.Message) error {
		if h.sendErr != nil {
			return h.sendErr
		}
		h.sent = append(h.sent, msg)
		return nil
	})
	reg := transport.NewRegistry()
	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelWhatsApp, models.ChannelPush} {
		reg.Register(ch, sender)
	}

	certificates := services.NewCertificateService(h.store, printer.NewGenerator(h.uploadDir),
		services.NewNumberer("JIC", clock, rand.New(rand.NewSource(7))), "JUST INSTRUMENTS INC.", clock, logger)
	notifications := services.NewNotificationService(h.store, reg, lock.NewLocal(), clock, 7, "JUST INSTRUMENTS INC.", logger)
	auth := services.NewAuthService(h.store, sender, "test-secret", time.Hour, clock, logger)

	cust := NewCustomerController(services.NewCustomerService(h.store, logger), logger)
	inst := NewInstrumentController(services.NewInstrumentService(h.store, logger), logger)
	equip := NewTestEquipmentController(services.NewEquipmentService(h.store, clock, logger), logger)
	staff := NewCalibrationStaffController(services.NewStaffService(h.store, logger), h.uploadDir, logger)
	certs := NewCertificateController(certificates, logger)
	notes := NewNotificationController(notifications, logger)
	reports := NewReportController(services.NewReportService(nil, clock, logger), logger)
	ac := NewAuthController(auth, logger)

	r := gin.New()
	r.POST("/auth/login", ac.Login)

	api := r.Group("/api", func(c *gin.Context) {
		c.Set(utils.ContextUserID, h.user.ID)
		c.Set(utils.ContextRole, models.RoleAdmin)
	})
	api.GET("/customers", cust.GetCustomers)
	api.POST("/customers", cust.CreateCustomer)
	api.GET("/customers/:id", cust.GetCustomer)
	api.DELETE("/customers/:id", cust.DeleteCustomer)
	api.POST("/instruments", inst.CreateInstrument)
	api.GET("/test-equipment/calibration/status", equip.GetCalibrationStatus)
	api.POST("/calibration-staff/:id/signature", staff.UploadSignature)
	api.POST("/certificates", certs.CreateCertificate)
	api.GET("/certificates/:id", certs.GetCertificate)
	api.PUT("/certificates/:id", certs.UpdateStatus)
	api.DELETE("/certificates/:id", certs.CancelCertificate)
	api.GET("/certificates/:id/download", certs.DownloadCertificate)
	api.POST("/notifications", notes.CreateNotification)
	api.POST("/notifications/send", notes.SendNotification)
	api.GET("/reports/certificates", reports.GetCertificateStats)

	portal := r.Group("/api/customer", func(c *gin.Context) {
		c.Set(utils.ContextCustomerID, h.customer.ID)
	})
	portal.GET("/my-certificates", certs.GetMyCertificates)

	h.router = r
	return h
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) certificateBody() gin.H {
	return gin.H{
		"customerId":       h.customer.ID,
		"addressId":        h.customer.Addresses[0].ID,
		"instrumentId":     h.instrument.ID,
		"signatureId":      h.staff.ID,
		"calibrationDate":  "2025-03-03",
		"dueDate":          "2026-03-03",
		"testEquipmentIds": []uint{h.equipment.ID},
		"testResults":      []gin.H{{"testPoint": "10 bar", "measuredValue": 10.02, "expectedValue": 10, "unit": "bar"}},
	}
}

func TestCustomerController_CreateAndErrors(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/customers", gin.H{
		"companyName": "Beta Instruments", "contactPerson": "S. Das", "email": "Info@Beta.test",
		"addresses": []gin.H{{"addressLine1": "4 Mill Lane", "city": "Nashik"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "info@beta.test", decode(t, w)["email"])

	t.Run("duplicate email", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/customers", gin.H{"companyName": "Other", "contactPerson": "X", "email": "ops@acme.test"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid email is a field error", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/customers", gin.H{"companyName": "Other", "contactPerson": "X", "email": "nope"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Validation failed", body["message"])
		assert.Contains(t, body["errors"], "email")
	})

	t.Run("missing required field", func(t *testing.T) {
		w := h.do(http.MethodPost, "/api/customers", gin.H{"companyName": "Other"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.True(t, strings.HasPrefix(decode(t, w)["message"].(string), "Invalid input"))
	})

	t.Run("unknown id", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/customers/999", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		missing := decode(t, w)["missing"].([]any)
		require.Len(t, missing, 1)
		assert.Equal(t, "customer", missing[0].(map[string]any)["entity"])
	})

	t.Run("malformed id", func(t *testing.T) {
		w := h.do(http.MethodGet, "/api/customers/abc", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid customer ID", decode(t, w)["message"])
	})
}

func TestCustomerController_ListPaginates(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/customers?page=1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["customers"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])
	assert.EqualValues(t, 5, pagination["limit"])
}

func TestInstrumentController_BadDate(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/api/instruments", gin.H{
		"customerId": h.customer.ID, "instrumentName": "Thermometer", "purchaseDate": "03/03/2025",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "purchaseDate")
}

func TestCertificateController_Lifecycle(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/certificates", h.certificateBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cert := decode(t, w)["certificate"].(map[string]any)
	number := cert["certificateNumber"].(string)
	assert.True(t, strings.HasPrefix(number, "JIC-20250303-"), number)
	assert.EqualValues(t, h.user.ID, cert["preparedBy"])
	id := uint(cert["id"].(float64))

	_, err := os.Stat(filepath.Join(h.uploadDir, "certificates", printer.FileName(number)))
	require.NoError(t, err)

	w = h.do(http.MethodGet, "/api/certificates/"+itoa(id)+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), printer.FileName(number))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = h.do(http.MethodGet, "/api/customer/my-certificates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["certificates"], 1)

	w = h.do(http.MethodDelete, "/api/certificates/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPut, "/api/certificates/"+itoa(id), gin.H{"status": "active"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/api/certificates/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["statusDisplay"])
}

func TestCertificateController_MissingReferences(t *testing.T) {
	h := newHarness(t)
	body := h.certificateBody()
	body["instrumentId"] = 404
	body["testEquipmentIds"] = []uint{h.equipment.ID, 505}

	w := h.do(http.MethodPost, "/api/certificates", body)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["missing"], 2)
}

func TestCertificateController_DownloadWithoutFile(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/api/certificates", h.certificateBody())
	require.Equal(t, http.StatusCreated, w.Code)
	cert := decode(t, w)["certificate"].(map[string]any)
	require.NoError(t, os.Remove(filepath.Join(h.uploadDir, "certificates", printer.FileName(cert["certificateNumber"].(string)))))

	w = h.do(http.MethodGet, "/api/certificates/"+itoa(uint(cert["id"].(float64)))+"/download", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerController_DeleteReferenced(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/certificates", h.certificateBody()).Code)

	w := h.do(http.MethodDelete, "/api/customers/"+itoa(h.customer.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["message"], "1 active certificate")
}

func signatureRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("signature", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCalibrationStaffController_UploadSignature(t *testing.T) {
	h := newHarness(t)
	path := "/api/calibration-staff/" + itoa(h.staff.ID) + "/signature"

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, signatureRequest(t, path, "sign.PNG", []byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	signaturePath := decode(t, w)["signaturePath"].(string)
	require.True(t, strings.HasPrefix(signaturePath, "/uploads/signatures/"))
	assert.True(t, strings.HasSuffix(signaturePath, ".png"))
	_, err := os.Stat(filepath.Join(h.uploadDir, "signatures", filepath.Base(signaturePath)))
	require.NoError(t, err)

	staff, err := h.store.GetStaff(context.Background(), h.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, signaturePath, staff.SignatureImage)

	t.Run("rejects non-images", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, signatureRequest(t, path, "notes.txt", []byte("hello")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown staff", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, signatureRequest(t, "/api/calibration-staff/999/signature", "sign.png", []byte("png")))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNotificationController_SendFailureIsBadGateway(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/notifications", gin.H{
		"customerId": h.customer.ID, "title": "Lab closed", "message": "Closed on Friday", "channel": "email",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["notification"].(map[string]any)["id"].(float64))

	h.sendErr = errors.New("smtp down")
	w = h.do(http.MethodPost, "/api/notifications/send", gin.H{"notificationId": id})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to send notification via email", decode(t, w)["message"])

	h.sendErr = nil
	w = h.do(http.MethodPost, "/api/notifications/send", gin.H{"notificationId": id})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.sent, 1)
	assert.Equal(t, "ops@acme.test", h.sent[0].To)

	w = h.do(http.MethodPost, "/api/notifications/send", gin.H{"notificationId": id})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReportController_RejectsBadDates(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/reports/certificates?startDate=2025-13-01", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "startDate")
}

func TestEquipmentController_CalibrationStatus(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/test-equipment/calibration/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["equipment"], 1)
}

func TestAuthController_Login(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/login", gin.H{"email": "admin@lab.test", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	claims, err := utils.ParseToken("test-secret", decode(t, w)["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	w = h.do(http.MethodPost, "/auth/login", gin.H{"email": "admin@lab.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
