package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/services/lock"
	"calibration-backend/services/transport"
	"calibration-backend/utils"

	"go.uber.org/zap"
)

const (
	// ClaimLease is how long a claimed notification stays invisible to other dispatchers.
	ClaimLease       = 10 * time.Minute
	DefaultBatchSize = 50

	dispatchLockKey = "calibration:notifications:dispatch"
	dispatchLockTTL = 5 * time.Minute
	scanLockPrefix  = "calibration:notifications:scan:"
	scanLockTTL     = 5 * time.Minute
)

type NotificationStore interface {
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	GetInstrument(ctx context.Context, id uint) (*models.Instrument, error)
	GetCertificate(ctx context.Context, id uint) (*models.Certificate, error)
	CertificatesDueOn(ctx context.Context, day time.Time) ([]models.Certificate, error)
	MobileUserByCustomer(ctx context.Context, customerID uint) (*models.MobileUser, error)

	NotificationExists(ctx context.Context, certificateID uint, typ models.NotificationType) (bool, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, rows []models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	ListNotifications(ctx context.Context, f repository.NotificationFilter) ([]models.NotificationListItem, int64, error)
	PendingNotificationIDs(ctx context.Context, staleBefore time.Time, limit int) ([]uint, error)
	ClaimNotification(ctx context.Context, id uint, now, staleBefore time.Time) (bool, error)
	MarkNotificationSent(ctx context.Context, id uint, at time.Time) error
	ReleaseNotification(ctx context.Context, id uint, lastError string) error
}

// Transports picks the sender for a channel.
type Transports interface {
	For(channel models.Channel) (transport.Sender, error)
}

type NotificationService struct {
	store        NotificationStore
	transports   Transports
	locker       lock.Locker
	clock        Clock
	reminderDays int
	orgName      string
	logger       *zap.Logger
}

func NewNotificationService(store NotificationStore, transports Transports, locker lock.Locker, clock Clock, reminderDays int, orgName string, logger *zap.Logger) *NotificationService {
	if reminderDays <= 0 {
		reminderDays = 7
	}
	return &NotificationService{
		store:        store,
		transports:   transports,
		locker:       locker,
		clock:        clock,
		reminderDays: reminderDays,
		orgName:      orgName,
		logger:       logger,
	}
}

// BatchResult counts what one dispatch run did. Skipped is set when another run held the lock.
type BatchResult struct {
	Processed int  `json:"processed"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Skipped   bool `json:"skipped,omitempty"`
}

// ScanRun reports one scan. Skipped is set when the same scan was already running elsewhere.
type ScanRun struct {
	Created int  `json:"created"`
	Skipped bool `json:"skipped,omitempty"`
}

type ScanResult struct {
	Reminders int  `json:"reminders"`
	Alerts    int  `json:"alerts"`
	Skipped   bool `json:"skipped,omitempty"`
}

type NotificationListParams struct {
	Type   string
	Status string
	Page   int
	Limit  int
}

type CustomNotificationRequest struct {
	CustomerID    uint           `json:"customerId"`
	CertificateID *uint          `json:"certificateId"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Channel       models.Channel `json:"channel"`
}

type notice struct {
	heading string
	intro   string
	dueWord string
	closing string
	smsText string
	smsHead string
	title   string
}

func renewalNotice(cert models.Certificate, instrument string) notice {
	due := utils.FormatDate(cert.DueDate)
	return notice{
		heading: "Certificate Renewal Reminder",
		intro:   "This is a reminder that your calibration certificate for the following instrument is due for renewal:",
		dueWord: "Due Date",
		closing: "Please contact us to schedule your next calibration.",
		title:   "Calibration Certificate Renewal Reminder - " + cert.CertificateNumber,
		smsHead: "Certificate Renewal Reminder",
		smsText: fmt.Sprintf("Certificate %s for %s expires on %s. Please contact us for renewal.", cert.CertificateNumber, instrument, due),
	}
}

func expiryNotice(cert models.Certificate, instrument string) notice {
	due := utils.FormatDate(cert.DueDate)
	return notice{
		heading: "Certificate Expired",
		intro:   "Your calibration certificate has expired:",
		dueWord: "Expired Date",
		closing: "Please contact us immediately to schedule calibration to avoid any compliance issues.",
		title:   "Calibration Certificate Expired - " + cert.CertificateNumber,
		smsHead: "Certificate Expired",
		smsText: fmt.Sprintf("URGENT: Certificate %s for %s has expired on %s. Please contact us immediately.", cert.CertificateNumber, instrument, due),
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func (s *NotificationService) emailBody(n notice, cert models.Certificate, customer *models.Customer, instrument *models.Instrument) string {
	e := html.EscapeString
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>\n", e(n.heading))
	fmt.Fprintf(&b, "<p>Dear %s,</p>\n", e(customer.ContactPerson))
	fmt.Fprintf(&b, "<p>%s</p>\n<ul>\n", e(n.intro))
	fmt.Fprintf(&b, "<li><strong>Certificate Number:</strong> %s</li>\n", e(cert.CertificateNumber))
	fmt.Fprintf(&b, "<li><strong>Instrument:</strong> %s</li>\n", e(instrument.Name))
	fmt.Fprintf(&b, "<li><strong>Model:</strong> %s</li>\n", e(orNA(instrument.ModelNumber)))
	fmt.Fprintf(&b, "<li><strong>Serial:</strong> %s</li>\n", e(orNA(instrument.SerialNumber)))
	fmt.Fprintf(&b, "<li><strong>%s:</strong> %s</li>\n</ul>\n", n.dueWord, utils.FormatDate(cert.DueDate))
	fmt.Fprintf(&b, "<p>%s</p>\n", e(n.closing))
	fmt.Fprintf(&b, "<p>Best regards,<br>%s</p>\n", e(s.orgName))
	return b.String()
}

// CreateRenewalReminders queues reminders for active certificates due exactly daysBefore days from
// today. A non-positive daysBefore uses the configured default. Created counts the certificates
// that got new notifications.
func (s *NotificationService) CreateRenewalReminders(ctx context.Context, daysBefore int) (ScanRun, error) {
	if daysBefore <= 0 {
		daysBefore = s.reminderDays
	}
	day := utils.Today(s.clock()).AddDate(0, 0, daysBefore)
	return s.scan(ctx, day, models.RenewalReminder, renewalNotice)
}

// CreateExpiryAlerts queues alerts for active certificates that fall due today.
func (s *NotificationService) CreateExpiryAlerts(ctx context.Context) (ScanRun, error) {
	return s.scan(ctx, utils.Today(s.clock()), models.ExpiryAlert, expiryNotice)
}

// Scan runs both scans, as the daily job does.
func (s *NotificationService) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	reminders, err := s.CreateRenewalReminders(ctx, 0)
	if err != nil {
		return result, err
	}
	result.Reminders = reminders.Created
	alerts, err := s.CreateExpiryAlerts(ctx)
	if err != nil {
		return result, err
	}
	result.Alerts = alerts.Created
	result.Skipped = reminders.Skipped || alerts.Skipped
	return result, nil
}

// scan holds a per-type lock for its whole run. A concurrent scan of the same type is skipped.
func (s *NotificationService) scan(ctx context.Context, day time.Time, typ models.NotificationType, compose func(models.Certificate, string) notice) (ScanRun, error) {
	release, ok, err := s.locker.Acquire(ctx, scanLockPrefix+string(typ), scanLockTTL)
	if err != nil {
		return ScanRun{}, fmt.Errorf("acquire %s scan lock: %w", typ, err)
	}
	if !ok {
		s.logger.Info("notification scan already running, skipping", zap.String("type", string(typ)))
		return ScanRun{Skipped: true}, nil
	}
	defer release()

	certs, err := s.store.CertificatesDueOn(ctx, day)
	if err != nil {
		return ScanRun{}, fmt.Errorf("find certificates due %s: %w", utils.FormatDate(day), err)
	}

	created := 0
	for _, cert := range certs {
		exists, err := s.store.NotificationExists(ctx, cert.ID, typ)
		if err != nil {
			return ScanRun{Created: created}, fmt.Errorf("check %s for certificate %d: %w", typ, cert.ID, err)
		}
		if exists {
			continue
		}

		customer, err := s.store.GetCustomer(ctx, cert.CustomerID)
		if err != nil {
			return ScanRun{Created: created}, fmt.Errorf("load customer %d: %w", cert.CustomerID, err)
		}
		instrument, err := s.store.GetInstrument(ctx, cert.InstrumentID)
		if err != nil {
			return ScanRun{Created: created}, fmt.Errorf("load instrument %d: %w", cert.InstrumentID, err)
		}

		n := compose(cert, instrument.Name)
		certID := cert.ID
		rows := []models.Notification{{
			CustomerID:    cert.CustomerID,
			CertificateID: &certID,
			Type:          typ,
			Title:         n.title,
			Message:       s.emailBody(n, cert, customer, instrument),
			Channel:       models.ChannelEmail,
		}}
		if customer.Mobile != "" {
			rows = append(rows, models.Notification{
				CustomerID:    cert.CustomerID,
				CertificateID: &certID,
				Type:          typ,
				Title:         n.smsHead,
				Message:       n.smsText,
				Channel:       models.ChannelSMS,
			})
		}
		if err := s.store.CreateNotifications(ctx, rows); err != nil {
			return ScanRun{Created: created}, fmt.Errorf("create %s for certificate %d: %w", typ, cert.ID, err)
		}
		created++
	}

	s.logger.Info("notification scan finished",
		zap.String("type", string(typ)),
		zap.String("due_date", utils.FormatDate(day)),
		zap.Int("certificates", len(certs)),
		zap.Int("created", created))
	return ScanRun{Created: created}, nil
}

// CreateCustom queues an ad hoc notification for a customer.
func (s *NotificationService) CreateCustom(ctx context.Context, req CustomNotificationRequest) (*models.Notification, error) {
	var v validator
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	v.check(req.CustomerID != 0, "customerId", "is required")
	v.check(req.Title != "", "title", "is required")
	v.check(req.Message != "", "message", "is required")
	if req.Channel == "" {
		req.Channel = models.ChannelEmail
	}
	v.check(req.Channel.Valid(), "channel", "must be email, sms, whatsapp or push")
	if err := v.err(); err != nil {
		return nil, err
	}

	customer, err := s.store.GetCustomer(ctx, req.CustomerID)
	if _, err := lookup(customer, err, "customer", req.CustomerID); err != nil {
		return nil, err
	}
	if req.CertificateID != nil {
		cert, err := s.store.GetCertificate(ctx, *req.CertificateID)
		if cert, err = lookup(cert, err, "certificate", *req.CertificateID); err != nil {
			return nil, err
		}
		if cert.CustomerID != req.CustomerID {
			return nil, notFound("certificate", *req.CertificateID)
		}
	}

	n := &models.Notification{
		CustomerID:    req.CustomerID,
		CertificateID: req.CertificateID,
		Type:          models.CustomMessage,
		Title:         req.Title,
		Message:       req.Message,
		Channel:       req.Channel,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, p NotificationListParams) ([]models.NotificationListItem, int64, error) {
	rows, total, err := s.store.ListNotifications(ctx, repository.NotificationFilter{
		Type:   p.Type,
		Status: p.Status,
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	if rows == nil {
		rows = []models.NotificationListItem{}
	}
	return rows, total, nil
}

func (s *NotificationService) ListForCustomer(ctx context.Context, customerID uint, page, limit int) ([]models.NotificationListItem, int64, error) {
	rows, total, err := s.store.ListNotifications(ctx, repository.NotificationFilter{
		CustomerID: customerID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list customer notifications: %w", err)
	}
	if rows == nil {
		rows = []models.NotificationListItem{}
	}
	return rows, total, nil
}

// SendOne delivers a single notification. A failed delivery is recorded on the row and
// returned as a TransportError.
func (s *NotificationService) SendOne(ctx context.Context, id uint) error {
	n, err := s.store.GetNotification(ctx, id)
	if n, err = lookup(n, err, "notification", id); err != nil {
		return err
	}
	if n.IsSent {
		return &ConflictError{Message: "notification already sent"}
	}

	now := s.clock()
	claimed, err := s.store.ClaimNotification(ctx, id, now, now.Add(-ClaimLease))
	if err != nil {
		return fmt.Errorf("claim notification %d: %w", id, err)
	}
	if !claimed {
		return &ConflictError{Message: "notification is already being sent"}
	}
	return s.dispatch(ctx, n)
}

// SendPending delivers up to limit unsent notifications, oldest first. Rows claimed by another
// dispatcher are left alone. Delivery failures are counted, not returned.
func (s *NotificationService) SendPending(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	release, ok, err := s.locker.Acquire(ctx, dispatchLockKey, dispatchLockTTL)
	if err != nil {
		return BatchResult{}, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !ok {
		s.logger.Info("notification dispatch already running, skipping")
		return BatchResult{Skipped: true}, nil
	}
	defer release()

	now := s.clock()
	staleBefore := now.Add(-ClaimLease)
	ids, err := s.store.PendingNotificationIDs(ctx, staleBefore, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load pending notifications: %w", err)
	}

	var result BatchResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		claimed, err := s.store.ClaimNotification(ctx, id, s.clock(), staleBefore)
		if err != nil {
			return result, fmt.Errorf("claim notification %d: %w", id, err)
		}
		if !claimed {
			continue
		}
		n, err := s.store.GetNotification(ctx, id)
		if err != nil {
			return result, fmt.Errorf("load notification %d: %w", id, err)
		}

		result.Processed++
		err = s.dispatch(ctx, n)
		var terr *TransportError
		switch {
		case err == nil:
			result.Sent++
		case errors.As(err, &terr):
			result.Failed++
		default:
			return result, err
		}
	}

	s.logger.Info("notification dispatch finished",
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

// dispatch sends a claimed notification and settles the claim either way.
func (s *NotificationService) dispatch(ctx context.Context, n *models.Notification) error {
	sendErr := s.deliver(ctx, n)
	if sendErr == nil {
		if err := s.store.MarkNotificationSent(ctx, n.ID, s.clock()); err != nil {
			return fmt.Errorf("mark notification %d sent: %w", n.ID, err)
		}
		return nil
	}

	s.logger.Warn("notification delivery failed",
		zap.Uint("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.Error(sendErr))
	if err := s.store.ReleaseNotification(ctx, n.ID, sendErr.Error()); err != nil {
		return fmt.Errorf("release notification %d: %w", n.ID, err)
	}
	return &TransportError{Channel: string(n.Channel), Err: sendErr}
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) error {
	customer, err := s.store.GetCustomer(ctx, n.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %d: %w", n.CustomerID, err)
	}

	msg := transport.Message{Subject: n.Title, Body: n.Message}
	switch n.Channel {
	case models.ChannelEmail:
		msg.To = customer.Email
	case models.ChannelSMS, models.ChannelWhatsApp:
		if customer.Mobile == "" {
			return errors.New("customer has no mobile number")
		}
		msg.To = customer.Mobile
		msg.Body = n.Title + ": " + n.Message
	case models.ChannelPush:
		mobile, err := s.store.MobileUserByCustomer(ctx, n.CustomerID)
		switch {
		case err == nil:
			msg.To = mobile.DeviceToken
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("load device token: %w", err)
		}
	default:
		return fmt.Errorf("unknown channel %q", n.Channel)
	}

	sender, err := s.transports.For(n.Channel)
	if err != nil {
		return err
	}
	return sender.Send(ctx, msg)
}
