package models

import "time"

type NotificationType string

const (
	RenewalReminder NotificationType = "renewal_reminder"
	ExpiryAlert     NotificationType = "expiry_alert"
	CustomMessage   NotificationType = "custom"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

type Notification struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	CustomerID    uint             `gorm:"index;not null" json:"customerId"`
	CertificateID *uint            `gorm:"index:idx_notification_cert_type" json:"certificateId,omitempty"`
	Type          NotificationType `gorm:"column:notification_type;type:varchar(30);index:idx_notification_cert_type;not null" json:"type"`
	Title         string           `gorm:"not null" json:"title"`
	Message       string           `gorm:"type:text;not null" json:"message"`
	Channel       Channel          `gorm:"column:sent_via;type:varchar(20);not null" json:"channel"`
	IsSent        bool             `gorm:"default:false;index" json:"isSent"`
	SentAt        *time.Time       `json:"sentAt,omitempty"`
	ClaimedAt     *time.Time       `json:"-"`
	Attempts      int              `gorm:"default:0" json:"attempts"`
	LastError     string           `gorm:"type:text" json:"lastError,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NotificationListItem joins the customer and certificate fields shown in listings.
type NotificationListItem struct {
	Notification
	CompanyName       string     `json:"companyName"`
	ContactPerson     string     `json:"contactPerson"`
	CertificateNumber string     `json:"certificateNumber"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
}
