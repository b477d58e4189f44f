package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"calibration-backend/models"
)

// MemoryStore keeps every table in maps. It backs the service and handler tests
// and mirrors Store semantics, minus the report aggregates.
type MemoryStore struct {
	mu sync.RWMutex

	nextID        uint
	users         map[uint]models.User
	customers     map[uint]models.Customer
	addresses     map[uint]models.CustomerAddress
	instruments   map[uint]models.Instrument
	equipment     map[uint]models.TestEquipment
	staff         map[uint]models.CalibrationStaff
	certificates  map[uint]models.Certificate
	notifications map[uint]models.Notification
	mobileUsers   map[uint]models.MobileUser

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[uint]models.User{},
		customers:     map[uint]models.Customer{},
		addresses:     map[uint]models.CustomerAddress{},
		instruments:   map[uint]models.Instrument{},
		equipment:     map[uint]models.TestEquipment{},
		staff:         map[uint]models.CalibrationStaff{},
		certificates:  map[uint]models.Certificate{},
		notifications: map[uint]models.Notification{},
		mobileUsers:   map[uint]models.MobileUser{},
		now:           time.Now,
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

// stamp advances the creation clock so ordering by CreatedAt is stable within a test.
func (m *MemoryStore) stamp() time.Time {
	return m.now().Add(time.Duration(m.nextID) * time.Microsecond)
}

func page[T any](all []T, p, limit int) []T {
	if limit <= 0 {
		return all
	}
	start := offset(p, limit)
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Customers

func (m *MemoryStore) ListCustomers(_ context.Context, f CustomerFilter) ([]models.CustomerSummary, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.CustomerSummary
	for _, c := range m.customers {
		if !c.IsActive {
			continue
		}
		if f.Search != "" && !contains(c.CompanyName, f.Search) && !contains(c.ContactPerson, f.Search) && !contains(c.Email, f.Search) {
			continue
		}
		row := models.CustomerSummary{Customer: c}
		for _, i := range m.instruments {
			if i.CustomerID == c.ID && i.IsActive {
				row.InstrumentCount++
			}
		}
		for _, cert := range m.certificates {
			if cert.CustomerID == c.ID {
				row.CertificateCount++
			}
		}
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m *MemoryStore) GetCustomer(_ context.Context, id uint) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Addresses = m.addressesOf(id)
	return &c, nil
}

func (m *MemoryStore) addressesOf(customerID uint) []models.CustomerAddress {
	var out []models.CustomerAddress
	for _, a := range m.addresses {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) CustomerByEmail(_ context.Context, email string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.customers {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateCustomer(_ context.Context, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.customers {
		if c.Email == customer.Email {
			return ErrDuplicate
		}
	}
	customer.ID = m.id()
	customer.CreatedAt = m.stamp()
	customer.UpdatedAt = customer.CreatedAt
	for i := range customer.Addresses {
		customer.Addresses[i].ID = m.id()
		customer.Addresses[i].CustomerID = customer.ID
		customer.Addresses[i].CreatedAt = customer.CreatedAt
		m.addresses[customer.Addresses[i].ID] = customer.Addresses[i]
	}
	stored := *customer
	stored.Addresses = nil
	m.customers[customer.ID] = stored
	return nil
}

func (m *MemoryStore) SaveCustomer(_ context.Context, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[customer.ID]; !ok {
		return ErrNotFound
	}
	for _, c := range m.customers {
		if c.ID != customer.ID && c.Email == customer.Email {
			return ErrDuplicate
		}
	}
	customer.UpdatedAt = m.stamp()
	stored := *customer
	stored.Addresses = nil
	m.customers[customer.ID] = stored
	return nil
}

func (m *MemoryStore) DeactivateCustomer(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = false
	m.customers[id] = c
	return nil
}

func (m *MemoryStore) AddAddress(_ context.Context, address *models.CustomerAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if address.IsDefault {
		for id, a := range m.addresses {
			if a.CustomerID == address.CustomerID && a.IsDefault {
				a.IsDefault = false
				m.addresses[id] = a
			}
		}
	}
	address.ID = m.id()
	address.CreatedAt = m.stamp()
	m.addresses[address.ID] = *address
	return nil
}

func (m *MemoryStore) GetAddress(_ context.Context, id uint) (*models.CustomerAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.addresses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// Instruments

func (m *MemoryStore) ListInstruments(_ context.Context, customerID uint, activeOnly bool) ([]models.Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Instrument
	for _, i := range m.instruments {
		if i.CustomerID == customerID && (!activeOnly || i.IsActive) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (m *MemoryStore) GetInstrument(_ context.Context, id uint) (*models.Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.instruments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &i, nil
}

func (m *MemoryStore) InstrumentBySerial(_ context.Context, serial string) (*models.Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, i := range m.instruments {
		if i.IsActive && i.SerialNumber == serial {
			return &i, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateInstrument(_ context.Context, instrument *models.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	instrument.ID = m.id()
	instrument.CreatedAt = m.stamp()
	instrument.UpdatedAt = instrument.CreatedAt
	m.instruments[instrument.ID] = *instrument
	return nil
}

func (m *MemoryStore) SaveInstrument(_ context.Context, instrument *models.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.instruments[instrument.ID]; !ok {
		return ErrNotFound
	}
	instrument.UpdatedAt = m.stamp()
	m.instruments[instrument.ID] = *instrument
	return nil
}

func (m *MemoryStore) DeactivateInstrument(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.instruments[id]
	if !ok {
		return ErrNotFound
	}
	i.IsActive = false
	m.instruments[id] = i
	return nil
}

// Test equipment

func (m *MemoryStore) ListTestEquipment(_ context.Context, activeOnly bool) ([]models.TestEquipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.TestEquipment
	for _, e := range m.equipment {
		if !activeOnly || e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (m *MemoryStore) GetTestEquipment(_ context.Context, id uint) (*models.TestEquipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.equipment[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) TestEquipmentByIDs(_ context.Context, ids []uint) ([]models.TestEquipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.TestEquipment
	seen := map[uint]bool{}
	for _, id := range ids {
		if e, ok := m.equipment[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) TestEquipmentBySerial(_ context.Context, serial string) (*models.TestEquipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.equipment {
		if e.IsActive && e.SerialNumber == serial {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateTestEquipment(_ context.Context, equipment *models.TestEquipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	equipment.ID = m.id()
	equipment.CreatedAt = m.stamp()
	equipment.UpdatedAt = equipment.CreatedAt
	m.equipment[equipment.ID] = *equipment
	return nil
}

func (m *MemoryStore) SaveTestEquipment(_ context.Context, equipment *models.TestEquipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.equipment[equipment.ID]; !ok {
		return ErrNotFound
	}
	equipment.UpdatedAt = m.stamp()
	m.equipment[equipment.ID] = *equipment
	return nil
}

func (m *MemoryStore) DeactivateTestEquipment(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.equipment[id]
	if !ok {
		return ErrNotFound
	}
	e.IsActive = false
	m.equipment[id] = e
	return nil
}

// Calibration staff

func (m *MemoryStore) ListStaff(_ context.Context, activeOnly bool) ([]models.CalibrationStaff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.CalibrationStaff
	for _, s := range m.staff {
		if !activeOnly || s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (m *MemoryStore) GetStaff(_ context.Context, id uint) (*models.CalibrationStaff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) CreateStaff(_ context.Context, staff *models.CalibrationStaff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staff.ID = m.id()
	staff.CreatedAt = m.stamp()
	staff.UpdatedAt = staff.CreatedAt
	m.staff[staff.ID] = *staff
	return nil
}

func (m *MemoryStore) SaveStaff(_ context.Context, staff *models.CalibrationStaff) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.staff[staff.ID]; !ok {
		return ErrNotFound
	}
	staff.UpdatedAt = m.stamp()
	m.staff[staff.ID] = *staff
	return nil
}

func (m *MemoryStore) DeactivateStaff(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.staff[id]
	if !ok {
		return ErrNotFound
	}
	s.IsActive = false
	m.staff[id] = s
	return nil
}

// Users

func (m *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// CreateUser runs the model hook so stored passwords are hashed like in postgres.
func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	user.ID = m.id()
	user.CreatedAt = m.stamp()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) TouchLastLogin(_ context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, id uint, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	m.users[id] = u
	return nil
}

func (m *MemoryStore) MobileUserByCustomer(_ context.Context, customerID uint) (*models.MobileUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.mobileUsers[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) SaveMobileUser(_ context.Context, user *models.MobileUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == 0 {
		user.ID = m.id()
		user.CreatedAt = m.stamp()
	}
	user.UpdatedAt = m.stamp()
	m.mobileUsers[user.CustomerID] = *user
	return nil
}

// Certificates

func (m *MemoryStore) ListCertificates(_ context.Context, f CertificateFilter) ([]models.CertificateListItem, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	soon := f.Today.AddDate(0, 0, models.ExpiringSoonDays)
	var all []models.CertificateListItem
	for _, cert := range m.certificates {
		customer := m.customers[cert.CustomerID]
		instrument := m.instruments[cert.InstrumentID]
		if f.CustomerID != 0 && cert.CustomerID != f.CustomerID {
			continue
		}
		if f.Search != "" && !contains(cert.CertificateNumber, f.Search) &&
			!contains(customer.CompanyName, f.Search) && !contains(instrument.Name, f.Search) {
			continue
		}
		active := cert.Status == models.CertificateActive
		switch f.Status {
		case models.DisplayExpired:
			if !active || !cert.DueDate.Before(f.Today) {
				continue
			}
		case models.DisplayExpiringSoon:
			if !active || cert.DueDate.Before(f.Today) || cert.DueDate.After(soon) {
				continue
			}
		case models.DisplayActive:
			if !active || !cert.DueDate.After(soon) {
				continue
			}
		case models.CertificateCancelled, models.CertificateSuperseded:
			if cert.Status != f.Status {
				continue
			}
		}
		all = append(all, models.CertificateListItem{
			Certificate:    cert,
			CompanyName:    customer.CompanyName,
			InstrumentName: instrument.Name,
			ModelNumber:    instrument.ModelNumber,
			SerialNumber:   instrument.SerialNumber,
			StaffName:      m.staff[cert.SignatureID].Name,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m *MemoryStore) GetCertificate(_ context.Context, id uint) (*models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.certificates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) CertificateNumberExists(_ context.Context, number string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.certificates {
		if c.CertificateNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.certificates {
		if c.CertificateNumber == cert.CertificateNumber {
			return ErrDuplicate
		}
	}
	if cert.Status == "" {
		cert.Status = models.CertificateActive
	}
	cert.ID = m.id()
	cert.CreatedAt = m.stamp()
	cert.UpdatedAt = cert.CreatedAt
	m.certificates[cert.ID] = *cert
	return nil
}

func (m *MemoryStore) SetCertificatePDF(_ context.Context, id uint, path string) error {
	return m.updateCertificate(id, func(c *models.Certificate) { c.PDFPath = path })
}

func (m *MemoryStore) SetCertificateStatus(_ context.Context, id uint, status string) error {
	return m.updateCertificate(id, func(c *models.Certificate) { c.Status = status })
}

func (m *MemoryStore) updateCertificate(id uint, apply func(*models.Certificate)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.certificates[id]
	if !ok {
		return ErrNotFound
	}
	apply(&c)
	c.UpdatedAt = m.stamp()
	m.certificates[id] = c
	return nil
}

func (m *MemoryStore) CertificatesMissingPDF(_ context.Context) ([]models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Certificate
	for _, c := range m.certificates {
		if c.PDFPath == "" && c.Status != models.CertificateCancelled {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CertificatesDueOn(_ context.Context, day time.Time) ([]models.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Certificate
	for _, c := range m.certificates {
		if c.Status == models.CertificateActive && c.DueDate.Equal(day) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CountActiveCertificates(_ context.Context, ref CertificateRef) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, c := range m.certificates {
		if c.Status != models.CertificateActive {
			continue
		}
		switch {
		case ref.CustomerID != 0 && c.CustomerID == ref.CustomerID,
			ref.InstrumentID != 0 && c.InstrumentID == ref.InstrumentID,
			ref.SignatureID != 0 && c.SignatureID == ref.SignatureID:
			count++
		case ref.EquipmentID != 0:
			for _, id := range c.TestEquipmentIDs.Data() {
				if id == ref.EquipmentID {
					count++
					break
				}
			}
		}
	}
	return count, nil
}

// Notifications

func (m *MemoryStore) NotificationExists(_ context.Context, certificateID uint, typ models.NotificationType) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, n := range m.notifications {
		if n.CertificateID != nil && *n.CertificateID == certificateID && n.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.ID = m.id()
	n.CreatedAt = m.stamp()
	n.UpdatedAt = n.CreatedAt
	m.notifications[n.ID] = *n
	return nil
}

// CreateNotifications stores every row or none of them.
func (m *MemoryStore) CreateNotifications(_ context.Context, rows []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range rows {
		if rows[i].CustomerID == 0 || !rows[i].Channel.Valid() {
			return fmt.Errorf("notification %d: customer and a valid channel are required", i)
		}
	}
	for i := range rows {
		rows[i].ID = m.id()
		rows[i].CreatedAt = m.stamp()
		rows[i].UpdatedAt = rows[i].CreatedAt
		m.notifications[rows[i].ID] = rows[i]
	}
	return nil
}

func (m *MemoryStore) GetNotification(_ context.Context, id uint) (*models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, f NotificationFilter) ([]models.NotificationListItem, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []models.NotificationListItem
	for _, n := range m.notifications {
		if f.Type != "" && string(n.Type) != f.Type {
			continue
		}
		if (f.Status == "sent" && !n.IsSent) || (f.Status == "pending" && n.IsSent) {
			continue
		}
		if f.CustomerID != 0 && n.CustomerID != f.CustomerID {
			continue
		}
		customer := m.customers[n.CustomerID]
		row := models.NotificationListItem{
			Notification:  n,
			CompanyName:   customer.CompanyName,
			ContactPerson: customer.ContactPerson,
		}
		if n.CertificateID != nil {
			if cert, ok := m.certificates[*n.CertificateID]; ok {
				row.CertificateNumber = cert.CertificateNumber
				due := cert.DueDate
				row.DueDate = &due
			}
		}
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, f.Page, f.Limit), int64(len(all)), nil
}

func (m *MemoryStore) PendingNotificationIDs(_ context.Context, staleBefore time.Time, limit int) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []models.Notification
	for _, n := range m.notifications {
		if !n.IsSent && claimable(n, staleBefore) {
			pending = append(pending, n)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	pending = page(pending, 1, limit)

	ids := make([]uint, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func claimable(n models.Notification, staleBefore time.Time) bool {
	return n.ClaimedAt == nil || n.ClaimedAt.Before(staleBefore)
}

func (m *MemoryStore) ClaimNotification(_ context.Context, id uint, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok || n.IsSent || !claimable(n, staleBefore) {
		return false, nil
	}
	n.ClaimedAt = &now
	m.notifications[id] = n
	return true, nil
}

func (m *MemoryStore) MarkNotificationSent(_ context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.IsSent = true
	n.SentAt = &at
	n.ClaimedAt = nil
	n.LastError = ""
	n.Attempts++
	m.notifications[id] = n
	return nil
}

func (m *MemoryStore) ReleaseNotification(_ context.Context, id uint, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.ClaimedAt = nil
	n.LastError = lastError
	n.Attempts++
	m.notifications[id] = n
	return nil
}
