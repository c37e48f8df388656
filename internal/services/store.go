package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kingsbalfx_app/internal/models"
)

// Store is the persistence seam for the reconciliation pipeline. Handlers
// and services receive it explicitly so tests can substitute MemoryStore.
// Lookups return (nil, nil) when no row matches.
type Store interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error

	InsertPaymentEvent(ctx context.Context, event *models.PaymentEvent) error
	// InsertPaymentRecord inserts a ledger row keyed by the unique gateway
	// reference. It reports false when a row with that reference already
	// exists; the insert and the duplicate check are atomic at the storage
	// layer.
	InsertPaymentRecord(ctx context.Context, record *models.PaymentRecord) (bool, error)
	ListUnmatchedPayments(ctx context.Context) ([]models.PaymentRecord, error)

	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)

	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	RevokeSubscription(ctx context.Context, email, plan string) error
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
}

// GormStore implements Store on a Postgres database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	// Concurrent first-login requests may race; losing the race is fine
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(profile).Error
}

func (s *GormStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (s *GormStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (s *GormStore) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields).Error
}

func (s *GormStore) InsertPaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *GormStore) InsertPaymentRecord(ctx context.Context, record *models.PaymentRecord) (bool, error) {
	// ON CONFLICT DO NOTHING on the unique reference index; RowsAffected
	// tells duplicates apart from fresh inserts without a second query.
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ListUnmatchedPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	matched := s.db.Model(&models.Profile{}).
		Select("1").
		Where("profiles.id = payment_records.user_id OR profiles.email = payment_records.customer_email")

	var records []models.PaymentRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND plan <> ''", models.PaymentStatusSuccess).
		Where("NOT EXISTS (?)", matched).
		Order("received_at asc").
		Find(&records).Error
	return records, err
}

func (s *GormStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, err
}

func (s *GormStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "plan"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(sub).Error
}

func (s *GormStore) RevokeSubscription(ctx context.Context, email, plan string) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("email = ? AND plan = ?", email, plan).
		Update("status", models.SubscriptionStatusRevoked).Error
}

func (s *GormStore) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).Where("status = ?", models.SubscriptionStatusActive).Find(&subs).Error
	return subs, err
}
