package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"kingsbalfx_app/internal/models"
)

// MemoryStore is an in-memory Store used in tests and local development.
// All mutations are mutex-guarded so concurrent webhook deliveries can be
// exercised against it.
type MemoryStore struct {
	mu sync.Mutex

	profiles map[string]*models.Profile        // keyed by ID
	records  map[string]*models.PaymentRecord  // keyed by reference
	subs     map[string]*models.Subscription   // keyed by email|plan
	events   []models.PaymentEvent
	audits   []models.AuditLog

	nextID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.Profile),
		records:  make(map[string]*models.PaymentRecord),
		subs:     make(map[string]*models.Subscription),
	}
}

// AddProfile seeds a profile, standing in for the identity provider which
// owns profile creation in production.
func (s *MemoryStore) AddProfile(profile *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *profile
	s.profiles[profile.ID] = &copied
}

func (s *MemoryStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.ID]; exists {
		return nil
	}
	profile.CreatedAt = time.Now()
	copied := *profile
	s.profiles[profile.ID] = &copied
	return nil
}

func (s *MemoryStore) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil
	}
	for key, value := range fields {
		switch key {
		case "role":
			if role, ok := value.(models.Role); ok {
				p.Role = role
			} else if str, ok := value.(string); ok {
				p.Role = models.Role(str)
			}
		case "lifetime":
			if b, ok := value.(bool); ok {
				p.Lifetime = b
			}
		case "bot_tier":
			if str, ok := value.(string); ok {
				p.BotTier = str
			}
		case "bot_max_signals_per_day":
			if n, ok := value.(int); ok {
				p.BotMaxSignalsPerDay = n
			}
		case "bot_max_concurrent_trades":
			if n, ok := value.(int); ok {
				p.BotMaxConcurrentTrades = n
			}
		case "bot_signal_quality":
			if str, ok := value.(string); ok {
				p.BotSignalQuality = str
			}
		case "bot_tier_updated_at":
			if ts, ok := value.(time.Time); ok {
				p.BotTierUpdatedAt = &ts
			}
		}
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) InsertPaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	event.ID = s.nextID
	event.CreatedAt = time.Now()
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryStore) InsertPaymentRecord(ctx context.Context, record *models.PaymentRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.Reference]; exists {
		return false, nil
	}
	s.nextID++
	record.ID = s.nextID
	record.CreatedAt = time.Now()
	copied := *record
	s.records[record.Reference] = &copied
	return true, nil
}

func (s *MemoryStore) ListUnmatchedPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentRecord
	for _, rec := range s.records {
		if rec.Status != models.PaymentStatusSuccess || rec.Plan == "" {
			continue
		}
		if s.matchesProfileLocked(rec) {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (s *MemoryStore) matchesProfileLocked(rec *models.PaymentRecord) bool {
	if rec.UserID != "" {
		if _, ok := s.profiles[rec.UserID]; ok {
			return true
		}
	}
	if rec.CustomerEmail != "" {
		for _, p := range s.profiles {
			if strings.EqualFold(p.Email, rec.CustomerEmail) {
				return true
			}
		}
	}
	return false
}

func (s *MemoryStore) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = time.Now()
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *MemoryStore) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make([]models.AuditLog, len(s.audits))
	copy(logs, s.audits)
	// newest first, like the SQL implementation
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *MemoryStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(sub.Email) + "|" + sub.Plan
	if existing, ok := s.subs[key]; ok {
		existing.Status = sub.Status
		existing.UpdatedAt = time.Now()
		return nil
	}
	s.nextID++
	sub.ID = s.nextID
	sub.CreatedAt = time.Now()
	copied := *sub
	s.subs[key] = &copied
	return nil
}

func (s *MemoryStore) RevokeSubscription(ctx context.Context, email, plan string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email) + "|" + plan
	if existing, ok := s.subs[key]; ok {
		existing.Status = models.SubscriptionStatusRevoked
	}
	return nil
}

func (s *MemoryStore) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.Status == models.SubscriptionStatusActive {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PaymentRecordCount reports how many ledger rows exist; test helper.
func (s *MemoryStore) PaymentRecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// PaymentEventCount reports how many raw events were persisted; test helper.
func (s *MemoryStore) PaymentEventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
