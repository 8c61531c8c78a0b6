package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

const policyID = 1
const snapshotID = 1

func toSoldier(r *SoldierRecord) *models.Soldier {
	s := &models.Soldier{
		ID:                 r.ID,
		Name:               r.Name,
		Role:               models.Role(r.Role),
		Phone:              r.Phone,
		Email:              r.Email,
		DistanceFromBase:   r.DistanceFromBase,
		IsEmergencyReserve: r.IsEmergencyReserve,
		HistoricalHomeDays: r.HistoricalHomeDays,
		Requests:           make([]models.Request, 0, len(r.Requests)),
	}
	for _, req := range r.Requests {
		s.Requests = append(s.Requests, models.Request{
			ID:       req.ID,
			Date:     req.Date,
			Priority: models.Priority(req.Priority),
			Reason:   req.Reason,
			Status:   models.RequestStatus(req.Status),
		})
	}
	return s
}

func toRequestRecord(soldierID string, req models.Request) RequestRecord {
	return RequestRecord{
		ID:        req.ID,
		SoldierID: soldierID,
		Date:      req.Date,
		Priority:  string(req.Priority),
		Reason:    req.Reason,
		Status:    string(req.Status),
	}
}

func orderedRequests(db *gorm.DB) *gorm.DB {
	return db.Order("date, id")
}

// ListSoldiers returns the roster in insertion order with requests loaded
func (s *Store) ListSoldiers() ([]*models.Soldier, error) {
	var records []SoldierRecord
	if err := s.db.Preload("Requests", orderedRequests).Order("position, id").Find(&records).Error; err != nil {
		return nil, err
	}
	soldiers := make([]*models.Soldier, 0, len(records))
	for i := range records {
		soldiers = append(soldiers, toSoldier(&records[i]))
	}
	return soldiers, nil
}

// GetSoldier loads one soldier
func (s *Store) GetSoldier(id string) (*models.Soldier, error) {
	var record SoldierRecord
	if err := s.db.Preload("Requests", orderedRequests).First(&record, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "soldier "+id)
	}
	return toSoldier(&record), nil
}

// CreateSoldier appends a soldier to the roster. Requests without an id get one.
func (s *Store) CreateSoldier(soldier *models.Soldier) error {
	if soldier.ID == "" {
		soldier.ID = uuid.NewString()
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&SoldierRecord{}).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return err
		}
		record := SoldierRecord{
			ID:                 soldier.ID,
			Position:           last + 1,
			Name:               soldier.Name,
			Role:               string(soldier.Role),
			Phone:              soldier.Phone,
			Email:              soldier.Email,
			DistanceFromBase:   soldier.DistanceFromBase,
			IsEmergencyReserve: soldier.IsEmergencyReserve,
			HistoricalHomeDays: soldier.HistoricalHomeDays,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for i := range soldier.Requests {
			fillRequest(&soldier.Requests[i])
			rec := toRequestRecord(soldier.ID, soldier.Requests[i])
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateSoldier saves the soldier's own fields; requests are managed separately
func (s *Store) UpdateSoldier(soldier *models.Soldier) error {
	res := s.db.Model(&SoldierRecord{}).Where("id = ?", soldier.ID).Updates(map[string]interface{}{
		"name":                 soldier.Name,
		"role":                 string(soldier.Role),
		"phone":                soldier.Phone,
		"email":                soldier.Email,
		"distance_from_base":   soldier.DistanceFromBase,
		"is_emergency_reserve": soldier.IsEmergencyReserve,
		"historical_home_days": soldier.HistoricalHomeDays,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("soldier %s: %w", soldier.ID, ErrNotFound)
	}
	return nil
}

// SetEmergencyReserve flags or unflags a soldier as emergency reserve
func (s *Store) SetEmergencyReserve(id string, reserve bool) error {
	res := s.db.Model(&SoldierRecord{}).Where("id = ?", id).Update("is_emergency_reserve", reserve)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("soldier %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSoldier removes a soldier and their requests
func (s *Store) DeleteSoldier(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("soldier_id = ?", id).Delete(&RequestRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&SoldierRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("soldier %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddHistory adds imported home days to a soldier's history
func (s *Store) AddHistory(id string, days int) error {
	return addHistory(s.db, id, days)
}

// AddHistories applies several history imports atomically; an unknown
// soldier aborts all of them.
func (s *Store) AddHistories(days map[string]int) error {
	ids := make([]string, 0, len(days))
	for id := range days {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := addHistory(tx, id, days[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

func addHistory(db *gorm.DB, id string, days int) error {
	res := db.Model(&SoldierRecord{}).Where("id = ?", id).
		Update("historical_home_days", gorm.Expr("historical_home_days + ?", days))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("soldier %s: %w", id, ErrNotFound)
	}
	return nil
}

func fillRequest(req *models.Request) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
}

// AddRequest stores a new leave request for a soldier
func (s *Store) AddRequest(soldierID string, req *models.Request) error {
	var count int64
	if err := s.db.Model(&SoldierRecord{}).Where("id = ?", soldierID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("soldier %s: %w", soldierID, ErrNotFound)
	}
	fillRequest(req)
	rec := toRequestRecord(soldierID, *req)
	return s.db.Create(&rec).Error
}

// DeleteRequest removes one of a soldier's requests
func (s *Store) DeleteRequest(soldierID, requestID string) error {
	res := s.db.Delete(&RequestRecord{}, "id = ? AND soldier_id = ?", requestID, soldierID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	return nil
}

// SaveRequests upserts every request of the given soldiers, picking up
// status changes and requests added by conflict resolution.
func (s *Store) SaveRequests(soldiers []*models.Soldier) error {
	return saveRequests(s.db, soldiers)
}

func saveRequests(db *gorm.DB, soldiers []*models.Soldier) error {
	var records []RequestRecord
	for _, soldier := range soldiers {
		for i := range soldier.Requests {
			fillRequest(&soldier.Requests[i])
			records = append(records, toRequestRecord(soldier.ID, soldier.Requests[i]))
		}
	}
	if len(records) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "priority", "reason", "status"}),
	}).Create(&records).Error
}

// LoadConfiguration returns the saved policy, or defaults when none is saved,
// with day weights and the emergency reserve filled in.
func (s *Store) LoadConfiguration(defaults models.Configuration) (models.Configuration, error) {
	cfg := defaults
	var policy PolicyRecord
	err := s.db.First(&policy, policyID).Error
	switch {
	case err == nil:
		cfg.StartDate = policy.StartDate
		cfg.EndDate = policy.EndDate
		cfg.SoldiersInBase = policy.SoldiersInBase
		cfg.MinConsecutiveDays = policy.MinConsecutiveDays
		cfg.MaxConsecutiveDaysInOneTrip = policy.MaxConsecutiveDaysInOneTrip
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return cfg, err
	}

	if cfg.Holidays, err = s.ListDayWeights(KindHoliday); err != nil {
		return cfg, err
	}
	if cfg.HighDemandDays, err = s.ListDayWeights(KindHighDemand); err != nil {
		return cfg, err
	}

	var reserve []string
	if err := s.db.Model(&SoldierRecord{}).Where("is_emergency_reserve = ?", true).
		Order("position, id").Pluck("id", &reserve).Error; err != nil {
		return cfg, err
	}
	cfg.EmergencyReserve = reserve
	return cfg, nil
}

// SaveConfiguration stores the policy fields of cfg
func (s *Store) SaveConfiguration(cfg models.Configuration) error {
	policy := PolicyRecord{
		ID:                          policyID,
		StartDate:                   cfg.StartDate,
		EndDate:                     cfg.EndDate,
		SoldiersInBase:              cfg.SoldiersInBase,
		MinConsecutiveDays:          cfg.MinConsecutiveDays,
		MaxConsecutiveDaysInOneTrip: cfg.MaxConsecutiveDaysInOneTrip,
	}
	return s.db.Save(&policy).Error
}

// ListDayWeights returns the day weights of one kind by date
func (s *Store) ListDayWeights(kind string) ([]models.DayWeight, error) {
	var records []DayWeightRecord
	if err := s.db.Where("kind = ?", kind).Order("date").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]models.DayWeight, 0, len(records))
	for _, r := range records {
		out = append(out, models.DayWeight{Date: r.Date, Name: r.Name, Weight: r.Weight})
	}
	return out, nil
}

// AddDayWeight inserts or replaces a day weight
func (s *Store) AddDayWeight(kind string, w models.DayWeight) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "weight"}),
	}).Create(&DayWeightRecord{Date: w.Date, Kind: kind, Name: w.Name, Weight: w.Weight}).Error
}

// DeleteDayWeight removes a day weight
func (s *Store) DeleteDayWeight(kind, date string) error {
	res := s.db.Delete(&DayWeightRecord{}, "kind = ? AND date = ?", kind, date)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, date, ErrNotFound)
	}
	return nil
}

// SaveSnapshot stores the current schedule and its open conflicts
func (s *Store) SaveSnapshot(schedule models.Schedule, conflicts []models.Conflict, resolved int) error {
	return saveSnapshot(s.db, schedule, conflicts, resolved)
}

// SaveResolution stores the soldiers' requests and the schedule snapshot in
// one transaction; a failure leaves both as they were.
func (s *Store) SaveResolution(soldiers []*models.Soldier, schedule models.Schedule, conflicts []models.Conflict, resolved int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := saveRequests(tx, soldiers); err != nil {
			return err
		}
		return saveSnapshot(tx, schedule, conflicts, resolved)
	})
}

func saveSnapshot(db *gorm.DB, schedule models.Schedule, conflicts []models.Conflict, resolved int) error {
	return db.Save(&ScheduleSnapshot{
		ID:        snapshotID,
		Schedule:  schedule,
		Conflicts: conflicts,
		Resolved:  resolved,
	}).Error
}

// LoadSnapshot returns the stored schedule
func (s *Store) LoadSnapshot() (*ScheduleSnapshot, error) {
	var snap ScheduleSnapshot
	if err := s.db.First(&snap, snapshotID).Error; err != nil {
		return nil, notFound(err, "schedule snapshot")
	}
	return &snap, nil
}

// DeleteSnapshot drops the stored schedule
func (s *Store) DeleteSnapshot() error {
	return s.db.Delete(&ScheduleSnapshot{}, snapshotID).Error
}

// RecordRun logs a successful generate
func (s *Store) RecordRun(run *ScheduleRun) error {
	return s.db.Create(run).Error
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(limit int) ([]ScheduleRun, error) {
	var runs []ScheduleRun
	err := s.db.Order("created_at desc, id desc").Limit(limit).Find(&runs).Error
	return runs, err
}

// CountUsers returns the number of admin users
func (s *Store) CountUsers() (int64, error) {
	var count int64
	err := s.db.Model(&MasterUser{}).Count(&count).Error
	return count, err
}

// CreateUser stores an admin user
func (s *Store) CreateUser(user *MasterUser) error {
	return s.db.Create(user).Error
}

// FindUser loads an admin user by name
func (s *Store) FindUser(username string) (*MasterUser, error) {
	var user MasterUser
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &user, nil
}

// CreateAPIKey stores a new integration key
func (s *Store) CreateAPIKey(key *APIKey) error {
	return s.db.Create(key).Error
}

// ListAPIKeys returns every key
func (s *Store) ListAPIKeys() ([]APIKey, error) {
	var keys []APIKey
	err := s.db.Order("id").Find(&keys).Error
	return keys, err
}

// RevokeAPIKey deletes a key and its usage
func (s *Store) RevokeAPIKey(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key_id = ?", id).Delete(&KeyUsage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&APIKey{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("api key %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// UpdateKeyLimit changes a key's daily request limit
func (s *Store) UpdateKeyLimit(id uint, limit int) error {
	res := s.db.Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("api key %d: %w", id, ErrNotFound)
	}
	return nil
}

// TouchAPIKey finds the key, creating it for a validly signed but unknown
// key, and stamps its last use.
func (s *Store) TouchAPIKey(key, name string, now time.Time) (*APIKey, error) {
	var apiKey APIKey
	err := s.db.Where(APIKey{Key: key}).Attrs(APIKey{Name: name, KeyPreview: Preview(key), RateLimit: 10000}).
		FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, err
	}
	apiKey.LastUsed = &now
	if err := s.db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// RecordKeyUsage counts one request for the key on date and returns the day's total
func (s *Store) RecordKeyUsage(keyID uint, date string) (int, error) {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
		}),
	}).Create(&KeyUsage{KeyID: keyID, Date: date, RequestCount: 1}).Error
	if err != nil {
		return 0, err
	}
	var usage KeyUsage
	if err := s.db.Where("key_id = ? AND date = ?", keyID, date).First(&usage).Error; err != nil {
		return 0, err
	}
	return usage.RequestCount, nil
}

// KeyUsageHistory returns the last 30 days of usage for a key
func (s *Store) KeyUsageHistory(keyID uint) ([]KeyUsage, error) {
	var usage []KeyUsage
	err := s.db.Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error
	return usage, err
}

// Preview masks a key for display
func Preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}
