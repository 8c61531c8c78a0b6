package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("record not found")

// SoldierRecord represents the soldiers table
type SoldierRecord struct {
	ID                 string          `gorm:"primaryKey" json:"id"`
	Position           int             `gorm:"not null;default:0" json:"position"`
	Name               string          `gorm:"not null" json:"name"`
	Role               string          `gorm:"not null" json:"role"`
	Phone              string          `json:"phone"`
	Email              string          `json:"email"`
	DistanceFromBase   float64         `json:"distance_from_base"`
	IsEmergencyReserve bool            `gorm:"default:false" json:"is_emergency_reserve"`
	HistoricalHomeDays int             `gorm:"default:0" json:"historical_home_days"`
	Requests           []RequestRecord `gorm:"foreignKey:SoldierID;constraint:OnDelete:CASCADE" json:"requests"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// RequestRecord represents the leave_requests table
type RequestRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	SoldierID string    `gorm:"index;not null" json:"soldier_id"`
	Date      string    `gorm:"not null" json:"date"`
	Priority  string    `gorm:"not null" json:"priority"`
	Reason    string    `json:"reason"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (RequestRecord) TableName() string { return "leave_requests" }

// PolicyRecord holds the single saved scheduling policy
type PolicyRecord struct {
	ID                          uint      `gorm:"primaryKey" json:"id"`
	StartDate                   string    `json:"start_date"`
	EndDate                     string    `json:"end_date"`
	SoldiersInBase              int       `json:"soldiers_in_base"`
	MinConsecutiveDays          int       `json:"min_consecutive_days"`
	MaxConsecutiveDaysInOneTrip int       `json:"max_consecutive_days_in_one_trip"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// Day weight kinds
const (
	KindHoliday    = "holiday"
	KindHighDemand = "high_demand"
)

// DayWeightRecord represents the day_weights table
type DayWeightRecord struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	Date   string  `gorm:"uniqueIndex:idx_date_kind;not null" json:"date"`
	Kind   string  `gorm:"uniqueIndex:idx_date_kind;not null" json:"kind"`
	Name   string  `json:"name"`
	Weight float64 `gorm:"not null" json:"weight"`
}

// ScheduleSnapshot keeps the current schedule across restarts
type ScheduleSnapshot struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Schedule  models.Schedule   `gorm:"type:text;serializer:json" json:"schedule"`
	Conflicts []models.Conflict `gorm:"type:text;serializer:json" json:"conflicts"`
	Resolved  int               `json:"resolved"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ScheduleRun is one successful generate call
type ScheduleRun struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Days          int       `json:"days"`
	Soldiers      int       `json:"soldiers"`
	FairnessScore float64   `json:"fairness_score"`
	Conflicts     int       `json:"conflicts"`
	Valid         bool      `json:"valid"`
	TriggeredBy   string    `json:"triggered_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// KeyUsage counts daily requests per API key
type KeyUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store wraps the database handle
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres when databaseURL is set and to the SQLite file at
// dataPath otherwise, then migrates the schema.
func Open(databaseURL, dataPath string) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	if databaseURL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
			Logger:      logger.Default.LogMode(logger.Silent),
		})
	} else {
		db, err = gorm.Open(sqlite.Open(dataPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return New(db)
}

// New migrates the schema on an open connection
func New(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(
		&SoldierRecord{}, &RequestRecord{}, &PolicyRecord{}, &DayWeightRecord{},
		&ScheduleSnapshot{}, &ScheduleRun{}, &APIKey{}, &KeyUsage{}, &MasterUser{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
