package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

type appointmentModel struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	AdvisorID       int64      `gorm:"column:advisor_id;index:idx_appointments_advisor_start"`
	ClientID        int64      `gorm:"column:client_id;index"`
	StartTime       time.Time  `gorm:"column:start_time;index:idx_appointments_advisor_start"`
	EndTime         time.Time  `gorm:"column:end_time"`
	DurationMinutes int        `gorm:"column:duration_minutes"`
	Notes           string     `gorm:"column:notes"`
	Status          string     `gorm:"column:status;index"`
	ReminderSentAt  *time.Time `gorm:"column:reminder_sent_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (appointmentModel) TableName() string { return "appointments" }

type unavailabilityModel struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	AdvisorID int64     `gorm:"column:advisor_id;index:idx_unavailability_advisor_start"`
	StartTime time.Time `gorm:"column:start_time;index:idx_unavailability_advisor_start"`
	EndTime   time.Time `gorm:"column:end_time"`
	Reason    string    `gorm:"column:reason"`
	Notes     string    `gorm:"column:notes"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
}

func (unavailabilityModel) TableName() string { return "advisor_unavailability" }

// GormStore implements Store on top of gorm. On Postgres, WithinAdvisorTx
// takes a transaction-scoped advisory lock keyed by advisor id, and reads of
// single appointments inside it lock the row.
type GormStore struct {
	db        *gorm.DB
	forUpdate bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) DB() *gorm.DB {
	return r.db
}

// AutoMigrate creates the tables for dialects without SQL migrations (SQLite).
func (r *GormStore) AutoMigrate() error {
	return r.db.AutoMigrate(&appointmentModel{}, &unavailabilityModel{})
}

func (r *GormStore) WithinAdvisorTx(ctx context.Context, advisorID int64, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisorID).Error; err != nil {
				return fmt.Errorf("appointment: advisory lock: %w", err)
			}
		}
		return fn(&GormStore{db: tx, forUpdate: true})
	})
}

func (r *GormStore) AppointmentsForAdvisor(ctx context.Context, advisorID int64, from, to time.Time, excludeCancelled bool) ([]Appointment, error) {
	q := r.db.WithContext(ctx).
		Where("advisor_id = ? AND start_time < ? AND end_time > ?", advisorID, dbTime(to), dbTime(from))
	if excludeCancelled {
		q = q.Where("status <> ?", string(StatusCancelled))
	}

	var rows []appointmentModel
	if err := q.Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("appointment: list for advisor: %w", err)
	}
	window := rangeOf(from, to)
	out := make([]Appointment, 0, len(rows))
	for _, m := range rows {
		a, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		if a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *GormStore) UnavailabilityForAdvisor(ctx context.Context, advisorID int64, from, to time.Time) ([]Unavailability, error) {
	var rows []unavailabilityModel
	err := r.db.WithContext(ctx).
		Where("advisor_id = ? AND start_time < ? AND end_time > ?", advisorID, dbTime(to), dbTime(from)).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("appointment: list unavailability: %w", err)
	}
	window := rangeOf(from, to)
	out := make([]Unavailability, 0, len(rows))
	for _, m := range rows {
		u, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		if u.Interval().Overlaps(window) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *GormStore) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	q := r.db.WithContext(ctx)
	if r.forUpdate && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m appointmentModel
	err := q.Where("id = ?", id.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: get: %w", err)
	}
	a, err := m.toDomain()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAppointment inserts a when it has no id yet and updates it otherwise.
func (r *GormStore) SaveAppointment(ctx context.Context, a *Appointment) error {
	db := r.db.WithContext(ctx)
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
		m := toAppointmentModel(a)
		if err := db.Create(&m).Error; err != nil {
			return mapWriteError("create", err)
		}
		return nil
	}
	m := toAppointmentModel(a)
	res := db.Model(&appointmentModel{}).Where("id = ?", m.ID).Select("*").Updates(&m)
	if res.Error != nil {
		return mapWriteError("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormStore) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	q := r.db.WithContext(ctx).Model(&appointmentModel{})
	if f.AdvisorID != 0 {
		q = q.Where("advisor_id = ?", f.AdvisorID)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("end_time > ?", dbTime(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("start_time < ?", dbTime(f.To))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []appointmentModel
	if err := q.Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("appointment: list: %w", err)
	}
	out := make([]Appointment, 0, len(rows))
	for _, m := range rows {
		a, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *GormStore) GetUnavailability(ctx context.Context, id uuid.UUID) (*Unavailability, error) {
	var m unavailabilityModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointment: get unavailability: %w", err)
	}
	u, err := m.toDomain()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUnavailability only inserts; windows are never edited in place.
func (r *GormStore) SaveUnavailability(ctx context.Context, u *Unavailability) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m := unavailabilityModel{
		ID:        u.ID.String(),
		AdvisorID: u.AdvisorID,
		StartTime: dbTime(u.Start),
		EndTime:   dbTime(u.End),
		Reason:    string(u.Reason),
		Notes:     u.Notes,
		CreatedAt: dbTime(u.CreatedAt),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("appointment: create unavailability: %w", err)
	}
	return nil
}

func (r *GormStore) DeleteUnavailability(ctx context.Context, advisorID int64, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND advisor_id = ?", id.String(), advisorID).
		Delete(&unavailabilityModel{})
	if res.Error != nil {
		return fmt.Errorf("appointment: delete unavailability: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DueForReminder lists confirmed appointments starting in (from, to] without a reminder.
func (r *GormStore) DueForReminder(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	var rows []appointmentModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND start_time > ? AND start_time <= ?",
			string(StatusConfirmed), dbTime(from), dbTime(to)).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("appointment: due for reminder: %w", err)
	}
	out := make([]Appointment, 0, len(rows))
	for _, m := range rows {
		a, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *GormStore) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&appointmentModel{}).
		Where("id = ? AND reminder_sent_at IS NULL", id.String()).
		Update("reminder_sent_at", dbTime(at))
	if res.Error != nil {
		return fmt.Errorf("appointment: mark reminder sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toAppointmentModel(a *Appointment) appointmentModel {
	m := appointmentModel{
		ID:              a.ID.String(),
		AdvisorID:       a.AdvisorID,
		ClientID:        a.ClientID,
		StartTime:       dbTime(a.Start),
		EndTime:         dbTime(a.End()),
		DurationMinutes: a.DurationMinutes,
		Notes:           a.Notes,
		Status:          string(a.Status),
		CreatedAt:       dbTime(a.CreatedAt),
		UpdatedAt:       dbTime(a.UpdatedAt),
	}
	if a.ReminderSentAt != nil {
		t := dbTime(*a.ReminderSentAt)
		m.ReminderSentAt = &t
	}
	return m
}

func (m appointmentModel) toDomain() (Appointment, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointment: bad id %q: %w", m.ID, err)
	}
	a := Appointment{
		ID:              id,
		AdvisorID:       m.AdvisorID,
		ClientID:        m.ClientID,
		Start:           m.StartTime.UTC(),
		DurationMinutes: m.DurationMinutes,
		Notes:           m.Notes,
		Status:          Status(m.Status),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.ReminderSentAt != nil {
		t := m.ReminderSentAt.UTC()
		a.ReminderSentAt = &t
	}
	return a, nil
}

func (m unavailabilityModel) toDomain() (Unavailability, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return Unavailability{}, fmt.Errorf("appointment: bad unavailability id %q: %w", m.ID, err)
	}
	return Unavailability{
		ID:        id,
		AdvisorID: m.AdvisorID,
		Start:     m.StartTime.UTC(),
		End:       m.EndTime.UTC(),
		Reason:    Reason(m.Reason),
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// dbTime stores instants in UTC at second precision so that SQLite's textual
// time columns compare in chronological order.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation, pgUniqueViolation:
			return conflict(ReasonSlotTaken)
		}
	}
	return fmt.Errorf("appointment: %s: %w", op, err)
}
