// Package store persists planned trips and drivers with gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"eld_trip_planner/internal/models"
	"eld_trip_planner/internal/obs"
	"eld_trip_planner/internal/planner"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already in use")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// DB exposes the handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates every table the planner writes.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Driver{},
		&models.Trip{},
		&models.Route{},
		&models.Stop{},
		&models.DailyLog{},
		&models.DutyStatus{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// SavePlan writes the trip with its route, stops, daily logs and duty statuses in one
// transaction. A failure leaves nothing behind.
func (s *Store) SavePlan(ctx context.Context, p *planner.Plan) (err error) {
	defer obs.Time(ctx, "store.SavePlan")(&err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trip := p.Trip
		if err := tx.Omit(clause.Associations).Create(trip).Error; err != nil {
			return fmt.Errorf("create trip: %w", err)
		}

		if route := p.Route; route != nil {
			route.TripID = trip.ID
			if err := tx.Omit(clause.Associations).Create(route).Error; err != nil {
				return fmt.Errorf("create route: %w", err)
			}
			for i := range route.Stops {
				route.Stops[i].RouteID = route.ID
			}
			if len(route.Stops) > 0 {
				if err := tx.Create(&route.Stops).Error; err != nil {
					return fmt.Errorf("create stops: %w", err)
				}
			}
		}

		for i := range p.DailyLogs {
			p.DailyLogs[i].TripID = trip.ID
		}
		if len(p.DailyLogs) > 0 {
			if err := tx.Omit(clause.Associations).Create(&p.DailyLogs).Error; err != nil {
				return fmt.Errorf("create daily logs: %w", err)
			}
		}
		for i := range p.DailyLogs {
			log := &p.DailyLogs[i]
			for j := range log.DutyStatuses {
				log.DutyStatuses[j].DailyLogID = log.ID
			}
			if len(log.DutyStatuses) == 0 {
				continue
			}
			if err := tx.Create(&log.DutyStatuses).Error; err != nil {
				return fmt.Errorf("create duty statuses for %s: %w", log.Date, err)
			}
		}

		logrus.WithFields(logrus.Fields{
			"req_id":     obs.RequestID(ctx),
			"trip_id":    trip.ID,
			"stops":      len(p.Stops),
			"daily_logs": len(p.DailyLogs),
		}).Info("plan saved")
		return nil
	})
}

// "timestamp" and "date" are type keywords in Postgres, so order by quoted columns.
func orderBy(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}})
	}
}

// GetTrip loads a trip with its route, stops by time, logs by date and statuses by start.
func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.WithContext(ctx).
		Preload("Route").
		Preload("Route.Stops", orderBy("timestamp")).
		Preload("DailyLogs", orderBy("date")).
		Preload("DailyLogs.DutyStatuses", orderBy("start_time")).
		First(&trip, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get trip %s: %w", id, err)
	}
	return &trip, nil
}

// ListTrips returns one page of trips, newest first, and the total count. A nil driver
// lists every trip.
func (s *Store) ListTrips(ctx context.Context, driverID *uuid.UUID, page, pageSize int) ([]models.Trip, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 5
	}
	owned := func(db *gorm.DB) *gorm.DB {
		if driverID != nil {
			return db.Where("driver_id = ?", *driverID)
		}
		return db
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Trip{}).Scopes(owned).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count trips: %w", err)
	}

	var trips []models.Trip
	err := s.db.WithContext(ctx).Scopes(owned).
		Order("created_at DESC").
		Order("id").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&trips).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list trips: %w", err)
	}
	return trips, count, nil
}

// DeleteTrip removes a trip and everything it owns.
func (s *Store) DeleteTrip(ctx context.Context, id uuid.UUID) (err error) {
	defer obs.Time(ctx, "store.DeleteTrip")(&err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Trip{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("trip %s: %w", id, ErrNotFound)
		}

		logIDs := tx.Model(&models.DailyLog{}).Select("id").Where("trip_id = ?", id)
		routeIDs := tx.Model(&models.Route{}).Select("id").Where("trip_id = ?", id)

		steps := []struct {
			what  string
			query *gorm.DB
			model any
		}{
			{"duty statuses", tx.Where("daily_log_id IN (?)", logIDs), &models.DutyStatus{}},
			{"daily logs", tx.Where("trip_id = ?", id), &models.DailyLog{}},
			{"stops", tx.Where("route_id IN (?)", routeIDs), &models.Stop{}},
			{"route", tx.Where("trip_id = ?", id), &models.Route{}},
			{"trip", tx.Where("id = ?", id), &models.Trip{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", step.what, err)
			}
		}
		return nil
	})
}

// CreateDriver stores a new driver. The password must already be hashed.
func (s *Store) CreateDriver(ctx context.Context, d *models.Driver) error {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Driver{}).Where("email = ?", d.Email).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return ErrEmailTaken
	}

	if err := db.Create(d).Error; err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

func (s *Store) DriverByEmail(ctx context.Context, email string) (*models.Driver, error) {
	return s.driverWhere(ctx, "email = ?", email)
}

func (s *Store) DriverByID(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	return s.driverWhere(ctx, "id = ?", id)
}

func (s *Store) driverWhere(ctx context.Context, query string, arg any) (*models.Driver, error) {
	var d models.Driver
	if err := s.db.WithContext(ctx).Where(query, arg).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("driver: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return &d, nil
}
