package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadRepository defines the interface for thread data access
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetByID(ctx context.Context, id uint) (*models.Thread, error)
	GetContext(ctx context.Context, id uint) (*models.ThreadContext, error)
	FindActiveForContact(ctx context.Context, contactID uint) (*models.Thread, error)
	UpdateStatus(ctx context.Context, id uint, status models.ThreadStatus) error
	List(ctx context.Context, scope access.Scope) ([]models.ThreadContext, error)
	CountByStatus(ctx context.Context, scope access.Scope, status models.ThreadStatus) (int64, error)
}

// threadRepository implements ThreadRepository using GORM
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new ThreadRepository instance
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

const threadContextColumns = `
	threads.id AS thread_id,
	threads.initial_subject,
	threads.status,
	threads.created_at,
	contacts.id AS contact_id,
	contacts.email AS contact_email,
	units.id AS unit_id,
	units.number AS unit_number,
	units.block AS unit_block,
	units.owner_name,
	condominiums.id AS condominium_id,
	condominiums.name AS condominium_name,
	condominiums.portfolio`

// Create creates a new thread
func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// GetByID retrieves a thread by its ID
func (r *threadRepository) GetByID(ctx context.Context, id uint) (*models.Thread, error) {
	var thread models.Thread
	result := r.db.WithContext(ctx).First(&thread, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread by ID: %w", result.Error)
	}
	return &thread, nil
}

// GetContext retrieves a thread joined with its contact, unit and condominium
func (r *threadRepository) GetContext(ctx context.Context, id uint) (*models.ThreadContext, error) {
	var rows []models.ThreadContext
	result := r.db.WithContext(ctx).
		Table("threads").
		Select(threadContextColumns).
		Joins(threadOwnerJoins).
		Where("threads.id = ?", id).
		Limit(1).
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get thread context: %w", result.Error)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// FindActiveForContact returns the contact's most recent thread that is not closed
func (r *threadRepository) FindActiveForContact(ctx context.Context, contactID uint) (*models.Thread, error) {
	var thread models.Thread
	result := r.db.WithContext(ctx).
		Where("contact_id = ? AND status <> ?", contactID, models.ThreadStatusClosed).
		Order("created_at DESC").
		Order("id DESC").
		First(&thread)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active thread: %w", result.Error)
	}
	return &thread, nil
}

// UpdateStatus sets a thread's status
func (r *threadRepository) UpdateStatus(ctx context.Context, id uint, status models.ThreadStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Thread{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update thread status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// answeredFirst is a single ORDER BY clause; chained Order calls would
// merge and drop the CASE expression
var answeredFirst = clause.OrderBy{Expression: clause.Expr{
	SQL:  "CASE WHEN threads.status = ? THEN 0 ELSE 1 END, threads.created_at DESC, threads.id DESC",
	Vars: []any{models.ThreadStatusAnswered},
}}

// List retrieves the threads visible in scope, answered ones first, then newest first
func (r *threadRepository) List(ctx context.Context, scope access.Scope) ([]models.ThreadContext, error) {
	var rows []models.ThreadContext
	q := r.db.WithContext(ctx).
		Table("threads").
		Select(threadContextColumns).
		Joins(threadOwnerJoins)
	result := withScope(q, scope).
		Order(answeredFirst).
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list threads: %w", result.Error)
	}
	return rows, nil
}

// CountByStatus counts the threads visible in scope that are in status
func (r *threadRepository) CountByStatus(ctx context.Context, scope access.Scope, status models.ThreadStatus) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Joins(threadOwnerJoins).
		Where("threads.status = ?", status)
	if err := withScope(q, scope).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return count, nil
}
