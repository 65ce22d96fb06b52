package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/vidaplan/vidaplan/internal/model"
)

// ErrGoalNotFound covers both a genuinely absent record and a record owned by
// another user. The two cases are deliberately indistinguishable so a caller
// can never probe for the existence of someone else's goal.
var ErrGoalNotFound = errors.New("goal not found")

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(userID, goalID string) (*model.Goal, error)
	Goals(userID string) ([]*model.Goal, error)
	Update(goal *model.Goal) error
	Delete(userID, goalID string) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, title, description, areas, start_date, expected_completion_date,
	                             actual_completion_date, expected_amount, actual_amount, image_url, completed,
	                             created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.Areas,
		goal.StartDate,
		goal.ExpectedCompletionDate,
		goal.ActualCompletionDate,
		goal.ExpectedAmount,
		goal.ActualAmount,
		goal.ImageURL,
		goal.Completed,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.Get(goal, query, goalID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}

	return goal, err
}

// Goals returns every goal owned by the user, in store order. The query is a
// plain owner-equality filter so the table only needs the user_id index;
// ordering is applied by the caller.
func (r *goalRepository) Goals(userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1`

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) Update(goal *model.Goal) error {
	query := `UPDATE goals
	          SET title = $1, description = $2, areas = $3, start_date = $4, expected_completion_date = $5,
	              actual_completion_date = $6, expected_amount = $7, actual_amount = $8, image_url = $9,
	              completed = $10, updated_at = $11
	          WHERE id = $12 AND user_id = $13`

	result, err := r.db.Exec(query,
		goal.Title,
		goal.Description,
		goal.Areas,
		goal.StartDate,
		goal.ExpectedCompletionDate,
		goal.ActualCompletionDate,
		goal.ExpectedAmount,
		goal.ActualAmount,
		goal.ImageURL,
		goal.Completed,
		goal.UpdatedAt,
		goal.ID,
		goal.UserID,
	)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

func (r *goalRepository) Delete(userID, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(query, goalID, userID)

	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}
