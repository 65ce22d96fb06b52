package service

import (
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/vidaplan/vidaplan/internal/model"
	"github.com/vidaplan/vidaplan/internal/repository"
	"github.com/vidaplan/vidaplan/internal/storage"
)

// ErrUnauthenticated is returned when a goal operation is attempted without a
// caller identity.
var ErrUnauthenticated = errors.New("not authenticated")

// CreateGoalInput carries the fields of a new goal. The image upload travels
// separately because it goes to blob storage, not the document write.
type CreateGoalInput struct {
	Title                  string
	Description            string
	Areas                  model.AreaList
	StartDate              time.Time
	ExpectedCompletionDate time.Time
	ExpectedAmount         *float64
}

// Validate checks field-level rules. An empty area set is accepted here: the
// UI warns about it, the access layer does not reject it.
func (in CreateGoalInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
		validation.Field(&in.Areas, validation.Each(validation.In(
			model.AreaWealth, model.AreaHealth, model.AreaRelationships, model.AreaSoul))),
		validation.Field(&in.StartDate, validation.Required),
		validation.Field(&in.ExpectedCompletionDate, validation.Required),
		validation.Field(&in.ExpectedAmount, validation.Min(0.0)),
	)
}

// UpdateGoalInput is a partial update: nil fields are left unchanged.
type UpdateGoalInput struct {
	Title                  *string
	Description            *string
	Areas                  *model.AreaList
	StartDate              *time.Time
	ExpectedCompletionDate *time.Time
	ActualCompletionDate   *time.Time
	ExpectedAmount         *float64
	ActualAmount           *float64
	Completed              *bool
}

func (in UpdateGoalInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Length(0, 5000)),
		validation.Field(&in.Areas, validation.Each(validation.In(
			model.AreaWealth, model.AreaHealth, model.AreaRelationships, model.AreaSoul))),
		validation.Field(&in.ExpectedAmount, validation.Min(0.0)),
		validation.Field(&in.ActualAmount, validation.Min(0.0)),
	)
}

// AreaStat is a per-area goal count for the dashboard.
type AreaStat struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

// GoalStats summarizes a user's goals.
type GoalStats struct {
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Areas     []AreaStat `json:"areas"`
}

type GoalService struct {
	repo    repository.GoalRepository
	storage storage.Storage
}

func NewGoalService(repo repository.GoalRepository, storage storage.Storage) *GoalService {
	return &GoalService{
		repo:    repo,
		storage: storage,
	}
}

// Create validates the input, uploads the optional image, then writes the goal
// record. If the record insert fails after the image upload succeeded, the
// uploaded blob is left in place.
func (s *GoalService) Create(userID string, in CreateGoalInput, image multipart.File, header *multipart.FileHeader) (*model.Goal, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	err := in.Validate()
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if image != nil && header != nil {
		url, err := s.uploadImage(userID, image, header)
		if err != nil {
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}
		imageURL = &url
	}

	now := time.Now()
	goal := &model.Goal{
		ID:                     uuid.New().String(),
		UserID:                 userID,
		Title:                  in.Title,
		Description:            in.Description,
		Areas:                  in.Areas,
		StartDate:              in.StartDate,
		ExpectedCompletionDate: in.ExpectedCompletionDate,
		ExpectedAmount:         in.ExpectedAmount,
		ImageURL:               imageURL,
		Completed:              false,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err = s.repo.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goal, nil
}

// uploadImage stores the image under a per-user prefix with a millisecond
// discriminator so repeated uploads of the same filename never collide.
func (s *GoalService) uploadImage(userID string, image multipart.File, header *multipart.FileHeader) (string, error) {
	path := fmt.Sprintf("goals/%s/%d_%s", userID, time.Now().UnixMilli(), header.Filename)

	err := s.storage.Save(path, image)
	if err != nil {
		return "", err
	}

	return s.storage.URL(path), nil
}

func (s *GoalService) ByID(userID, goalID string) (*model.Goal, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.ByID(userID, goalID)
}

// Goals returns the caller's goals, newest first. An unauthenticated caller
// gets an empty list rather than an error.
func (s *GoalService) Goals(userID string) ([]*model.Goal, error) {
	if userID == "" {
		return []*model.Goal{}, nil
	}

	goals, err := s.repo.Goals(userID)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []*model.Goal{}
	}

	// The store query is a plain owner filter; ordering happens here
	sort.Slice(goals, func(i, j int) bool {
		return goals[i].CreatedAt.After(goals[j].CreatedAt)
	})

	return goals, nil
}

// Update applies a partial update. The ownership check and the not-found case
// surface as the same repository.ErrGoalNotFound.
func (s *GoalService) Update(userID, goalID string, in UpdateGoalInput) (*model.Goal, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	err := in.Validate()
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		goal.Title = *in.Title
	}
	if in.Description != nil {
		goal.Description = *in.Description
	}
	if in.Areas != nil {
		goal.Areas = *in.Areas
	}
	if in.StartDate != nil {
		goal.StartDate = *in.StartDate
	}
	if in.ExpectedCompletionDate != nil {
		goal.ExpectedCompletionDate = *in.ExpectedCompletionDate
	}
	if in.ActualCompletionDate != nil {
		goal.ActualCompletionDate = in.ActualCompletionDate
	}
	if in.ExpectedAmount != nil {
		goal.ExpectedAmount = in.ExpectedAmount
	}
	if in.ActualAmount != nil {
		goal.ActualAmount = in.ActualAmount
	}
	if in.Completed != nil {
		goal.Completed = *in.Completed
	}
	goal.UpdatedAt = time.Now()

	err = s.repo.Update(goal)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (s *GoalService) Delete(userID, goalID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	// Guard: the owner-scoped lookup covers both absence and foreign ownership
	_, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return err
	}

	return s.repo.Delete(userID, goalID)
}

// Stats computes dashboard numbers from the caller's goals.
func (s *GoalService) Stats(userID string) (*GoalStats, error) {
	goals, err := s.Goals(userID)
	if err != nil {
		return nil, err
	}

	stats := &GoalStats{Total: len(goals)}
	counts := make(map[string]int)
	for _, g := range goals {
		if g.Completed {
			stats.Completed++
		}
		for _, area := range g.Areas {
			counts[area]++
		}
	}

	for _, area := range model.Areas {
		stats.Areas = append(stats.Areas, AreaStat{Area: area, Count: counts[area]})
	}

	return stats, nil
}
