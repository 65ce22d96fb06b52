package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidaplan/vidaplan/internal/db"
	"github.com/vidaplan/vidaplan/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// A named shared-cache DSN so every pooled connection sees the same
	// in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	return database
}

func newTestUser(t *testing.T, database *sqlx.DB, email string) *model.User {
	t.Helper()

	user := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now(),
	}
	err := NewUserRepository(database).Create(user)
	require.NoError(t, err)

	return user
}

func newTestGoal(userID, title string, createdAt time.Time) *model.Goal {
	now := time.Now()
	return &model.Goal{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		Title:                  title,
		Areas:                  model.AreaList{model.AreaHealth},
		StartDate:              now,
		ExpectedCompletionDate: now.AddDate(1, 0, 0),
		CreatedAt:              createdAt,
		UpdatedAt:              createdAt,
	}
}

func TestGoalRepository_CreateAndByID(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	user := newTestUser(t, database, "owner@example.com")

	amount := 5000.0
	goal := newTestGoal(user.ID, "Emergency fund", time.Now())
	goal.Description = "Six months of expenses"
	goal.Areas = model.AreaList{model.AreaWealth, model.AreaSoul}
	goal.ExpectedAmount = &amount

	err := repo.Create(goal)
	require.NoError(t, err)

	got, err := repo.ByID(user.ID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, got.ID)
	assert.Equal(t, "Emergency fund", got.Title)
	assert.Equal(t, "Six months of expenses", got.Description)
	assert.Equal(t, model.AreaList{model.AreaWealth, model.AreaSoul}, got.Areas)
	require.NotNil(t, got.ExpectedAmount)
	assert.Equal(t, 5000.0, *got.ExpectedAmount)
	assert.Nil(t, got.ActualAmount)
	assert.Nil(t, got.ActualCompletionDate)
	assert.False(t, got.Completed)
}

func TestGoalRepository_ByID_OtherUsersGoalIsNotFound(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	owner := newTestUser(t, database, "owner@example.com")
	stranger := newTestUser(t, database, "stranger@example.com")

	goal := newTestGoal(owner.ID, "Run a marathon", time.Now())
	require.NoError(t, repo.Create(goal))

	// A foreign-owned goal and a missing goal must be indistinguishable.
	_, err := repo.ByID(stranger.ID, goal.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	_, err = repo.ByID(stranger.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestGoalRepository_Goals_OnlyOwnRows(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	alice := newTestUser(t, database, "alice@example.com")
	bob := newTestUser(t, database, "bob@example.com")

	require.NoError(t, repo.Create(newTestGoal(alice.ID, "Meditate daily", time.Now())))
	require.NoError(t, repo.Create(newTestGoal(alice.ID, "Call parents weekly", time.Now())))
	require.NoError(t, repo.Create(newTestGoal(bob.ID, "Learn guitar", time.Now())))

	goals, err := repo.Goals(alice.ID)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	for _, g := range goals {
		assert.Equal(t, alice.ID, g.UserID)
	}
}

func TestGoalRepository_Goals_NoRows(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	user := newTestUser(t, database, "empty@example.com")

	goals, err := repo.Goals(user.ID)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestGoalRepository_Update(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	user := newTestUser(t, database, "owner@example.com")

	goal := newTestGoal(user.ID, "Read 12 books", time.Now())
	require.NoError(t, repo.Create(goal))

	done := time.Now()
	goal.Title = "Read 24 books"
	goal.Completed = true
	goal.ActualCompletionDate = &done
	goal.UpdatedAt = time.Now()

	err := repo.Update(goal)
	require.NoError(t, err)

	got, err := repo.ByID(user.ID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read 24 books", got.Title)
	assert.True(t, got.Completed)
	require.NotNil(t, got.ActualCompletionDate)
}

func TestGoalRepository_Update_OtherUsersGoalIsNotFound(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	owner := newTestUser(t, database, "owner@example.com")
	stranger := newTestUser(t, database, "stranger@example.com")

	goal := newTestGoal(owner.ID, "Save for a house", time.Now())
	require.NoError(t, repo.Create(goal))

	hijacked := *goal
	hijacked.UserID = stranger.ID
	hijacked.Title = "Hijacked"

	err := repo.Update(&hijacked)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	// Original row untouched.
	got, err := repo.ByID(owner.ID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Save for a house", got.Title)
}

func TestGoalRepository_Delete(t *testing.T) {
	database := newTestDB(t)
	repo := NewGoalRepository(database)
	owner := newTestUser(t, database, "owner@example.com")
	stranger := newTestUser(t, database, "stranger@example.com")

	goal := newTestGoal(owner.ID, "Quit sugar", time.Now())
	require.NoError(t, repo.Create(goal))

	// Someone else cannot delete it.
	err := repo.Delete(stranger.ID, goal.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	err = repo.Delete(owner.ID, goal.ID)
	require.NoError(t, err)

	_, err = repo.ByID(owner.ID, goal.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)

	// Deleting again reports not found.
	err = repo.Delete(owner.ID, goal.ID)
	assert.ErrorIs(t, err, ErrGoalNotFound)
}
