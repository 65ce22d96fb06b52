package handler

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/vidaplan/vidaplan/internal/ctxkeys"
	"github.com/vidaplan/vidaplan/internal/model"
	"github.com/vidaplan/vidaplan/internal/repository"
	"github.com/vidaplan/vidaplan/internal/service"
	valfile "github.com/vidaplan/vidaplan/internal/validation"
)

const (
	dateLayout      = "2006-01-02"
	maxUploadMemory = 8 << 20 // 8MB in-memory before spilling to disk
)

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
	}
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.Goals(user.ID)
	if err != nil {
		slog.Error("failed to list goals", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to load goals")
		return
	}

	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	goal, err := h.goalService.ByID(user.ID, goalID)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.Error("failed to get goal", "error", err, "user_id", user.ID, "goal_id", goalID)
		writeError(w, http.StatusInternalServerError, "failed to load goal")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// Create accepts a multipart form so the inspirational image can ride along
// with the goal fields.
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	in := service.CreateGoalInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Areas:       model.AreaList(r.Form["area"]),
	}

	in.StartDate, err = time.Parse(dateLayout, r.FormValue("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	in.ExpectedCompletionDate, err = time.Parse(dateLayout, r.FormValue("expected_completion_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected_completion_date must be YYYY-MM-DD")
		return
	}

	if v := r.FormValue("expected_amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expected_amount must be a number")
			return
		}
		in.ExpectedAmount = &amount
	}

	var image multipart.File
	var header *multipart.FileHeader
	image, header, err = r.FormFile("image")
	if err == nil {
		defer func() { _ = image.Close() }()

		err = valfile.ValidateFile(header, valfile.ImageConstraints)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		image, header = nil, nil
	}

	goal, err := h.goalService.Create(user.ID, in, image, header)
	if err != nil {
		var vErrs validation.Errors
		if errors.As(err, &vErrs) {
			writeError(w, http.StatusBadRequest, vErrs.Error())
			return
		}
		slog.Error("failed to create goal", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to create goal")
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

type updateGoalRequest struct {
	Title                  *string   `json:"title"`
	Description            *string   `json:"description"`
	Area                   *[]string `json:"area"`
	StartDate              *string   `json:"startDate"`
	ExpectedCompletionDate *string   `json:"expectedCompletionDate"`
	ActualCompletionDate   *string   `json:"actualCompletionDate"`
	ExpectedAmount         *float64  `json:"expectedAmount"`
	ActualAmount           *float64  `json:"actualAmount"`
	Completed              *bool     `json:"completed"`
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	var req updateGoalRequest
	err := decodeJSON(r.Body, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := service.UpdateGoalInput{
		Title:          req.Title,
		Description:    req.Description,
		ExpectedAmount: req.ExpectedAmount,
		ActualAmount:   req.ActualAmount,
		Completed:      req.Completed,
	}

	if req.Area != nil {
		areas := model.AreaList(*req.Area)
		in.Areas = &areas
	}

	// Dates arrive as YYYY-MM-DD strings and are converted here, at the boundary
	in.StartDate, err = parseOptionalDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	in.ExpectedCompletionDate, err = parseOptionalDate(req.ExpectedCompletionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "expectedCompletionDate must be YYYY-MM-DD")
		return
	}
	in.ActualCompletionDate, err = parseOptionalDate(req.ActualCompletionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "actualCompletionDate must be YYYY-MM-DD")
		return
	}

	goal, err := h.goalService.Update(user.ID, goalID, in)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		var vErrs validation.Errors
		if errors.As(err, &vErrs) {
			writeError(w, http.StatusBadRequest, vErrs.Error())
			return
		}
		slog.Error("failed to update goal", "error", err, "user_id", user.ID, "goal_id", goalID)
		writeError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	goalID := r.PathValue("id")

	err := h.goalService.Delete(user.ID, goalID)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			writeError(w, http.StatusNotFound, "goal not found")
			return
		}
		slog.Error("failed to delete goal", "error", err, "user_id", user.ID, "goal_id", goalID)
		writeError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	goals, err := h.goalService.Goals(user.ID)
	if err != nil {
		slog.Error("failed to list goals for export", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to export goals")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=goals-export.json")
	writeJSON(w, http.StatusOK, goals)
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
