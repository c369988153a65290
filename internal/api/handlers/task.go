package handlers

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/ws"
	"taskboard/pkg/logger"
)

// Task menangani CRUD task per user.
// Semua route task berada di belakang AuthGuard; parameter userId tetap
// ada di API tetapi wajib sama dengan identitas session.
type Task struct {
	DB        *sql.DB
	Cache     *cache.TaskCache
	Hub       *ws.Hub
	UploadDir string
}

const taskColumns = "id, user_id, title, completed, start_time, end_time, created_at, completed_at, image_path"

func scanTask(row interface{ Scan(...interface{}) error }) (models.Task, error) {
	var task models.Task
	var startTime, endTime, completedAt sql.NullTime
	var imagePath sql.NullString
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Completed,
		&startTime, &endTime, &task.CreatedAt, &completedAt, &imagePath)
	if err != nil {
		return models.Task{}, err
	}
	if startTime.Valid {
		task.StartTime = &startTime.Time
	}
	if endTime.Valid {
		task.EndTime = &endTime.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if imagePath.Valid {
		task.ImagePath = &imagePath.String
	}
	return task, nil
}

// parseTimestamp menerima timestamp RFC3339; string kosong berarti nil.
func parseTimestamp(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// sessionMatches membandingkan userId eksplisit dengan identitas session.
func sessionMatches(c *fiber.Ctx, userID string) bool {
	sessionID, _ := c.Locals("userID").(string)
	return sessionID != "" && sessionID == userID
}

func (h *Task) List(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "userId query param is required.",
		})
	}
	if !sessionMatches(c, userID) {
		logger.SecurityLogger.Warn("List tasks for foreign user",
			zap.String("requested", userID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
		})
	}

	// Coba cache dulu; miss berarti baca database.
	if tasks, ok := h.Cache.GetList(c.Context(), userID); ok {
		return c.JSON(tasks)
	}

	rows, err := h.DB.Query(
		fmt.Sprintf("SELECT %s FROM tasks WHERE user_id = $1 ORDER BY created_at DESC", taskColumns),
		userID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch tasks.",
		})
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to fetch tasks.",
			})
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch tasks.",
		})
	}

	h.Cache.SetList(c.Context(), userID, tasks)
	return c.JSON(tasks)
}

func (h *Task) Create(c *fiber.Ctx) error {
	title := c.FormValue("title")
	userID := c.FormValue("userId")
	if title == "" || userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Title and userId are required.",
		})
	}
	if !sessionMatches(c, userID) {
		logger.SecurityLogger.Warn("Create task for foreign user",
			zap.String("requested", userID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
		})
	}

	startTime, err := parseTimestamp(c.FormValue("startTime"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid startTime.",
		})
	}
	endTime, err := parseTimestamp(c.FormValue("endTime"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid endTime.",
		})
	}

	now := time.Now()
	task := models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Completed: c.FormValue("completed") == "true",
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: now,
	}
	// completedAt mengikuti completed pada setiap create/update.
	if task.Completed {
		task.CompletedAt = &now
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		imagePath, err := h.saveImage(c, file)
		if err != nil {
			logger.ErrorLogger.Error("Error saving task image", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		task.ImagePath = &imagePath
	}

	_, err = h.DB.Exec(
		"INSERT INTO tasks (id, user_id, title, completed, start_time, end_time, created_at, completed_at, image_path) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		task.ID, task.UserID, task.Title, task.Completed,
		task.StartTime, task.EndTime, task.CreatedAt, task.CompletedAt, task.ImagePath,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create task.",
		})
	}

	h.Cache.Invalidate(c.Context(), userID)
	h.Hub.Publish(userID, ws.Event{Type: "task_created", Data: task})

	logger.AuditLogger.Info("Task created", zap.String("taskID", task.ID))
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *Task) Update(c *fiber.Ctx) error {
	taskID := c.Params("id")
	task, err := h.findTask(taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Task not found.",
			})
		}
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update task.",
		})
	}
	if !sessionMatches(c, task.UserID) {
		logger.SecurityLogger.Warn("Update of foreign task", zap.String("taskID", taskID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Bad request",
		})
	}

	// Partial replace: hanya field yang hadir di form yang diganti.
	if title, ok := formValue(form.Value, "title"); ok {
		task.Title = title
	}
	if value, ok := formValue(form.Value, "startTime"); ok {
		startTime, err := parseTimestamp(value)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid startTime.",
			})
		}
		task.StartTime = startTime
	}
	if value, ok := formValue(form.Value, "endTime"); ok {
		endTime, err := parseTimestamp(value)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid endTime.",
			})
		}
		task.EndTime = endTime
	}
	if value, ok := formValue(form.Value, "completed"); ok {
		task.Completed = value == "true"
		if task.Completed {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if file, err := c.FormFile("image"); err == nil && file != nil {
		imagePath, err := h.saveImage(c, file)
		if err != nil {
			logger.ErrorLogger.Error("Error saving task image", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		}
		task.ImagePath = &imagePath
	}

	_, err = h.DB.Exec(
		"UPDATE tasks SET title = $1, completed = $2, start_time = $3, end_time = $4, completed_at = $5, image_path = $6 WHERE id = $7",
		task.Title, task.Completed, task.StartTime, task.EndTime, task.CompletedAt, task.ImagePath, task.ID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update task.",
		})
	}

	h.Cache.Invalidate(c.Context(), task.UserID)
	h.Hub.Publish(task.UserID, ws.Event{Type: "task_updated", Data: task})

	logger.AuditLogger.Info("Task updated", zap.String("taskID", task.ID))
	return c.JSON(task)
}

func (h *Task) Delete(c *fiber.Ctx) error {
	taskID := c.Params("id")
	task, err := h.findTask(taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Task not found.",
			})
		}
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete task.",
		})
	}
	if !sessionMatches(c, task.UserID) {
		logger.SecurityLogger.Warn("Delete of foreign task", zap.String("taskID", taskID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
		})
	}

	if _, err := h.DB.Exec("DELETE FROM tasks WHERE id = $1", task.ID); err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete task.",
		})
	}

	h.Cache.Invalidate(c.Context(), task.UserID)
	h.Hub.Publish(task.UserID, ws.Event{Type: "task_deleted", Data: fiber.Map{"id": task.ID}})

	logger.AuditLogger.Info("Task deleted", zap.String("taskID", task.ID))
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully.",
	})
}

func (h *Task) ClearAll(c *fiber.Ctx) error {
	type ClearRequest struct {
		UserID string `json:"userId"`
	}
	var req ClearRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in clear tasks", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Bad request",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "userId is required.",
		})
	}
	if !sessionMatches(c, req.UserID) {
		logger.SecurityLogger.Warn("Clear tasks for foreign user",
			zap.String("requested", req.UserID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
		})
	}

	if _, err := h.DB.Exec("DELETE FROM tasks WHERE user_id = $1", req.UserID); err != nil {
		logger.ErrorLogger.Error("Error clearing tasks", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to clear tasks.",
		})
	}

	h.Cache.Invalidate(c.Context(), req.UserID)
	h.Hub.Publish(req.UserID, ws.Event{Type: "tasks_cleared"})

	logger.AuditLogger.Info("Tasks cleared", zap.String("userID", req.UserID))
	return c.JSON(fiber.Map{
		"message": "All tasks cleared for user.",
	})
}

// findTask mengambil satu task; id yang bukan uuid diperlakukan not found.
func (h *Task) findTask(taskID string) (models.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return models.Task{}, sql.ErrNoRows
	}
	row := h.DB.QueryRow(
		fmt.Sprintf("SELECT %s FROM tasks WHERE id = $1", taskColumns),
		taskID,
	)
	return scanTask(row)
}

func formValue(values map[string][]string, key string) (string, bool) {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}
