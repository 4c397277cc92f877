package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/pkg/models"
)

// CreateTask inserts a new task row. List and map fields are stored as JSON.
func (db *DB) CreateTask(task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusNotStarted
	}

	deps, err := marshalStrings(task.Dependencies)
	if err != nil {
		return fmt.Errorf("encode dependencies: %w", err)
	}
	blockers, err := marshalStrings(task.Blockers)
	if err != nil {
		return fmt.Errorf("encode blockers: %w", err)
	}
	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	meta, err := marshalMeta(task.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	var due interface{}
	if task.DueDate != nil {
		due = formatTime(*task.DueDate)
	}

	_, err = db.conn.Exec(`
		INSERT INTO tasks (id, title, description, type, priority, status, assigned_to,
			created_at, updated_at, due_date, dependencies, blockers,
			estimated_hours, actual_hours, tags, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.Description, string(task.Type), string(task.Priority),
		string(task.Status), nullableString(task.AssignedTo),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt), due,
		deps, blockers, task.EstimatedHours, task.ActualHours, tags, meta)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}

	return nil
}

// UpdateTask applies a partial mutation to a task row.
// Returns TASK_NOT_FOUND when the task does not exist.
func (db *DB) UpdateTask(id string, update TaskUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	set := "updated_at = ?"
	args := []interface{}{formatTime(time.Now())}

	if update.Status != nil {
		set += ", status = ?"
		args = append(args, string(*update.Status))
	}
	if update.AssignedTo != nil {
		set += ", assigned_to = ?"
		args = append(args, nullableString(*update.AssignedTo))
	}
	if update.Blockers != nil {
		encoded, err := marshalStrings(*update.Blockers)
		if err != nil {
			return fmt.Errorf("encode blockers: %w", err)
		}
		set += ", blockers = ?"
		args = append(args, encoded)
	}
	if update.ActualHours != nil {
		set += ", actual_hours = ?"
		args = append(args, *update.ActualHours)
	}
	if update.Metadata != nil {
		encoded, err := marshalMeta(*update.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		set += ", metadata = ?"
		args = append(args, encoded)
	}

	args = append(args, id)
	result, err := db.conn.Exec("UPDATE tasks SET "+set+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fault.New(fault.TaskNotFound, "task %s does not exist", id)
	}

	return nil
}

// GetTask loads one task by ID.
// Returns TASK_NOT_FOUND when the task does not exist.
func (db *DB) GetTask(id string) (*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(taskSelect+" WHERE id = ?", id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.TaskNotFound, "task %s does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	return task, nil
}

// GetTasks lists tasks matching the filter, oldest first.
func (db *DB) GetTasks(filter TaskFilter) ([]*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := taskSelect
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(filter.Priority))
	}

	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// DeleteTask removes a task row. Deleting a missing task is a no-op.
func (db *DB) DeleteTask(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec("DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

const taskSelect = `
	SELECT id, title, description, type, priority, status, assigned_to,
		created_at, updated_at, due_date, dependencies, blockers,
		estimated_hours, actual_hours, tags, metadata
	FROM tasks`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one task row, including the JSON-encoded columns.
func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var description, assignedTo, dueDate sql.NullString
	var deps, blockers, tags, meta sql.NullString
	var actualHours sql.NullFloat64
	var taskType, priority, status, createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.Title, &description, &taskType, &priority,
		&status, &assignedTo, &createdAt, &updatedAt, &dueDate,
		&deps, &blockers, &task.EstimatedHours, &actualHours, &tags, &meta)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Type = models.TaskType(taskType)
	task.Priority = models.TaskPriority(priority)
	task.Status = models.TaskStatus(status)
	task.AssignedTo = assignedTo.String
	task.ActualHours = actualHours.Float64
	task.DueDate = parseNullableTime(dueDate)

	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if task.Dependencies, err = unmarshalStrings(deps); err != nil {
		return nil, fmt.Errorf("decode dependencies: %w", err)
	}
	if task.Blockers, err = unmarshalStrings(blockers); err != nil {
		return nil, fmt.Errorf("decode blockers: %w", err)
	}
	if task.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if task.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	return &task, nil
}

// marshalStrings encodes a string slice as a JSON column value.
// Empty slices are stored as NULL.
func marshalStrings(values []string) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalStrings decodes a JSON string-array column.
func unmarshalStrings(col sql.NullString) ([]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(col.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// marshalMeta encodes a metadata map as a JSON column value.
func marshalMeta(meta map[string]string) (interface{}, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalMeta decodes a JSON object column.
func unmarshalMeta(col sql.NullString) (map[string]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(col.String), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// nullableString converts empty strings to NULL for storage.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
