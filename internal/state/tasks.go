package state

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/model"
)

var taskFields = []string{"title", "description", "dueDate", "priority", "assigneeId"}

// Tasks returns the tasks visible to ac, earliest due date first with
// undated tasks last.
func (a *App) Tasks(ac auth.AuthContext) []model.Task {
	tasks := auth.VisibleTasks(ac, a.tasks.Items())
	slices.SortStableFunc(tasks, func(x, y model.Task) int {
		switch {
		case x.DueDate == y.DueDate:
			return x.CreatedAt.Compare(y.CreatedAt)
		case x.DueDate == "":
			return 1
		case y.DueDate == "":
			return -1
		}
		return strings.Compare(x.DueDate, y.DueDate)
	})
	return tasks
}

// TasksByStatus groups the visible tasks into board columns. Every column
// is present, empty or not.
func (a *App) TasksByStatus(ac auth.AuthContext) map[model.TaskStatus][]model.Task {
	board := map[model.TaskStatus][]model.Task{
		model.StatusTodo:       {},
		model.StatusInProgress: {},
		model.StatusDone:       {},
	}
	for _, t := range a.Tasks(ac) {
		board[t.Status] = append(board[t.Status], t)
	}
	return board
}

// TasksForUser returns the visible tasks assigned to userID.
func (a *App) TasksForUser(ac auth.AuthContext, userID string) []model.Task {
	var out []model.Task
	for _, t := range a.Tasks(ac) {
		if t.AssigneeID == userID {
			out = append(out, t)
		}
	}
	return out
}

// OverdueTasks returns the visible unfinished tasks due before today.
func (a *App) OverdueTasks(ac auth.AuthContext) []model.Task {
	today := a.today()
	var out []model.Task
	for _, t := range a.Tasks(ac) {
		if t.Overdue(today) {
			out = append(out, t)
		}
	}
	return out
}

func (a *App) checkAssignee(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := a.Profile(id); !ok {
		return &model.ValidationError{Field: "assigneeId", Message: "no such profile"}
	}
	return nil
}

func (a *App) AddTask(ctx context.Context, ac auth.AuthContext, t model.Task) (model.Task, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Task{}, fmt.Errorf("%w: only admins and parents can add tasks", ErrForbidden)
	}
	if err := a.checkAssignee(t.AssigneeID); err != nil {
		return model.Task{}, err
	}
	t.ID = ""
	t.Title = strings.TrimSpace(t.Title)
	t.Status, t.Completed, t.CompletedAt = model.StatusTodo, false, nil
	t.CreatedBy = ac.ProfileID
	t.CreatedAt, t.UpdatedAt = a.now().UTC(), nil

	id, t, err := addDoc(ctx, a, docstore.Tasks, t)
	if err != nil {
		return model.Task{}, err
	}
	t.ID = id
	return t, nil
}

func (a *App) UpdateTask(ctx context.Context, ac auth.AuthContext, id string, patch Patch) (model.Task, error) {
	if !auth.CanManageTasks(ac.Role) {
		return model.Task{}, fmt.Errorf("%w: only admins and parents can edit tasks", ErrForbidden)
	}
	if v, ok := patch["assigneeId"]; ok && v != nil {
		s, _ := v.(string)
		if err := a.checkAssignee(s); err != nil {
			return model.Task{}, err
		}
	}
	return updateDoc[model.Task](ctx, a, docstore.Tasks, id, patch, taskFields, nil)
}

func (a *App) DeleteTask(ctx context.Context, ac auth.AuthContext, id string) error {
	if !auth.CanManageTasks(ac.Role) {
		return fmt.Errorf("%w: only admins and parents can remove tasks", ErrForbidden)
	}
	return deleteDoc[model.Task](ctx, a, docstore.Tasks, id, nil)
}

// ToggleTask flips a task between todo and done.
func (a *App) ToggleTask(ctx context.Context, ac auth.AuthContext, id string) (model.Task, error) {
	return a.moveTask(ctx, ac, id, func(t *model.Task) model.TaskStatus {
		if t.Completed {
			return model.StatusTodo
		}
		return model.StatusDone
	})
}

// SetTaskStatus moves a task to another board column. Completed follows
// the column.
func (a *App) SetTaskStatus(ctx context.Context, ac auth.AuthContext, id string, status model.TaskStatus) (model.Task, error) {
	if _, err := model.ParseTaskStatus(string(status)); err != nil {
		return model.Task{}, err
	}
	return a.moveTask(ctx, ac, id, func(*model.Task) model.TaskStatus { return status })
}

func (a *App) moveTask(ctx context.Context, ac auth.AuthContext, id string, next func(*model.Task) model.TaskStatus) (model.Task, error) {
	if err := requireProfile(ac); err != nil {
		return model.Task{}, err
	}
	return mutateDoc[model.Task](ctx, a, docstore.Tasks, id, func(t *model.Task) error {
		if !auth.CanManageTasks(ac.Role) && t.AssigneeID != ac.ProfileID {
			return fmt.Errorf("%w: task is not assigned to you", ErrForbidden)
		}
		t.Status = next(t)
		t.Completed = t.Status == model.StatusDone
		switch {
		case t.Completed && t.CompletedAt == nil:
			now := a.now().UTC()
			t.CompletedAt = &now
		case !t.Completed:
			t.CompletedAt = nil
		}
		return nil
	})
}
