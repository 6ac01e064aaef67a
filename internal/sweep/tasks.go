package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleRemover undoes a timed role grant (auto-unmute, temporary
// quarantine roles).
type RoleRemover interface {
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
}

// Task is one deferred role removal. Tasks live in memory only; a
// restart drops them, which is the same guarantee the ad hoc
// sleep-then-act approach gave, but with explicit ownership and
// cancellation.
type Task struct {
	ID      string
	GuildID string
	UserID  string
	RoleID  string
	Reason  string
	RunAt   time.Time
}

// TaskTable owns every scheduled removal. The sweep scheduler drains
// due tasks each second.
type TaskTable struct {
	mu      sync.Mutex
	tasks   map[string]Task
	remover RoleRemover
	log     *zap.Logger
}

func NewTaskTable(remover RoleRemover, log *zap.Logger) *TaskTable {
	return &TaskTable{
		tasks:   make(map[string]Task),
		remover: remover,
		log:     log,
	}
}

// Schedule registers a removal and returns its task ID for later
// cancellation.
func (t *TaskTable) Schedule(guildID, userID, roleID, reason string, runAt time.Time) string {
	task := Task{
		ID:      uuid.NewString(),
		GuildID: guildID,
		UserID:  userID,
		RoleID:  roleID,
		Reason:  reason,
		RunAt:   runAt,
	}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.mu.Unlock()
	return task.ID
}

func (t *TaskTable) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tasks[id]; !ok {
		return false
	}
	delete(t.tasks, id)
	return true
}

func (t *TaskTable) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// RunDue executes every task whose time has come. Failures are logged
// and the task is dropped; retrying a role removal forever would leak
// the table.
func (t *TaskTable) RunDue(ctx context.Context, now time.Time) {
	t.mu.Lock()
	var due []Task
	for id, task := range t.tasks {
		if !task.RunAt.After(now) {
			due = append(due, task)
			delete(t.tasks, id)
		}
	}
	t.mu.Unlock()

	for _, task := range due {
		if t.remover == nil {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := t.remover.RemoveRole(callCtx, task.GuildID, task.UserID, task.RoleID, task.Reason)
		cancel()
		if err != nil {
			t.log.Warn("timed role removal failed",
				zap.String("guild_id", task.GuildID),
				zap.String("user_id", task.UserID),
				zap.String("role_id", task.RoleID),
				zap.Error(err))
		}
	}
}
