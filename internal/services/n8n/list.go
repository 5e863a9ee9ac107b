package n8n

import (
	"context"
	"sync"

	"github.com/marketingops/n8n-gateway/internal/domain/models"
)

// WorkflowList is the transient, in-memory copy of the last fetched list.
// Mutations patch it only after n8n confirmed the change.
type WorkflowList struct {
	client *WorkflowClient

	mu    sync.RWMutex
	items []models.Workflow
}

// NewWorkflowList creates an empty list backed by client.
func NewWorkflowList(client *WorkflowClient) *WorkflowList {
	return &WorkflowList{client: client}
}

// Reload replaces the list with a fresh fetch. On error the previous items stay.
func (l *WorkflowList) Reload(ctx context.Context) ([]models.Workflow, error) {
	workflows, err := l.client.List(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.items = append([]models.Workflow(nil), workflows...)
	l.mu.Unlock()

	return l.Items(), nil
}

// Items returns a copy of the current list.
func (l *WorkflowList) Items() []models.Workflow {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Workflow(nil), l.items...)
}

// Activate activates upstream, then marks the entry active.
func (l *WorkflowList) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := l.client.Activate(ctx, id)
	if err != nil {
		return nil, err
	}
	l.setActive(id, true)
	return workflow, nil
}

// Deactivate deactivates upstream, then marks the entry inactive.
func (l *WorkflowList) Deactivate(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := l.client.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}
	l.setActive(id, false)
	return workflow, nil
}

// Delete deletes upstream, then drops the entry.
func (l *WorkflowList) Delete(ctx context.Context, id string) error {
	if err := l.client.Delete(ctx, id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	return nil
}

func (l *WorkflowList) setActive(id string, active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Active = active
			return
		}
	}
}
