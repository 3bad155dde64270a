package session

import "context"

// monitorTarget binds the activity monitor to one session generation.
type monitorTarget[P Principal] struct {
	manager    *Manager[P]
	generation uint64
}

func (t *monitorTarget[P]) Active() bool {
	return t.manager.Active()
}

func (t *monitorTarget[P]) Logout() {
	t.manager.endGeneration(t.generation, "inactive or expired")
}

func (t *monitorTarget[P]) RecordActivity() {
	t.manager.RecordActivity()
}

func (t *monitorTarget[P]) RefreshDue() bool {
	return t.manager.RefreshDue()
}

func (t *monitorTarget[P]) Refresh(ctx context.Context) bool {
	return t.manager.Refresh(ctx)
}
