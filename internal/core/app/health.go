package app

import (
	"context"
	"fmt"
	"time"

	"bazelcp/internal/shared/observability"
	"bazelcp/internal/shared/util"
)

type HealthService struct {
	app *App
}

var _ observability.HealthChecker = (*HealthService)(nil)

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.app.Coordinator == nil {
		status.Status = "degraded"
		status.Components["coordinator"] = "missing"
	} else {
		status.Components["coordinator"] = fmt.Sprintf("ok (%d units)", len(s.app.Coordinator.Units()))
		status.Components["module_references"] = fmt.Sprintf("%d units", len(s.app.Coordinator.References().Units()))
	}

	switch store := s.app.Store(); {
	case store != nil:
		labels, err := store.Labels(ctx)
		if err != nil {
			status.Status = "degraded"
			status.Components["metadata_store"] = "error: " + err.Error()
		} else {
			status.Components["metadata_store"] = fmt.Sprintf("ok (%d labels)", len(labels))
		}
	case s.app.Config.Metadata.Enabled():
		status.Status = "degraded"
		status.Components["metadata_store"] = "missing but enabled in config"
	default:
		status.Components["metadata_store"] = "disabled"
	}

	status.Components["jar_index"] = fmt.Sprintf("ok (%d jars)", s.app.Jars.Len())
	status.Components["heap"] = fmt.Sprintf("%d MB", util.GetHeapAllocMB())

	s.app.watchMu.Lock()
	watching := s.app.activeWatcher != nil
	s.app.watchMu.Unlock()
	if watching {
		status.Components["watcher"] = "ok"
	}
	return status
}
