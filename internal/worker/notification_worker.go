package worker

import (
	"context"

	"github.com/spec-kit/logistics-ticketing/internal/service"
)

// StartNotificationWorker registers notification handlers and removes them
// once ctx is cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	go func() {
		<-ctx.Done()
		notificationService.Close()
	}()
}
