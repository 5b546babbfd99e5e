package notify

import (
	"context"

	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// Log es el sink de dev: escribe la notificación al log y listo. Se usa
// cuando no hay SMTP configurado.
type Log struct{}

func (Log) Enqueue(ctx context.Context, userID, typ, message string) error {
	logger.From(ctx).Info("notificación (sink de log)",
		logger.UserID(userID),
		logger.String("type", typ),
		logger.String("message", message),
	)
	return nil
}

var _ Sink = Log{}
