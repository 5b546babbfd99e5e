// Package notify es el NotificationSink que consumen las transiciones de
// membership: encola avisos al usuario (aprobación/rechazo de solicitud).
// El enqueue es no-bloqueante; el envío real (SMTP) corre en un worker.
package notify

import (
	"context"
	"sync"
)

// Tipos de notificación conocidos.
const (
	TypeApplicationApproved = "application_approved"
	TypeApplicationRejected = "application_rejected"
)

// Notification es un aviso pendiente para un usuario.
type Notification struct {
	UserID  string
	Type    string
	Message string
}

// Sink encola notificaciones. Implementaciones: SMTP (producción) y
// Memory (tests).
type Sink interface {
	Enqueue(ctx context.Context, userID, typ, message string) error
}

// Memory acumula las notificaciones encoladas. Para tests.
type Memory struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Enqueue(ctx context.Context, userID, typ, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Notification{UserID: userID, Type: typ, Message: message})
	return nil
}

// For devuelve las notificaciones encoladas para un usuario.
func (m *Memory) For(userID string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

var _ Sink = (*Memory)(nil)
