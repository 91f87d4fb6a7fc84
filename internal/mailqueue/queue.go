// Package mailqueue hands outbound mail requests to a delivery backend.
// Delivery itself happens elsewhere; a message is done once enqueued.
package mailqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// Template names understood by the mail worker
const (
	TemplateAssignment = "assignment"
	TemplateCustom     = "custom"
)

// Queue accepts mail requests
type Queue interface {
	Enqueue(ctx context.Context, msg models.MailMessage) (models.MailMessage, error)
}

// Lister is implemented by queues that can show what they hold
type Lister interface {
	List(ctx context.Context, limit int) ([]models.MailMessage, error)
}

// stamp fills the ID and creation time if the caller left them empty
func stamp(msg models.MailMessage, now time.Time) models.MailMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.TemplateData == nil {
		msg.TemplateData = map[string]string{}
	}
	return msg
}

func validate(msg models.MailMessage) error {
	if msg.TemplateName == "" {
		return fmt.Errorf("mail message has no template")
	}
	if len(msg.RecipientRefs) == 0 {
		return fmt.Errorf("mail message has no recipients")
	}
	return nil
}

// OutboxQueue persists messages in the SQLite mail outbox table
type OutboxQueue struct {
	repo repository.MailRepository
	now  func() time.Time
}

// NewOutboxQueue creates a queue backed by repo
func NewOutboxQueue(repo repository.MailRepository) *OutboxQueue {
	return &OutboxQueue{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue stores msg in the outbox and returns it with ID and timestamp set
func (q *OutboxQueue) Enqueue(ctx context.Context, msg models.MailMessage) (models.MailMessage, error) {
	if err := validate(msg); err != nil {
		return models.MailMessage{}, err
	}
	msg = stamp(msg, q.now())
	if err := q.repo.InsertMail(ctx, msg); err != nil {
		return models.MailMessage{}, fmt.Errorf("insert mail %s: %w", msg.ID, err)
	}
	return msg, nil
}

// List returns the newest outbox messages first
func (q *OutboxQueue) List(ctx context.Context, limit int) ([]models.MailMessage, error) {
	return q.repo.ListMail(ctx, limit)
}

var (
	_ Queue  = (*OutboxQueue)(nil)
	_ Lister = (*OutboxQueue)(nil)
)
