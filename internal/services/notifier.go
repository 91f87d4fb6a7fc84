package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/mailqueue"
	"github.com/abrezinsky/munreg/internal/metrics"
	"github.com/abrezinsky/munreg/internal/models"
)

// Recipient groups accepted by SendCustom
const (
	GroupAll        = "all"
	GroupAssigned   = "assigned"
	GroupVerified   = "verified"
	GroupUnverified = "unverified"
	groupTypePrefix = "type:"
)

// NotifierRepository defines the repository methods needed by Notifier
type NotifierRepository interface {
	ListRegistrations(ctx context.Context) ([]models.Registration, error)
	ListCommittees(ctx context.Context) ([]models.Committee, error)
}

// NotifierOptions tunes the notifier's worker pool
type NotifierOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Notifier turns seat assignments into mail requests. Individual assignment
// mails are enqueued on a background pool so a commit never waits on mail.
type Notifier struct {
	log     logger.Logger
	repo    NotifierRepository
	queue   mailqueue.Queue
	metrics *metrics.Metrics
	pool    pond.Pool
	workers int
	timeout time.Duration
	closing sync.Once
}

// NewNotifier creates a Notifier. Call Close to drain the pool.
func NewNotifier(log logger.Logger, repo NotifierRepository, queue mailqueue.Queue, m *metrics.Metrics, opts NotifierOptions) *Notifier {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Notifier{
		log:     log,
		repo:    repo,
		queue:   queue,
		metrics: m,
		pool:    pond.NewPool(opts.Workers, pond.WithQueueSize(opts.QueueSize), pond.WithNonBlocking(true)),
		workers: opts.Workers,
		timeout: opts.Timeout,
	}
}

// NotifyResult reports a batch notification run. It is not atomic.
type NotifyResult struct {
	Attempted int           `json:"attempted"`
	Queued    int           `json:"queued"`
	Failed    []BulkFailure `json:"failed"`
}

// CustomMessage is an admin-composed mail to a recipient group
type CustomMessage struct {
	Group   string `json:"group"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// CustomResult reports an enqueued custom mail
type CustomResult struct {
	MessageID  string `json:"message_id"`
	Recipients int    `json:"recipients"`
}

// AssignmentMessage builds the mail request for a seated delegate
func AssignmentMessage(reg models.Registration, committeeName string) (models.MailMessage, bool) {
	seat, ok := reg.AssignedSeat()
	if !ok {
		return models.MailMessage{}, false
	}
	return models.MailMessage{
		RecipientRefs: []string{reg.ID},
		TemplateName:  mailqueue.TemplateAssignment,
		TemplateData: map[string]string{
			"name":      reg.Profile.Name,
			"committee": committeeName,
			"country":   seat.Country,
		},
	}, true
}

// AssignmentChanged enqueues the assignment mail in the background. The
// work is detached from ctx cancellation; failures are logged and counted.
// When the pool queue is full the mail is enqueued on the caller's goroutine.
func (n *Notifier) AssignmentChanged(ctx context.Context, result AssignmentResult) {
	if result.Registration == nil || !result.Changed {
		return
	}
	msg, ok := AssignmentMessage(*result.Registration, result.CommitteeName)
	if !ok {
		return
	}

	base := context.WithoutCancel(ctx)
	delegateID := result.Registration.ID
	if err := n.pool.Go(func() {
		n.enqueue(base, delegateID, msg)
	}); err != nil {
		// pool saturated or stopped: enqueue inline so the mail is not lost
		n.log.Warn("notification pool unavailable, enqueueing inline", logger.KeyDelegateID, delegateID, logger.KeyError, err)
		n.enqueue(base, delegateID, msg)
	}
}

// enqueue hands one message to the queue under the per-message timeout
func (n *Notifier) enqueue(base context.Context, delegateID string, msg models.MailMessage) error {
	ctx, cancel := context.WithTimeout(base, n.timeout)
	defer cancel()

	start := time.Now()
	queued, err := n.queue.Enqueue(ctx, msg)
	if err != nil {
		n.metrics.ObserveNotification(msg.TemplateName, "failed", time.Since(start))
		n.log.Error("failed to enqueue mail", logger.KeyDelegateID, delegateID, logger.KeyTemplate, msg.TemplateName, logger.KeyError, err)
		return err
	}
	n.metrics.ObserveNotification(msg.TemplateName, "queued", time.Since(start))
	n.log.Debug("mail enqueued", logger.KeyDelegateID, delegateID, logger.KeyTemplate, msg.TemplateName, logger.KeyMessageID, queued.ID)
	return nil
}

// NotifyAllAssigned enqueues one assignment mail for every delegate seated
// at call time, in parallel. A failure for one delegate does not stop the rest.
func (n *Notifier) NotifyAllAssigned(ctx context.Context) (*NotifyResult, error) {
	regs, err := n.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	names, err := committeeNames(ctx, n.repo)
	if err != nil {
		return nil, err
	}

	type job struct {
		delegateID string
		msg        models.MailMessage
	}
	jobs := []job{}
	for _, reg := range regs {
		seat, ok := reg.AssignedSeat()
		if !ok {
			continue
		}
		name, found := names[seat.CommitteeID]
		if !found {
			name = MissingCommitteeName
		}
		msg, _ := AssignmentMessage(reg, name)
		jobs = append(jobs, job{delegateID: reg.ID, msg: msg})
	}
	if len(jobs) == 0 {
		return nil, errors.NotFound("no assigned delegates to notify")
	}

	pool := pond.NewPool(n.workers)
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	result := &NotifyResult{Attempted: len(jobs), Failed: []BulkFailure{}}
	var mu sync.Mutex
	for _, j := range jobs {
		j := j
		group.Submit(func() {
			err := n.enqueue(groupCtx, j.delegateID, j.msg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, BulkFailure{DelegateID: j.delegateID, Error: err.Error()})
				return
			}
			result.Queued++
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Internal(err)
	}

	n.log.Info("assignment notifications enqueued", "attempted", result.Attempted, "queued", result.Queued, "failed", len(result.Failed))
	return result, nil
}

// SendCustom enqueues one custom mail addressed to every delegate in group
func (n *Notifier) SendCustom(ctx context.Context, msg CustomMessage) (*CustomResult, error) {
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, errors.Validation("subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return nil, errors.Validation("message body is required")
	}
	filter, err := groupFilter(msg.Group)
	if err != nil {
		return nil, err
	}

	regs, err := n.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refs := []string{}
	for _, reg := range regs {
		if filter.Matches(reg) {
			refs = append(refs, reg.ID)
		}
	}
	if len(refs) == 0 {
		return nil, errors.NotFoundf("no delegates in group %q", msg.Group)
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	start := time.Now()
	queued, err := n.queue.Enqueue(enqueueCtx, models.MailMessage{
		RecipientRefs: refs,
		TemplateName:  mailqueue.TemplateCustom,
		TemplateData:  map[string]string{"subject": msg.Subject, "html": msg.HTML},
	})
	if err != nil {
		n.metrics.ObserveNotification(mailqueue.TemplateCustom, "failed", time.Since(start))
		return nil, errors.Internal(err)
	}
	n.metrics.ObserveNotification(mailqueue.TemplateCustom, "queued", time.Since(start))
	n.log.Info("custom mail enqueued", "group", msg.Group, "recipients", len(refs), logger.KeyMessageID, queued.ID)
	return &CustomResult{MessageID: queued.ID, Recipients: len(refs)}, nil
}

// Close waits for queued background mails and stops the pool
func (n *Notifier) Close() {
	n.closing.Do(n.pool.StopAndWait)
}

// groupFilter maps a recipient group name to a registration filter
func groupFilter(group string) (RegistrationFilter, error) {
	switch {
	case group == GroupAll:
		return RegistrationFilter{}, nil
	case group == GroupAssigned:
		return RegistrationFilter{AssignmentStatus: models.Assigned}, nil
	case group == GroupVerified:
		return RegistrationFilter{PaymentStatus: models.PaymentVerified}, nil
	case group == GroupUnverified:
		return RegistrationFilter{PaymentStatus: models.PaymentUnverified}, nil
	case strings.HasPrefix(group, groupTypePrefix) && len(group) > len(groupTypePrefix):
		return RegistrationFilter{DelegateType: strings.TrimPrefix(group, groupTypePrefix)}, nil
	default:
		return RegistrationFilter{}, errors.Validationf("unknown recipient group %q", group)
	}
}

var _ AssignmentNotifier = (*Notifier)(nil)
