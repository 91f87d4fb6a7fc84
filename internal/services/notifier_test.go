package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/mailqueue"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/services"
)

func newTestNotifier(t *testing.T, f *fixture, queue mailqueue.Queue) *services.Notifier {
	t.Helper()
	n := services.NewNotifier(logger.Discard(), f.repo, queue, f.metrics, services.NotifierOptions{Workers: 2, Timeout: time.Second})
	t.Cleanup(n.Close)
	return n
}

// TestAssignmentChanged_EnqueuesAfterCommit tests the allocator-to-mail path
func TestAssignmentChanged_EnqueuesAfterCommit(t *testing.T) {
	f := newFixture(t)
	queue := newRecordingQueue()
	n := newTestNotifier(t, f, queue)
	f.alloc.SetNotifier(n)
	f.delegate(t, "d1", true)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := f.alloc.AssignSeat(ctx, "d1", "unsc", "USA"); err != nil {
		t.Fatalf("AssignSeat failed: %v", err)
	}
	// the request ending must not cancel the background enqueue
	cancel()
	n.Close()

	sent := queue.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	msg := sent[0]
	if msg.TemplateName != mailqueue.TemplateAssignment || msg.RecipientRefs[0] != "d1" {
		t.Errorf("unexpected message %+v", msg)
	}
	want := map[string]string{"name": "Delegate d1", "committee": "Security Council", "country": "USA"}
	for k, v := range want {
		if msg.TemplateData[k] != v {
			t.Errorf("template data %s: expected %q, got %q", k, v, msg.TemplateData[k])
		}
	}
	if got := promtest.ToFloat64(f.metrics.Notifications.WithLabelValues(mailqueue.TemplateAssignment, "queued")); got != 1 {
		t.Errorf("expected 1 queued notification, got %v", got)
	}
}

// TestAssignmentChanged_FailureDoesNotRollBack tests that a broken queue
// leaves the seat committed
func TestAssignmentChanged_FailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	queue := newRecordingQueue()
	queue.failFor["*"] = true
	n := newTestNotifier(t, f, queue)
	f.alloc.SetNotifier(n)
	f.delegate(t, "d1", true)

	result, err := f.alloc.AssignSeat(context.Background(), "d1", "unsc", "France")
	if err != nil {
		t.Fatalf("AssignSeat failed: %v", err)
	}
	n.Close()

	if !result.Changed {
		t.Error("expected assignment to be committed")
	}
	stored, _ := f.repo.GetRegistration(context.Background(), "d1")
	if stored.AssignmentStatus != models.Assigned {
		t.Error("expected seat to survive notification failure")
	}
	if got := promtest.ToFloat64(f.metrics.Notifications.WithLabelValues(mailqueue.TemplateAssignment, "failed")); got != 1 {
		t.Errorf("expected 1 failed notification, got %v", got)
	}
}

func TestAssignmentChanged_IgnoresUnchanged(t *testing.T) {
	f := newFixture(t)
	queue := newRecordingQueue()
	n := newTestNotifier(t, f, queue)
	reg := f.delegate(t, "d1", true)

	n.AssignmentChanged(context.Background(), services.AssignmentResult{Registration: reg, Changed: false})
	n.AssignmentChanged(context.Background(), services.AssignmentResult{Registration: reg, Changed: true})
	n.Close()

	if len(queue.sent()) != 0 {
		t.Errorf("expected no messages for unchanged or unseated results, got %d", len(queue.sent()))
	}
}

// gatedQueue holds its first Enqueue until released
type gatedQueue struct {
	*recordingQueue
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (q *gatedQueue) Enqueue(ctx context.Context, msg models.MailMessage) (models.MailMessage, error) {
	first := false
	q.once.Do(func() { first = true })
	if first {
		close(q.started)
		select {
		case <-q.release:
		case <-ctx.Done():
			return models.MailMessage{}, ctx.Err()
		}
	}
	return q.recordingQueue.Enqueue(ctx, msg)
}

func seatedRegistration(id string) *models.Registration {
	committee, country := "unsc", "USA"
	return &models.Registration{
		ID:                  id,
		Profile:             models.Profile{Name: "Delegate " + id},
		AssignmentStatus:    models.Assigned,
		AssignedCommitteeID: &committee,
		AssignedCountry:     &country,
	}
}

// TestAssignmentChanged_FullPoolEnqueuesInline tests that a saturated pool
// does not lose assignment mails
func TestAssignmentChanged_FullPoolEnqueuesInline(t *testing.T) {
	f := newFixture(t)
	queue := &gatedQueue{recordingQueue: newRecordingQueue(), started: make(chan struct{}), release: make(chan struct{})}
	n := services.NewNotifier(logger.Discard(), f.repo, queue, f.metrics,
		services.NotifierOptions{Workers: 1, QueueSize: 1, Timeout: 5 * time.Second})
	t.Cleanup(n.Close)
	ctx := context.Background()

	n.AssignmentChanged(ctx, services.AssignmentResult{Registration: seatedRegistration("d0"), Changed: true})
	select {
	case <-queue.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first mail")
	}

	const total = 10
	for i := 1; i < total; i++ {
		n.AssignmentChanged(ctx, services.AssignmentResult{Registration: seatedRegistration(fmt.Sprintf("d%d", i)), Changed: true})
	}
	// the only worker is parked, so anything already sent went inline
	if len(queue.sent()) == 0 {
		t.Error("expected overflow mails to be enqueued inline")
	}

	close(queue.release)
	n.Close()
	if got := len(queue.sent()); got != total {
		t.Errorf("expected %d mails, got %d", total, got)
	}
}

func TestNotifyAllAssigned_PerDelegateFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seatAll(t, f, map[string]models.Seat{
		"d1": {CommitteeID: "unsc", Country: "USA"},
		"d2": {CommitteeID: "unsc", Country: "France"},
		"d3": {CommitteeID: "disec", Country: "Nigeria"},
	})
	f.delegate(t, "waiting", true)
	queue := newRecordingQueue()
	queue.failFor["d2"] = true
	n := newTestNotifier(t, f, queue)

	result, err := n.NotifyAllAssigned(ctx)
	if err != nil {
		t.Fatalf("NotifyAllAssigned failed: %v", err)
	}
	if result.Attempted != 3 || result.Queued != 2 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].DelegateID != "d2" {
		t.Errorf("expected d2 to fail, got %+v", result.Failed)
	}

	recipients := map[string]bool{}
	for _, msg := range queue.sent() {
		recipients[msg.RecipientRefs[0]] = true
	}
	if !recipients["d1"] || !recipients["d3"] || recipients["waiting"] {
		t.Errorf("unexpected recipients %v", recipients)
	}
}

func TestNotifyAllAssigned_NoneAssigned(t *testing.T) {
	f := newFixture(t)
	f.delegate(t, "d1", true)
	n := newTestNotifier(t, f, newRecordingQueue())

	_, err := n.NotifyAllAssigned(context.Background())
	expectKind(t, err, errors.ErrNotFound)
}

func TestSendCustom_Groups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seatAll(t, f, map[string]models.Seat{"seated": {CommitteeID: "unsc", Country: "USA"}})
	f.delegate(t, "paid", true)
	f.delegate(t, "unpaid", false)

	tests := []struct {
		group string
		want  int
	}{
		{services.GroupAll, 3},
		{services.GroupAssigned, 1},
		{services.GroupVerified, 2},
		{services.GroupUnverified, 1},
		{"type:student", 3},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			queue := newRecordingQueue()
			n := newTestNotifier(t, f, queue)

			result, err := n.SendCustom(ctx, services.CustomMessage{Group: tt.group, Subject: "Hello", HTML: "<p>Hi</p>"})
			if err != nil {
				t.Fatalf("SendCustom failed: %v", err)
			}
			if result.Recipients != tt.want {
				t.Errorf("expected %d recipients, got %d", tt.want, result.Recipients)
			}
			sent := queue.sent()
			if len(sent) != 1 {
				t.Fatalf("expected one message for the whole group, got %d", len(sent))
			}
			if sent[0].TemplateName != mailqueue.TemplateCustom || sent[0].TemplateData["subject"] != "Hello" {
				t.Errorf("unexpected message %+v", sent[0])
			}
		})
	}
}

func TestSendCustom_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.delegate(t, "unpaid", false)
	n := newTestNotifier(t, f, newRecordingQueue())

	_, err := n.SendCustom(ctx, services.CustomMessage{Group: "everyone", Subject: "s", HTML: "h"})
	expectKind(t, err, errors.ErrValidation)

	_, err = n.SendCustom(ctx, services.CustomMessage{Group: services.GroupAll, HTML: "h"})
	expectKind(t, err, errors.ErrValidation)

	_, err = n.SendCustom(ctx, services.CustomMessage{Group: services.GroupAssigned, Subject: "s", HTML: "h"})
	expectKind(t, err, errors.ErrNotFound)

	_, err = n.SendCustom(ctx, services.CustomMessage{Group: "type:faculty", Subject: "s", HTML: "h"})
	expectKind(t, err, errors.ErrNotFound)
}

// TestNotifier_OutboxQueue tests the notifier against the SQLite outbox
func TestNotifier_OutboxQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	outbox := mailqueue.NewOutboxQueue(f.repo)
	n := newTestNotifier(t, f, outbox)
	f.alloc.SetNotifier(n)
	f.delegate(t, "d1", true)

	if _, err := f.alloc.AssignSeat(ctx, "d1", "disec", "Ghana"); err != nil {
		t.Fatalf("AssignSeat failed: %v", err)
	}
	n.Close()

	stored, err := outbox.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 1 || stored[0].TemplateData["country"] != "Ghana" {
		t.Errorf("unexpected outbox contents %+v", stored)
	}
}
