package worker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notifyhub/role-manager-bot/internal/domain"
	"github.com/notifyhub/role-manager-bot/internal/provider"
	"github.com/notifyhub/role-manager-bot/internal/repository"
	"github.com/notifyhub/role-manager-bot/internal/worker"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type deletionFixture struct {
	w       *worker.DeletionWorker
	repo    *repository.MemoryTicketRepository
	plat    *provider.FakePlatform
	sched   *worker.ManualScheduler
	logs    *observer.ObservedLogs
	results []domain.TicketStatus
}

func newDeletionFixture() *deletionFixture {
	core, logs := observer.New(zapcore.DebugLevel)
	f := &deletionFixture{
		repo:  repository.NewMemoryTicketRepository(),
		plat:  provider.NewFakePlatform(),
		sched: worker.NewManualScheduler(),
		logs:  logs,
	}
	f.w = worker.NewDeletionWorker(f.repo, f.plat, f.sched, zap.New(core),
		func(s domain.TicketStatus) { f.results = append(f.results, s) },
		worker.WithDeletionClock(func() time.Time { return base }),
	)
	return f
}

func ticket(id string, deleteAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		ChannelID: "verify",
		MessageID: "msg-" + id,
		MemberID:  "42",
		Status:    domain.TicketOutstanding,
		DeleteAt:  deleteAt,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func status(t *testing.T, repo *repository.MemoryTicketRepository, id string) domain.TicketStatus {
	t.Helper()
	tk, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get ticket %s: %v", id, err)
	}
	return tk.Status
}

func TestDeletionWorker_DeletesAfterRetention(t *testing.T) {
	f := newDeletionFixture()
	f.w.Schedule(context.Background(), ticket("t1", base.Add(24*time.Hour)))

	if d, ok := f.sched.NextDelay(); !ok || d != 24*time.Hour {
		t.Fatalf("expected timer at 24h, got %v (ok=%v)", d, ok)
	}
	if ran := f.sched.Advance(24*time.Hour - time.Second); ran != 0 {
		t.Fatal("message deleted before its deadline")
	}
	f.sched.Advance(time.Second)

	deleted := f.plat.Deleted()
	if len(deleted) != 1 || deleted[0].MessageID != "msg-t1" {
		t.Fatalf("expected msg-t1 deleted, got %+v", deleted)
	}
	if got := status(t, f.repo, "t1"); got != domain.TicketDeleted {
		t.Fatalf("expected deleted, got %s", got)
	}
	if len(f.results) != 1 || f.results[0] != domain.TicketDeleted {
		t.Fatalf("unexpected result hooks: %v", f.results)
	}
}

func TestDeletionWorker_AlreadyGoneIsInformational(t *testing.T) {
	f := newDeletionFixture()
	f.plat.DeleteErr = fmt.Errorf("delete message: %w", domain.ErrNotFound)

	f.w.Schedule(context.Background(), ticket("t1", base))
	f.sched.RunDue()

	if got := status(t, f.repo, "t1"); got != domain.TicketGone {
		t.Fatalf("expected gone, got %s", got)
	}
	if n := f.logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 0 {
		t.Fatalf("already-deleted message must not log errors, got %d", n)
	}
	if f.logs.FilterMessage("verification message already gone").FilterLevelExact(zapcore.InfoLevel).Len() != 1 {
		t.Fatal("expected one info entry for the gone message")
	}
}

func TestDeletionWorker_ForbiddenLogsErrorOnce(t *testing.T) {
	f := newDeletionFixture()
	f.plat.DeleteErr = fmt.Errorf("delete message: %w", domain.ErrForbidden)

	f.w.Schedule(context.Background(), ticket("t1", base))
	f.sched.RunDue()

	tk, _ := f.repo.GetByID(context.Background(), "t1")
	if tk.Status != domain.TicketFailed || tk.ErrorMessage == nil {
		t.Fatalf("expected failed ticket with error message, got %+v", tk)
	}
	if n := f.logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Fatalf("expected exactly one error log, got %d", n)
	}
	if f.sched.Pending() != 0 {
		t.Fatal("failed deletion must not be retried")
	}
}

func TestDeletionWorker_SingleAttemptAcrossTimerAndSweep(t *testing.T) {
	f := newDeletionFixture()
	tk := ticket("t1", base.Add(-time.Hour))
	f.w.Schedule(context.Background(), tk)

	// Recover re-arms the same outstanding ticket a second time.
	if err := f.w.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	f.sched.RunDue()

	if n := len(f.plat.Deleted()); n != 1 {
		t.Fatalf("expected exactly one delete call, got %d", n)
	}
	if len(f.results) != 1 {
		t.Fatalf("expected one outcome, got %v", f.results)
	}
}

func TestDeletionWorker_PersistFailureStillDeletes(t *testing.T) {
	f := newDeletionFixture()
	f.repo.CreateErr = errors.New("db down")

	f.w.Schedule(context.Background(), ticket("t1", base.Add(time.Minute)))
	f.sched.Advance(time.Minute)

	if n := len(f.plat.Deleted()); n != 1 {
		t.Fatalf("expected the message to be deleted anyway, got %d", n)
	}
	if f.logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatal("expected a warning for the unpersisted ticket")
	}
}

func TestDeletionWorker_RecoverRearmsOutstanding(t *testing.T) {
	f := newDeletionFixture()
	ctx := context.Background()
	_ = f.repo.Create(ctx, ticket("late", base.Add(-time.Minute)))
	_ = f.repo.Create(ctx, ticket("soon", base.Add(time.Hour)))
	done := ticket("done", base.Add(-time.Hour))
	done.Status = domain.TicketDeleted
	_ = f.repo.Create(ctx, done)

	if err := f.w.Recover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if f.sched.Spawned() != 2 {
		t.Fatalf("expected 2 timers, got %d", f.sched.Spawned())
	}

	f.sched.RunDue()
	if got := status(t, f.repo, "late"); got != domain.TicketDeleted {
		t.Fatalf("overdue ticket should fire immediately, got %s", got)
	}
	if got := status(t, f.repo, "soon"); got != domain.TicketOutstanding {
		t.Fatalf("future ticket fired early: %s", got)
	}
}

func TestDeletionWorker_RunSweepsOverdue(t *testing.T) {
	repo := repository.NewMemoryTicketRepository()
	plat := provider.NewFakePlatform()
	// Timers are never run, so only the sweep can delete.
	sched := worker.NewManualScheduler()
	_ = repo.Create(context.Background(), ticket("stale", time.Now().UTC().Add(-time.Hour)))

	w := worker.NewDeletionWorker(repo, plat, sched, zap.NewNop(), nil,
		worker.WithSweep(10*time.Millisecond, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(plat.Deleted()) == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("sweep did not delete the overdue message")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := status(t, repo, "stale"); got != domain.TicketDeleted {
		t.Fatalf("expected deleted, got %s", got)
	}
}
