package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir + "/cronhost.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestAddJob_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "backup", Cron: "0 0 * * *", Command: "tar -czf /tmp/a.tgz /data", TimeoutSeconds: 60, Enabled: true}
	if _, err := s.AddJob(ctx, job); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if _, err := s.AddJob(ctx, job); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestAddJob_InvalidCron(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "broken", Cron: "not a cron", Command: "true", TimeoutSeconds: 60, Enabled: true}
	_, err := s.AddJob(ctx, job)
	var invalid *domain.InvalidCronError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCronError, got %v", err)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetJob(context.Background(), "missing"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestUpdateJob_PartialPatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "sync", Cron: "*/5 * * * *", Command: "rsync a b", TimeoutSeconds: 30, Tags: []string{"io"}, Enabled: true}
	if _, err := s.AddJob(ctx, job); err != nil {
		t.Fatalf("add job: %v", err)
	}

	newCmd := "rsync -a a b"
	updated, err := s.UpdateJob(ctx, "sync", domain.JobPatch{Command: &newCmd})
	if err != nil {
		t.Fatalf("update job: %v", err)
	}
	if updated.Command != newCmd {
		t.Errorf("command = %q, want %q", updated.Command, newCmd)
	}
	if updated.Cron != "*/5 * * * *" {
		t.Errorf("cron should be unchanged, got %q", updated.Cron)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "io" {
		t.Errorf("tags should be unchanged, got %v", updated.Tags)
	}
}

func TestUpdateJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	newCmd := "echo hi"
	_, err := s.UpdateJob(context.Background(), "ghost", domain.JobPatch{Command: &newCmd})
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestDeleteJob_PurgesRunsOnRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "purge-me", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	run := &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual}
	created, err := s.CreateRun(ctx, run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := s.DeleteJob(ctx, "purge-me", true); err != nil {
		t.Fatalf("delete job: %v", err)
	}
	if _, err := s.GetJob(ctx, "purge-me"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job gone, got %v", err)
	}
	if _, err := s.GetRun(ctx, created.ID); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected run purged, got %v", err)
	}
}

func TestDeleteJob_KeepsRunsWithoutPurge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "keep-history", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	run := &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual}
	created, err := s.CreateRun(ctx, run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := s.DeleteJob(ctx, "keep-history", false); err != nil {
		t.Fatalf("delete job: %v", err)
	}
	if _, err := s.GetRun(ctx, created.ID); err != nil {
		t.Fatalf("expected run to survive, got %v", err)
	}
}

func TestDueJobs_RespectsEnabledAndNextRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due := &domain.Job{Name: "due", Cron: "* * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	notDue := &domain.Job{Name: "not-due", Cron: "* * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	disabled := &domain.Job{Name: "disabled", Cron: "* * * * *", Command: "true", TimeoutSeconds: 10, Enabled: false}

	for _, j := range []*domain.Job{due, notDue, disabled} {
		if _, err := s.AddJob(ctx, j); err != nil {
			t.Fatalf("add job %s: %v", j.Name, err)
		}
	}

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	if err := s.SetNextRun(ctx, "due", &past); err != nil {
		t.Fatalf("set next run: %v", err)
	}
	if err := s.SetNextRun(ctx, "not-due", &future); err != nil {
		t.Fatalf("set next run: %v", err)
	}
	if err := s.SetNextRun(ctx, "disabled", &past); err != nil {
		t.Fatalf("set next run: %v", err)
	}

	jobs, err := s.DueJobs(ctx, now)
	if err != nil {
		t.Fatalf("due jobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name != "due" {
		t.Fatalf("due jobs = %v, want only [due]", jobs)
	}
}

func TestCreateRunAndCompleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "runner", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	run, err := s.CreateRun(ctx, &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerSchedule})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if !run.Live() {
		t.Fatalf("freshly created run should be live")
	}

	err = s.CompleteRun(ctx, run.ID, domain.RunOutcome{EndedAt: time.Now().UTC(), ExitCode: 0, Stdout: "ok\n"})
	if err != nil {
		t.Fatalf("complete run: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Live() {
		t.Fatalf("completed run should not be live")
	}
	if !got.Success() {
		t.Fatalf("run with exit code 0 should be success")
	}
}

func TestCompleteRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun(context.Background(), 9999, domain.RunOutcome{EndedAt: time.Now().UTC(), ExitCode: 0})
	if !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns_FailedOnlyFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "flaky", Cron: "0 * * * *", Command: "false", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	ok, err := s.CreateRun(ctx, &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := s.CompleteRun(ctx, ok.ID, domain.RunOutcome{EndedAt: time.Now().UTC(), ExitCode: 0}); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	bad, err := s.CreateRun(ctx, &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := s.CompleteRun(ctx, bad.ID, domain.RunOutcome{EndedAt: time.Now().UTC(), ExitCode: 1}); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	runs, err := s.ListRuns(ctx, domain.RunFilter{JobName: "flaky", FailedOnly: true})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != bad.ID {
		t.Fatalf("expected only the failed run, got %v", runs)
	}
}

func TestReconcileOrphans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "orphaned", Cron: "0 * * * *", Command: "sleep 100", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	run, err := s.CreateRun(ctx, &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	n, err := s.ReconcileOrphans(ctx)
	if err != nil {
		t.Fatalf("reconcile orphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("reconciled = %d, want 1", n)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Live() {
		t.Fatalf("orphaned run should be closed out")
	}
	if got.ExitCode == nil || *got.ExitCode != -1 {
		t.Fatalf("orphaned run should carry sentinel exit code -1, got %v", got.ExitCode)
	}
}

func TestPurgeRunsOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &domain.Job{Name: "history", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Enabled: true}
	added, err := s.AddJob(ctx, job)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	old := &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC().Add(-48 * time.Hour), Trigger: domain.TriggerManual}
	if _, err := s.CreateRun(ctx, old); err != nil {
		t.Fatalf("create run: %v", err)
	}
	recent := &domain.Run{JobID: added.ID, JobName: added.Name, StartedAt: time.Now().UTC(), Trigger: domain.TriggerManual}
	if _, err := s.CreateRun(ctx, recent); err != nil {
		t.Fatalf("create run: %v", err)
	}

	n, err := s.PurgeRunsOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge runs: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}

	runs, err := s.ListRuns(ctx, domain.RunFilter{JobName: "history"})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("remaining runs = %d, want 1", len(runs))
	}
}

func TestListTags_Deduplicated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jobs := []*domain.Job{
		{Name: "a", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Tags: []string{"io", "nightly"}, Enabled: true},
		{Name: "b", Cron: "0 * * * *", Command: "true", TimeoutSeconds: 10, Tags: []string{"nightly"}, Enabled: true},
	}
	for _, j := range jobs {
		if _, err := s.AddJob(ctx, j); err != nil {
			t.Fatalf("add job %s: %v", j.Name, err)
		}
	}

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "io" || tags[1] != "nightly" {
		t.Fatalf("tags = %v, want [io nightly]", tags)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
