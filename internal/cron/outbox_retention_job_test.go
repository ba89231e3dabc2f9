package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

func TestOutboxRetentionJobUsesCutoffAndTerminalAttempts(t *testing.T) {
	now := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{deleted: 7}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{RetentionDays: 3, TerminalAttempts: 5})
	job.now = func() time.Time { return now }

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
	if want := now.AddDate(0, 0, -3); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.terminal != 5 {
		t.Fatalf("expected terminal attempts 5, got %d", repo.terminal)
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	repo := &fakeOutboxPruner{}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{})
	if job.retention != defaultOutboxRetentionDays || job.terminal != defaultOutboxTerminal {
		t.Fatalf("unexpected defaults retention=%d terminal=%d", job.retention, job.terminal)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxPruner{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{})

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxPruner, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test"})
	params.DB = passthroughTx{}
	params.Repository = repo
	jobIface, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxPruner struct {
	cutoff   time.Time
	terminal int
	deleted  int64
	err      error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error) {
	f.cutoff = cutoff
	f.terminal = terminalAttempts
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
