// Package syncer replays queued remote writes once connectivity returns.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/wardsync/internal/adapter/remote"
	"github.com/heartmarshall/wardsync/internal/domain"
)

type pendingLog interface {
	ClaimDrain(ctx context.Context) (release func(), ok bool, err error)
	ListPending(ctx context.Context) ([]domain.PendingOperation, error)
	Remove(ctx context.Context, id int64) error
}

type recordStore interface {
	MarkSynced(ctx context.Context, id string) error
}

type remoteClient interface {
	Send(ctx context.Context, method, endpoint string, body json.RawMessage) (*remote.Response, error)
}

// Result counts the outcome of one drain. Skipped is set when another agent
// sharing the same storage was already draining.
type Result struct {
	Success int  `json:"success"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped,omitempty"`
}

// Coordinator drains the pending log against the remote API.
type Coordinator struct {
	pending pendingLog
	records recordStore
	remote  remoteClient
	log     *slog.Logger

	group singleflight.Group
	// bg counts callers waiting on a drain, released when the drain ends
	// rather than when the caller gives up.
	bg sync.WaitGroup
	// baseCtx is the parent of background drains; it outlives any request.
	baseCtx context.Context
}

// NewCoordinator creates a Coordinator. Background drains run under ctx.
func NewCoordinator(ctx context.Context, logger *slog.Logger, pending pendingLog, records recordStore, client remoteClient) *Coordinator {
	return &Coordinator{
		pending: pending,
		records: records,
		remote:  client,
		log:     logger.With("service", "syncer"),
		baseCtx: context.WithoutCancel(ctx),
	}
}

const drainKey = "drain"

// DrainPending replays every operation queued at the moment the drain
// starts, in enqueue order. A caller arriving while a drain is running joins
// it and receives the same Result.
func (c *Coordinator) DrainPending(ctx context.Context) (Result, error) {
	c.bg.Add(1)
	ch := c.group.DoChan(drainKey, func() (any, error) {
		// The drain must not die with whichever caller happened to start it.
		return c.drain(context.WithoutCancel(ctx))
	})

	done := make(chan singleflight.Result, 1)
	go func() {
		defer c.bg.Done()
		done <- <-ch
	}()

	select {
	case res := <-done:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// OnConnectivityChange is a connectivity listener: it starts a background
// drain when the agent comes back online.
func (c *Coordinator) OnConnectivityChange(online bool) {
	if !online {
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if _, err := c.DrainPending(c.baseCtx); err != nil {
			c.log.Error("background drain failed", slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until every drain started so far has finished, including
// drains whose callers have already returned.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

func (c *Coordinator) drain(ctx context.Context) (Result, error) {
	start := time.Now()

	release, ok, err := c.pending.ClaimDrain(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("drain: %w", err)
	}
	if !ok {
		c.log.InfoContext(ctx, "drain skipped, another agent is draining")
		return Result{Skipped: true}, nil
	}
	defer release()

	ops, err := c.pending.ListPending(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("drain: %w", err)
	}
	if len(ops) == 0 {
		return Result{}, nil
	}

	c.log.InfoContext(ctx, "drain started", slog.Int("pending", len(ops)))

	var res Result
	for _, op := range ops {
		if err := c.replay(ctx, op); err != nil {
			res.Failed++
			c.log.WarnContext(ctx, "operation left queued",
				slog.Int64("id", op.ID),
				slog.String("type", op.Type.String()),
				slog.String("endpoint", op.Endpoint),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Success++
	}

	c.log.InfoContext(ctx, "drain finished",
		slog.Int("success", res.Success),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// replay sends one operation and, once the remote API confirms it, removes
// it from the log. A failure to update local state after a confirmed write
// still counts as success; the operation was delivered.
func (c *Coordinator) replay(ctx context.Context, op domain.PendingOperation) error {
	method := op.Type.Method()
	if method == "" {
		return fmt.Errorf("operation %d: unknown type %q", op.ID, op.Type)
	}

	if _, err := c.remote.Send(ctx, method, op.Endpoint, op.Data); err != nil {
		return err
	}

	if err := c.pending.Remove(ctx, op.ID); err != nil {
		c.log.ErrorContext(ctx, "remove delivered operation",
			slog.Int64("id", op.ID),
			slog.String("error", err.Error()),
		)
	}

	if op.Type != domain.OperationCreate {
		return nil
	}
	id, ok := op.RecordID()
	if !ok {
		return nil
	}
	if err := c.records.MarkSynced(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		c.log.ErrorContext(ctx, "mark record synced",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
