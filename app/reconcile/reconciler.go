package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-brief/app/feed"
	"github.com/lysyi3m/rss-brief/app/remote"
)

// Decide applies the timestamp policy. A copy without a usable watermark
// loses to one that has it; with neither, the local copy wins.
func Decide(local time.Time, localOK bool, remote time.Time, remoteOK bool) Decision {
	switch {
	case !localOK && !remoteOK:
		return LocalWins
	case !localOK:
		return RemoteWins
	case !remoteOK:
		return LocalWins
	case local.After(remote):
		return LocalWins
	case remote.After(local):
		return RemoteWins
	default:
		return NoOp
	}
}

// Reconciler keeps the local feed file consistent with the remote copy.
type Reconciler struct {
	store      remote.Store
	localPath  string
	remotePath string
	now        func() time.Time
}

func New(store remote.Store, localPath, remotePath string) *Reconciler {
	return &Reconciler{
		store:      store,
		localPath:  localPath,
		remotePath: remotePath,
		now:        time.Now,
	}
}

// Run performs one reconciliation. It never returns an error directly;
// failures are reported through Result.State and Result.Err, and leave the
// local file untouched.
func (r *Reconciler) Run(ctx context.Context) (result Result) {
	result = Result{State: StateStart, StartedAt: r.now()}

	defer func() {
		if p := recover(); p != nil {
			result.State = StateFailed
			result.Err = fmt.Errorf("reconciliation panicked: %v", p)
		}
		result.FinishedAt = r.now()
		r.log(result)
	}()

	local, err := feed.ReadLocal(r.localPath)
	if err != nil {
		return r.fail(result, err)
	}

	remoteCopy, err := r.store.Get(ctx, r.remotePath)
	remoteMissing := errors.Is(err, remote.ErrNotFound)
	if err != nil && !remoteMissing {
		return r.fail(result, err)
	}
	result.State = StateFetched

	localWatermark, localOK := feed.Watermark(local)
	remoteWatermark, remoteOK := feed.Watermark(remoteCopy.Content)
	if localOK {
		result.LocalWatermark = localWatermark
	}
	if remoteOK {
		result.RemoteWatermark = remoteWatermark
	}

	localMissing := len(bytes.TrimSpace(local)) == 0
	switch {
	case localMissing && remoteMissing:
		result.Decision = NoOp
	case localMissing:
		result.Decision = RemoteWins
	case remoteMissing:
		result.Decision = LocalWins
	default:
		result.Decision = Decide(localWatermark, localOK, remoteWatermark, remoteOK)
	}
	result.State = StateCompared

	slog.Debug("Reconciliation decided",
		"decision", result.Decision,
		"local_watermark", result.LocalWatermark,
		"remote_watermark", result.RemoteWatermark,
		"local_missing", localMissing,
		"remote_missing", remoteMissing)

	switch result.Decision {
	case RemoteWins:
		if err := feed.WriteFileAtomic(r.localPath, remoteCopy.Content); err != nil {
			return r.fail(result, err)
		}
	case LocalWins:
		message := "Update " + r.remotePath
		if remoteCopy.Version == "" {
			message = "Create " + r.remotePath
		}
		if err := r.store.Put(ctx, r.remotePath, local, remoteCopy.Version, message); err != nil {
			return r.fail(result, err)
		}
	}

	result.State = StateDone
	return result
}

func (r *Reconciler) fail(result Result, err error) Result {
	result.State = StateFailed
	result.Err = err
	return result
}

func (r *Reconciler) log(result Result) {
	attrs := []any{
		"state", result.State,
		"decision", result.Decision,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	}

	if result.Err != nil {
		attrs = append(attrs, "error", result.Err)
		if errors.Is(result.Err, remote.ErrConflict) {
			slog.Error("Reconciliation failed: remote changed during cycle", attrs...)
			return
		}
		slog.Error("Reconciliation failed", attrs...)
		return
	}

	slog.Info("Reconciliation completed", attrs...)
}
