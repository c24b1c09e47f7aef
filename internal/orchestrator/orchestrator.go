package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/config"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/launcher"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/logging"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/manifest"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/notify"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/overlay"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/poller"
	"github.com/hochfrequenz/gamecraft-orchestrator/internal/request"
)

// OverlayRenderer renders the action icon overlay for a produced video.
type OverlayRenderer interface {
	Render(ctx context.Context, videoPath string, actions domain.ActionSequence) (string, *overlay.Plan, error)
}

// RunSaver indexes finished run records.
type RunSaver interface {
	SaveRun(rec *domain.RunRecord) error
}

// Orchestrator drives one run end to end: build the request, launch the
// inference process, wait for the video artifact, overlay the action icons
// and persist the manifest.
type Orchestrator struct {
	cfg      *config.Config
	builder  *request.Builder
	launcher *launcher.Launcher
	poller   *poller.Poller

	// Overlay is replaceable so tests can inject a stub renderer.
	Overlay OverlayRenderer

	store    RunSaver
	notifier notify.Notifier
	logger   *slog.Logger
}

// New wires an Orchestrator from the loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		builder:  request.NewBuilder(cfg),
		launcher: launcher.New(cfg.Inference.Command, logging.WithComponent(logger, "launcher")),
		poller: poller.New(
			time.Duration(cfg.Polling.IntervalSeconds)*time.Second,
			time.Duration(cfg.Polling.MaxWaitSeconds)*time.Second,
			logging.WithComponent(logger, "poller"),
		),
		Overlay: overlay.NewCoordinator(
			cfg.Overlay.Command,
			cfg.Overlay.FPS,
			time.Duration(cfg.Overlay.TimeoutSeconds)*time.Second,
			logging.WithComponent(logger, "overlay"),
		),
		notifier: notify.NoopNotifier{},
		logger:   logger,
	}
}

// SetStore attaches the run index. Without one, runs are only recorded in
// their manifests.
func (o *Orchestrator) SetStore(s RunSaver) {
	o.store = s
}

// SetNotifier attaches the notifier for terminal run states.
func (o *Orchestrator) SetNotifier(n notify.Notifier) {
	o.notifier = n
}

// Execute performs one run. Validation and configuration errors are returned
// before any directory or process is created. Once launched, a run always
// ends with a written manifest; a timed out run is a normal outcome and
// returns the record together with a nil error.
func (o *Orchestrator) Execute(ctx context.Context, p request.Params) (*domain.RunRecord, error) {
	req, savePath, err := o.builder.Build(p)
	if err != nil {
		return nil, err
	}

	rec := &domain.RunRecord{
		ID:        uuid.NewString(),
		Request:   *req,
		SavePath:  savePath,
		StartedAt: time.Now().UTC(),
		Status:    domain.RunWaiting,
	}
	log := logging.WithRun(o.logger, rec.ID)
	log.Info("run starting",
		"image", req.SourceImage,
		"actions", req.Actions.Tag(),
		"tier", string(req.Tier),
		"precision", string(req.Precision),
		"seed", req.Seed,
		"save_path", savePath)

	proc, err := o.launcher.Launch(ctx, req, savePath, p.ConfigPath)
	if err != nil {
		rec.Status = domain.RunLaunchFailed
		rec.FinishedAt = time.Now().UTC()
		o.finish(log, rec)
		return rec, err
	}

	res, err := o.poller.Wait(ctx, savePath)
	if err != nil {
		proc.Stop()
		return nil, err
	}

	if res.Status == poller.StatusTimedOut {
		// The inference process is still running; reclaim it so a stuck run
		// does not leak GPU time.
		proc.Stop()
		rec.Status = domain.RunTimedOut
		rec.WaitSeconds = int(res.Waited.Seconds())
		rec.FinishedAt = time.Now().UTC()
		o.finish(log, rec)
		return rec, nil
	}

	rec.VideoPath = res.VideoPath
	rec.WaitSeconds = int(res.Waited.Seconds())
	log.Info("video artifact found", "path", res.VideoPath, "polls", res.Polls, "waited", res.Waited)

	overlayStart := time.Now()
	out, _, oerr := o.Overlay.Render(ctx, res.VideoPath, req.Actions)
	if oerr != nil {
		// The primary artifact stands on its own; record the run without
		// an overlay output.
		var overlayErr *overlay.OverlayError
		if errors.As(oerr, &overlayErr) {
			log.Warn("overlay rendering failed", "error", oerr)
		} else {
			log.Warn("overlay rendering aborted", "error", oerr)
		}
	} else {
		rec.OverlayOutput = out
		rec.OverlaySeconds = int(time.Since(overlayStart).Seconds())
	}

	rec.Status = domain.RunCompleted
	rec.FinishedAt = time.Now().UTC()
	o.finish(log, rec)
	return rec, nil
}

// finish writes the manifest, indexes the run and notifies. Failures here
// are logged, never escalated: the run outcome itself is already decided.
func (o *Orchestrator) finish(log *slog.Logger, rec *domain.RunRecord) {
	if err := manifest.FromRecord(rec).Write(rec.SavePath); err != nil {
		log.Error("writing run manifest failed", "save_path", rec.SavePath, "error", err)
	}
	if o.store != nil {
		if err := o.store.SaveRun(rec); err != nil {
			log.Error("indexing run failed", "error", err)
		}
	}
	if err := o.notifier.Send(notify.ForRun(rec)); err != nil {
		log.Warn("sending notification failed", "error", err)
	}
	log.Info("run finished",
		"status", string(rec.Status),
		"duration", rec.Duration(),
		"wait_seconds", rec.WaitSeconds,
		"video", rec.VideoPath)
}
