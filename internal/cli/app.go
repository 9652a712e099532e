package cli

import (
	"context"
	"time"

	"yt-publish-scheduler/internal/config"
	"yt-publish-scheduler/internal/gclient"
	"yt-publish-scheduler/internal/ledger"
	"yt-publish-scheduler/internal/notify"
	"yt-publish-scheduler/internal/pipeline"
	"yt-publish-scheduler/internal/reconcile"
	"yt-publish-scheduler/internal/sheet"
	"yt-publish-scheduler/internal/slot"
	"yt-publish-scheduler/internal/youtube"
)

// app is the composition root shared by every command: config, store,
// remote adapters, and the wired pipeline and reconciliation jobs.
type app struct {
	cfg       config.Config
	store     *ledger.Ledger
	yt        youtube.API
	pipeline  pipeline.Pipeline
	reconcile reconcile.Jobs
}

// reservations pairs the two slot authorities behind one interface.
type reservations struct {
	store  *ledger.Ledger
	mirror youtube.Mirror
}

func (r reservations) LedgerReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	return r.store.LedgerReservedSlots(ctx, loc)
}

func (r reservations) RemoteReservedSlots(ctx context.Context, loc *time.Location) (map[time.Time]bool, error) {
	return r.mirror.ReservedSlots(ctx, loc)
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	httpc := gclient.BearerClient(cfg.GoogleBearerToken)
	driveSvc := gclient.NewDrive(httpc)
	ytAPI := gclient.NewYouTube(httpc)
	sheetsClient := gclient.NewSheets(httpc, cfg.SpreadsheetID, cfg.SheetName, cfg.SheetGridID)

	mirror := youtube.Mirror{API: ytAPI, Drive: driveSvc, Privacy: cfg.UploadPrivacy}
	report := sheet.Mirror{
		Client:      sheetsClient,
		Location:    cfg.Location(),
		LinkVideoID: cfg.LinkVideoID,
	}
	alloc := slot.Allocator{
		Location:     cfg.Location(),
		Hour:         cfg.PublishHour,
		Minute:       cfg.PublishMinute,
		Reservations: reservations{store: store, mirror: mirror},
	}

	a := &app{
		cfg:   cfg,
		store: store,
		yt:    ytAPI,
		pipeline: pipeline.Pipeline{
			Store:          store,
			Locker:         store,
			Drive:          driveSvc,
			Uploader:       mirror,
			Reporter:       report,
			Slots:          alloc,
			Notify:         notify.NewWebhook(cfg.NotifyWebhookURL),
			ParentFolderID: cfg.ParentFolderID,
			ActorID:        cfg.ActorID,
			DueBatchLimit:  cfg.DueBatchLimit,
		},
		reconcile: reconcile.Jobs{
			Store:             store,
			Locker:            store,
			API:               ytAPI,
			Mover:             driveSvc,
			Report:            report,
			PublishedParentID: cfg.PublishedFolderID,
		},
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
