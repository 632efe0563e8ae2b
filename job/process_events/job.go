package process_events

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"phishsim/config"
	"phishsim/entity"
	"phishsim/pkg/mq"
	"phishsim/pkg/service"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

// ProcessEvents drains the hit queue into the result rows and the event
// log. It runs until SIGINT or SIGTERM.
type ProcessEvents struct {
	cfg          *config.Config
	resultRepo   repo.ResultRepo
	eventLogRepo repo.EventLogRepo

	consumer *mq.Consumer
}

func New(cfg *config.Config, resultRepo repo.ResultRepo, eventLogRepo repo.EventLogRepo) service.Job {
	return &ProcessEvents{
		cfg:          cfg,
		resultRepo:   resultRepo,
		eventLogRepo: eventLogRepo,
	}
}

func (h *ProcessEvents) Init(_ context.Context) error {
	mq.RegisterHandler(mq.PayloadTrackHit, h.handleTrackHit)
	return nil
}

func (h *ProcessEvents) Run(ctx context.Context) error {
	consumer, err := mq.NewConsumer(ctx, h.cfg.HitConsumer)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init consumer err: %v", err)
		return err
	}
	h.consumer = consumer

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	return nil
}

func (h *ProcessEvents) CleanUp(ctx context.Context) error {
	if h.consumer != nil {
		if err := h.consumer.Close(); err != nil {
			log.Ctx(ctx).Error().Msgf("close consumer err: %v", err)
			return err
		}
	}
	return nil
}

func (h *ProcessEvents) handleTrackHit(ctx context.Context, msg *mq.Message) error {
	hit := new(mq.TrackHit)
	if err := msg.ParseBody(hit); err != nil {
		return err
	}

	var (
		campaignID = hit.GetCampaignID()
		targetID   = hit.GetTargetID()
		event      = entity.Event(hit.GetEvent())
	)

	switch event {
	case entity.EventOpened:
		if err := h.resultRepo.MarkOpened(ctx, campaignID, targetID); err != nil {
			return err
		}
	case entity.EventClicked:
		if err := h.resultRepo.MarkClicked(ctx, campaignID, targetID); err != nil {
			return err
		}
	case entity.EventSubmitted:
		if err := h.resultRepo.MarkSubmitted(ctx, campaignID, targetID, hit.GetSubmittedData()); err != nil {
			return err
		}
	}

	details := hit.GetURL()
	if event == entity.EventSubmitted {
		details = hit.GetSubmittedData()
	}

	return h.eventLogRepo.Create(ctx, entity.NewEventLog(campaignID, targetID, event, details, hit.GetEventTime()))
}
