package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"phishsim/entity"
	"phishsim/repo"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Dispatcher executes one claimed campaign end-to-end.
type Dispatcher interface {
	Dispatch(ctx context.Context, campaign *entity.Campaign) error
}

// Scheduler periodically scans for due campaigns and hands each one to the
// dispatcher exactly once. The campaign's own status field is the claim
// token: the conditional claim write makes the scan race-safe across
// scheduler instances sharing one store.
type Scheduler struct {
	interval     time.Duration
	campaignRepo repo.CampaignRepo
	dispatcher   Dispatcher

	cron      *cron.Cron
	startOnce sync.Once
}

func New(interval time.Duration, campaignRepo repo.CampaignRepo, dispatcher Dispatcher) *Scheduler {
	return &Scheduler{
		interval:     interval,
		campaignRepo: campaignRepo,
		dispatcher:   dispatcher,
	}
}

// Start begins the recurring tick. A second call is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	var err error

	s.startOnce.Do(func() {
		s.cron = cron.New()

		_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
			s.Tick(ctx)
		})
		if err != nil {
			return
		}

		s.cron.Start()

		log.Ctx(ctx).Info().Msgf("scheduler started, tick interval: %s", s.interval)
	})

	return err
}

func (s *Scheduler) Stop(_ context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Tick runs one scan. Per-campaign errors are logged and never abort the
// remaining campaigns.
func (s *Scheduler) Tick(ctx context.Context) {
	now := uint64(time.Now().Unix())

	campaigns, err := s.campaignRepo.GetDue(ctx, now)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get due campaigns failed: %v", err)
		return
	}

	if len(campaigns) == 0 {
		return
	}

	log.Ctx(ctx).Info().Msgf("number of due campaigns: %d", len(campaigns))

	for _, campaign := range campaigns {
		if !campaign.IsClaimable() {
			continue
		}

		claimed, err := s.campaignRepo.Claim(ctx, campaign.GetID())
		if err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] claim failed: %v", campaign.GetID(), err)
			continue
		}

		if !claimed {
			// another scheduler instance won the race
			log.Ctx(ctx).Info().Msgf("[campaign ID %d] already claimed, skipping", campaign.GetID())
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, campaign); err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] dispatch failed: %v", campaign.GetID(), err)
		}
	}
}
