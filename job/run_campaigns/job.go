package run_campaigns

import (
	"context"

	"phishsim/pkg/service"
	"phishsim/repo"
	"phishsim/scheduler"
)

// RunCampaigns executes one scheduler pass. It exists for operators who
// run dispatch out of cron instead of the in-process scheduler.
type RunCampaigns struct {
	campaignRepo repo.CampaignRepo
	dispatcher   scheduler.Dispatcher
}

func New(campaignRepo repo.CampaignRepo, dispatcher scheduler.Dispatcher) service.Job {
	return &RunCampaigns{
		campaignRepo: campaignRepo,
		dispatcher:   dispatcher,
	}
}

func (h *RunCampaigns) Init(_ context.Context) error {
	return nil
}

func (h *RunCampaigns) Run(ctx context.Context) error {
	scheduler.New(0, h.campaignRepo, h.dispatcher).Tick(ctx)
	return nil
}

func (h *RunCampaigns) CleanUp(_ context.Context) error {
	return nil
}
