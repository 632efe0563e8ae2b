package main

import (
	"context"
	"fmt"
	"os"

	"phishsim/config"
	"phishsim/handler"
	"phishsim/job/process_events"
	"phishsim/job/run_campaigns"
	"phishsim/pkg/logutil"
	"phishsim/pkg/service"
	"phishsim/repo"
	"phishsim/templater"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		opt = config.NewOptions()
		ctx = logutil.InitZeroLog(context.Background(), "DEBUG")
	)

	cfg := config.NewConfig()
	if err := cfg.Load(ctx, opt.ConfigPath); err != nil {
		log.Ctx(ctx).Error().Msgf("load config failed: %v", err)
		os.Exit(1)
	}

	// base repo
	baseRepo, err := repo.NewBaseRepo(ctx, cfg.MetadataDB)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init base repo failed, err: %v", err)
		os.Exit(1)
	}
	defer func() {
		if baseRepo != nil {
			if err := baseRepo.Close(ctx); err != nil {
				log.Ctx(ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	baseCache := repo.NewBaseCache(ctx)

	var (
		campaignRepo    = repo.NewCampaignRepo(ctx, baseRepo)
		targetRepo      = repo.NewTargetRepo(ctx, baseRepo)
		groupRepo       = repo.NewGroupRepo(ctx, baseRepo, targetRepo)
		templateRepo    = repo.NewTemplateRepo(ctx, baseRepo, baseCache)
		pageRepo        = repo.NewPageRepo(ctx, baseRepo, baseCache)
		smtpProfileRepo = repo.NewSMTPProfileRepo(ctx, baseRepo, baseCache)
		resultRepo      = repo.NewResultRepo(ctx, baseRepo)
		eventLogRepo    = repo.NewEventLogRepo(ctx, baseRepo)
	)

	campaignHandler := handler.NewCampaignHandler(
		campaignRepo,
		groupRepo,
		targetRepo,
		templateRepo,
		pageRepo,
		smtpProfileRepo,
		resultRepo,
		eventLogRepo,
		templater.New(cfg.Tracking.BaseURL),
	)

	jobs := map[string]service.Job{
		"run-campaigns":  run_campaigns.New(campaignRepo, campaignHandler),
		"process-events": process_events.New(cfg, resultRepo, eventLogRepo),
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <job_name>")
		os.Exit(1)
	}

	jobName := os.Args[1]
	job, exists := jobs[jobName]
	if !exists {
		log.Ctx(ctx).Error().Msgf("job %s not found", jobName)
		os.Exit(1)
	}

	if err := job.Init(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("init job err: %v", err)
		os.Exit(1)
	}

	if err := job.Run(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("run job err: %v", err)
		os.Exit(1)
	}

	if err := job.CleanUp(ctx); err != nil {
		log.Ctx(ctx).Error().Msgf("cleanup job err: %v", err)
		os.Exit(1)
	}

	log.Ctx(ctx).Info().Msg("job executed successfully")
	os.Exit(0)
}
