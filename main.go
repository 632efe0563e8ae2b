package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"phishsim/config"
	"phishsim/handler"
	"phishsim/middleware"
	"phishsim/pkg/logutil"
	"phishsim/pkg/mq"
	"phishsim/pkg/router"
	"phishsim/pkg/service"
	"phishsim/repo"
	"phishsim/scheduler"
	"phishsim/templater"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type server struct {
	ctx context.Context
	opt *config.Option
	cfg *config.Config

	baseRepo  repo.BaseRepo
	baseCache repo.BaseCache

	tenantRepo      repo.TenantRepo
	campaignRepo    repo.CampaignRepo
	groupRepo       repo.GroupRepo
	targetRepo      repo.TargetRepo
	templateRepo    repo.TemplateRepo
	pageRepo        repo.PageRepo
	smtpProfileRepo repo.SMTPProfileRepo
	resultRepo      repo.ResultRepo
	eventLogRepo    repo.EventLogRepo

	hitProducer *mq.Producer

	// api handlers
	tenantHandler      handler.TenantHandler
	campaignHandler    handler.CampaignHandler
	groupHandler       handler.GroupHandler
	templateHandler    handler.TemplateHandler
	pageHandler        handler.PageHandler
	smtpProfileHandler handler.SMTPProfileHandler
	trackingHandler    handler.TrackingHandler

	scheduler *scheduler.Scheduler
}

func main() {
	s := new(server)
	if err := service.Run(s); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func (s *server) Init() error {
	opt := config.NewOptions()

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		opt.LogLevel = logLevel
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		opt.ConfigPath = configPath
	}

	if serverPort := os.Getenv("PORT"); serverPort != "" {
		if port, err := strconv.Atoi(serverPort); err == nil {
			opt.Port = port
		}
	}

	s.opt = opt

	return nil
}

func (s *server) Start() error {
	var err error

	// ====== init logger ===== //

	s.ctx = logutil.InitZeroLog(context.Background(), s.opt.LogLevel)

	// ===== init config ===== //

	s.cfg = config.NewConfig()
	if err = s.cfg.Load(s.ctx, s.opt.ConfigPath); err != nil {
		log.Ctx(s.ctx).Error().Msgf("load config failed, err: %v", err)
		return err
	}

	// ===== init repos ===== //

	s.baseRepo, err = repo.NewBaseRepo(s.ctx, s.cfg.MetadataDB)
	if err != nil {
		log.Ctx(s.ctx).Error().Msgf("init base repo failed, err: %v", err)
		return err
	}
	defer func() {
		if err != nil && s.baseRepo != nil {
			if err := s.baseRepo.Close(s.ctx); err != nil {
				log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
				return
			}
		}
	}()

	s.baseCache = repo.NewBaseCache(s.ctx)

	s.tenantRepo = repo.NewTenantRepo(s.ctx, s.baseRepo)
	s.campaignRepo = repo.NewCampaignRepo(s.ctx, s.baseRepo)
	s.targetRepo = repo.NewTargetRepo(s.ctx, s.baseRepo)
	s.groupRepo = repo.NewGroupRepo(s.ctx, s.baseRepo, s.targetRepo)
	s.templateRepo = repo.NewTemplateRepo(s.ctx, s.baseRepo, s.baseCache)
	s.pageRepo = repo.NewPageRepo(s.ctx, s.baseRepo, s.baseCache)
	s.smtpProfileRepo = repo.NewSMTPProfileRepo(s.ctx, s.baseRepo, s.baseCache)
	s.resultRepo = repo.NewResultRepo(s.ctx, s.baseRepo)
	s.eventLogRepo = repo.NewEventLogRepo(s.ctx, s.baseRepo)

	// ===== init hit producer ===== //

	// the queue is optional, hits are written to the event log directly
	// without it
	if len(s.cfg.HitProducer.Brokers) > 0 {
		s.hitProducer, err = mq.NewProducer(s.ctx, s.cfg.HitProducer)
		if err != nil {
			log.Ctx(s.ctx).Error().Msgf("init hit producer failed, err: %v", err)
			return err
		}
	}

	// ===== init handlers ===== //

	t := templater.New(s.cfg.Tracking.BaseURL)

	s.campaignHandler = handler.NewCampaignHandler(
		s.campaignRepo,
		s.groupRepo,
		s.targetRepo,
		s.templateRepo,
		s.pageRepo,
		s.smtpProfileRepo,
		s.resultRepo,
		s.eventLogRepo,
		t,
	)
	s.tenantHandler = handler.NewTenantHandler(s.tenantRepo)
	s.groupHandler = handler.NewGroupHandler(s.groupRepo, s.targetRepo)
	s.templateHandler = handler.NewTemplateHandler(s.templateRepo)
	s.pageHandler = handler.NewPageHandler(s.pageRepo)
	s.smtpProfileHandler = handler.NewSMTPProfileHandler(s.smtpProfileRepo)
	s.trackingHandler = handler.NewTrackingHandler(
		s.campaignRepo,
		s.targetRepo,
		s.pageRepo,
		s.resultRepo,
		s.eventLogRepo,
		t,
		s.hitProducer,
	)

	// ===== start scheduler ===== //

	s.scheduler = scheduler.New(
		time.Duration(s.cfg.Scheduler.TickIntervalMillis)*time.Millisecond,
		s.campaignRepo,
		s.campaignHandler,
	)
	if err = s.scheduler.Start(s.ctx); err != nil {
		log.Ctx(s.ctx).Error().Msgf("start scheduler failed, err: %v", err)
		return err
	}

	// ===== start server ===== //

	go func() {
		addr := fmt.Sprintf(":%d", s.opt.Port)

		log.Info().Msgf("starting HTTP server at %s", addr)

		c := cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		})

		httpServer := &http.Server{
			BaseContext: func(_ net.Listener) context.Context {
				return s.ctx
			},
			Addr:    addr,
			Handler: middleware.Log(c.Handler(s.registerRoutes())),
		}
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fail to start HTTP server, err: %v", err)
		}
	}()

	return nil
}

func (s *server) Stop() error {
	if s.scheduler != nil {
		s.scheduler.Stop(s.ctx)
	}

	if s.hitProducer != nil {
		if err := s.hitProducer.Close(); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close hit producer failed, err: %v", err)
			return err
		}
	}

	if s.baseRepo != nil {
		if err := s.baseRepo.Close(s.ctx); err != nil {
			log.Ctx(s.ctx).Error().Msgf("close base repo failed, err: %v", err)
			return err
		}
	}

	return nil
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct{}

func (s *server) registerRoutes() http.Handler {
	r := &router.HttpRouter{
		Router: mux.NewRouter(),
	}

	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathHealthCheck,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(HealthCheckRequest),
			Res: new(HealthCheckResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return nil
			},
		},
	})

	// create_tenant
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateTenant,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateTenantRequest),
			Res: new(handler.CreateTenantResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.tenantHandler.CreateTenant(ctx, req.(*handler.CreateTenantRequest), res.(*handler.CreateTenantResponse))
			},
		},
	})

	// get_tenant
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetTenant,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetTenantRequest),
			Res: new(handler.GetTenantResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.tenantHandler.GetTenant(ctx, req.(*handler.GetTenantRequest), res.(*handler.GetTenantResponse))
			},
		},
	})

	// create_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateCampaignRequest),
			Res: new(handler.CreateCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.CreateCampaign(ctx, req.(*handler.CreateCampaignRequest), res.(*handler.CreateCampaignResponse))
			},
		},
	})

	// get_campaigns
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaigns,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetCampaignsRequest),
			Res: new(handler.GetCampaignsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaigns(ctx, req.(*handler.GetCampaignsRequest), res.(*handler.GetCampaignsResponse))
			},
		},
	})

	// launch_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathLaunchCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.LaunchCampaignRequest),
			Res: new(handler.LaunchCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.LaunchCampaign(ctx, req.(*handler.LaunchCampaignRequest), res.(*handler.LaunchCampaignResponse))
			},
		},
	})

	// complete_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCompleteCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CompleteCampaignRequest),
			Res: new(handler.CompleteCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.CompleteCampaign(ctx, req.(*handler.CompleteCampaignRequest), res.(*handler.CompleteCampaignResponse))
			},
		},
	})

	// dispatch_campaign
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathDispatchCampaign,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.DispatchCampaignRequest),
			Res: new(handler.DispatchCampaignResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.DispatchCampaign(ctx, req.(*handler.DispatchCampaignRequest), res.(*handler.DispatchCampaignResponse))
			},
		},
	})

	// get_campaign_results
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetCampaignResults,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetCampaignResultsRequest),
			Res: new(handler.GetCampaignResultsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.campaignHandler.GetCampaignResults(ctx, req.(*handler.GetCampaignResultsRequest), res.(*handler.GetCampaignResultsResponse))
			},
		},
	})

	// create_group
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateGroup,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateGroupRequest),
			Res: new(handler.CreateGroupResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.groupHandler.CreateGroup(ctx, req.(*handler.CreateGroupRequest), res.(*handler.CreateGroupResponse))
			},
		},
	})

	// get_groups
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetGroups,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetGroupsRequest),
			Res: new(handler.GetGroupsResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.groupHandler.GetGroups(ctx, req.(*handler.GetGroupsRequest), res.(*handler.GetGroupsResponse))
			},
		},
	})

	// create_template
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateTemplate,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateTemplateRequest),
			Res: new(handler.CreateTemplateResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.templateHandler.CreateTemplate(ctx, req.(*handler.CreateTemplateRequest), res.(*handler.CreateTemplateResponse))
			},
		},
	})

	// get_templates
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetTemplates,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetTemplatesRequest),
			Res: new(handler.GetTemplatesResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.templateHandler.GetTemplates(ctx, req.(*handler.GetTemplatesRequest), res.(*handler.GetTemplatesResponse))
			},
		},
	})

	// create_page
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreatePage,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreatePageRequest),
			Res: new(handler.CreatePageResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.pageHandler.CreatePage(ctx, req.(*handler.CreatePageRequest), res.(*handler.CreatePageResponse))
			},
		},
	})

	// get_pages
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetPages,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetPagesRequest),
			Res: new(handler.GetPagesResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.pageHandler.GetPages(ctx, req.(*handler.GetPagesRequest), res.(*handler.GetPagesResponse))
			},
		},
	})

	// create_smtp_profile
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathCreateSMTPProfile,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.CreateSMTPProfileRequest),
			Res: new(handler.CreateSMTPProfileResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.smtpProfileHandler.CreateSMTPProfile(ctx, req.(*handler.CreateSMTPProfileRequest), res.(*handler.CreateSMTPProfileResponse))
			},
		},
	})

	// get_smtp_profiles
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathGetSMTPProfiles,
		Method: http.MethodGet,
		Handler: router.Handler{
			Req: new(handler.GetSMTPProfilesRequest),
			Res: new(handler.GetSMTPProfilesResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.smtpProfileHandler.GetSMTPProfiles(ctx, req.(*handler.GetSMTPProfilesRequest), res.(*handler.GetSMTPProfilesResponse))
			},
		},
	})

	// test_smtp_profile
	r.RegisterHttpRoute(&router.HttpRoute{
		Path:   config.PathTestSMTPProfile,
		Method: http.MethodPost,
		Handler: router.Handler{
			Req: new(handler.TestSMTPProfileRequest),
			Res: new(handler.TestSMTPProfileResponse),
			HandleFunc: func(ctx context.Context, req, res interface{}) error {
				return s.smtpProfileHandler.TestSMTPProfile(ctx, req.(*handler.TestSMTPProfileRequest), res.(*handler.TestSMTPProfileResponse))
			},
		},
	})

	// tracking endpoints sit outside the API prefix, the instrumented
	// links embed these paths directly
	r.RegisterRawRoute(http.MethodGet, config.PathTrackClick, s.trackingHandler.TrackClick)
	r.RegisterRawRoute(http.MethodGet, config.PathTrackOpen, s.trackingHandler.TrackOpen)
	r.RegisterRawRoute(http.MethodGet, config.PathTrackLanding, s.trackingHandler.TrackLanding)
	r.RegisterRawRoute(http.MethodPost, config.PathTrackLanding, s.trackingHandler.TrackLanding)

	return r.Router
}
