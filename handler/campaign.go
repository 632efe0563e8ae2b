package handler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"phishsim/dep"
	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/goutil"
	"phishsim/pkg/validator"
	"phishsim/repo"
	"phishsim/templater"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxSendConcurrency bounds the per-campaign send fan-out so a single
// campaign cannot exhaust connections to the mail server.
const maxSendConcurrency = 10

var (
	ErrMissingDependency = errors.New("campaign dependency missing")
	ErrCampaignNotDraft  = errors.New("campaign is not in draft")
	ErrCampaignSealed    = errors.New("campaign can no longer change")
	ErrScheduleInThePast = errors.New("scheduled_at is in the past")
	ErrEndBeforeSchedule = errors.New("end_time is before scheduled_at")
)

type CampaignHandler interface {
	CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error
	GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error
	LaunchCampaign(ctx context.Context, req *LaunchCampaignRequest, res *LaunchCampaignResponse) error
	CompleteCampaign(ctx context.Context, req *CompleteCampaignRequest, res *CompleteCampaignResponse) error
	DispatchCampaign(ctx context.Context, req *DispatchCampaignRequest, res *DispatchCampaignResponse) error
	GetCampaignResults(ctx context.Context, req *GetCampaignResultsRequest, res *GetCampaignResultsResponse) error

	// Dispatch executes one claimed campaign. It is the scheduler's entry
	// point; the campaign must already be Active.
	Dispatch(ctx context.Context, campaign *entity.Campaign) error
}

type campaignHandler struct {
	campaignRepo    repo.CampaignRepo
	groupRepo       repo.GroupRepo
	targetRepo      repo.TargetRepo
	templateRepo    repo.TemplateRepo
	pageRepo        repo.PageRepo
	smtpProfileRepo repo.SMTPProfileRepo
	resultRepo      repo.ResultRepo
	eventLogRepo    repo.EventLogRepo
	templater       *templater.Templater

	newEmailService func(ctx context.Context, profile *entity.SMTPProfile) (dep.EmailService, error)
}

func NewCampaignHandler(
	campaignRepo repo.CampaignRepo,
	groupRepo repo.GroupRepo,
	targetRepo repo.TargetRepo,
	templateRepo repo.TemplateRepo,
	pageRepo repo.PageRepo,
	smtpProfileRepo repo.SMTPProfileRepo,
	resultRepo repo.ResultRepo,
	eventLogRepo repo.EventLogRepo,
	t *templater.Templater,
) CampaignHandler {
	return &campaignHandler{
		campaignRepo:    campaignRepo,
		groupRepo:       groupRepo,
		targetRepo:      targetRepo,
		templateRepo:    templateRepo,
		pageRepo:        pageRepo,
		smtpProfileRepo: smtpProfileRepo,
		resultRepo:      resultRepo,
		eventLogRepo:    eventLogRepo,
		templater:       t,
		newEmailService: dep.NewEmailService,
	}
}

type CreateCampaignRequest struct {
	TenantID      *uint64 `json:"tenant_id,omitempty"`
	Name          *string `json:"name,omitempty"`
	GroupID       *uint64 `json:"group_id,omitempty"`
	TemplateID    *uint64 `json:"template_id,omitempty"`
	PageID        *uint64 `json:"page_id,omitempty"`
	SMTPProfileID *uint64 `json:"smtp_profile_id,omitempty"`
	ScheduledAt   *uint64 `json:"scheduled_at,omitempty"`
}

func (r *CreateCampaignRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type CreateCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var CreateCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":       &validator.UInt64{},
	"name":            ResourceNameValidator(false),
	"group_id":        &validator.UInt64{},
	"template_id":     &validator.UInt64{},
	"page_id":         &validator.UInt64{},
	"smtp_profile_id": &validator.UInt64{},
	"scheduled_at": &validator.UInt64{
		Optional: true,
	},
})

func (h *campaignHandler) CreateCampaign(ctx context.Context, req *CreateCampaignRequest, res *CreateCampaignResponse) error {
	if err := CreateCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	// referenced resources must exist up front, not only at dispatch time
	if _, err := h.groupRepo.GetByIDAndTenantID(ctx, *req.GroupID, req.GetTenantID()); err != nil {
		log.Ctx(ctx).Error().Msgf("get group err: %v", err)
		return errutil.NotFoundError(err)
	}

	if _, err := h.templateRepo.GetByIDAndTenantID(ctx, *req.TemplateID, req.GetTenantID()); err != nil {
		log.Ctx(ctx).Error().Msgf("get template err: %v", err)
		return errutil.NotFoundError(err)
	}

	if _, err := h.pageRepo.GetByIDAndTenantID(ctx, *req.PageID, req.GetTenantID()); err != nil {
		log.Ctx(ctx).Error().Msgf("get page err: %v", err)
		return errutil.NotFoundError(err)
	}

	if _, err := h.smtpProfileRepo.GetByIDAndTenantID(ctx, *req.SMTPProfileID, req.GetTenantID()); err != nil {
		log.Ctx(ctx).Error().Msgf("get smtp profile err: %v", err)
		return errutil.NotFoundError(err)
	}

	campaign := entity.NewCampaign(req.GetTenantID(), *req.Name, *req.GroupID, *req.TemplateID, *req.PageID, *req.SMTPProfileID)
	campaign.ScheduledAt = req.ScheduledAt

	if _, err := h.campaignRepo.Create(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("create campaign err: %v", err)
		return err
	}

	res.Campaign = campaign

	return nil
}

type GetCampaignsRequest struct {
	TenantID   *uint64            `json:"tenant_id,omitempty" schema:"tenant_id"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

func (r *GetCampaignsRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type GetCampaignsResponse struct {
	Campaigns  []*entity.Campaign `json:"campaigns"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

var GetCampaignsValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":  &validator.UInt64{},
	"pagination": PaginationValidator(),
})

func (h *campaignHandler) GetCampaigns(ctx context.Context, req *GetCampaignsRequest, res *GetCampaignsResponse) error {
	if err := GetCampaignsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaigns, pagination, err := h.campaignRepo.GetManyByTenantID(ctx, req.GetTenantID(), repo.ToPagination(req.Pagination))
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaigns err: %v", err)
		return err
	}

	res.Campaigns = campaigns
	res.Pagination = repo.ToEntityPagination(pagination)

	return nil
}

type LaunchCampaignRequest struct {
	TenantID    *uint64 `json:"tenant_id,omitempty"`
	CampaignID  *uint64 `json:"campaign_id,omitempty"`
	ScheduledAt *uint64 `json:"scheduled_at,omitempty"`
	EndTime     *uint64 `json:"end_time,omitempty"`
}

func (r *LaunchCampaignRequest) GetScheduledAt() uint64 {
	if r != nil && r.ScheduledAt != nil {
		return *r.ScheduledAt
	}
	return 0
}

type LaunchCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var LaunchCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":   &validator.UInt64{},
	"campaign_id": &validator.UInt64{},
	"scheduled_at": &validator.UInt64{
		Optional: true,
	},
	"end_time": &validator.UInt64{
		Optional: true,
	},
})

// LaunchCampaign moves a draft to Scheduled. An omitted scheduled_at means
// "dispatch on the next scheduler tick".
func (h *campaignHandler) LaunchCampaign(ctx context.Context, req *LaunchCampaignRequest, res *LaunchCampaignResponse) error {
	if err := LaunchCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.GetByIDAndTenantID(ctx, *req.CampaignID, *req.TenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign err: %v", err)
		return errutil.NotFoundError(err)
	}

	if campaign.GetStatus() != entity.CampaignStatusDraft {
		return errutil.ConflictError(ErrCampaignNotDraft)
	}

	now := uint64(time.Now().Unix())

	scheduledAt := req.GetScheduledAt()
	if scheduledAt == 0 {
		scheduledAt = now
	}
	if scheduledAt < now {
		return errutil.ValidationError(ErrScheduleInThePast)
	}
	if req.EndTime != nil && *req.EndTime < scheduledAt {
		return errutil.ValidationError(ErrEndBeforeSchedule)
	}

	campaign.Update(&entity.Campaign{
		Status:      entity.CampaignStatusScheduled,
		ScheduledAt: goutil.Uint64(scheduledAt),
		EndTime:     req.EndTime,
	})

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign err: %v", err)
		return err
	}

	res.Campaign = campaign

	return nil
}

type CompleteCampaignRequest struct {
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

type CompleteCampaignResponse struct {
	Campaign *entity.Campaign `json:"campaign"`
}

var CompleteCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":   &validator.UInt64{},
	"campaign_id": &validator.UInt64{},
})

// CompleteCampaign force-closes a campaign. Tracking endpoints keep
// resolving afterwards; only dispatch stops.
func (h *campaignHandler) CompleteCampaign(ctx context.Context, req *CompleteCampaignRequest, res *CompleteCampaignResponse) error {
	if err := CompleteCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.GetByIDAndTenantID(ctx, *req.CampaignID, *req.TenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign err: %v", err)
		return errutil.NotFoundError(err)
	}

	if campaign.GetStatus() == entity.CampaignStatusCompleted {
		res.Campaign = campaign
		return nil
	}

	campaign.Update(&entity.Campaign{
		Status:  entity.CampaignStatusCompleted,
		EndTime: goutil.Uint64(uint64(time.Now().Unix())),
	})

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("update campaign err: %v", err)
		return err
	}

	res.Campaign = campaign

	return nil
}

type DispatchCampaignRequest struct {
	TenantID   *uint64 `json:"tenant_id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
}

type DispatchCampaignResponse struct {
	Sent  *uint64 `json:"sent"`
	Total *uint64 `json:"total"`
}

var DispatchCampaignValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":   &validator.UInt64{},
	"campaign_id": &validator.UInt64{},
})

// DispatchCampaign triggers a dispatch immediately, bypassing the
// scheduler. The claim is still conditional so a concurrent scheduler tick
// cannot double-send.
func (h *campaignHandler) DispatchCampaign(ctx context.Context, req *DispatchCampaignRequest, res *DispatchCampaignResponse) error {
	if err := DispatchCampaignValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	campaign, err := h.campaignRepo.GetByIDAndTenantID(ctx, *req.CampaignID, *req.TenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign err: %v", err)
		return errutil.NotFoundError(err)
	}

	claimed, err := h.campaignRepo.Claim(ctx, campaign.GetID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("claim campaign err: %v", err)
		return err
	}
	if !claimed {
		return errutil.ConflictError(ErrCampaignSealed)
	}
	campaign.Status = entity.CampaignStatusActive

	sent, total, err := h.dispatch(ctx, campaign)
	if err != nil {
		return err
	}

	res.Sent = goutil.Uint64(sent)
	res.Total = goutil.Uint64(total)

	return nil
}

func (h *campaignHandler) Dispatch(ctx context.Context, campaign *entity.Campaign) error {
	sent, total, err := h.dispatch(ctx, campaign)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().Msgf("[campaign ID %d] dispatch done, sent: %d, total: %d", campaign.GetID(), sent, total)

	return nil
}

// dispatch fans the campaign out to its targets. Per-target failures are
// isolated: they produce a Pending result row and never abort the run. A
// missing dependency reverts the campaign to Scheduled so a later tick can
// retry after the operator fixes it.
func (h *campaignHandler) dispatch(ctx context.Context, campaign *entity.Campaign) (uint64, uint64, error) {
	var (
		campaignID = campaign.GetID()
		tenantID   = campaign.GetTenantID()
	)

	template, err := h.templateRepo.GetByIDAndTenantID(ctx, campaign.GetTemplateID(), tenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] get template err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}

	profile, err := h.smtpProfileRepo.GetByIDAndTenantID(ctx, campaign.GetSMTPProfileID(), tenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] get smtp profile err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}

	if _, err := h.pageRepo.GetByIDAndTenantID(ctx, campaign.GetPageID(), tenantID); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] get page err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}

	if _, err := h.groupRepo.GetByIDAndTenantID(ctx, campaign.GetGroupID(), tenantID); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] get group err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}

	targets, err := h.targetRepo.GetManyByGroupID(ctx, campaign.GetGroupID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] get targets err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}

	// targets without an email cannot be attempted and do not count
	sendables := make([]*entity.Target, 0, len(targets))
	for _, target := range targets {
		if target.GetEmail() == "" {
			log.Ctx(ctx).Warn().Msgf("[campaign ID %d] target ID %d has no email, skipping", campaignID, target.GetID())
			continue
		}
		sendables = append(sendables, target)
	}

	total := uint64(len(sendables))
	if total == 0 {
		log.Ctx(ctx).Info().Msgf("[campaign ID %d] no targets, completing", campaignID)
		return 0, 0, h.complete(ctx, campaign)
	}

	emailService, err := h.newEmailService(ctx, profile)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] init email service err: %v", campaignID, err)
		return 0, 0, h.revertToScheduled(ctx, campaign, err)
	}
	defer func() {
		if err := emailService.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] close email service err: %v", campaignID, err)
		}
	}()

	// advisory probe, a broken mail server surfaces per-target anyway
	if err := emailService.Verify(ctx); err != nil {
		log.Ctx(ctx).Warn().Msgf("[campaign ID %d] smtp verify failed: %v", campaignID, err)
	}

	var (
		sent uint64
		sem  = make(chan struct{}, maxSendConcurrency)
		g    = new(errgroup.Group)
	)

	for _, target := range sendables {
		target := target

		sem <- struct{}{}
		g.Go(func() error {
			defer func() {
				<-sem
			}()

			if h.sendToTarget(ctx, campaign, template, profile, emailService, target) {
				atomic.AddUint64(&sent, 1)
			}

			return nil
		})
	}

	// workers never return errors, they record them per target instead
	_ = g.Wait()

	if err := h.complete(ctx, campaign); err != nil {
		return sent, total, err
	}

	return sent, total, nil
}

func (h *campaignHandler) sendToTarget(
	ctx context.Context,
	campaign *entity.Campaign,
	template *entity.Template,
	profile *entity.SMTPProfile,
	emailService dep.EmailService,
	target *entity.Target,
) bool {
	var (
		campaignID = campaign.GetID()
		targetID   = target.GetID()
	)

	in := &templater.RenderInput{
		CampaignID: campaignID,
		TargetID:   targetID,
		Target:     target,
		SenderName: profile.GetFromName(),
	}

	subject := h.templater.MergeFields(template.GetSubject(), in)
	html := h.templater.Render(template.GetHtml(), in)

	messageID, err := emailService.Send(ctx, &dep.SendEmail{
		To:          target.GetEmail(),
		ToName:      target.GetFirstName() + " " + target.GetLastName(),
		Subject:     subject,
		HtmlContent: html,
	})
	if err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] send to target %d err: %v", campaignID, targetID, err)

		if _, err := h.resultRepo.Create(ctx, entity.NewPendingResult(campaignID, targetID)); err != nil {
			log.Ctx(ctx).Error().Msgf("[campaign ID %d] create pending result for target %d err: %v", campaignID, targetID, err)
		}

		return false
	}

	if _, err := h.resultRepo.Create(ctx, entity.NewSentResult(campaignID, targetID)); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] create sent result for target %d err: %v", campaignID, targetID, err)
	}

	eventLog := entity.NewEventLog(campaignID, targetID, entity.EventSent, messageID, uint64(time.Now().Unix()))
	if err := h.eventLogRepo.Create(ctx, eventLog); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] log sent event for target %d err: %v", campaignID, targetID, err)
	}

	return true
}

func (h *campaignHandler) complete(ctx context.Context, campaign *entity.Campaign) error {
	campaign.Update(&entity.Campaign{
		Status:  entity.CampaignStatusCompleted,
		EndTime: goutil.Uint64(uint64(time.Now().Unix())),
	})

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] complete campaign err: %v", campaign.GetID(), err)
		return err
	}

	return nil
}

// revertToScheduled puts a claimed campaign back so the next tick retries
// it once the missing dependency is restored.
func (h *campaignHandler) revertToScheduled(ctx context.Context, campaign *entity.Campaign, cause error) error {
	campaign.Update(&entity.Campaign{
		Status: entity.CampaignStatusScheduled,
	})

	if err := h.campaignRepo.Update(ctx, campaign); err != nil {
		log.Ctx(ctx).Error().Msgf("[campaign ID %d] revert campaign err: %v", campaign.GetID(), err)
	}

	return errors.Join(ErrMissingDependency, cause)
}

type GetCampaignResultsRequest struct {
	TenantID   *uint64 `json:"tenant_id,omitempty" schema:"tenant_id"`
	CampaignID *uint64 `json:"campaign_id,omitempty" schema:"campaign_id"`
}

type GetCampaignResultsResponse struct {
	Results   []*entity.CampaignResult `json:"results"`
	EventLogs []*entity.EventLog       `json:"event_logs"`
}

var GetCampaignResultsValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":   &validator.UInt64{},
	"campaign_id": &validator.UInt64{},
})

func (h *campaignHandler) GetCampaignResults(ctx context.Context, req *GetCampaignResultsRequest, res *GetCampaignResultsResponse) error {
	if err := GetCampaignResultsValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	// scope check before exposing rows keyed only by campaign ID
	campaign, err := h.campaignRepo.GetByIDAndTenantID(ctx, *req.CampaignID, *req.TenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign err: %v", err)
		return errutil.NotFoundError(err)
	}

	results, err := h.resultRepo.GetManyByCampaignID(ctx, campaign.GetID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign results err: %v", err)
		return err
	}

	eventLogs, err := h.eventLogRepo.GetManyByCampaignID(ctx, campaign.GetID())
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get campaign event logs err: %v", err)
		return err
	}

	res.Results = results
	res.EventLogs = eventLogs

	return nil
}
