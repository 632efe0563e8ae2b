package repo

import (
	"context"
	"errors"
	"time"

	"phishsim/entity"
	"phishsim/pkg/goutil"

	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
)

type Campaign struct {
	ID            *uint64
	TenantID      *uint64
	Name          *string
	GroupID       *uint64
	TemplateID    *uint64
	PageID        *uint64
	SMTPProfileID *uint64
	Status        *uint32
	ScheduledAt   *uint64
	EndTime       *uint64
	CreateTime    *uint64
	UpdateTime    *uint64
}

func (m *Campaign) TableName() string {
	return "campaign_tab"
}

func (m *Campaign) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type CampaignRepo interface {
	Create(ctx context.Context, campaign *entity.Campaign) (uint64, error)
	// GetByID serves the tracking endpoints, which carry no tenant scope.
	GetByID(ctx context.Context, id uint64) (*entity.Campaign, error)
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Campaign, error)
	GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Campaign, *Pagination, error)
	// GetDue returns campaigns whose scheduled_at has arrived and whose
	// status still allows a claim.
	GetDue(ctx context.Context, now uint64) ([]*entity.Campaign, error)
	// Claim conditionally flips a due campaign to Active. It reports false
	// when another scheduler instance won the race.
	Claim(ctx context.Context, id uint64) (bool, error)
	Update(ctx context.Context, campaign *entity.Campaign) error
	Close(ctx context.Context) error
}

type campaignRepo struct {
	baseRepo BaseRepo
}

func NewCampaignRepo(_ context.Context, baseRepo BaseRepo) CampaignRepo {
	return &campaignRepo{
		baseRepo: baseRepo,
	}
}

func (r *campaignRepo) Create(ctx context.Context, campaign *entity.Campaign) (uint64, error) {
	campaignModel := ToCampaignModel(campaign)

	if err := r.baseRepo.Create(ctx, campaignModel); err != nil {
		return 0, err
	}

	campaign.ID = campaignModel.ID

	return campaignModel.GetID(), nil
}

func (r *campaignRepo) GetByID(ctx context.Context, id uint64) (*entity.Campaign, error) {
	campaign := new(Campaign)

	if err := r.baseRepo.Get(ctx, campaign, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return ToCampaign(campaign), nil
}

func (r *campaignRepo) GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.Campaign, error) {
	campaign := new(Campaign)

	if err := r.baseRepo.Get(ctx, campaign, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	return ToCampaign(campaign), nil
}

func (r *campaignRepo) GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.Campaign, *Pagination, error) {
	res, pagination, err := r.baseRepo.GetMany(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "tenant_id",
				Value: tenantID,
				Op:    OpEq,
			},
		},
		Pagination: p,
	})
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]*entity.Campaign, len(res))
	for i, m := range res {
		campaigns[i] = ToCampaign(m.(*Campaign))
	}

	return campaigns, pagination, nil
}

func (r *campaignRepo) GetDue(ctx context.Context, now uint64) ([]*entity.Campaign, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "scheduled_at",
				Value: now,
				Op:    OpLte,
			},
			{
				Field: "status",
				Value: claimableStatuses(),
				Op:    OpIn,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	campaigns := make([]*entity.Campaign, len(res))
	for i, m := range res {
		campaigns[i] = ToCampaign(m.(*Campaign))
	}

	return campaigns, nil
}

func (r *campaignRepo) Claim(ctx context.Context, id uint64) (bool, error) {
	rowsAffected, err := r.baseRepo.UpdateWhere(ctx, new(Campaign), &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
			{
				Field: "status",
				Value: claimableStatuses(),
				Op:    OpIn,
			},
		},
	}, map[string]interface{}{
		"status":      uint32(entity.CampaignStatusActive),
		"update_time": uint64(time.Now().Unix()),
	})
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *campaignRepo) Update(ctx context.Context, campaign *entity.Campaign) error {
	return r.baseRepo.Update(ctx, ToCampaignModel(campaign))
}

func (r *campaignRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func claimableStatuses() []uint32 {
	return []uint32{
		uint32(entity.CampaignStatusDraft),
		uint32(entity.CampaignStatusScheduled),
	}
}

func ToCampaign(campaign *Campaign) *entity.Campaign {
	var status entity.CampaignStatus
	if campaign.Status != nil {
		status = entity.CampaignStatus(*campaign.Status)
	}

	return &entity.Campaign{
		ID:            campaign.ID,
		TenantID:      campaign.TenantID,
		Name:          campaign.Name,
		GroupID:       campaign.GroupID,
		TemplateID:    campaign.TemplateID,
		PageID:        campaign.PageID,
		SMTPProfileID: campaign.SMTPProfileID,
		Status:        status,
		ScheduledAt:   campaign.ScheduledAt,
		EndTime:       campaign.EndTime,
		CreateTime:    campaign.CreateTime,
		UpdateTime:    campaign.UpdateTime,
	}
}

func ToCampaignModel(campaign *entity.Campaign) *Campaign {
	return &Campaign{
		ID:            campaign.ID,
		TenantID:      campaign.TenantID,
		Name:          campaign.Name,
		GroupID:       campaign.GroupID,
		TemplateID:    campaign.TemplateID,
		PageID:        campaign.PageID,
		SMTPProfileID: campaign.SMTPProfileID,
		Status:        goutil.Uint32(uint32(campaign.Status)),
		ScheduledAt:   campaign.ScheduledAt,
		EndTime:       campaign.EndTime,
		CreateTime:    campaign.CreateTime,
		UpdateTime:    campaign.UpdateTime,
	}
}
