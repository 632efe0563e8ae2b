package repo

import (
	"context"
	"errors"

	"phishsim/entity"

	"gorm.io/gorm"
)

var (
	ErrSMTPProfileNotFound = errors.New("smtp profile not found")
)

const smtpProfileCachePrefix = "smtp_profile"

type SMTPProfile struct {
	ID         *uint64
	TenantID   *uint64
	Name       *string
	Host       *string
	Port       *uint64
	Username   *string
	Password   *string
	FromName   *string
	FromEmail  *string
	APIKey     *string
	CreateTime *uint64
	UpdateTime *uint64
}

func (m *SMTPProfile) TableName() string {
	return "smtp_profile_tab"
}

func (m *SMTPProfile) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type SMTPProfileRepo interface {
	Create(ctx context.Context, profile *entity.SMTPProfile) (uint64, error)
	GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.SMTPProfile, error)
	GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.SMTPProfile, *Pagination, error)
	Close(ctx context.Context) error
}

type smtpProfileRepo struct {
	baseRepo  BaseRepo
	baseCache BaseCache
}

func NewSMTPProfileRepo(_ context.Context, baseRepo BaseRepo, baseCache BaseCache) SMTPProfileRepo {
	return &smtpProfileRepo{
		baseRepo:  baseRepo,
		baseCache: baseCache,
	}
}

func (r *smtpProfileRepo) Create(ctx context.Context, profile *entity.SMTPProfile) (uint64, error) {
	profileModel := ToSMTPProfileModel(profile)

	if err := r.baseRepo.Create(ctx, profileModel); err != nil {
		return 0, err
	}

	profile.ID = profileModel.ID

	return profileModel.GetID(), nil
}

func (r *smtpProfileRepo) GetByIDAndTenantID(ctx context.Context, id, tenantID uint64) (*entity.SMTPProfile, error) {
	if v, ok := r.baseCache.Get(ctx, smtpProfileCachePrefix, tenantID, id); ok {
		return v.(*entity.SMTPProfile), nil
	}

	profile := new(SMTPProfile)

	if err := r.baseRepo.Get(ctx, profile, &Filter{
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
			return nil, ErrSMTPProfileNotFound
		}
		return nil, err
	}

	e := ToSMTPProfile(profile)
	r.baseCache.Set(ctx, smtpProfileCachePrefix, tenantID, id, e)

	return e, nil
}

func (r *smtpProfileRepo) GetManyByTenantID(ctx context.Context, tenantID uint64, p *Pagination) ([]*entity.SMTPProfile, *Pagination, error) {
	res, pagination, err := r.baseRepo.GetMany(ctx, new(SMTPProfile), &Filter{
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

	profiles := make([]*entity.SMTPProfile, len(res))
	for i, m := range res {
		profiles[i] = ToSMTPProfile(m.(*SMTPProfile))
	}

	return profiles, pagination, nil
}

func (r *smtpProfileRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToSMTPProfile(profile *SMTPProfile) *entity.SMTPProfile {
	return &entity.SMTPProfile{
		ID:         profile.ID,
		TenantID:   profile.TenantID,
		Name:       profile.Name,
		Host:       profile.Host,
		Port:       profile.Port,
		Username:   profile.Username,
		Password:   profile.Password,
		FromName:   profile.FromName,
		FromEmail:  profile.FromEmail,
		APIKey:     profile.APIKey,
		CreateTime: profile.CreateTime,
		UpdateTime: profile.UpdateTime,
	}
}

func ToSMTPProfileModel(profile *entity.SMTPProfile) *SMTPProfile {
	return &SMTPProfile{
		ID:         profile.ID,
		TenantID:   profile.TenantID,
		Name:       profile.Name,
		Host:       profile.Host,
		Port:       profile.Port,
		Username:   profile.Username,
		Password:   profile.Password,
		FromName:   profile.FromName,
		FromEmail:  profile.FromEmail,
		APIKey:     profile.APIKey,
		CreateTime: profile.CreateTime,
		UpdateTime: profile.UpdateTime,
	}
}
