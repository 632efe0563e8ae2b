package handler

import (
	"context"

	"phishsim/dep"
	"phishsim/entity"
	"phishsim/pkg/errutil"
	"phishsim/pkg/goutil"
	"phishsim/pkg/validator"
	"phishsim/repo"

	"github.com/rs/zerolog/log"
)

type SMTPProfileHandler interface {
	CreateSMTPProfile(ctx context.Context, req *CreateSMTPProfileRequest, res *CreateSMTPProfileResponse) error
	GetSMTPProfiles(ctx context.Context, req *GetSMTPProfilesRequest, res *GetSMTPProfilesResponse) error
	TestSMTPProfile(ctx context.Context, req *TestSMTPProfileRequest, res *TestSMTPProfileResponse) error
}

type smtpProfileHandler struct {
	smtpProfileRepo repo.SMTPProfileRepo

	newEmailService func(ctx context.Context, profile *entity.SMTPProfile) (dep.EmailService, error)
}

func NewSMTPProfileHandler(smtpProfileRepo repo.SMTPProfileRepo) SMTPProfileHandler {
	return &smtpProfileHandler{
		smtpProfileRepo: smtpProfileRepo,
		newEmailService: dep.NewEmailService,
	}
}

type CreateSMTPProfileRequest struct {
	TenantID  *uint64 `json:"tenant_id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Host      *string `json:"host,omitempty"`
	Port      *uint64 `json:"port,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
	FromName  *string `json:"from_name,omitempty"`
	FromEmail *string `json:"from_email,omitempty"`
	APIKey    *string `json:"api_key,omitempty"`
}

func (r *CreateSMTPProfileRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type CreateSMTPProfileResponse struct {
	SMTPProfile *entity.SMTPProfile `json:"smtp_profile"`
}

var CreateSMTPProfileValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id": &validator.UInt64{},
	"name":      ResourceNameValidator(false),
	"host": &validator.String{
		MinLen: 1,
		MaxLen: 255,
	},
	"port": &validator.UInt64{
		Min: goutil.Uint64(1),
		Max: goutil.Uint64(65535),
	},
	"username": &validator.String{
		Optional: true,
		MaxLen:   255,
	},
	"password": &validator.String{
		Optional: true,
		MaxLen:   255,
	},
	"from_name": &validator.String{
		Optional: true,
		MaxLen:   120,
	},
	"from_email": EmailValidator(false),
	"api_key": &validator.String{
		Optional: true,
		MaxLen:   255,
	},
})

func (h *smtpProfileHandler) CreateSMTPProfile(ctx context.Context, req *CreateSMTPProfileRequest, res *CreateSMTPProfileResponse) error {
	if err := CreateSMTPProfileValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	profile := entity.NewSMTPProfile(req.GetTenantID(), *req.Name, *req.Host, *req.Port, valOrEmpty(req.FromName), *req.FromEmail)
	profile.Username = req.Username
	profile.Password = req.Password
	profile.APIKey = req.APIKey

	if _, err := h.smtpProfileRepo.Create(ctx, profile); err != nil {
		log.Ctx(ctx).Error().Msgf("create smtp profile err: %v", err)
		return err
	}

	res.SMTPProfile = redactProfile(profile)

	return nil
}

type GetSMTPProfilesRequest struct {
	TenantID   *uint64            `json:"tenant_id,omitempty" schema:"tenant_id"`
	Pagination *entity.Pagination `json:"pagination,omitempty"`
}

func (r *GetSMTPProfilesRequest) GetTenantID() uint64 {
	if r != nil && r.TenantID != nil {
		return *r.TenantID
	}
	return 0
}

type GetSMTPProfilesResponse struct {
	SMTPProfiles []*entity.SMTPProfile `json:"smtp_profiles"`
	Pagination   *entity.Pagination    `json:"pagination,omitempty"`
}

var GetSMTPProfilesValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":  &validator.UInt64{},
	"pagination": PaginationValidator(),
})

func (h *smtpProfileHandler) GetSMTPProfiles(ctx context.Context, req *GetSMTPProfilesRequest, res *GetSMTPProfilesResponse) error {
	if err := GetSMTPProfilesValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	profiles, pagination, err := h.smtpProfileRepo.GetManyByTenantID(ctx, req.GetTenantID(), repo.ToPagination(req.Pagination))
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get smtp profiles err: %v", err)
		return err
	}

	redacted := make([]*entity.SMTPProfile, 0, len(profiles))
	for _, profile := range profiles {
		redacted = append(redacted, redactProfile(profile))
	}

	res.SMTPProfiles = redacted
	res.Pagination = repo.ToEntityPagination(pagination)

	return nil
}

type TestSMTPProfileRequest struct {
	TenantID      *uint64 `json:"tenant_id,omitempty"`
	SMTPProfileID *uint64 `json:"smtp_profile_id,omitempty"`
}

type TestSMTPProfileResponse struct {
	OK *bool `json:"ok"`
}

var TestSMTPProfileValidator = validator.MustForm(map[string]validator.Validator{
	"tenant_id":       &validator.UInt64{},
	"smtp_profile_id": &validator.UInt64{},
})

// TestSMTPProfile probes the mail server behind a profile without sending
// anything.
func (h *smtpProfileHandler) TestSMTPProfile(ctx context.Context, req *TestSMTPProfileRequest, res *TestSMTPProfileResponse) error {
	if err := TestSMTPProfileValidator.Validate(req); err != nil {
		return errutil.ValidationError(err)
	}

	profile, err := h.smtpProfileRepo.GetByIDAndTenantID(ctx, *req.SMTPProfileID, *req.TenantID)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("get smtp profile err: %v", err)
		return errutil.NotFoundError(err)
	}

	emailService, err := h.newEmailService(ctx, profile)
	if err != nil {
		log.Ctx(ctx).Error().Msgf("init email service err: %v", err)
		return err
	}
	defer func() {
		if err := emailService.Close(ctx); err != nil {
			log.Ctx(ctx).Error().Msgf("close email service err: %v", err)
		}
	}()

	ok := true
	if err := emailService.Verify(ctx); err != nil {
		log.Ctx(ctx).Warn().Msgf("smtp verify failed: %v", err)
		ok = false
	}

	res.OK = &ok

	return nil
}

// redactProfile strips credentials before they leave the API.
func redactProfile(profile *entity.SMTPProfile) *entity.SMTPProfile {
	clone := *profile
	clone.Password = nil
	clone.APIKey = nil
	return &clone
}

func valOrEmpty(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
