package handler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"phishsim/dep"
	"phishsim/entity"
	"phishsim/pkg/goutil"
	"phishsim/repo"
	"phishsim/templater"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCampaignRepo struct {
	repo.CampaignRepo

	campaign *entity.Campaign
	claimOK  bool
	updates  []entity.CampaignStatus
}

func (m *mockCampaignRepo) GetByIDAndTenantID(_ context.Context, id, tenantID uint64) (*entity.Campaign, error) {
	if m.campaign == nil || m.campaign.GetID() != id || m.campaign.GetTenantID() != tenantID {
		return nil, repo.ErrCampaignNotFound
	}
	return m.campaign, nil
}

func (m *mockCampaignRepo) Claim(_ context.Context, _ uint64) (bool, error) {
	return m.claimOK, nil
}

func (m *mockCampaignRepo) Update(_ context.Context, campaign *entity.Campaign) error {
	m.updates = append(m.updates, campaign.GetStatus())
	return nil
}

type mockGroupRepo struct {
	repo.GroupRepo

	group *entity.Group
}

func (m *mockGroupRepo) GetByIDAndTenantID(_ context.Context, _, _ uint64) (*entity.Group, error) {
	if m.group == nil {
		return nil, repo.ErrGroupNotFound
	}
	return m.group, nil
}

type mockTargetRepo struct {
	repo.TargetRepo

	targets []*entity.Target
}

func (m *mockTargetRepo) GetManyByGroupID(_ context.Context, _ uint64) ([]*entity.Target, error) {
	return m.targets, nil
}

type mockTemplateRepo struct {
	repo.TemplateRepo

	template *entity.Template
}

func (m *mockTemplateRepo) GetByIDAndTenantID(_ context.Context, _, _ uint64) (*entity.Template, error) {
	if m.template == nil {
		return nil, repo.ErrTemplateNotFound
	}
	return m.template, nil
}

type mockPageRepo struct {
	repo.PageRepo

	page *entity.Page
}

func (m *mockPageRepo) GetByIDAndTenantID(_ context.Context, _, _ uint64) (*entity.Page, error) {
	if m.page == nil {
		return nil, repo.ErrPageNotFound
	}
	return m.page, nil
}

type mockSMTPProfileRepo struct {
	repo.SMTPProfileRepo

	profile *entity.SMTPProfile
}

func (m *mockSMTPProfileRepo) GetByIDAndTenantID(_ context.Context, _, _ uint64) (*entity.SMTPProfile, error) {
	if m.profile == nil {
		return nil, repo.ErrSMTPProfileNotFound
	}
	return m.profile, nil
}

type mockResultRepo struct {
	repo.ResultRepo

	mu      sync.Mutex
	results []*entity.CampaignResult
}

func (m *mockResultRepo) Create(_ context.Context, result *entity.CampaignResult) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return uint64(len(m.results)), nil
}

type mockEventLogRepo struct {
	repo.EventLogRepo

	mu     sync.Mutex
	events []*entity.EventLog
}

func (m *mockEventLogRepo) Create(_ context.Context, eventLog *entity.EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventLog)
	return nil
}

type fakeEmailService struct {
	mu       sync.Mutex
	sent     []*dep.SendEmail
	failFor  map[string]bool
	verified bool
}

func (s *fakeEmailService) Send(_ context.Context, sendEmail *dep.SendEmail) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[sendEmail.To] {
		return "", &dep.TransportError{Diagnostic: "550 mailbox unavailable", Err: errors.New("rejected")}
	}
	s.sent = append(s.sent, sendEmail)
	return "msg-id", nil
}

func (s *fakeEmailService) Verify(_ context.Context) error {
	s.verified = true
	return nil
}

func (s *fakeEmailService) Close(_ context.Context) error {
	return nil
}

func activeCampaign() *entity.Campaign {
	return &entity.Campaign{
		ID:            goutil.Uint64(7),
		TenantID:      goutil.Uint64(1),
		Name:          goutil.String("Q3 awareness"),
		GroupID:       goutil.Uint64(11),
		TemplateID:    goutil.Uint64(21),
		PageID:        goutil.Uint64(31),
		SMTPProfileID: goutil.Uint64(41),
		Status:        entity.CampaignStatusActive,
	}
}

func testTarget(id uint64, email string) *entity.Target {
	return &entity.Target{
		ID:        goutil.Uint64(id),
		FirstName: goutil.String("Ann"),
		Email:     goutil.String(email),
	}
}

func newTestCampaignHandler(
	campaignRepo *mockCampaignRepo,
	targetRepo *mockTargetRepo,
	templateRepo *mockTemplateRepo,
	resultRepo *mockResultRepo,
	eventLogRepo *mockEventLogRepo,
	emailService dep.EmailService,
) *campaignHandler {
	return &campaignHandler{
		campaignRepo: campaignRepo,
		groupRepo:    &mockGroupRepo{group: &entity.Group{ID: goutil.Uint64(11)}},
		targetRepo:   targetRepo,
		templateRepo: templateRepo,
		pageRepo:     &mockPageRepo{page: &entity.Page{ID: goutil.Uint64(31)}},
		smtpProfileRepo: &mockSMTPProfileRepo{
			profile: &entity.SMTPProfile{
				ID:        goutil.Uint64(41),
				FromName:  goutil.String("IT Support"),
				FromEmail: goutil.String("it@corp.example.com"),
			},
		},
		resultRepo:   resultRepo,
		eventLogRepo: eventLogRepo,
		templater:    templater.New("https://phish.example.com"),
		newEmailService: func(_ context.Context, _ *entity.SMTPProfile) (dep.EmailService, error) {
			return emailService, nil
		},
	}
}

func TestDispatch_SendsToAllTargets(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		targetRepo   = &mockTargetRepo{targets: []*entity.Target{
			testTarget(1, "a@corp.example.com"),
			testTarget(2, "b@corp.example.com"),
			testTarget(3, "c@corp.example.com"),
		}}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("Action required, {{FirstName}}"),
			Html:    goutil.String(`<body><a href="https://evil.example.com">reset</a></body>`),
		}}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
		emailService = &fakeEmailService{}
	)

	h := newTestCampaignHandler(campaignRepo, targetRepo, templateRepo, resultRepo, eventLogRepo, emailService)

	sent, total, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), sent)
	assert.Equal(t, uint64(3), total)
	assert.Len(t, resultRepo.results, 3)
	assert.Len(t, eventLogRepo.events, 3)
	assert.True(t, emailService.verified)

	// rendered, instrumented content went out
	for _, e := range emailService.sent {
		assert.Equal(t, "Action required, Ann", e.Subject)
		assert.Contains(t, e.HtmlContent, "https://phish.example.com/c/7/")
		assert.Contains(t, e.HtmlContent, ".gif")
	}

	// campaign sealed after the run
	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, campaignRepo.updates)
}

func TestDispatch_FailedSendIsIsolated(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		targetRepo   = &mockTargetRepo{targets: []*entity.Target{
			testTarget(1, "ok@corp.example.com"),
			testTarget(2, "bounce@corp.example.com"),
		}}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("hi"),
			Html:    goutil.String("<body>x</body>"),
		}}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
		emailService = &fakeEmailService{failFor: map[string]bool{"bounce@corp.example.com": true}}
	)

	h := newTestCampaignHandler(campaignRepo, targetRepo, templateRepo, resultRepo, eventLogRepo, emailService)

	sent, total, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(2), total)
	require.Len(t, resultRepo.results, 2)

	statuses := map[uint64]entity.ResultStatus{}
	for _, r := range resultRepo.results {
		statuses[r.GetTargetID()] = r.GetStatus()
	}
	assert.Equal(t, entity.ResultStatusSent, statuses[1])
	assert.Equal(t, entity.ResultStatusPending, statuses[2])

	// only the delivered message gets a sent event
	require.Len(t, eventLogRepo.events, 1)
	assert.Equal(t, uint64(1), eventLogRepo.events[0].GetTargetID())

	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, campaignRepo.updates)
}

func TestDispatch_TargetsWithoutEmailAreNotCounted(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		targetRepo   = &mockTargetRepo{targets: []*entity.Target{
			testTarget(1, "ok@corp.example.com"),
			testTarget(2, "bounce@corp.example.com"),
			testTarget(3, ""),
		}}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("hi"),
			Html:    goutil.String("<body>x</body>"),
		}}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
		emailService = &fakeEmailService{failFor: map[string]bool{"bounce@corp.example.com": true}}
	)

	h := newTestCampaignHandler(campaignRepo, targetRepo, templateRepo, resultRepo, eventLogRepo, emailService)

	sent, total, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.NoError(t, err)

	// only the two addressable targets count, and only they get result rows
	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(2), total)
	require.Len(t, resultRepo.results, 2)
	for _, r := range resultRepo.results {
		assert.NotEqual(t, uint64(3), r.GetTargetID())
	}

	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, campaignRepo.updates)
}

func TestDispatch_NoTargetsCompletesImmediately(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("hi"),
			Html:    goutil.String("<body>x</body>"),
		}}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
	)

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), templateRepo, resultRepo, eventLogRepo, &fakeEmailService{})

	sent, total, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.NoError(t, err)

	assert.Zero(t, sent)
	assert.Zero(t, total)
	assert.Empty(t, resultRepo.results)
	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusCompleted}, campaignRepo.updates)
}

func TestDispatch_MissingTemplateRevertsToScheduled(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
	)

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), new(mockTemplateRepo), resultRepo, eventLogRepo, &fakeEmailService{})

	_, _, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusScheduled}, campaignRepo.updates)
	assert.Empty(t, resultRepo.results)
}

func TestDispatch_MissingPageRevertsToScheduled(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign()}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("hi"),
			Html:    goutil.String("<body>x</body>"),
		}}
		resultRepo   = new(mockResultRepo)
		eventLogRepo = new(mockEventLogRepo)
	)

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), templateRepo, resultRepo, eventLogRepo, &fakeEmailService{})
	h.pageRepo = new(mockPageRepo) // landing page deleted after launch

	_, _, err := h.dispatch(context.Background(), campaignRepo.campaign)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.Equal(t, []entity.CampaignStatus{entity.CampaignStatusScheduled}, campaignRepo.updates)
	assert.Empty(t, resultRepo.results)
}

func TestDispatchCampaign_LostClaimConflicts(t *testing.T) {
	campaignRepo := &mockCampaignRepo{campaign: activeCampaign(), claimOK: false}

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), new(mockTemplateRepo), new(mockResultRepo), new(mockEventLogRepo), &fakeEmailService{})

	err := h.DispatchCampaign(context.Background(), &DispatchCampaignRequest{
		TenantID:   goutil.Uint64(1),
		CampaignID: goutil.Uint64(7),
	}, new(DispatchCampaignResponse))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCampaignSealed)
}

func TestDispatchCampaign_ReportsCounts(t *testing.T) {
	var (
		campaignRepo = &mockCampaignRepo{campaign: activeCampaign(), claimOK: true}
		targetRepo   = &mockTargetRepo{targets: []*entity.Target{
			testTarget(1, "ok@corp.example.com"),
			testTarget(2, "bounce@corp.example.com"),
		}}
		templateRepo = &mockTemplateRepo{template: &entity.Template{
			Subject: goutil.String("hi"),
			Html:    goutil.String("<body>x</body>"),
		}}
		emailService = &fakeEmailService{failFor: map[string]bool{"bounce@corp.example.com": true}}
	)

	h := newTestCampaignHandler(campaignRepo, targetRepo, templateRepo, new(mockResultRepo), new(mockEventLogRepo), emailService)

	res := new(DispatchCampaignResponse)
	err := h.DispatchCampaign(context.Background(), &DispatchCampaignRequest{
		TenantID:   goutil.Uint64(1),
		CampaignID: goutil.Uint64(7),
	}, res)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), *res.Sent)
	assert.Equal(t, uint64(2), *res.Total)
}

func TestLaunchCampaign(t *testing.T) {
	campaign := activeCampaign()
	campaign.Status = entity.CampaignStatusDraft
	campaignRepo := &mockCampaignRepo{campaign: campaign}

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), new(mockTemplateRepo), new(mockResultRepo), new(mockEventLogRepo), &fakeEmailService{})

	res := new(LaunchCampaignResponse)
	err := h.LaunchCampaign(context.Background(), &LaunchCampaignRequest{
		TenantID:   goutil.Uint64(1),
		CampaignID: goutil.Uint64(7),
	}, res)
	require.NoError(t, err)

	assert.Equal(t, entity.CampaignStatusScheduled, res.Campaign.GetStatus())
	assert.NotZero(t, res.Campaign.GetScheduledAt())
}

func TestLaunchCampaign_NotDraft(t *testing.T) {
	campaignRepo := &mockCampaignRepo{campaign: activeCampaign()}

	h := newTestCampaignHandler(campaignRepo, new(mockTargetRepo), new(mockTemplateRepo), new(mockResultRepo), new(mockEventLogRepo), &fakeEmailService{})

	err := h.LaunchCampaign(context.Background(), &LaunchCampaignRequest{
		TenantID:   goutil.Uint64(1),
		CampaignID: goutil.Uint64(7),
	}, new(LaunchCampaignResponse))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCampaignNotDraft)
}
