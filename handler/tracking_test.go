package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"phishsim/entity"
	"phishsim/pkg/goutil"
	"phishsim/repo"
	"phishsim/templater"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackCampaignRepo struct {
	repo.CampaignRepo

	campaign *entity.Campaign
}

func (m *trackCampaignRepo) GetByID(_ context.Context, id uint64) (*entity.Campaign, error) {
	if m.campaign == nil || m.campaign.GetID() != id {
		return nil, repo.ErrCampaignNotFound
	}
	return m.campaign, nil
}

type trackTargetRepo struct {
	repo.TargetRepo

	target *entity.Target
}

func (m *trackTargetRepo) GetByID(_ context.Context, _ uint64) (*entity.Target, error) {
	if m.target == nil {
		return nil, repo.ErrTargetNotFound
	}
	return m.target, nil
}

type trackResultRepo struct {
	repo.ResultRepo

	exists bool

	opened        bool
	clicked       bool
	submitted     bool
	submittedData string
}

func (m *trackResultRepo) GetByCampaignIDAndTargetID(_ context.Context, campaignID, targetID uint64) (*entity.CampaignResult, error) {
	if !m.exists {
		return nil, repo.ErrResultNotFound
	}
	return &entity.CampaignResult{
		CampaignID: goutil.Uint64(campaignID),
		TargetID:   goutil.Uint64(targetID),
	}, nil
}

func (m *trackResultRepo) MarkOpened(_ context.Context, _, _ uint64) error {
	m.opened = true
	return nil
}

func (m *trackResultRepo) MarkClicked(_ context.Context, _, _ uint64) error {
	m.clicked = true
	return nil
}

func (m *trackResultRepo) MarkSubmitted(_ context.Context, _, _ uint64, submittedData string) error {
	m.submitted = true
	m.submittedData = submittedData
	return nil
}

type trackingFixture struct {
	resultRepo   *trackResultRepo
	eventLogRepo *mockEventLogRepo
	router       *mux.Router
}

func newTrackingFixture(resultExists bool) *trackingFixture {
	campaign := &entity.Campaign{
		ID:       goutil.Uint64(7),
		TenantID: goutil.Uint64(1),
		PageID:   goutil.Uint64(31),
	}

	page := &entity.Page{
		ID:          goutil.Uint64(31),
		Html:        goutil.String("<html><body>Hello {{FirstName}}<form></form></body></html>"),
		RedirectURL: goutil.String("https://intranet.corp.example.com/training"),
	}

	target := &entity.Target{
		ID:        goutil.Uint64(42),
		FirstName: goutil.String("Ann"),
	}

	resultRepo := &trackResultRepo{exists: resultExists}
	eventLogRepo := new(mockEventLogRepo)

	h := NewTrackingHandler(
		&trackCampaignRepo{campaign: campaign},
		&trackTargetRepo{target: target},
		&mockPageRepo{page: page},
		resultRepo,
		eventLogRepo,
		templater.New("https://phish.example.com"),
		nil,
	)

	r := mux.NewRouter()
	r.HandleFunc("/c/{campaign_id}/{target_id}", h.TrackClick).Methods(http.MethodGet)
	r.HandleFunc("/o/{campaign_id}/{target_id}.gif", h.TrackOpen).Methods(http.MethodGet)
	r.HandleFunc("/l/{campaign_id}/{target_id}", h.TrackLanding).Methods(http.MethodGet, http.MethodPost)

	return &trackingFixture{
		resultRepo:   resultRepo,
		eventLogRepo: eventLogRepo,
		router:       r,
	}
}

func TestTrackClick(t *testing.T) {
	f := newTrackingFixture(true)

	dest := "https://evil.example.com/login?next=%2Fhome"
	req := httptest.NewRequest(http.MethodGet, "/c/7/42?u="+templater.EncodeClickToken(dest), nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, dest, rec.Header().Get("Location"))
	assert.True(t, f.resultRepo.clicked)

	require.Len(t, f.eventLogRepo.events, 1)
	assert.Equal(t, entity.EventClicked, f.eventLogRepo.events[0].GetEvent())
}

func TestTrackClick_BadTokenFallsBackToLanding(t *testing.T) {
	f := newTrackingFixture(true)

	req := httptest.NewRequest(http.MethodGet, "/c/7/42?u=%%%garbage", nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://phish.example.com/l/7/42", rec.Header().Get("Location"))
}

func TestTrackClick_UnknownResultStillRedirects(t *testing.T) {
	f := newTrackingFixture(false)

	dest := "https://evil.example.com/login"
	req := httptest.NewRequest(http.MethodGet, "/c/7/42?u="+templater.EncodeClickToken(dest), nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, dest, rec.Header().Get("Location"))
	assert.False(t, f.resultRepo.clicked)
	assert.Empty(t, f.eventLogRepo.events)
}

func TestTrackOpen(t *testing.T) {
	f := newTrackingFixture(true)

	req := httptest.NewRequest(http.MethodGet, "/o/7/42.gif", nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, pixelGif, rec.Body.Bytes())
	assert.True(t, f.resultRepo.opened)

	require.Len(t, f.eventLogRepo.events, 1)
	assert.Equal(t, entity.EventOpened, f.eventLogRepo.events[0].GetEvent())
}

func TestTrackOpen_UnknownResultStillServesPixel(t *testing.T) {
	f := newTrackingFixture(false)

	req := httptest.NewRequest(http.MethodGet, "/o/7/42.gif", nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pixelGif, rec.Body.Bytes())
	assert.False(t, f.resultRepo.opened)
}

func TestTrackLanding_Get(t *testing.T) {
	f := newTrackingFixture(true)

	req := httptest.NewRequest(http.MethodGet, "/l/7/42", nil)
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello Ann")
	assert.True(t, f.resultRepo.clicked)
}

func TestTrackLanding_PostRedactsAndRedirects(t *testing.T) {
	f := newTrackingFixture(true)

	form := url.Values{}
	form.Set("username", "ann.lee")
	form.Set("password", "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/l/7/42", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://intranet.corp.example.com/training", rec.Header().Get("Location"))

	assert.True(t, f.resultRepo.submitted)
	assert.Contains(t, f.resultRepo.submittedData, "ann.lee")
	assert.Contains(t, f.resultRepo.submittedData, "********")
	assert.NotContains(t, f.resultRepo.submittedData, "hunter2")

	require.Len(t, f.eventLogRepo.events, 1)
	assert.Equal(t, entity.EventSubmitted, f.eventLogRepo.events[0].GetEvent())
	assert.NotContains(t, *f.eventLogRepo.events[0].Details, "hunter2")
}
