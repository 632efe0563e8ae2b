package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"phishsim/entity"
	"phishsim/pkg/goutil"
	"phishsim/pkg/mq"
	"phishsim/repo"
	"phishsim/templater"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// pixelGif is a 1x1 transparent GIF.
var pixelGif = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

var sensitiveFieldMarkers = []string{"pass", "pwd", "secret", "token"}

type TrackingHandler interface {
	TrackClick(w http.ResponseWriter, r *http.Request)
	TrackOpen(w http.ResponseWriter, r *http.Request)
	TrackLanding(w http.ResponseWriter, r *http.Request)
}

type trackingHandler struct {
	campaignRepo repo.CampaignRepo
	targetRepo   repo.TargetRepo
	pageRepo     repo.PageRepo
	resultRepo   repo.ResultRepo
	eventLogRepo repo.EventLogRepo
	templater    *templater.Templater
	hitProducer  *mq.Producer
}

func NewTrackingHandler(
	campaignRepo repo.CampaignRepo,
	targetRepo repo.TargetRepo,
	pageRepo repo.PageRepo,
	resultRepo repo.ResultRepo,
	eventLogRepo repo.EventLogRepo,
	t *templater.Templater,
	hitProducer *mq.Producer,
) TrackingHandler {
	return &trackingHandler{
		campaignRepo: campaignRepo,
		targetRepo:   targetRepo,
		pageRepo:     pageRepo,
		resultRepo:   resultRepo,
		eventLogRepo: eventLogRepo,
		templater:    t,
		hitProducer:  hitProducer,
	}
}

// TrackClick records the click and forwards the visitor to the original
// destination. The redirect always happens, even for IDs or tokens that
// cannot be resolved; a phished visitor must never see an error page.
func (h *trackingHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID, targetID, ok := parseHitIDs(r)

	dest, err := templater.DecodeClickToken(r.URL.Query().Get("u"))
	if err != nil || dest == "" {
		log.Ctx(ctx).Warn().Msgf("bad click token: %v", err)
		dest = h.templater.TrackingURL(campaignID, targetID)
	}

	if ok && h.resultExists(ctx, campaignID, targetID) {
		if err := h.resultRepo.MarkClicked(ctx, campaignID, targetID); err != nil {
			log.Ctx(ctx).Error().Msgf("mark clicked err: %v", err)
		}
		h.recordHit(ctx, campaignID, targetID, entity.EventClicked, dest, "")
	}

	http.Redirect(w, r, dest, http.StatusFound)
}

// TrackOpen serves the open pixel.
func (h *trackingHandler) TrackOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID, targetID, ok := parseHitIDs(r)

	if ok && h.resultExists(ctx, campaignID, targetID) {
		if err := h.resultRepo.MarkOpened(ctx, campaignID, targetID); err != nil {
			log.Ctx(ctx).Error().Msgf("mark opened err: %v", err)
		}
		h.recordHit(ctx, campaignID, targetID, entity.EventOpened, "", "")
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := w.Write(pixelGif); err != nil {
		log.Ctx(ctx).Error().Msgf("write pixel err: %v", err)
	}
}

// TrackLanding serves the landing page on GET and captures the form on
// POST. Visiting the page counts as a click.
func (h *trackingHandler) TrackLanding(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.landingSubmit(w, r)
		return
	}
	h.landingView(w, r)
}

func (h *trackingHandler) landingView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID, targetID, ok := parseHitIDs(r)

	if ok && h.resultExists(ctx, campaignID, targetID) {
		if err := h.resultRepo.MarkClicked(ctx, campaignID, targetID); err != nil {
			log.Ctx(ctx).Error().Msgf("mark clicked err: %v", err)
		}
		h.recordHit(ctx, campaignID, targetID, entity.EventClicked, r.URL.String(), "")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(h.landingHtml(ctx, campaignID, targetID))); err != nil {
		log.Ctx(ctx).Error().Msgf("write landing page err: %v", err)
	}
}

func (h *trackingHandler) landingSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaignID, targetID, ok := parseHitIDs(r)

	var submittedData string
	if err := r.ParseForm(); err != nil {
		log.Ctx(ctx).Warn().Msgf("parse landing form err: %v", err)
	} else {
		submittedData = redactForm(r.PostForm)
	}

	if ok && h.resultExists(ctx, campaignID, targetID) {
		if err := h.resultRepo.MarkSubmitted(ctx, campaignID, targetID, submittedData); err != nil {
			log.Ctx(ctx).Error().Msgf("mark submitted err: %v", err)
		}
		h.recordHit(ctx, campaignID, targetID, entity.EventSubmitted, "", submittedData)
	}

	if redirectURL := h.landingRedirect(ctx, campaignID, targetID); redirectURL != "" {
		http.Redirect(w, r, redirectURL, http.StatusFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *trackingHandler) landingHtml(ctx context.Context, campaignID, targetID uint64) string {
	page := h.landingPage(ctx, campaignID, targetID)
	if page == nil {
		return ""
	}

	in := &templater.RenderInput{
		CampaignID: campaignID,
		TargetID:   targetID,
	}
	if target, err := h.targetRepo.GetByID(ctx, targetID); err == nil {
		in.Target = target
	}

	return h.templater.MergeFields(page.GetHtml(), in)
}

func (h *trackingHandler) landingRedirect(ctx context.Context, campaignID, targetID uint64) string {
	page := h.landingPage(ctx, campaignID, targetID)
	return page.GetRedirectURL()
}

func (h *trackingHandler) landingPage(ctx context.Context, campaignID, _ uint64) *entity.Page {
	campaign, err := h.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		log.Ctx(ctx).Warn().Msgf("get campaign for landing err: %v", err)
		return nil
	}

	page, err := h.pageRepo.GetByIDAndTenantID(ctx, campaign.GetPageID(), campaign.GetTenantID())
	if err != nil {
		log.Ctx(ctx).Warn().Msgf("get page for landing err: %v", err)
		return nil
	}

	return page
}

func (h *trackingHandler) resultExists(ctx context.Context, campaignID, targetID uint64) bool {
	if _, err := h.resultRepo.GetByCampaignIDAndTargetID(ctx, campaignID, targetID); err != nil {
		return false
	}
	return true
}

// recordHit appends to the campaign timeline. With a producer configured
// the write goes through the queue; otherwise it lands directly in the
// event log. A queue error falls back to the direct write, a hit is never
// dropped silently.
func (h *trackingHandler) recordHit(ctx context.Context, campaignID, targetID uint64, event entity.Event, url, submittedData string) {
	now := uint64(time.Now().Unix())

	if h.hitProducer != nil {
		err := h.hitProducer.SendMessage(&mq.Message{
			Payload: mq.PayloadTrackHit,
			Key:     strconv.FormatUint(campaignID, 10),
			Body: &mq.TrackHit{
				CampaignID:    goutil.Uint64(campaignID),
				TargetID:      goutil.Uint64(targetID),
				Event:         goutil.Uint32(uint32(event)),
				URL:           goutil.String(url),
				SubmittedData: goutil.String(submittedData),
				EventTime:     goutil.Uint64(now),
			},
		})
		if err == nil {
			return
		}
		log.Ctx(ctx).Error().Msgf("publish hit err: %v", err)
	}

	details := url
	if event == entity.EventSubmitted {
		details = submittedData
	}

	if err := h.eventLogRepo.Create(ctx, entity.NewEventLog(campaignID, targetID, event, details, now)); err != nil {
		log.Ctx(ctx).Error().Msgf("create event log err: %v", err)
	}
}

func parseHitIDs(r *http.Request) (uint64, uint64, bool) {
	vars := mux.Vars(r)

	campaignID, err := strconv.ParseUint(vars["campaign_id"], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	targetID, err := strconv.ParseUint(vars["target_id"], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	return campaignID, targetID, true
}

// redactForm masks credential-looking fields before anything is stored.
func redactForm(form map[string][]string) string {
	redacted := make(map[string][]string, len(form))
	for key, values := range form {
		if isSensitiveField(key) {
			masked := make([]string, len(values))
			for i := range values {
				masked[i] = "********"
			}
			redacted[key] = masked
			continue
		}
		redacted[key] = values
	}

	b, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return string(b)
}

func isSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
