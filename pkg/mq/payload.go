package mq

type Payload uint32

const (
	PayloadUnknown Payload = iota
	PayloadTrackHit
)

var Payloads = map[Payload]string{
	PayloadTrackHit: "track_hit",
}

// TrackHit is the raw engagement hit published by the tracking endpoints.
type TrackHit struct {
	CampaignID    *uint64 `json:"campaign_id,omitempty"`
	TargetID      *uint64 `json:"target_id,omitempty"`
	Event         *uint32 `json:"event,omitempty"`
	URL           *string `json:"url,omitempty"`
	SubmittedData *string `json:"submitted_data,omitempty"`
	EventTime     *uint64 `json:"event_time,omitempty"`
}

func (m *TrackHit) GetCampaignID() uint64 {
	if m != nil && m.CampaignID != nil {
		return *m.CampaignID
	}
	return 0
}

func (m *TrackHit) GetTargetID() uint64 {
	if m != nil && m.TargetID != nil {
		return *m.TargetID
	}
	return 0
}

func (m *TrackHit) GetEvent() uint32 {
	if m != nil && m.Event != nil {
		return *m.Event
	}
	return 0
}

func (m *TrackHit) GetURL() string {
	if m != nil && m.URL != nil {
		return *m.URL
	}
	return ""
}

func (m *TrackHit) GetSubmittedData() string {
	if m != nil && m.SubmittedData != nil {
		return *m.SubmittedData
	}
	return ""
}

func (m *TrackHit) GetEventTime() uint64 {
	if m != nil && m.EventTime != nil {
		return *m.EventTime
	}
	return 0
}
