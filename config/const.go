package config

const (
	PathHealthCheck = "/"

	PathCreateTenant       = "/create_tenant"
	PathGetTenant          = "/get_tenant"
	PathCreateCampaign     = "/create_campaign"
	PathGetCampaigns       = "/get_campaigns"
	PathLaunchCampaign     = "/launch_campaign"
	PathCompleteCampaign   = "/complete_campaign"
	PathDispatchCampaign   = "/dispatch_campaign"
	PathGetCampaignResults = "/get_campaign_results"
	PathCreateGroup        = "/create_group"
	PathGetGroups          = "/get_groups"
	PathCreateTemplate     = "/create_template"
	PathGetTemplates       = "/get_templates"
	PathCreatePage         = "/create_page"
	PathGetPages           = "/get_pages"
	PathCreateSMTPProfile  = "/create_smtp_profile"
	PathGetSMTPProfiles    = "/get_smtp_profiles"
	PathTestSMTPProfile    = "/test_smtp_profile"

	// tracking endpoints, mounted at root
	PathTrackClick   = "/c/{campaign_id}/{target_id}"
	PathTrackOpen    = "/o/{campaign_id}/{target_id}.gif"
	PathTrackLanding = "/l/{campaign_id}/{target_id}"
)

const (
	DefaultPort               = 9090
	LogLevelDebug             = "DEBUG"
	DefaultTickIntervalMillis = 60_000
)

var (
	EmptyJson = []byte("{}")
)
