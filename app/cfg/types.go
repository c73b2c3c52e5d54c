package cfg

type Cfg struct {
	// Pipeline configuration
	SourcesFile string
	DataDir     string
	OutputFile  string

	// Rendered channel metadata
	SiteTitle       string
	SiteLink        string
	SiteDescription string

	// Fetching
	UserAgent     string
	FetchTimeout  int
	EnrichContent bool

	// Notifications
	WebhookURL      string
	LedgerFile      string
	NotifyMaxPerRun int
	NotifyDelay     int

	// Serve mode
	Serve             bool
	Port              string
	SchedulerInterval int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
