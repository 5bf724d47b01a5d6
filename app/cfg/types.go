package cfg

type Cfg struct {
	// HTTP server
	Port       string
	AdminToken string

	// Digest content
	EventsBaseURL  string
	BaseWebsiteURL string
	TokenSecret    string
	CatalogFile    string
	EventsCacheTTL int

	// Subscriber store
	DBPath         string
	DataDir        string
	SubscribersKey string

	// Mail transport
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string

	// Cache
	RedisAddr string

	// Scheduler
	SchedulerInterval int
	SendHour          int
	WorkerCount       int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
