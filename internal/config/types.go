package config

type Config struct {
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	Agent       AgentConfig       `yaml:"agent" json:"agent"`
	Workflow    WorkflowConfig    `yaml:"workflow" json:"workflow"`
	Probe       ProbeConfig       `yaml:"probe" json:"probe"`
	Launcher    LauncherConfig    `yaml:"launcher" json:"launcher"`
}

type CoordinatorConfig struct {
	Port int        `yaml:"port" json:"port"`
	Auth AuthConfig `yaml:"auth" json:"auth"`
}

type AuthConfig struct {
	Token string `yaml:"token" json:"token"` // empty disables auth
}

type AgentConfig struct {
	CoordinatorURL string `yaml:"coordinatorUrl" json:"coordinatorUrl"` // ws:// endpoint of the relay
	Token          string `yaml:"token" json:"token"`
	Headless       bool   `yaml:"headless" json:"headless"`
	UserDataDir    string `yaml:"userDataDir" json:"userDataDir"` // browser profile dir; keeps the target site's login
	InboxURL       string `yaml:"inboxUrl" json:"inboxUrl"`
	ThreadURLBase  string `yaml:"threadUrlBase" json:"threadUrlBase"` // conversation URL prefix; conversation id is appended
	TypingMinMs    int    `yaml:"typingMinMs" json:"typingMinMs"`
	TypingMaxMs    int    `yaml:"typingMaxMs" json:"typingMaxMs"`

	// Selectors overrides individual DOM selectors when the target page's
	// markup drifts; keys match the selector field names.
	Selectors map[string]string `yaml:"selectors" json:"selectors"`
}

type WorkflowConfig struct {
	MaxBatchSize   int `yaml:"maxBatchSize" json:"maxBatchSize"`
	SendDelayMinMs int `yaml:"sendDelayMinMs" json:"sendDelayMinMs"`
	SendDelayMaxMs int `yaml:"sendDelayMaxMs" json:"sendDelayMaxMs"`
}

type ProbeConfig struct {
	// Cron is a cron expression for the recurring session probe; empty disables it.
	Cron string `yaml:"cron" json:"cron"`
}

type LauncherConfig struct {
	// Enabled makes the coordinator supervise a local agent process.
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Command []string `yaml:"command" json:"command"` // argv; defaults to re-invoking this binary with "agent"
}
