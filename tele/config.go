package tele

type Config struct {
	Enabled bool `hcl:"enable"`

	// Broker URL, e.g. tcp://192.168.1.10:1883
	Broker      string `hcl:"broker"`
	TopicPrefix string `hcl:"topic_prefix"`
	ClientID    string `hcl:"client_id"`
	Username    string `hcl:"username"`
	Password    string `hcl:"password"`

	KeepaliveSec   int `hcl:"keepalive_sec"`
	PingTimeoutSec int `hcl:"ping_timeout_sec"`

	// PersistPath is the on-disk report queue, survives broker outages and
	// process restarts.
	PersistPath string `hcl:"persist_path"`
	// StorePath backs paho in-flight message state.
	StorePath string `hcl:"store_path"`

	LogDebug bool `hcl:"log_debug"`
}

const (
	DefaultTopicPrefix = "NEEY"
	DefaultClientID    = "neeytele"
)
