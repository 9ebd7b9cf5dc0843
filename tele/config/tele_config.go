// Separate package is workaround to import cycles.
package tele_config

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	MeterId           string `hcl:"meter_id"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	TopicPrefix       string `hcl:"topic_prefix"`  // default: meter_id
	Qos               int    `hcl:"qos"`
	Retain            bool   `hcl:"retain"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	TlsCaFile         string `hcl:"tls_ca_file"`

	BuildVersion string `hcl:"-"`
}
