package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lumen-labs/lumen-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial dial; after that paho's
	// auto-reconnect owns retries.
	connectTimeout = 10 * time.Second

	// ackTimeout bounds waiting for publish/subscribe acknowledgements.
	ackTimeout = 5 * time.Second

	// disconnectQuiesceMs gives in-flight publishes a chance to drain
	// before Disconnect tears the connection down.
	disconnectQuiesceMs = 1000

	// maxQoS: MQTT defines levels 0 (at most once), 1 (at least once)
	// and 2 (exactly once).
	maxQoS = 2

	keepAlive = 60 * time.Second
)

// clientOptions translates the MQTT section of config.yaml into paho
// options: broker URL, credentials, clean session, keepalive, and
// auto-reconnect with the configured backoff window. TLS connections
// require at least TLS 1.2.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// No persistent session on the broker; the retained snapshot topic
	// is how late joiners catch up, not queued deltas.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	return opts
}

// presence is the payload shape published (and willed) on the system
// status topic.
type presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// presencePayload builds the retained status message. Reason is empty
// for online announcements, "graceful_shutdown" for a clean Close and
// "unexpected_disconnect" for the broker-delivered last will.
func presencePayload(status, clientID, reason string) []byte {
	payload, _ := json.Marshal(presence{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}
