package mqtt

// TopicPrefix is the base for all lamp topics.
//
// The daemon owns a small, fixed hierarchy:
//
//	lumen/command         inbound command objects
//	lumen/command/ack     result of each MQTT command
//	lumen/program         inbound program envelopes
//	lumen/program/status  program lifecycle events
//	lumen/state/snapshot  retained full lamp state
//	lumen/state/delta     per-frame sparse changes
//	lumen/system/status   online/offline presence (LWT)
const TopicPrefix = "lumen"

// Topics provides builders for lamp MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.Command(), 1, handler)
type Topics struct{}

// Command returns the topic the daemon listens on for command objects.
//
// Example: lumen/command
func (Topics) Command() string {
	return TopicPrefix + "/command"
}

// CommandAck returns the topic command results are published to.
// Each message received on the command topic produces one ack.
//
// Example: lumen/command/ack
func (Topics) CommandAck() string {
	return TopicPrefix + "/command/ack"
}

// Program returns the topic the daemon listens on for program envelopes.
//
// Example: lumen/program
func (Topics) Program() string {
	return TopicPrefix + "/program"
}

// ProgramStatus returns the topic program lifecycle events are
// published to (started, step, paused, resumed, completed, cancelled).
//
// Example: lumen/program/status
func (Topics) ProgramStatus() string {
	return TopicPrefix + "/program/status"
}

// StateSnapshot returns the retained full-state topic. New subscribers
// immediately receive the complete lamp state.
//
// Example: lumen/state/snapshot
func (Topics) StateSnapshot() string {
	return TopicPrefix + "/state/snapshot"
}

// StateDelta returns the topic sparse per-frame changes are published
// to. Consumers that miss deltas can resync from the snapshot.
//
// Example: lumen/state/delta
func (Topics) StateDelta() string {
	return TopicPrefix + "/state/delta"
}

// SystemStatus returns the system status topic. Online and offline
// payloads are retained here; the broker publishes the offline LWT if
// the daemon dies without saying goodbye.
//
// Example: lumen/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllTopics returns a pattern matching every lamp topic.
// Use with caution - this receives ALL traffic.
//
// Pattern: lumen/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
