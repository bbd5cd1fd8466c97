package heartbeat

import "time"

// Quality is a coarse link rating derived from the heartbeat round trip.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityGood
	QualityFair
	QualityPoor
)

// Round-trip thresholds for Classify.
const (
	GoodLatency = 300 * time.Millisecond
	FairLatency = 500 * time.Millisecond
)

// Classify rates a round trip.
func Classify(rtt time.Duration) Quality {
	switch {
	case rtt <= GoodLatency:
		return QualityGood
	case rtt <= FairLatency:
		return QualityFair
	default:
		return QualityPoor
	}
}

// String returns the quality name.
func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityFair:
		return "fair"
	case QualityPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// MarshalText renders the quality by name in JSON and logs.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}
