package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricLogout
	MetricLogoutAll
	MetricSessionCreated
	MetricSessionRevoked
	MetricSessionEvicted
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricAccountStatusChanged
	MetricTokenVerifyFailure
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricRegisterSuccess:       "register_success",
	MetricRegisterDuplicate:     "register_duplicate",
	MetricLoginSuccess:          "login_success",
	MetricLoginFailure:          "login_failure",
	MetricRefreshSuccess:        "refresh_success",
	MetricRefreshFailure:        "refresh_failure",
	MetricRefreshReuseDetected:  "refresh_reuse_detected",
	MetricLogout:                "logout",
	MetricLogoutAll:             "logout_all",
	MetricSessionCreated:        "session_created",
	MetricSessionRevoked:        "session_revoked",
	MetricSessionEvicted:        "session_evicted",
	MetricPasswordChangeSuccess: "password_change_success",
	MetricPasswordChangeFailure: "password_change_failure",
	MetricAccountStatusChanged:  "account_status_changed",
	MetricTokenVerifyFailure:    "token_verify_failure",
}

// String returns the stable snake_case name used by exporters.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const cacheLineSize = 64

// Counters sit on separate cache lines so hot flows on different cores do
// not contend on neighbors.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the engine's in-process counter set. All methods are safe for
// concurrent use; a nil or disabled receiver is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// MetricIDs returns every defined counter id in declaration order, for
// exporters that want a stable iteration.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}
