// Package pressure implements the pressure monitor (spec.md §4.4): a sliding
// window of long-task durations and an externally supplied connection
// snapshot, reduced to the {cpuPressure, netPressure, saveData} signals the
// utility gate uses to throttle speculative work.
package pressure

import (
	"github.com/islandport/actuator/internal/domain"
)

// compactThreshold, together with the head·2 > len check in Read, implements
// spec.md §4.4's "compacted when head > 64 and head·2 > len" rule.
const compactThreshold = 64

type taskEntry struct {
	start, duration float64
}

// Monitor tracks recent long tasks and the last known connection state.
// Not safe for concurrent use — writes (OnLongTask, SetEngineCostMs,
// SetConnection) and Read all run on the core's single logical thread.
type Monitor struct {
	cfg Derived

	entries []taskEntry
	head    int
	sum     float64

	lastEngineMs float64

	hasConn bool
	conn    domain.ConnectionSnapshot
}

// New creates a Monitor with the given config.
func New(cfg Config) *Monitor {
	return &Monitor{cfg: Derive(cfg)}
}

// SetConfig atomically replaces the configuration.
func (m *Monitor) SetConfig(cfg Config) {
	m.cfg = Derive(cfg)
}

// OnLongTask records a reported long task. Entries may arrive out of
// chronological order (spec.md §7); the window is only enforced on Read.
func (m *Monitor) OnLongTask(startMs, durationMs float64) {
	m.entries = append(m.entries, taskEntry{start: startMs, duration: durationMs})
	m.sum += durationMs
}

// SetEngineCostMs records the last frame's core tick cost.
func (m *Monitor) SetEngineCostMs(ms float64) {
	m.lastEngineMs = ms
}

// SetConnection records the latest externally supplied connection snapshot.
func (m *Monitor) SetConnection(snap domain.ConnectionSnapshot) {
	m.hasConn = true
	m.conn = snap
}

// ClearConnection forgets the connection snapshot (treated as unknown).
func (m *Monitor) ClearConnection() {
	m.hasConn = false
	m.conn = domain.ConnectionSnapshot{}
}

// Read trims expired long-task entries, compacts the FIFO if warranted, and
// returns the current pressure signals.
func (m *Monitor) Read(nowMs float64) domain.PressureSignals {
	c := m.cfg.raw
	cutoff := nowMs - c.LongTaskWindowMs

	for m.head < len(m.entries) && m.entries[m.head].start+m.entries[m.head].duration < cutoff {
		m.sum -= m.entries[m.head].duration
		m.head++
	}
	// Out-of-order arrivals can leave an expired entry behind a live one;
	// drop those too so only in-window tasks count.
	live := m.entries[m.head:]
	kept := live[:0]
	for _, e := range live {
		if e.start+e.duration < cutoff {
			m.sum -= e.duration
			continue
		}
		kept = append(kept, e)
	}
	m.entries = m.entries[:m.head+len(kept)]
	if m.sum < 0 {
		m.sum = 0
	}
	if m.head > compactThreshold && m.head*2 > len(m.entries) {
		m.entries = append(m.entries[:0], m.entries[m.head:]...)
		m.head = 0
	}

	cpuLong := domain.Clamp01(m.sum / max1(c.LongTaskBudgetMs))
	cpuEng := domain.Clamp01(m.lastEngineMs / 4)
	cpuPressure := domain.Clamp(0.75*cpuLong+0.25*cpuEng, 0, 1)

	return domain.PressureSignals{
		CPUPressure: cpuPressure,
		NetPressure: m.netPressure(),
		SaveData:    m.hasConn && m.conn.SaveData,
	}
}

func (m *Monitor) netPressure() float64 {
	if !m.hasConn {
		return 0
	}
	if m.conn.SaveData {
		return 1.0
	}
	base := effectiveTypePressure(m.conn.EffectiveType)
	if m.conn.DownlinkMbps != nil {
		if refined := downlinkPressure(*m.conn.DownlinkMbps); refined > base {
			base = refined
		}
	}
	return base
}

func effectiveTypePressure(effectiveType string) float64 {
	switch effectiveType {
	case "slow-2g":
		return 1.0
	case "2g":
		return 0.85
	case "3g":
		return 0.55
	case "4g":
		return 0.25
	default:
		return 0
	}
}

// downlinkPressure is monotonically non-increasing in mbps (spec.md §4.4).
func downlinkPressure(mbps float64) float64 {
	switch {
	case mbps <= 0:
		return 1.0
	case mbps < 0.5:
		return 0.9
	case mbps < 1.5:
		return 0.7
	case mbps < 3:
		return 0.5
	case mbps < 5:
		return 0.3
	case mbps < 10:
		return 0.15
	default:
		return 0
	}
}

func max1(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}
