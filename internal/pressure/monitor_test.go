package pressure

import (
	"testing"

	"github.com/islandport/actuator/internal/domain"
)

func TestCPUPressureFromLongTasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LongTaskBudgetMs = 100
	m := New(cfg)

	m.OnLongTask(0, 50)
	m.OnLongTask(100, 50)

	sig := m.Read(200)
	if sig.CPUPressure <= 0 {
		t.Fatalf("expected positive cpu pressure, got %v", sig.CPUPressure)
	}
}

func TestLongTasksExpireOutsideWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LongTaskWindowMs = 1000
	cfg.LongTaskBudgetMs = 100
	m := New(cfg)

	m.OnLongTask(0, 100)
	sig := m.Read(2000) // well past the window
	if sig.CPUPressure != 0 {
		t.Fatalf("expired long task should not contribute: cpuPressure=%v", sig.CPUPressure)
	}
}

func TestEngineCostContributesToPressure(t *testing.T) {
	m := New(DefaultConfig())
	m.SetEngineCostMs(8) // 8/4 = 2.0, clamped to 1
	sig := m.Read(0)
	if sig.CPUPressure < 0.2 {
		t.Fatalf("engine cost should contribute cpu pressure, got %v", sig.CPUPressure)
	}
}

func TestNetPressureSaveDataOverridesEverything(t *testing.T) {
	m := New(DefaultConfig())
	m.SetConnection(domain.ConnectionSnapshot{EffectiveType: "4g", SaveData: true})
	sig := m.Read(0)
	if sig.NetPressure != 1.0 {
		t.Fatalf("saveData should force netPressure=1, got %v", sig.NetPressure)
	}
	if !sig.SaveData {
		t.Fatalf("saveData flag should pass through")
	}
}

func TestNetPressureEffectiveTypeTable(t *testing.T) {
	cases := []struct {
		effectiveType string
		want          float64
	}{
		{"slow-2g", 1.0},
		{"2g", 0.85},
		{"3g", 0.55},
		{"4g", 0.25},
		{"unknown", 0},
		{"", 0},
	}
	for _, tc := range cases {
		m := New(DefaultConfig())
		m.SetConnection(domain.ConnectionSnapshot{EffectiveType: tc.effectiveType})
		sig := m.Read(0)
		if sig.NetPressure != tc.want {
			t.Errorf("effectiveType=%q netPressure=%v, want %v", tc.effectiveType, sig.NetPressure, tc.want)
		}
	}
}

func TestNetPressureDownlinkRefinesUpwardOnly(t *testing.T) {
	m := New(DefaultConfig())
	slow := 0.2
	m.SetConnection(domain.ConnectionSnapshot{EffectiveType: "4g", DownlinkMbps: &slow})
	sig := m.Read(0)
	if sig.NetPressure <= 0.25 {
		t.Fatalf("low downlink should refine 4g's 0.25 upward, got %v", sig.NetPressure)
	}

	fast := 50.0
	m2 := New(DefaultConfig())
	m2.SetConnection(domain.ConnectionSnapshot{EffectiveType: "slow-2g", DownlinkMbps: &fast})
	sig2 := m2.Read(0)
	if sig2.NetPressure != 1.0 {
		t.Fatalf("a fast downlink must never refine pressure downward below the effectiveType table: got %v", sig2.NetPressure)
	}
}

func TestNoConnectionSnapshotMeansNoNetPressure(t *testing.T) {
	m := New(DefaultConfig())
	sig := m.Read(0)
	if sig.NetPressure != 0 {
		t.Fatalf("unknown connection should yield 0 netPressure, got %v", sig.NetPressure)
	}
}

func TestFIFOCompactsAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LongTaskWindowMs = 10
	m := New(cfg)
	for i := 0; i < 200; i++ {
		m.OnLongTask(float64(i), 1)
		m.Read(float64(i) + 20) // always past window, forces head to advance
	}
	if len(m.entries)-m.head > 200 {
		t.Fatalf("compaction should keep the live slice bounded, got live=%d", len(m.entries)-m.head)
	}
}
