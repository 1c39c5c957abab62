// Package predictor implements the kinetic predictor (spec.md §4.1): a
// two-stage (Brown-Holt) exponential smoother producing position, velocity,
// acceleration, and a per-target intent score combining direction alignment,
// distance horizon, and deceleration evidence.
package predictor

import (
	"math"

	"github.com/islandport/actuator/internal/domain"
)

// Predictor holds the smoother's running state. Not safe for concurrent use
// — per spec.md §5, the whole core runs on one logical thread.
type Predictor struct {
	cfg Derived

	s1x, s1y float64
	s2x, s2y float64

	vx, vy float64
	ax, ay float64
	vSq    float64

	seeded bool
}

// New creates a Predictor with the given config, reset to the origin.
func New(cfg Config) *Predictor {
	p := &Predictor{cfg: Derive(cfg)}
	p.Reset(0, 0)
	return p
}

// SetConfig atomically replaces the configuration, recomputing the derived
// cache. Does not reset kinematic state.
func (p *Predictor) SetConfig(cfg Config) {
	p.cfg = Derive(cfg)
}

// Reset seeds both smoothing levels to (x, y) and zeroes velocity and
// acceleration (spec.md §4.1 "Reset seeds s1 = s2 = (x,y)").
func (p *Predictor) Reset(x, y float64) {
	p.s1x, p.s1y = x, y
	p.s2x, p.s2y = x, y
	p.vx, p.vy = 0, 0
	p.ax, p.ay = 0, 0
	p.vSq = 0
	p.seeded = true
}

// Kinematics returns the current smoothed state without updating it.
func (p *Predictor) Kinematics() domain.Kinematics {
	return domain.Kinematics{
		PX: 2*p.s1x - p.s2x, PY: 2*p.s1y - p.s2y,
		VX: p.vx, VY: p.vy,
		AX: p.ax, AY: p.ay,
		VSq: p.vSq,
	}
}

// Update ingests one pointer sample and returns the new kinematics.
// dt is clamped to [1, 1000] ms per spec.md §4.1 "Numerics" before any
// division, guarding against both zero-dt bursts and stalled frames.
func (p *Predictor) Update(sample domain.PointerSample) domain.Kinematics {
	if !p.seeded {
		p.Reset(sample.X, sample.Y)
	}

	dt := domain.Clamp(sample.DtMs, 1, 1000)
	c := p.cfg.raw

	alpha := 1 - math.Pow(1-c.AlphaRef, dt/c.DtRefMs)
	alpha = domain.Clamp(alpha, 1e-4, 0.9999)

	p.s1x = alpha*sample.X + (1-alpha)*p.s1x
	p.s1y = alpha*sample.Y + (1-alpha)*p.s1y
	p.s2x = alpha*p.s1x + (1-alpha)*p.s2x
	p.s2y = alpha*p.s1y + (1-alpha)*p.s2y

	trendScale := alpha / domain.GuardDiv(1-alpha)
	trendX := trendScale * (p.s1x - p.s2x)
	trendY := trendScale * (p.s1y - p.s2y)

	vx := trendX / dt
	vy := trendY / dt

	speed := math.Hypot(vx, vy)
	if speed > c.VMax && speed > 0 {
		scale := c.VMax / speed
		vx *= scale
		vy *= scale
	}

	ax := (vx - p.vx) / dt
	ay := (vy - p.vy) / dt

	p.vx, p.vy = vx, vy
	p.ax, p.ay = ax, ay
	p.vSq = vx*vx + vy*vy

	return p.Kinematics()
}

// Hint scores a candidate target whose nearest point is (dx, dy) away from
// the cursor, with squared effective radius targetRadiusSq. Always in [0,1].
func (p *Predictor) Hint(dx, dy, targetRadiusSq float64) float64 {
	c := p.cfg.raw
	eps := c.Eps
	if eps <= 0 {
		eps = domain.Eps
	}

	dSq := dx*dx + dy*dy
	if dSq < eps {
		return 1.0
	}

	prox := domain.Clamp01(targetRadiusSq / (dSq + eps))

	vMinSq := c.VMin * c.VMin
	if p.vSq < vMinSq {
		return p.lowSpeedHint(dSq, targetRadiusSq, prox)
	}
	return p.highSpeedHint(dx, dy, dSq, targetRadiusSq, prox)
}

func (p *Predictor) lowSpeedHint(dSq, targetRadiusSq, prox float64) float64 {
	c := p.cfg.raw
	switch {
	case dSq <= targetRadiusSq:
		return 1.0
	case dSq <= p.cfg.lowSpeedNearMulSq*targetRadiusSq:
		return domain.Clamp01(c.LowSpeedProxScale * prox)
	default:
		return 0.0
	}
}

func (p *Predictor) highSpeedHint(dx, dy, dSq, targetRadiusSq, prox float64) float64 {
	c := p.cfg.raw
	eps := c.Eps
	if eps <= 0 {
		eps = domain.Eps
	}

	speed := math.Sqrt(p.vSq)
	horizon := c.HorizonBasePx + speed*c.HorizonMs
	insideRadius := dSq <= targetRadiusSq

	if !insideRadius && dSq > horizon*horizon {
		return 0
	}

	dot := p.vx*dx + p.vy*dy
	if dot <= 0 {
		return 0
	}

	if !insideRadius {
		cosThetaSq := interpCosThetaSq(c, speed)
		if dot*dot < cosThetaSq*p.vSq*dSq {
			return 0
		}
	}

	alignment := domain.Clamp01(dot * dot / domain.GuardDiv(p.vSq*dSq+eps))

	brake := c.BrakeFloor
	vBrakeMinSq := c.VBrakeMin * c.VBrakeMin
	vDotA := p.vx*p.ax + p.vy*p.ay
	if p.vSq >= vBrakeMinSq && vDotA < 0 {
		denom := math.Max(p.vSq, c.VMin*c.VMin)
		decelBoost := (-vDotA / domain.GuardDiv(denom)) * c.BrakeTauMs
		brake = domain.Clamp(c.BrakeFloor+decelBoost*prox, c.BrakeFloor, c.BrakeMax)
	}

	proxTerm := c.ProximityBias + (1-c.ProximityBias)*prox
	return math.Min(brake*alignment*proxTerm, 1.0)
}

// interpCosThetaSq linearly interpolates cos^2(theta) between its value at
// VMin (wide cone, slow motion) and VTheta (narrow cone, fast motion),
// clamping outside that range.
func interpCosThetaSq(c Config, speed float64) float64 {
	if c.VTheta <= c.VMin {
		return c.CosThetaFastSq
	}
	t := (speed - c.VMin) / (c.VTheta - c.VMin)
	t = domain.Clamp01(t)
	return c.CosThetaSlowSq + t*(c.CosThetaFastSq-c.CosThetaSlowSq)
}
