package stickerkit

import (
	"math"
	"strings"

	"github.com/karlmutch/errors"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Effect selects a procedural animation.
type Effect int

const (
	EffectNone Effect = iota
	EffectShake
	EffectBounce
	EffectPulse
	EffectSpin
	EffectWobble
)

var effectNames = [...]string{"none", "shake", "bounce", "pulse", "spin", "wobble"}

// Effects lists every animated effect, EffectNone excluded.
var Effects = []Effect{EffectShake, EffectBounce, EffectPulse, EffectSpin, EffectWobble}

func (e Effect) String() string {
	if e < 0 || int(e) >= len(effectNames) {
		return "unknown"
	}
	return effectNames[e]
}

// ParseEffect maps a name such as "spin" to its Effect.
func ParseEffect(name string) (Effect, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EffectNone, nil
	}
	for i, n := range effectNames {
		if n == name {
			return Effect(i), nil
		}
	}
	return EffectNone, kindError(KindInvalidInput, errors.New("unknown effect").With("effect", name))
}

// motion is the effect-local transform for one frame, applied about the
// canvas centre: translate, then rotate, then scale.
type motion struct {
	dx, dy float64
	angle  float64
	scale  float64
}

// motionAt evaluates the effect at phase = 2π·i/n.
func (e Effect) motionAt(phase float64) motion {
	m := motion{scale: 1}
	switch e {
	case EffectShake:
		m.dx = math.Sin(phase*3) * 10
	case EffectBounce:
		m.dy = (math.Abs(math.Sin(phase*2))*-15 + 15) - 7
	case EffectPulse:
		m.scale = 1 + math.Sin(phase*2)*0.1
	case EffectSpin:
		m.angle = phase
	case EffectWobble:
		m.angle = math.Sin(phase*2) * 0.15
	}
	return m
}

// affine builds the source-to-destination matrix for a w×h canvas:
// T(centre)·T(dx,dy)·R(angle)·S(scale)·T(-centre).
func (m motion) affine(w, h int) f64.Aff3 {
	cx, cy := float64(w)/2, float64(h)/2
	sin, cos := math.Sincos(m.angle)

	steps := []*mat.Dense{
		mat.NewDense(3, 3, []float64{1, 0, cx + m.dx, 0, 1, cy + m.dy, 0, 0, 1}),
		mat.NewDense(3, 3, []float64{cos, -sin, 0, sin, cos, 0, 0, 0, 1}),
		mat.NewDense(3, 3, []float64{m.scale, 0, 0, 0, m.scale, 0, 0, 0, 1}),
		mat.NewDense(3, 3, []float64{1, 0, -cx, 0, 1, -cy, 0, 0, 1}),
	}
	var acc mat.Dense
	acc.CloneFrom(steps[0])
	for _, s := range steps[1:] {
		var next mat.Dense
		next.Mul(&acc, s)
		acc.CloneFrom(&next)
	}
	return f64.Aff3{
		acc.At(0, 0), acc.At(0, 1), acc.At(0, 2),
		acc.At(1, 0), acc.At(1, 1), acc.At(1, 2),
	}
}

func (m motion) isIdentity() bool {
	return m.dx == 0 && m.dy == 0 && m.angle == 0 && m.scale == 1
}
