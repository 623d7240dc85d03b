// Package generator samples synthetic sensor values from fixed per-kind distributions.
package generator

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/speedwagon-io/sensorsim/internal/model"
)

const (
	temperatureMean   = 22.0
	temperatureStdDev = 3.0

	humidityAlpha = 5.0
	humidityBeta  = 3.0
	humidityMin   = 40.0
	humidityMax   = 90.0

	noiseMu      = 3.7
	noiseSigma   = 0.4
	noiseCeiling = 120.0
)

// pcgStream is the second PCG word; only the seed varies between units.
const pcgStream = 0x9e3779b97f4a7c15

// Generator owns one random source and the distributions drawing from it.
// It is not safe for concurrent use: every unit gets its own.
type Generator struct {
	temperature distuv.Normal
	humidity    distuv.Beta
	noise       distuv.LogNormal
}

func New(seed uint64) *Generator {
	src := rand.NewPCG(seed, pcgStream)

	return &Generator{
		temperature: distuv.Normal{Mu: temperatureMean, Sigma: temperatureStdDev, Src: src},
		humidity:    distuv.Beta{Alpha: humidityAlpha, Beta: humidityBeta, Src: src},
		noise:       distuv.LogNormal{Mu: noiseMu, Sigma: noiseSigma, Src: src},
	}
}

// Value draws one sample for kind, rounded to two decimals.
func (g *Generator) Value(kind model.Kind) (float64, error) {
	switch kind {
	case model.KindTemperature:
		return round2(g.temperature.Rand()), nil
	case model.KindHumidity:
		return round2(humidityMin + g.humidity.Rand()*(humidityMax-humidityMin)), nil
	case model.KindNoise:
		return round2(math.Min(g.noise.Rand(), noiseCeiling)), nil
	default:
		return 0, &model.UnsupportedKindError{Kind: kind}
	}
}

// SeedFor derives a unit seed from a fleet-wide master seed and the sensor id,
// so a whole fleet replays from one number while units stay independent.
func SeedFor(master uint64, sensorID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sensorID))
	return master ^ h.Sum64()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
