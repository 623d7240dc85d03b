package model

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindHumidity    Kind = "humidity"
	KindNoise       Kind = "noise"
)

const (
	UnitCelsius = "°C"
	UnitPercent = "%"
	UnitDecibel = "dB"
)

func Kinds() []Kind {
	return []Kind{KindTemperature, KindHumidity, KindNoise}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", &UnsupportedKindError{Kind: k}
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k.Unit() != ""
}

// Unit returns the unit of measure for the kind, or "" for an unknown kind.
func (k Kind) Unit() string {
	switch k {
	case KindTemperature:
		return UnitCelsius
	case KindHumidity:
		return UnitPercent
	case KindNoise:
		return UnitDecibel
	default:
		return ""
	}
}

func (k Kind) String() string {
	return string(k)
}

// UnsupportedKindError reports a sensor kind with no value model.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported sensor type %q", string(e.Kind))
}

type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Identity is the immutable description of one simulated sensor.
type Identity struct {
	ID       string
	Kind     Kind
	Interval time.Duration
}

func NewIdentity(id string, kind Kind, interval time.Duration) Identity {
	return Identity{
		ID:       id,
		Kind:     kind,
		Interval: interval,
	}
}

func (i Identity) Unit() string {
	return i.Kind.Unit()
}
