// Package hotness turns raw engagement counters into a ranked, explainable
// "why is this hot" signal. Everything here is pure and safe for concurrent use.
package hotness

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Level is a discrete hotness bucket derived from the score.
type Level string

const (
	LevelFire Level = "fire"
	LevelHot  Level = "hot"
	LevelWarm Level = "warm"
	LevelMild Level = "mild"
	LevelCold Level = "cold"
)

// Tuning constants. These were picked empirically and define product
// behaviour; change them only to change the ranking.
const (
	// MinHoursOld floors the story age at 6 minutes.
	MinHoursOld = 0.1
	// MaxRecencyBoost is the multiplier applied to a story of age zero.
	MaxRecencyBoost = 3.0
	// RecencyDecayHours is how many hours it takes the boost to drop by 1x,
	// so the boost reaches 1x at 8 hours.
	RecencyDecayHours = 4.0

	FireScore = 100.0
	HotScore  = 50.0
	WarmScore = 20.0
	MildScore = 5.0

	// FreshHours is the age below which a mild story is labelled fresh.
	FreshHours = 2.0
)

// Result is the hotness of one story.
type Result struct {
	Score    float64 `json:"score"`
	Velocity float64 `json:"velocity"`
	Level    Level   `json:"level"`
	Reason   string  `json:"reason,omitempty"`
	HoursOld float64 `json:"hours_old"`
}

type levelRule struct {
	min    float64
	level  Level
	reason func(velocity, hoursOld float64) string
}

// levelRules is evaluated top to bottom, first match wins.
var levelRules = []levelRule{
	{min: FireScore, level: LevelFire, reason: velocityReason("🔥")},
	{min: HotScore, level: LevelHot, reason: velocityReason("🔥")},
	{min: WarmScore, level: LevelWarm, reason: velocityReason("📈")},
	{min: MildScore, level: LevelMild, reason: freshReason},
}

func velocityReason(icon string) func(float64, float64) string {
	return func(velocity, _ float64) string {
		return fmt.Sprintf("%s %d pts/hr", icon, int64(math.Round(velocity)))
	}
}

func freshReason(_, hoursOld float64) string {
	if hoursOld < FreshHours {
		return "🆕 Fresh"
	}
	return ""
}

// Calculate scores a story with the given points posted at ts, as of now.
func Calculate(points int, ts time.Time) Result {
	return CalculateAt(points, ts, time.Now())
}

// CalculateAt is Calculate with an explicit clock.
//
// A zero ts yields the cold sentinel regardless of points.
func CalculateAt(points int, ts, now time.Time) Result {
	if ts.IsZero() {
		return Result{Level: LevelCold}
	}
	if points < 0 {
		points = 0
	}

	hoursOld := math.Max(now.Sub(ts).Hours(), MinHoursOld)
	velocity := float64(points) / hoursOld
	score := velocity * recencyMultiplier(hoursOld)

	res := Result{
		Score:    round1(score),
		Velocity: round1(velocity),
		Level:    LevelCold,
		HoursOld: round1(hoursOld),
	}
	for _, r := range levelRules {
		if score >= r.min {
			res.Level = r.level
			res.Reason = r.reason(velocity, hoursOld)
			break
		}
	}
	return res
}

// LevelFor classifies an unrounded score.
func LevelFor(score float64) Level {
	for _, r := range levelRules {
		if score >= r.min {
			return r.level
		}
	}
	return LevelCold
}

// recencyMultiplier decays linearly from MaxRecencyBoost at age 0 and never
// drops below 1.
func recencyMultiplier(hoursOld float64) float64 {
	return math.Max(1, MaxRecencyBoost-hoursOld/RecencyDecayHours)
}

// Rank orders levels from cold (0) to fire (4). Unknown levels rank -1.
func (l Level) Rank() int {
	switch l {
	case LevelCold:
		return 0
	case LevelMild:
		return 1
	case LevelWarm:
		return 2
	case LevelHot:
		return 3
	case LevelFire:
		return 4
	}
	return -1
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if l.Rank() < 0 {
		return "", fmt.Errorf("unknown hotness level %q", s)
	}
	return l, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
