// Package stress fuses an OADReport and VADReport into a single three-level
// stress index. Purely functional: holds no state.
package stress

import "github.com/kledx/toxictide/pkg/types"

// Aggregate computes the StressIndex from the given OAD and VAD reports.
func Aggregate(oad types.OADReport, vad types.VADReport) types.StressIndex {
	toxic := vad.Triggers["toxic"]
	score := 0.5*oad.Score + 0.3*vad.Score + 5*toxic
	level := types.MaxLevel(oad.Level, vad.Level)

	ts := oad.Ts
	if vad.Ts.After(ts) {
		ts = vad.Ts
	}

	return types.StressIndex{
		Ts:    ts,
		Level: level,
		Score: score,
		Components: map[string]float64{
			"oad_score": oad.Score,
			"vad_score": vad.Score,
			"toxic":     toxic,
		},
	}
}
