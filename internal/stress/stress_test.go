package stress

import (
	"testing"
	"time"

	"github.com/kledx/toxictide/pkg/types"
)

func TestStressLevelIsMaxPriority(t *testing.T) {
	oad := types.OADReport{Ts: time.Now(), Level: types.LevelWarn, Score: 1, Triggers: map[string]float64{}}
	vad := types.VADReport{Ts: time.Now(), Level: types.LevelDanger, Score: 2, Triggers: map[string]float64{"toxic": 0.1}}

	idx := Aggregate(oad, vad)
	if idx.Level != types.LevelDanger {
		t.Fatalf("expected DANGER (max of WARN,DANGER), got %s", idx.Level)
	}
}

func TestStressLevelOKWhenBothOK(t *testing.T) {
	oad := types.OADReport{Level: types.LevelOK, Score: 0, Triggers: map[string]float64{}}
	vad := types.VADReport{Level: types.LevelOK, Score: 0, Triggers: map[string]float64{"toxic": 0}}
	idx := Aggregate(oad, vad)
	if idx.Level != types.LevelOK {
		t.Fatalf("expected OK, got %s", idx.Level)
	}
}

func TestStressComponentsPreserveSubScores(t *testing.T) {
	oad := types.OADReport{Level: types.LevelOK, Score: 3, Triggers: map[string]float64{}}
	vad := types.VADReport{Level: types.LevelOK, Score: 4, Triggers: map[string]float64{"toxic": 0.2}}
	idx := Aggregate(oad, vad)
	if idx.Components["oad_score"] != 3 || idx.Components["vad_score"] != 4 {
		t.Fatalf("expected sub-scores preserved in components, got %+v", idx.Components)
	}
}
