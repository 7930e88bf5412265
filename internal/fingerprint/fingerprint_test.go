package fingerprint

import (
	"testing"
	"time"

	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/stretchr/testify/assert"
)

func sample() *models.Snapshot {
	return &models.Snapshot{
		Reviews: []models.ReviewRecord{
			{ExpertName: "A", ReviewTime: "t1", OverallEvaluation: "A", ReviewResult: "同意答辩"},
			{ExpertName: "B", ReviewTime: "t2", OverallEvaluation: "B", ReviewResult: "修改后答辩"},
		},
		FinalResult: "通过",
		ExtractTime: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestOf_MatchesStoredDigest(t *testing.T) {
	assert.Equal(t,
		`[{"expert_name": "A", "overall_evaluation": "A", "review_result": "同意答辩", "review_time": "t1"}, `+
			`{"expert_name": "B", "overall_evaluation": "B", "review_result": "修改后答辩", "review_time": "t2"}]通过`,
		Canonical(sample()))
	assert.Equal(t, "b66785e1d81fce029dc2ad0d4cadf168", Of(sample()))
}

func TestOf_Escaping(t *testing.T) {
	s := &models.Snapshot{Reviews: []models.ReviewRecord{{
		ExpertName:        "q\"uo\\te\n\t\x01",
		OverallEvaluation: "<&>",
		ReviewResult:      "/",
	}}}
	assert.Equal(t, `[{"expert_name": "q\"uo\\te\n\t\u0001", "overall_evaluation": "<&>", "review_result": "/", "review_time": ""}]`, Canonical(s))
	assert.Equal(t, "0a496ad4538118a7e3524d5808aa28b7", Of(s))
}

func TestOf_Deterministic(t *testing.T) {
	first := Of(sample())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Of(sample()))
	}
}

func TestOf_EmptyAndNil(t *testing.T) {
	assert.Equal(t, "", Of(nil))
	assert.Equal(t, "d751713988987e9331980363e24189ce", Of(&models.Snapshot{}), "zero reviews is a real fingerprint")
}

func TestOf_Sensitivity(t *testing.T) {
	base := Of(sample())

	tests := []struct {
		name    string
		mutate  func(*models.Snapshot)
		changes bool
	}{
		{"review result", func(s *models.Snapshot) { s.Reviews[1].ReviewResult = "同意答辩" }, true},
		{"overall evaluation", func(s *models.Snapshot) { s.Reviews[0].OverallEvaluation = "B" }, true},
		{"final result", func(s *models.Snapshot) { s.FinalResult = "不通过" }, true},
		{"row order", func(s *models.Snapshot) { s.Reviews[0], s.Reviews[1] = s.Reviews[1], s.Reviews[0] }, true},
		{"extract time only", func(s *models.Snapshot) { s.ExtractTime = s.ExtractTime.Add(time.Hour) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sample()
			tt.mutate(s)
			if tt.changes {
				assert.NotEqual(t, base, Of(s))
			} else {
				assert.Equal(t, base, Of(s))
			}
		})
	}
}
