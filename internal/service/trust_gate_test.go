package service

import (
	"testing"

	"grant-trust-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTrustGateDecide(t *testing.T) {
	gate := NewTrustGate(60)

	cases := []struct {
		score   int
		proceed bool
	}{
		{0, false},
		{59, false},
		{60, true},
		{100, true},
	}
	for _, tc := range cases {
		decision := gate.Decide(model.RetrievalConfidence{
			ConfidenceResult: model.ConfidenceResult{Score: tc.score},
		})
		assert.Equal(t, tc.proceed, decision.Proceed, "score %d", tc.score)
		assert.Equal(t, 60, decision.Threshold)
	}
}
