package consensus

import "testing"

func TestNextTargetNonBoundaryUnchanged(t *testing.T) {
	parent := Hash{0, 0, 0xFF}
	got, err := NextTarget(AdjustmentInterval-1, parent, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != parent {
		t.Fatalf("non-boundary height must not retarget: got %x want %x", got, parent)
	}
}

func TestNextTargetNonPositiveActualTimeUnchanged(t *testing.T) {
	parent := Hash{0, 0, 0xFF}
	got, err := NextTarget(AdjustmentInterval, parent, 1000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != parent {
		t.Fatalf("zero actual time must leave target unchanged")
	}
}

// TestNextTargetClampsToQuarter is scenario S5: an actual interval of
// expected/100 (vastly faster than expected) must clamp the effective
// multiplier to 1/4, not apply the raw 1/100 ratio.
func TestNextTargetClampsToQuarter(t *testing.T) {
	parent := Hash{}
	parent[16] = 0x10 // an arbitrary mid-range target, away from both clamps

	expected := int64(TargetBlockInterval) * int64(AdjustmentInterval)
	actual := expected / 100

	got, err := NextTarget(AdjustmentInterval, parent, 0, actual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quarter, err := NextTarget(AdjustmentInterval, parent, 0, expected/4)
	if err != nil {
		t.Fatalf("unexpected error computing quarter baseline: %v", err)
	}

	if got != quarter {
		t.Fatalf("clamp not applied before division: got %x, want %x (target/4)", got, quarter)
	}
}

func TestNextTargetClampsToFour(t *testing.T) {
	parent := Hash{}
	parent[16] = 0x10

	expected := int64(TargetBlockInterval) * int64(AdjustmentInterval)
	actual := expected * 100

	got, err := NextTarget(AdjustmentInterval, parent, 0, actual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quadruple, err := NextTarget(AdjustmentInterval, parent, 0, expected*4)
	if err != nil {
		t.Fatalf("unexpected error computing quadruple baseline: %v", err)
	}

	if got != quadruple {
		t.Fatalf("clamp not applied before division: got %x, want %x (target*4)", got, quadruple)
	}
}

func TestNextTargetNeverExceedsMaxTarget(t *testing.T) {
	parent := MaxTarget
	expected := int64(TargetBlockInterval) * int64(AdjustmentInterval)
	got, err := NextTarget(AdjustmentInterval, parent, 0, expected*4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MaxTarget {
		t.Fatalf("target must clamp to MaxTarget, got %x", got)
	}
}

func TestNextTargetNeverBelowMinTarget(t *testing.T) {
	parent := MinTarget
	expected := int64(TargetBlockInterval) * int64(AdjustmentInterval)
	got, err := NextTarget(AdjustmentInterval, parent, 0, expected/4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != MinTarget {
		t.Fatalf("target must clamp to MinTarget, got %x", got)
	}
}
