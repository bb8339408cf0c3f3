package consensus

import "testing"

func TestBlockRewardGenesisIsZero(t *testing.T) {
	if r := BlockReward(0); r != 0 {
		t.Fatalf("genesis reward = %d, want 0", r)
	}
}

func TestBlockRewardFirstInterval(t *testing.T) {
	if r := BlockReward(1); r != InitialReward {
		t.Fatalf("height 1 reward = %d, want %d", r, uint64(InitialReward))
	}
	if r := BlockReward(HalvingInterval); r != InitialReward {
		t.Fatalf("last block of first interval reward = %d, want %d", r, uint64(InitialReward))
	}
}

func TestBlockRewardHalves(t *testing.T) {
	if r := BlockReward(HalvingInterval + 1); r != InitialReward/2 {
		t.Fatalf("first block of second interval reward = %d, want %d", r, uint64(InitialReward)/2)
	}
	if r := BlockReward(2*HalvingInterval + 1); r != InitialReward/4 {
		t.Fatalf("first block of third interval reward = %d, want %d", r, uint64(InitialReward)/4)
	}
}

func TestBlockRewardEventuallyZero(t *testing.T) {
	height := uint64(64)*HalvingInterval + 1
	if r := BlockReward(height); r != 0 {
		t.Fatalf("reward after 64 halvings = %d, want 0", r)
	}
}

func TestBlockRewardMonotoneNonIncreasing(t *testing.T) {
	prev := BlockReward(1)
	for _, h := range []uint64{HalvingInterval, HalvingInterval + 1, 5 * HalvingInterval} {
		r := BlockReward(h)
		if r > prev {
			t.Fatalf("reward increased at height %d: %d > %d", h, r, prev)
		}
		prev = r
	}
}
