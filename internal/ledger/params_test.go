package ledger

import "testing"

func TestByName(t *testing.T) {
	if p, ok := ByName("lbc_mainnet"); !ok || p != MainNet {
		t.Errorf("ByName(lbc_mainnet) = %v, %v, want MainNet, true", p, ok)
	}
	if p, ok := ByName("lbc_regtest"); !ok || p != RegTest {
		t.Errorf("ByName(lbc_regtest) = %v, %v, want RegTest, true", p, ok)
	}
	if _, ok := ByName("bitcoin_mainnet"); ok {
		t.Error("ByName accepted an unknown network name")
	}
}

func TestDewieConversionRoundTrips(t *testing.T) {
	if got := DewiesToLBC(150000000); got != 1.5 {
		t.Errorf("DewiesToLBC(150000000) = %v, want 1.5", got)
	}
	if got := LBCToDewies(1.5); got != 150000000 {
		t.Errorf("LBCToDewies(1.5) = %d, want 150000000", got)
	}
}

func TestActivationDelay(t *testing.T) {
	// spec.md §4.8: h_act = h_c + min(floor((h_c-h_ctrl)/32), 4032).
	cases := []struct{ heightDiff, want int }{
		{0, 0},
		{31, 0},
		{32, 1},
		{4032 * 32, 4032},
		{4032 * 32 * 10, 4032},
	}
	for _, c := range cases {
		got := c.heightDiff / ActivationDelayDivisor
		if got > ActivationDelayCap {
			got = ActivationDelayCap
		}
		if got != c.want {
			t.Errorf("activation delay for diff %d = %d, want %d", c.heightDiff, got, c.want)
		}
	}
}
