package stats

import "testing"

func TestSamplerCapNeverExceedsMaxWorkers(t *testing.T) {
	s := NewSampler(8, false, nil)
	got := s.Cap(8)
	if got < 1 || got > 8 {
		t.Errorf("Cap() = %d, want in [1,8]", got)
	}
}

func TestSamplerDisabledReturnsMaxWorkers(t *testing.T) {
	s := NewSampler(8, true, nil)
	if got := s.Cap(8); got != 8 {
		t.Errorf("Cap() with disabled sampler = %d, want 8", got)
	}
}

func TestSamplerFeedsCollector(t *testing.T) {
	collector := &StatsCollector{topInfo: TopInfo{MaxWorkers: 4}}
	s := NewSampler(4, true, collector)
	s.Cap(4)

	snap := collector.GetSnapshot()
	if snap.DynMaxWorkers != 4 {
		t.Errorf("DynMaxWorkers = %d, want 4", snap.DynMaxWorkers)
	}
}
