package logging

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the processed share of a run crosses a percentage bucket.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether progress at processed/total items should be logged.
// The final item always logs.
func (s *ProgressSampler) ShouldLog(processed, total int) bool {
	if s == nil || total <= 0 {
		return true
	}
	if processed >= total {
		s.lastBucket = int(100 / s.bucketSize)
		return true
	}
	percent := float64(processed) * 100 / float64(total)
	bucket := int(percent / s.bucketSize)
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state when a new run starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
