package mds

import "math/bits"

// Profile summarizes the shape of a structure.
type Profile struct {
	// InDegree[d] counts the output intervals holding d input starts.
	InDegree []int `json:"in_degree" yaml:"in_degree"`
	// Steps[s] counts the sampled moves that advanced s intervals.
	Steps []int `json:"steps" yaml:"steps"`

	Sampled     int     `json:"sampled"       yaml:"sampled"`
	MaxInDegree int     `json:"max_in_degree" yaml:"max_in_degree"`
	MaxSteps    int     `json:"max_steps"     yaml:"max_steps"`
	MeanLength  float64 `json:"mean_length"   yaml:"mean_length"`
	MeanSteps   float64 `json:"mean_steps"    yaml:"mean_steps"`
}

// Profile computes the in-degree histogram over all output intervals and
// the move step histogram over up to samples evenly spaced positions. A
// non-positive samples moves every position.
func (s *Structure[T]) Profile(samples int) Profile {
	k := len(s.dIndex)
	p := Profile{MeanLength: float64(s.n) / float64(k)}

	for j := range k {
		p.InDegree = bump(p.InDegree, s.inDegree(j))
	}

	n := uint64(s.n)
	if samples <= 0 || uint64(samples) > n {
		samples = int(n)
	}

	total := 0

	for t := range samples {
		i := T(samplePosition(uint64(t), uint64(samples), n))
		_, _, steps := s.MoveSteps(i, s.FindInterval(i))
		p.Steps = bump(p.Steps, steps)
		total += steps
	}

	p.Sampled = samples
	p.MaxInDegree = len(p.InDegree) - 1
	p.MaxSteps = len(p.Steps) - 1

	if samples > 0 {
		p.MeanSteps = float64(total) / float64(samples)
	}

	return p
}

// samplePosition returns floor(t*n/samples) for t < samples without
// overflowing the product.
func samplePosition(t, samples, n uint64) uint64 {
	hi, lo := bits.Mul64(t, n)
	pos, _ := bits.Div64(hi, lo, samples)

	return pos
}

func bump(hist []int, v int) []int {
	for len(hist) <= v {
		hist = append(hist, 0)
	}

	hist[v]++

	return hist
}
