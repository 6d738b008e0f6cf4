package batch

// Wave is a set of invocation indexes that may run concurrently.
type Wave []int

// Plan is the ordered list of waves for one batch. Every index of the batch
// appears in exactly one wave.
type Plan struct {
	Waves []Wave
}

// Sizes returns the number of invocations in each wave.
func (p Plan) Sizes() []int {
	out := make([]int, len(p.Waves))
	for i, w := range p.Waves {
		out[i] = len(w)
	}
	return out
}

// WaveOf returns the wave holding invocation index i, or -1.
func (p Plan) WaveOf(i int) int {
	for w, wave := range p.Waves {
		for _, idx := range wave {
			if idx == i {
				return w
			}
		}
	}
	return -1
}

// BuildPlan groups invocations into waves. Invocations are taken in
// submission order and each goes into the earliest wave that comes after
// every earlier invocation it conflicts with. Conflicting pairs therefore
// keep their submission order, and independent invocations share the
// earliest wave they can.
func BuildPlan(invs []Invocation, c *Classifier) Plan {
	if len(invs) == 0 {
		return Plan{}
	}
	fps := make([]Footprint, len(invs))
	for i, inv := range invs {
		fps[i] = c.Footprint(inv)
	}

	level := make([]int, len(invs))
	var plan Plan
	for i := range invs {
		for j := 0; j < i; j++ {
			if level[j] >= level[i] && Conflicts(fps[j], fps[i]) {
				level[i] = level[j] + 1
			}
		}
		for len(plan.Waves) <= level[i] {
			plan.Waves = append(plan.Waves, nil)
		}
		plan.Waves[level[i]] = append(plan.Waves[level[i]], i)
	}
	return plan
}
