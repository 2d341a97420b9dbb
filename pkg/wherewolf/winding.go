package wherewolf

import "github.com/paulmach/orb"

// WindingContains is the winding number test (Sunday). It is an alternative
// to RingContains and is not used by Find. It counts upward crossings with p
// strictly left of the edge and downward crossings with p strictly right, so
// it agrees with the parity rule on simple rings and reports self-overlapping
// regions as inside.
func WindingContains(p orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n == 0 {
		return false
	}
	w := 0
	for i := range n {
		a, b := ring[i], ring[(i+1)%n]
		if a[1] <= p[1] {
			if b[1] > p[1] && side(a, b, p) > 0 {
				w++
			}
		} else if b[1] <= p[1] && side(a, b, p) < 0 {
			w--
		}
	}
	return w != 0
}

// side is positive when p is left of a->b, negative when right.
func side(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (p[0]-a[0])*(b[1]-a[1])
}
