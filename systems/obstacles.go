package systems

// SphereObstacle is a static spherical obstacle agents steer around.
type SphereObstacle struct {
	Center Vec3
	Radius float32
}

// RayHit describes the nearest obstacle intersection along a probe.
type RayHit struct {
	Point  Vec3
	Normal Vec3 // outward unit surface normal at the hit point
	Dist   float32
}

// ObstacleSet is the obstacle classification avoidance probes are cast
// against. The set is fixed at configuration time.
type ObstacleSet struct {
	spheres []SphereObstacle
}

// NewObstacleSet creates an obstacle set from the given spheres.
func NewObstacleSet(spheres []SphereObstacle) *ObstacleSet {
	return &ObstacleSet{spheres: spheres}
}

// Len returns the number of obstacles.
func (s *ObstacleSet) Len() int {
	return len(s.spheres)
}

// Raycast casts a probe from origin along the unit direction dir, up to
// maxDist, and returns the nearest hit. Probes starting inside an
// obstacle hit it at distance zero.
func (s *ObstacleSet) Raycast(origin, dir Vec3, maxDist float32) (RayHit, bool) {
	best := RayHit{Dist: maxDist}
	found := false

	for i := range s.spheres {
		o := &s.spheres[i]
		// Ray-sphere: solve |origin + t*dir - center|^2 = r^2.
		oc := origin.Sub(o.Center)
		b := oc.Dot(dir)
		c := oc.LengthSq() - o.Radius*o.Radius

		if c <= 0 {
			// Inside the sphere.
			if !found || best.Dist > 0 {
				n := oc.Normalized()
				if n.IsZero() {
					n = dir.Scale(-1)
				}
				best = RayHit{Point: origin, Normal: n, Dist: 0}
				found = true
			}
			continue
		}

		disc := b*b - c
		if disc < 0 {
			continue
		}
		t := -b - sqrtf(disc)
		if t < 0 || t > best.Dist || (found && t >= best.Dist) {
			continue
		}

		point := origin.Add(dir.Scale(t))
		best = RayHit{
			Point:  point,
			Normal: point.Sub(o.Center).Normalized(),
			Dist:   t,
		}
		found = true
	}

	return best, found
}
