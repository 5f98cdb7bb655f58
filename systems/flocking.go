package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

// Boundary containment policies.
const (
	// BoundaryProportional pushes back proportionally to penetration depth
	// times the agent's boundary gain. Default: avoids discontinuous force
	// jumps at the boundary faces.
	BoundaryProportional = "proportional"
	// BoundaryFixed pushes back with a fixed magnitude once a face is crossed.
	BoundaryFixed = "fixed"
)

// FlockingOptions configures the behavior-level tunables that are shared
// across agents (per-agent tunables live on components.Boid).
type FlockingOptions struct {
	BoundaryMode    string  // BoundaryProportional or BoundaryFixed
	BoundaryPush    float32 // fixed-mode push magnitude
	ProbeDistance   float32 // avoidance probe length
	ProbeOffset     float32 // lateral tilt of the four offset probes
	HeadingDeadzone float32 // minimum speed before reorienting
}

// FlockingSystem computes the five steering contributions from a neighbor
// list and integrates agent motion. All forces are bounded by the agent's
// max force; post-integration speed is bounded by its max speed.
type FlockingSystem struct {
	worldMin, worldMax Vec3
	obstacles          *ObstacleSet
	opts               FlockingOptions

	velMap *ecs.Map1[components.Velocity]
}

// NewFlockingSystem creates a flocking behavior system over the given
// world bounds and obstacle set.
func NewFlockingSystem(w *ecs.World, worldMin, worldMax Vec3, obstacles *ObstacleSet, opts FlockingOptions) *FlockingSystem {
	if opts.BoundaryMode == "" {
		opts.BoundaryMode = BoundaryProportional
	}
	if opts.ProbeOffset <= 0 {
		opts.ProbeOffset = 0.5
	}
	return &FlockingSystem{
		worldMin:  worldMin,
		worldMax:  worldMax,
		obstacles: obstacles,
		opts:      opts,
		velMap:    ecs.NewMap1[components.Velocity](w),
	}
}

// steerToward produces a bounded steering force that retargets the agent
// toward the desired direction at max speed: clamp(desired@maxSpeed - vel).
func steerToward(desired, vel Vec3, maxSpeed, maxForce float32) Vec3 {
	if desired.IsZero() {
		return Vec3{}
	}
	return desired.WithLength(maxSpeed).Sub(vel).ClampLength(maxForce)
}

// Separation steers away from neighbors inside the separation radius,
// weighting each repulsion by inverse distance. Inverse distance rather
// than inverse-square keeps the force finite as distance approaches zero.
func (f *FlockingSystem) Separation(boid *components.Boid, vel Vec3, ns *NeighborBuffer) Vec3 {
	sepSq := boid.SeparationRadius * boid.SeparationRadius

	var sum Vec3
	count := 0
	for _, n := range ns.Items() {
		if n.DistSq >= sepSq || n.DistSq == 0 {
			continue
		}
		// Unit vector away from the neighbor, scaled by 1/dist:
		// -delta/dist * 1/dist = -delta/distSq.
		sum = sum.Add(Vec3{-n.DX, -n.DY, -n.DZ}.Scale(1 / n.DistSq))
		count++
	}
	if count == 0 {
		return Vec3{}
	}
	return steerToward(sum.Scale(1/float32(count)), vel, boid.MaxSpeed, boid.MaxForce)
}

// Alignment steers toward the average velocity of all neighbors.
func (f *FlockingSystem) Alignment(boid *components.Boid, vel Vec3, ns *NeighborBuffer) Vec3 {
	var sum Vec3
	count := 0
	for _, n := range ns.Items() {
		nv := f.velMap.Get(n.E)
		if nv == nil {
			continue
		}
		sum = sum.Add(Vec3{nv.X, nv.Y, nv.Z})
		count++
	}
	if count == 0 {
		return Vec3{}
	}
	return steerToward(sum.Scale(1/float32(count)), vel, boid.MaxSpeed, boid.MaxForce)
}

// Cohesion seeks the perceived center of the neighborhood. The center
// offset is the mean of the precomputed neighbor deltas, so no position
// lookups are needed here.
func (f *FlockingSystem) Cohesion(boid *components.Boid, vel Vec3, ns *NeighborBuffer) Vec3 {
	var sum Vec3
	count := 0
	for _, n := range ns.Items() {
		sum = sum.Add(Vec3{n.DX, n.DY, n.DZ})
		count++
	}
	if count == 0 {
		return Vec3{}
	}
	return steerToward(sum.Scale(1/float32(count)), vel, boid.MaxSpeed, boid.MaxForce)
}

// Avoidance casts one forward probe plus four offset probes against the
// obstacle set. A forward hit reflects the velocity about the surface
// normal; offset hits push away from the probe direction.
func (f *FlockingSystem) Avoidance(boid *components.Boid, pos, vel, heading Vec3) Vec3 {
	if f.obstacles == nil || f.obstacles.Len() == 0 || f.opts.ProbeDistance <= 0 {
		return Vec3{}
	}

	forward := heading
	if forward.IsZero() {
		forward = vel.Normalized()
	}
	if forward.IsZero() {
		return Vec3{}
	}

	// Build a local frame around the forward axis for the offset probes.
	up := Vec3{0, 1, 0}
	right := forward.Cross(up)
	if right.LengthSq() < 1e-6 {
		right = forward.Cross(Vec3{1, 0, 0})
	}
	right = right.Normalized()
	localUp := right.Cross(forward).Normalized()

	var sum Vec3

	if hit, ok := f.obstacles.Raycast(pos, forward, f.opts.ProbeDistance); ok {
		reflected := vel.Reflect(hit.Normal)
		sum = sum.Add(steerToward(reflected, vel, boid.MaxSpeed, boid.MaxForce))
	}

	offsets := [4]Vec3{
		right.Scale(f.opts.ProbeOffset),
		right.Scale(-f.opts.ProbeOffset),
		localUp.Scale(f.opts.ProbeOffset),
		localUp.Scale(-f.opts.ProbeOffset),
	}
	for _, off := range offsets {
		dir := forward.Add(off).Normalized()
		if _, ok := f.obstacles.Raycast(pos, dir, f.opts.ProbeDistance); ok {
			sum = sum.Add(dir.Scale(-boid.MaxSpeed))
		}
	}

	return sum.ClampLength(boid.MaxForce)
}

// Boundary contains agents inside the world volume. Proportional mode
// scales the restoring force by penetration depth times the agent's
// boundary gain; fixed mode applies a constant push per crossed face.
func (f *FlockingSystem) Boundary(boid *components.Boid, pos Vec3) Vec3 {
	var force Vec3

	axis := func(p, lo, hi float32) float32 {
		switch {
		case p < lo:
			return f.boundaryMagnitude(boid, lo-p)
		case p > hi:
			return -f.boundaryMagnitude(boid, p-hi)
		default:
			return 0
		}
	}

	force.X = axis(pos.X, f.worldMin.X, f.worldMax.X)
	force.Y = axis(pos.Y, f.worldMin.Y, f.worldMax.Y)
	force.Z = axis(pos.Z, f.worldMin.Z, f.worldMax.Z)

	return force.ClampLength(boid.MaxForce)
}

// boundaryMagnitude returns the push-back strength for one crossed face.
func (f *FlockingSystem) boundaryMagnitude(boid *components.Boid, penetration float32) float32 {
	if f.opts.BoundaryMode == BoundaryFixed {
		return f.opts.BoundaryPush
	}
	return boid.BoundaryGain * penetration
}

// Steer combines the five weighted contributions and clamps the total to
// the agent's max steering force.
func (f *FlockingSystem) Steer(boid *components.Boid, pos, vel, heading Vec3, ns *NeighborBuffer) Vec3 {
	total := f.Separation(boid, vel, ns).Scale(boid.SeparationWeight)
	total = total.Add(f.Alignment(boid, vel, ns).Scale(boid.AlignmentWeight))
	total = total.Add(f.Cohesion(boid, vel, ns).Scale(boid.CohesionWeight))
	total = total.Add(f.Avoidance(boid, pos, vel, heading).Scale(boid.AvoidanceWeight))
	total = total.Add(f.Boundary(boid, pos).Scale(boid.BoundaryWeight))
	return total.ClampLength(boid.MaxForce)
}

// Integrate advances one agent by dt. Runs every tick regardless of
// neighbor-refresh throttling: velocity from the last computed
// acceleration, clamped to max speed; position from velocity; heading
// reoriented once speed exceeds the deadzone.
func (f *FlockingSystem) Integrate(
	pos *components.Position,
	vel *components.Velocity,
	acc *components.Acceleration,
	heading *components.Heading,
	boid *components.Boid,
	dt float32,
) {
	v := Vec3{vel.X, vel.Y, vel.Z}.
		Add(Vec3{acc.X, acc.Y, acc.Z}.Scale(dt)).
		ClampLength(boid.MaxSpeed)

	vel.X, vel.Y, vel.Z = v.X, v.Y, v.Z

	pos.X += v.X * dt
	pos.Y += v.Y * dt
	pos.Z += v.Z * dt

	if v.LengthSq() > f.opts.HeadingDeadzone*f.opts.HeadingDeadzone {
		h := v.Normalized()
		heading.X, heading.Y, heading.Z = h.X, h.Y, h.Z
	}
}
