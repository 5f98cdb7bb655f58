package components

// Boid holds an agent's identity, liveness, and cached behavior tunables.
// Tunables are copied from config at spawn so the hot loop never touches
// the config tree.
type Boid struct {
	ID    uint32
	Alive bool

	DetectionRadius  float32 // neighbor search radius
	SeparationRadius float32 // smaller radius for the separation rule
	MaxSpeed         float32
	MaxForce         float32

	SeparationWeight float32
	AlignmentWeight  float32
	CohesionWeight   float32
	AvoidanceWeight  float32
	BoundaryWeight   float32

	BoundaryGain float32 // proportional boundary restoring gain
}
