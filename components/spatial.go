package components

// Position is an agent's world position.
type Position struct {
	X, Y, Z float32
}

// Velocity is an agent's velocity in world units per second.
type Velocity struct {
	X, Y, Z float32
}

// Acceleration is the steering acceleration applied to an agent.
// It is recomputed on neighbor refresh and reused between refreshes.
type Acceleration struct {
	X, Y, Z float32
}

// Heading is an agent's facing direction as a unit vector.
// Updated from velocity after integration once speed exceeds a deadzone.
type Heading struct {
	X, Y, Z float32
}
