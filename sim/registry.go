package sim

import "github.com/mlange-42/ark/ecs"

// AgentRegistry maps stable agent IDs to ECS entities. The registry is
// owned by the Sim; agents register on spawn and deregister on removal.
// There is no global agent list.
type AgentRegistry struct {
	byID map[uint32]ecs.Entity
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{byID: make(map[uint32]ecs.Entity)}
}

// Register records the entity for the given agent ID.
func (r *AgentRegistry) Register(id uint32, e ecs.Entity) {
	r.byID[id] = e
}

// Deregister removes the agent ID from the registry.
func (r *AgentRegistry) Deregister(id uint32) {
	delete(r.byID, id)
}

// Entity returns the entity for the given agent ID.
func (r *AgentRegistry) Entity(id uint32) (ecs.Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int {
	return len(r.byID)
}
