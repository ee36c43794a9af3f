// Package subsystems defines the contracts that pluggable SDK components (data stores, data
// sources, big-segment stores) must satisfy, and the context object the SDK hands them at
// construction time. Application code implementing a custom component depends only on this
// package, never on the internal packages that consume it.
package subsystems

// ComponentConfigurer is the common factory interface behind every ldcomponents builder.
// Builders return a ComponentConfigurer rather than building the component immediately,
// so construction can be deferred until the client has a ClientContext to hand it.
type ComponentConfigurer[T any] interface {
	Build(context ClientContext) (T, error)
}
