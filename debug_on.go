//go:build !zone_release

package zone

// debugChecks enables the no-allocation guard, argument assertions on the
// typed front-ends and zapping of kept segments.
const debugChecks = true
