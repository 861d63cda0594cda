//go:build zone_release

package zone

const debugChecks = false
