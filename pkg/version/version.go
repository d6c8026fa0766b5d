// Package version holds the build version reported by the API.
package version

// Version is overridden at build time with
// -ldflags "-X geoguide/pkg/version.Version=vX.Y.Z".
var Version = "v0.3.0"
