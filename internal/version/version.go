// Package version carries build identification for the satcom binaries.
package version

// Version is the build version, overridable at link time:
//
//	go build -ldflags "-X github.com/satcom-control/satcom-go/internal/version.Version=v1.2.3"
var Version = "dev"
