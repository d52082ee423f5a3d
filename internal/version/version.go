package version

// Version is the current version of the studyroom binaries.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/sathwikbalu/Zenith-Study/internal/version.Version=v1.0.0'"
var Version = "dev"
