package api

// EngineVersion is reported in response headers and the health endpoint.
const EngineVersion = "0.1.0"

// GitCommit and BuildTime are stamped at build time via
// -ldflags "-X .../internal/api.GitCommit=... -X .../internal/api.BuildTime=...".
var (
	GitCommit string
	BuildTime string
)

// Version returns the engine's build information.
func Version() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}
