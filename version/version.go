package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = VoteCoreSemVer
)

const (
	// VoteCoreSemVer is the current version of the voting node.
	VoteCoreSemVer = "0.1.0"
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}
