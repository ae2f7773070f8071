package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"wordreel/internal/config"
)

// Requirement defines an external dependency wordreel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements lists the external binaries and services wordreel relies on
// for the given configuration. The daemon checks these at startup when
// Pipeline.VerifyEncoderOnInit is set; the CLI checks them before starting a
// job so a missing binary surfaces as a clear warning rather than a
// mid-pipeline subprocess failure.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Fetch.Binary,
			Description: "Required to fetch source video clips",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcode.Binary,
			Description: "Required for transcoding clips and placeholder cards",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Transcode.ProbeBinary,
			Description: "Required for media duration inspection",
		},
	}
	if strings.TrimSpace(cfg.Enhance.APIToken) == "" {
		reqs = append(reqs, Requirement{
			Name:        "Auphonic",
			Description: "Audio enhancement is disabled: no api_token configured",
			Optional:    true,
		})
	}
	return reqs
}
