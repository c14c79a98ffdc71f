package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mediagate/internal/domain"
)

const versionProbeTimeout = 5 * time.Second

// Requirement names an external binary the gateway shells out to.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// Status reports the availability of one requirement.
type Status struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Defaults lists the binaries the extraction pipeline needs. ffmpeg is what
// yt-dlp uses for audio transcode and stream merge, so it is not optional.
func Defaults(ytdlpBinary string) []Requirement {
	if strings.TrimSpace(ytdlpBinary) == "" {
		ytdlpBinary = "yt-dlp"
	}
	return []Requirement{
		{Name: "yt-dlp", Command: ytdlpBinary},
		{Name: "ffmpeg", Command: "ffmpeg"},
		{Name: "ffprobe", Command: "ffprobe", Optional: true},
	}
}

// CheckBinaries evaluates the requirements and reports availability.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:     req.Name,
			Command:  cmd,
			Optional: req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found in PATH", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Version = probeVersion(ctx, cmd)
		results = append(results, status)
	}
	return results
}

// Verify fails on the first required binary that is missing. Optional tools
// only degrade functionality and are logged.
func Verify(ctx context.Context, requirements []Requirement) error {
	for _, status := range CheckBinaries(ctx, requirements) {
		if !status.Available {
			if !status.Optional {
				return fmt.Errorf("%w: %s (%s)", domain.ErrToolMissing, status.Name, status.Detail)
			}
			slog.Warn("optional tool unavailable",
				slog.String("tool", status.Name),
				slog.String("detail", status.Detail),
			)
			continue
		}
		slog.Info("tool available",
			slog.String("tool", status.Name),
			slog.String("version", status.Version),
		)
	}
	return nil
}

// probeVersion asks the binary for its version string. ffmpeg and ffprobe
// print a banner, yt-dlp prints the bare version. Only the first line is kept.
func probeVersion(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, command, "--version").Output()
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}
