// Package prerequisites checks that the local tools a provider shells out to
// are installed.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionTimeout bounds a single "--version" probe.
const versionTimeout = 10 * time.Second

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH, or a path to it.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// GcloudTool returns the gcloud CLI as a required tool. path may be a bare
// binary name or an absolute path.
func GcloudTool(path string) Tool {
	if path == "" {
		path = "gcloud"
	}
	return Tool{
		Name:        path,
		Required:    true,
		Description: "Required by the local-cli provider to reach instances with \"gcloud compute ssh\"",
		InstallURL:  "https://cloud.google.com/sdk/docs/install",
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "ssh",
			Required:    false,
			Description: "Used by gcloud compute ssh on Linux and macOS",
			InstallURL:  "https://www.openssh.com/",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available. When withVersion is
// set, each found tool is asked for its version.
func Check(ctx context.Context, tools []Tool, withVersion bool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			if withVersion {
				result.Version = getToolVersion(ctx, path)
			}
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// getToolVersion returns the first line of "<tool> --version", or an empty
// string if the version cannot be determined.
func getToolVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// #nosec G204 - path comes from exec.LookPath on a configured tool
	output, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
