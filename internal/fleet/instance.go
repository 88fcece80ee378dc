package fleet

import (
	"fmt"
	"regexp"
)

var instanceNameRE = regexp.MustCompile(`^projects/([\w-]+)/zones/([\w-]+)/instances/([\w-]+)$`)

// Instance identifies a target VM. It is the sole key for state, logs and
// deduplication.
type Instance struct {
	Project string
	Zone    string
	Name    string
}

// ParseInstance parses a fully-qualified instance name.
func ParseInstance(s string) (Instance, error) {
	m := instanceNameRE.FindStringSubmatch(s)
	if m == nil {
		return Instance{}, fmt.Errorf("invalid instance full name %q: expected projects/<project>/zones/<zone>/instances/<name>", s)
	}
	return Instance{Project: m[1], Zone: m[2], Name: m[3]}, nil
}

// String returns the fully-qualified instance name.
func (i Instance) String() string {
	return fmt.Sprintf("projects/%s/zones/%s/instances/%s", i.Project, i.Zone, i.Name)
}

// Filename returns a filesystem-safe name for per-instance artifacts.
func (i Instance) Filename() string {
	return fmt.Sprintf("%s_%s_%s", i.Project, i.Zone, i.Name)
}
