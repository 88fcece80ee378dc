package fleet

import (
	"fmt"
	"regexp"
	"strings"
)

// AgentType is the kind of agent to install.
type AgentType string

const (
	AgentLogging  AgentType = "logging"
	AgentMetrics  AgentType = "metrics"
	AgentOpsAgent AgentType = "ops-agent"
)

// AgentTypes lists the accepted agent types in display order.
var AgentTypes = []AgentType{AgentLogging, AgentMetrics, AgentOpsAgent}

// Valid reports whether t is one of the known agent types.
func (t AgentType) Valid() bool {
	for _, known := range AgentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// VersionLatest installs the newest published agent release.
const VersionLatest = "latest"

var (
	pinnedVersionRE      = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	pinnedMajorVersionRE = regexp.MustCompile(`^\d+\.\*\.\*$`)
)

// ValidateVersion accepts "latest", MAJOR.MINOR.PATCH or MAJOR.*.*.
func ValidateVersion(v string) error {
	if v == VersionLatest || pinnedVersionRE.MatchString(v) || pinnedMajorVersionRE.MatchString(v) {
		return nil
	}
	return fmt.Errorf("the agent version %q is not allowed; expected [latest], [MAJOR.MINOR.PATCH] or [MAJOR.*.*]", v)
}

// Rule is one requested agent installation.
type Rule struct {
	Type    AgentType `json:"type"`
	Version string    `json:"version"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s@%s", r.Type, r.Version)
}

// ValidateRules checks agent types, versions, duplicates and ops-agent
// exclusivity across a rule set. It returns every problem found.
func ValidateRules(rules []Rule) []string {
	var reasons []string

	counts := make(map[AgentType]int, len(rules))
	var order []AgentType
	for _, r := range rules {
		if !r.Type.Valid() {
			reasons = append(reasons, fmt.Sprintf("invalid agent type %q; valid types are: %s", r.Type, joinTypes(AgentTypes)))
			continue
		}
		if counts[r.Type] == 0 {
			order = append(order, r.Type)
		}
		counts[r.Type]++
		if err := ValidateVersion(r.Version); err != nil {
			reasons = append(reasons, err.Error())
		}
	}

	for _, t := range order {
		if counts[t] > 1 {
			reasons = append(reasons, fmt.Sprintf("at most one agent with type [%s] is allowed", t))
		}
	}

	if counts[AgentOpsAgent] > 0 && len(rules) > counts[AgentOpsAgent] {
		reasons = append(reasons, fmt.Sprintf("an agent with type [%s] is detected; no other agent type is allowed, "+
			"the Ops Agent already has both a logging module and a metrics module", AgentOpsAgent))
	}

	return reasons
}

func joinTypes(types []AgentType) string {
	s := make([]string, len(types))
	for i, t := range types {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
