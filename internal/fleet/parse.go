package fleet

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawRule struct {
	Type    *string `json:"type"`
	Version *string `json:"version"`
}

// Parse parses and validates every row independently.
func Parse(rows []Row) Batch {
	var b Batch
	for _, row := range rows {
		spec, err := ParseRow(row)
		if err != nil {
			b.Invalid = append(b.Invalid, err)
			continue
		}
		b.Specs = append(b.Specs, spec)
	}
	return b
}

// ParseRow parses one row into a Spec. The returned error is a *ParseError
// or a *ValidationError.
func ParseRow(row Row) (Spec, RowError) {
	instanceText := strings.TrimSpace(row.Instance)

	if row.Err != nil {
		return Spec{}, &ParseError{Row: row.Number, Input: instanceText, Reasons: []string{
			fmt.Sprintf("unreadable entry: %v", row.Err)}}
	}

	if row.Fields != 0 && row.Fields != 2 {
		return Spec{}, &ParseError{Row: row.Number, Input: instanceText, Reasons: []string{fmt.Sprintf(
			"incorrect entry with %d fields; expected format: \"instance_full_name\",\"agent_rules\"", row.Fields)}}
	}

	var reasons []string
	inst, err := ParseInstance(instanceText)
	var parsed *Instance
	if err != nil {
		reasons = append(reasons, err.Error())
	} else {
		parsed = &inst
	}

	rules, ruleReasons := decodeRules(strings.TrimSpace(row.Rules))
	reasons = append(reasons, ruleReasons...)

	if len(reasons) > 0 {
		return Spec{}, &ParseError{Row: row.Number, Input: instanceText, Reasons: reasons, instance: parsed}
	}

	if invalid := ValidateRules(rules); len(invalid) > 0 {
		return Spec{}, &ValidationError{Row: row.Number, Instance: inst, Reasons: invalid}
	}

	return Spec{Row: row.Number, Instance: inst, Rules: rules}, nil
}

func decodeRules(text string) ([]Rule, []string) {
	var raw []rawRule
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, []string{fmt.Sprintf("invalid agent_rules %s: %v", text, err)}
	}
	if len(raw) == 0 {
		return nil, []string{"at least one agent rule is required"}
	}

	rules := make([]Rule, 0, len(raw))
	var reasons []string
	for i, r := range raw {
		if r.Type == nil {
			reasons = append(reasons, fmt.Sprintf("agent rule %d is missing the required `type` field", i+1))
			continue
		}
		rule := Rule{Type: AgentType(*r.Type), Version: VersionLatest}
		if r.Version != nil {
			rule.Version = *r.Version
		}
		rules = append(rules, rule)
	}
	return rules, reasons
}
