package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Requirement is what a matched rule demands of the caller.
type Requirement string

const (
	PermitAll            Requirement = "permit_all"
	RequireAuthenticated Requirement = "require_authenticated"
)

// Decision is the outcome of evaluating a path against the rule set.
type Decision int

const (
	Deny Decision = iota
	Permit
)

// Rule pairs a path pattern with an access requirement. A pattern ending in
// "/**" matches any path sharing the prefix before the wildcard; anything
// else matches exactly.
type Rule struct {
	Pattern     string      `yaml:"pattern"`
	Requirement Requirement `yaml:"requirement"`
}

// DefaultRules mirrors the shipped security policy: the login surface, the
// signup surface, and static assets are public; everything else needs a
// session.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/login", Requirement: PermitAll},
		{Pattern: "/req/signup", Requirement: PermitAll},
		{Pattern: "/css/**", Requirement: PermitAll},
		{Pattern: "/js/**", Requirement: PermitAll},
		{Pattern: "/healthz", Requirement: PermitAll},
	}
}

// Authorize evaluates rules in declared order; the first matching pattern
// decides. No match falls back to RequireAuthenticated.
func Authorize(rules []Rule, path string, hasSession bool) Decision {
	req := RequireAuthenticated
	for _, r := range rules {
		if matchPath(r.Pattern, path) {
			req = r.Requirement
			break
		}
	}
	if req == PermitAll {
		return Permit
	}
	if hasSession {
		return Permit
	}
	return Deny
}

func matchPath(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}

// LoadRules reads an ordered rule list from a YAML file. An empty path keeps
// the defaults.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has empty pattern", path, i)
		}
		switch r.Requirement {
		case PermitAll, RequireAuthenticated:
		default:
			return nil, fmt.Errorf("rules file %s: rule %d has unknown requirement %q", path, i, r.Requirement)
		}
	}
	return rules, nil
}
