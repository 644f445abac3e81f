// rule_reconciler.go: Test-case rule tree reconciliation
//
// This file walks the static rule-group taxonomy and marks each node
// Selected, Partial or Unselected based on the flat selected-rule list a
// detector emits. The output is a fresh tree built on every pass; the static
// definitions are never mutated.
//
// Matching is substring-based on the fully dotted path, in both directions:
// a selected entry matches a leaf when either name contains the other. This
// covers both "leaf refines a selected rule" and "leaf is an ancestor of a
// selected rule", and it can over-match rules sharing a dotted prefix.
// Detectors are authored against this exact semantic; do not tighten it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// ReconcileRuleGroups reconciles the static rule-group tree against the
// detector's flat selected-rule list.
//
// Only entries with status Selected are considered. Per group, the walk is
// depth-first and bottom-up: a leaf survives when it matches any selected
// entry; an interior node keeping a strict subset of its children becomes
// Partial, keeping all of them becomes Selected, and a directly matched node
// with no independently matching children is selected wholly. Nodes with no
// match in either direction are dropped, and groups left with no surviving
// rules are omitted entirely.
func ReconcileRuleGroups(groups []RuleGroup, selected []CaseSelectRule) []RuleGroup {
	names := selectedRuleNames(selected)

	result := make([]RuleGroup, 0, len(groups))
	for _, group := range groups {
		kept := make([]*Rule, 0, len(group.Rules))
		for _, rule := range group.Rules {
			if node, ok := reconcileRule(group.Name, rule, names); ok {
				kept = append(kept, node)
			}
		}
		if len(kept) == 0 {
			continue
		}
		result = append(result, RuleGroup{Name: group.Name, Rules: kept})
	}
	return result
}

// selectedRuleNames extracts the names of the Selected entries.
func selectedRuleNames(selected []CaseSelectRule) []string {
	names := make([]string, 0, len(selected))
	for _, rule := range selected {
		if rule.Status == RuleSelected {
			names = append(names, rule.Name)
		}
	}
	return names
}

// reconcileRule reconciles one node. prefix is the dotted path of the node's
// parent. The returned node is a fresh copy; ok reports whether the node
// survives in the output tree.
func reconcileRule(prefix string, rule *Rule, selected []string) (*Rule, bool) {
	qualified := prefix + "." + rule.Name
	direct := matchesSelected(qualified, selected)

	if len(rule.Rules) == 0 {
		if !direct {
			return nil, false
		}
		return copyRule(rule, RuleSelected, nil), true
	}

	kept := make([]*Rule, 0, len(rule.Rules))
	for _, child := range rule.Rules {
		if node, ok := reconcileRule(qualified, child, selected); ok {
			kept = append(kept, node)
		}
	}

	switch {
	case len(kept) == 0 && !direct:
		return nil, false
	case len(kept) == 0:
		// Ancestor-direction match with no independently matching
		// children: the whole subtree is selected.
		return selectWhole(rule), true
	case len(kept) < len(rule.Rules):
		return copyRule(rule, RulePartial, kept), true
	default:
		return copyRule(rule, RuleSelected, kept), true
	}
}

// matchesSelected reports whether any selected entry name is a substring of
// the qualified name, or vice versa.
func matchesSelected(qualified string, selected []string) bool {
	for _, name := range selected {
		if strings.Contains(qualified, name) || strings.Contains(name, qualified) {
			return true
		}
	}
	return false
}

// selectWhole returns a copy of the subtree with every node marked Selected.
func selectWhole(rule *Rule) *Rule {
	children := make([]*Rule, len(rule.Rules))
	for i, child := range rule.Rules {
		children[i] = selectWhole(child)
	}
	if len(children) == 0 {
		children = nil
	}
	return copyRule(rule, RuleSelected, children)
}

// copyRule returns a fresh node carrying the given status and children.
func copyRule(rule *Rule, status SelectionStatus, children []*Rule) *Rule {
	return &Rule{
		Name:        rule.Name,
		DisplayName: rule.DisplayName,
		Categories:  append([]string(nil), rule.Categories...),
		Status:      status,
		Rules:       children,
	}
}

// ruleFile is the on-disk shape of the static rule taxonomy.
type ruleFile struct {
	Groups []RuleGroup `json:"groups" yaml:"groups"`
}

// LoadRuleGroups loads the static rule-group taxonomy from a YAML or JSON
// file, detecting the format from the path.
func LoadRuleGroups(path string) ([]RuleGroup, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewRuleFileNotFoundError(path)
		}
		return nil, NewRuleFileParseError(path, err)
	}

	var file ruleFile
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		err = json.Unmarshal(content, &file)
	default:
		err = yaml.Unmarshal(content, &file)
	}
	if err != nil {
		return nil, NewRuleFileParseError(path, err)
	}

	return file.Groups, nil
}
