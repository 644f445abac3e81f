// rule_reconciler_test.go: Tests for rule tree reconciliation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTaxonomy builds the group A{ r1, r2{ s1, s2 } }.
func testTaxonomy() []RuleGroup {
	return []RuleGroup{
		{
			Name: "A",
			Rules: []*Rule{
				{Name: "r1"},
				{Name: "r2", Rules: []*Rule{
					{Name: "s1"},
					{Name: "s2"},
				}},
			},
		},
	}
}

func TestReconcileRuleGroups_PartialSelection(t *testing.T) {
	selected := []CaseSelectRule{{Name: "A.r2.s1", Status: RuleSelected}}

	result := ReconcileRuleGroups(testTaxonomy(), selected)

	require.Len(t, result, 1)
	require.Equal(t, "A", result[0].Name)
	require.Len(t, result[0].Rules, 1, "r1 must be dropped, only r2 survives")

	r2 := result[0].Rules[0]
	assert.Equal(t, "r2", r2.Name)
	assert.Equal(t, RulePartial, r2.Status, "r2 kept 1 of 2 children")
	require.Len(t, r2.Rules, 1)
	assert.Equal(t, "s1", r2.Rules[0].Name)
	assert.Equal(t, RuleSelected, r2.Rules[0].Status)
}

func TestReconcileRuleGroups_ParentNameSelectsSubtree(t *testing.T) {
	// The bidirectional substring policy makes "A.r2" match both leaves
	// (entry contained in each leaf's dotted path), so r2 survives wholly.
	selected := []CaseSelectRule{{Name: "A.r2", Status: RuleSelected}}

	result := ReconcileRuleGroups(testTaxonomy(), selected)

	require.Len(t, result, 1)
	require.Len(t, result[0].Rules, 1)

	r2 := result[0].Rules[0]
	assert.Equal(t, RuleSelected, r2.Status)
	require.Len(t, r2.Rules, 2)
	assert.Equal(t, RuleSelected, r2.Rules[0].Status)
	assert.Equal(t, RuleSelected, r2.Rules[1].Status)
}

func TestReconcileRuleGroups_AncestorDirectionMatch(t *testing.T) {
	// The entry extends the interior node's dotted path without naming any
	// of its actual children: no child matches independently, but the node
	// itself matches in the ancestor direction and is selected wholly.
	selected := []CaseSelectRule{{Name: "A.r2.other.deep", Status: RuleSelected}}

	groups := []RuleGroup{
		{
			Name: "A",
			Rules: []*Rule{
				{Name: "r2", Rules: []*Rule{
					{Name: "s1"},
					{Name: "s2"},
				}},
			},
		},
	}

	result := ReconcileRuleGroups(groups, selected)

	require.Len(t, result, 1)
	require.Len(t, result[0].Rules, 1)
	r2 := result[0].Rules[0]
	assert.Equal(t, RuleSelected, r2.Status)
	require.Len(t, r2.Rules, 2, "whole subtree survives on a direct ancestor match")
}

func TestReconcileRuleGroups_UnselectedEntriesIgnored(t *testing.T) {
	selected := []CaseSelectRule{{Name: "A.r2.s1", Status: RuleUnselected}}

	result := ReconcileRuleGroups(testTaxonomy(), selected)
	assert.Empty(t, result, "unselected entries contribute nothing, empty groups are omitted")
}

func TestReconcileRuleGroups_EmptyGroupsOmitted(t *testing.T) {
	groups := append(testTaxonomy(), RuleGroup{
		Name:  "B",
		Rules: []*Rule{{Name: "x1"}},
	})
	selected := []CaseSelectRule{{Name: "A.r1", Status: RuleSelected}}

	result := ReconcileRuleGroups(groups, selected)

	require.Len(t, result, 1)
	assert.Equal(t, "A", result[0].Name)
	require.Len(t, result[0].Rules, 1)
	assert.Equal(t, "r1", result[0].Rules[0].Name)
}

func TestReconcileRuleGroups_SharedPrefixOverMatch(t *testing.T) {
	// Documented looseness of the substring policy: "A.r1" also matches
	// the unrelated sibling "A.r10" because one dotted path contains the
	// other. Detectors are authored against this behavior.
	groups := []RuleGroup{
		{Name: "A", Rules: []*Rule{{Name: "r1"}, {Name: "r10"}}},
	}
	selected := []CaseSelectRule{{Name: "A.r1", Status: RuleSelected}}

	result := ReconcileRuleGroups(groups, selected)

	require.Len(t, result, 1)
	assert.Len(t, result[0].Rules, 2)
}

func TestReconcileRuleGroups_DoesNotMutateInput(t *testing.T) {
	groups := testTaxonomy()
	selected := []CaseSelectRule{{Name: "A.r2.s1", Status: RuleSelected}}

	_ = ReconcileRuleGroups(groups, selected)

	assert.Equal(t, RuleUnselected, groups[0].Rules[1].Status, "static definitions are never mutated")
	assert.Len(t, groups[0].Rules, 2)
}

func TestLoadRuleGroups_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `groups:
  - name: A
    rules:
      - name: r1
        display_name: Rule one
      - name: r2
        rules:
          - name: s1
          - name: s2
            categories: [bvt]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))

	groups, err := LoadRuleGroups(path)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Rules, 2)
	assert.Equal(t, "Rule one", groups[0].Rules[0].DisplayName)
	require.Len(t, groups[0].Rules[1].Rules, 2)
	assert.Equal(t, []string{"bvt"}, groups[0].Rules[1].Rules[1].Categories)
}

func TestLoadRuleGroups_Missing(t *testing.T) {
	_, err := LoadRuleGroups(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRuleGroups_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups: [unclosed"), 0o640))

	_, err := LoadRuleGroups(path)
	require.Error(t, err)
}
