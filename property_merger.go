// property_merger.go: Merging detected values into configuration properties
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

// MergeDetectedProperties folds the detector's observed property values back
// into the configuration property groups presented to the user.
//
// For each entry whose key matches a detected key: exactly one observed value
// overwrites the entry's value; multiple observed values become the entry's
// choice list with the first value as the new current value. Entries with no
// detector match are carried over unchanged.
//
// The result is a full replacement list, never an in-place patch; callers
// replace their working copy wholesale.
func MergeDetectedProperties(groups []PropertyGroup, detected map[string][]string) []PropertyGroup {
	merged := make([]PropertyGroup, len(groups))
	for gi, group := range groups {
		properties := make([]Property, len(group.Properties))
		for pi, property := range group.Properties {
			properties[pi] = mergeProperty(property, detected)
		}
		merged[gi] = PropertyGroup{Name: group.Name, Properties: properties}
	}
	return merged
}

// mergeProperty applies detected values to one entry.
func mergeProperty(property Property, detected map[string][]string) Property {
	values, ok := detected[property.Key]
	if !ok || len(values) == 0 {
		return property
	}

	if len(values) == 1 {
		property.Value = values[0]
		return property
	}

	property.Choices = append([]string(nil), values...)
	property.Value = values[0]
	return property
}

// HidePropertyKeys removes entries whose key appears in hidden from the
// groups, dropping groups that end up empty. Used to withhold configuration
// entries the detector marked irrelevant for the selected rules.
func HidePropertyKeys(groups []PropertyGroup, hidden []string) []PropertyGroup {
	if len(hidden) == 0 {
		return groups
	}

	hiddenSet := make(map[string]struct{}, len(hidden))
	for _, key := range hidden {
		hiddenSet[key] = struct{}{}
	}

	result := make([]PropertyGroup, 0, len(groups))
	for _, group := range groups {
		properties := make([]Property, 0, len(group.Properties))
		for _, property := range group.Properties {
			if _, ok := hiddenSet[property.Key]; ok {
				continue
			}
			properties = append(properties, property)
		}
		if len(properties) == 0 {
			continue
		}
		result = append(result, PropertyGroup{Name: group.Name, Properties: properties})
	}
	return result
}
