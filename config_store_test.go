// config_store_test.go: Tests for the test-suite configuration store
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

func writeConfigFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	transport := `groups:
  - name: Transport
    properties:
      - key: SutAddress
        value: 192.168.0.1
      - key: SutPort
        value: "4915"
        choices: ["4915", "4916"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transport.yaml"), []byte(transport), 0o640))

	auth := `{"groups":[{"name":"Auth","properties":[{"key":"AuthMethod","value":"ntlm"}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"), []byte(auth), 0o640))

	return dir
}

func TestConfigStore_LoadAndLookup(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"auth.json", "transport.yaml"}, store.FileNames())

	file, err := store.File("transport.yaml")
	require.NoError(t, err)
	require.Len(t, file.Groups, 1)
	assert.Equal(t, "Transport", file.Groups[0].Name)
	assert.Len(t, file.Groups[0].Properties, 2)

	property, err := store.Property("AuthMethod")
	require.NoError(t, err)
	assert.Equal(t, "ntlm", property.Value)

	_, err = store.Property("NoSuchKey")
	require.Error(t, err)

	_, err = store.File("missing.yaml")
	require.Error(t, err)
}

func TestConfigStore_LoadFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("groups: [nope"), 0o640))

	_, err := NewConfigStore(dir, DefaultConfigStoreOptions(), nil)
	require.Error(t, err, "an unparsable file must fail the whole load")
}

func TestConfigStore_MissingDirectory(t *testing.T) {
	_, err := NewConfigStore(filepath.Join(t.TempDir(), "absent"), DefaultConfigStoreOptions(), nil)
	require.Error(t, err)
}

func TestConfigStore_SetPropertyAndSaveRoundTrip(t *testing.T) {
	dir := writeConfigFixture(t)
	store, err := NewConfigStore(dir, DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	require.NoError(t, store.SetProperty("SutAddress", "10.0.0.9"))
	require.NoError(t, store.Save("transport.yaml"))

	reloaded, err := NewConfigStore(dir, DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	property, err := reloaded.Property("SutAddress")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", property.Value)

	// Choice sets survive the round trip.
	port, err := reloaded.Property("SutPort")
	require.NoError(t, err)
	assert.Equal(t, []string{"4915", "4916"}, port.Choices)
}

func TestConfigStore_SetUnknownProperty(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	require.Error(t, store.SetProperty("NoSuchKey", "x"))
}

func TestConfigStore_ReplaceGroups(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	merged := []PropertyGroup{
		{Name: "Transport", Properties: []Property{{Key: "SutAddress", Value: "10.0.0.9"}}},
	}
	require.NoError(t, store.ReplaceGroups("transport.yaml", merged))

	file, err := store.File("transport.yaml")
	require.NoError(t, err)
	require.Len(t, file.Groups, 1)
	assert.Len(t, file.Groups[0].Properties, 1)

	require.Error(t, store.ReplaceGroups("missing.yaml", merged))
}

func TestConfigStore_FileCopyIsIsolated(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	file, err := store.File("auth.json")
	require.NoError(t, err)
	file.Groups[0].Properties[0].Value = "mutated"

	property, err := store.Property("AuthMethod")
	require.NoError(t, err)
	assert.Equal(t, "ntlm", property.Value, "mutating a returned copy must not leak into the store")
}

func TestConfigStore_PropertyGroupsAggregated(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	groups := store.PropertyGroups()
	require.Len(t, groups, 2)
	// Ordered by file name: auth.json before transport.yaml.
	assert.Equal(t, "Auth", groups[0].Name)
	assert.Equal(t, "Transport", groups[1].Name)
}

func TestConfigStore_StopWatchingWithoutStart(t *testing.T) {
	store, err := NewConfigStore(writeConfigFixture(t), DefaultConfigStoreOptions(), nil)
	require.NoError(t, err)

	require.NoError(t, store.StopWatching())
}
