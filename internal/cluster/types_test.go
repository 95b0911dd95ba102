package cluster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplicaDescriptorConstructors(t *testing.T) {
	region := NewRegionReplica("us-east")
	assert.Equal(t, DescriptorKindRegion, region.Kind)
	assert.Equal(t, "region:us-east", region.Key())
	assert.NoError(t, region.Validate())

	local := NewLocalReplica("replica-3")
	assert.Equal(t, DescriptorKindLocal, local.Kind)
	assert.Equal(t, "local:replica-3", local.Key())
	assert.NoError(t, local.Validate())
}

func TestReplicaDescriptorValidateRejectsEmpty(t *testing.T) {
	assert.Error(t, ReplicaDescriptor{Kind: DescriptorKindRegion}.Validate())
	assert.Error(t, ReplicaDescriptor{Kind: DescriptorKindLocal}.Validate())
	assert.Error(t, ReplicaDescriptor{Kind: "bogus"}.Validate())
}

func TestShardConfigValidateRejectsDuplicateReplicas(t *testing.T) {
	cfg := ShardConfig{
		IDType: IDTypeString,
		Replicas: []ReplicaDescriptor{
			NewRegionReplica("us-east"),
			NewRegionReplica("us-east"),
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestShardConfigWithDefaults(t *testing.T) {
	cfg := ShardConfig{}.WithDefaults()
	assert.Equal(t, int64(DefaultTickIntervalMs), cfg.TickIntervalMs)
	assert.Equal(t, int64(DefaultSizeThresholdBytes), cfg.SizeThresholdBytes)

	floored := ShardConfig{TickIntervalMs: 10}.WithDefaults()
	assert.Equal(t, int64(MinTickIntervalMs), floored.TickIntervalMs)

	untouched := ShardConfig{SizeThresholdBytes: 12345}.WithDefaults()
	assert.Equal(t, int64(12345), untouched.SizeThresholdBytes)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	d := Document{ID: "a", Content: "JavaScript programming tutorial"}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, d.Content, decoded.Content)
	assert.Equal(t, d.ID, decoded.ID)
}

func TestFieldErrorMessage(t *testing.T) {
	err := FieldError{Field: "id", Message: "must be a non-empty string", Value: ""}
	assert.Equal(t, "id: must be a non-empty string", err.Error())
}
