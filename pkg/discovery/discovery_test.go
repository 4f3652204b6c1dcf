package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/config"
)

func TestParseInstance(t *testing.T) {
	inst, err := ParseInstance("storefront", "10.0.0.5:50061")
	require.NoError(t, err)
	assert.Equal(t, &ServiceInstance{Name: "storefront", Host: "10.0.0.5", Port: 50061}, inst)
	assert.Equal(t, "10.0.0.5:50061", inst.Address())

	_, err = ParseInstance("storefront", "no-port")
	assert.Error(t, err)
	_, err = ParseInstance("storefront", "host:abc")
	assert.Error(t, err)
}

func TestNewServiceDiscovery_NoEndpoints(t *testing.T) {
	_, err := NewServiceDiscovery(&config.EtcdConfig{}, zap.NewNop())
	assert.EqualError(t, err, "no etcd endpoints configured")
}
