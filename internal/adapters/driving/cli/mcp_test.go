package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "0", flag.DefValue)
		assert.Equal(t, "p", flag.Shorthand)
	}
	assert.Equal(t, "localhost", mcpServeCmd.Flags().Lookup("host").DefValue)
	assert.NotNil(t, mcpServeCmd.Flags().Lookup("read-only"))
}

func TestMCPServeCmd_NotConfigured(t *testing.T) {
	setupTestServices(t)
	retrievalService = nil

	_, err := runCommand(t, "", "mcp", "serve")

	assert.ErrorIs(t, err, errNotConfigured)
}

func TestMCPServeCmd_InvalidPort(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "mcp", "serve", "--port", "70000")

	assert.ErrorContains(t, err, "invalid port 70000")
}

func TestMCPPorts(t *testing.T) {
	setupTestServices(t)

	ports := mcpPorts(false)
	assert.NotNil(t, ports.Retrieval)
	assert.NotNil(t, ports.Documents)
	assert.NotNil(t, ports.Index)

	readOnly := mcpPorts(true)
	assert.Nil(t, readOnly.Index)
	assert.NotNil(t, readOnly.Retrieval)
}

func TestMCPPorts_NoIndexService(t *testing.T) {
	setupTestServices(t)
	indexService = nil

	assert.Nil(t, mcpPorts(false).Index)
}
