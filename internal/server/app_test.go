package server

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophrelief/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.OracleKeysDir = ""
	c.LogLevel = "error"
	return c
}

func TestNewApp_InMemory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	assert.Nil(t, app.db)
	assert.NotNil(t, app.ledger)
	assert.NotNil(t, app.oracle)
	assert.NoError(t, app.ledger.Ping(context.Background()))
	assert.Equal(t, "0x5fbdb2315678afecb367f032d93f642f64180aa3", app.ledger.Contract().Hex())
}

func TestNewApp_BadContract(t *testing.T) {
	c := memoryConfig()
	c.ContractAddress = "not-an-address"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "contract address")
}
