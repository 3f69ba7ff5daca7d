package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestActionsCommand(t *testing.T) {
	out, err := run(t, "actions")
	require.NoError(t, err)
	assert.Contains(t, out, "DelAgent")
	assert.Contains(t, out, "https://fapi.asterdex.com/fapi/v3/agent")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 7)
}

func TestTypedDataCommand(t *testing.T) {
	out, err := run(t, "typed-data", "DelBuilder",
		"--params", `{"builder":"0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A"}`,
		"--user", "0x1E6d9bC5a3cD4b2e7F8a9B0c1D2E3f4A5b6C7d8E",
		"--nonce", "1700000000000001",
		"--chain-id", "97",
		"--aster-chain", "Testnet")
	require.NoError(t, err)
	assert.Contains(t, out, `"primaryType": "DelBuilder"`)
	assert.Contains(t, out, `"AsterChain": "Testnet"`)
	assert.Contains(t, out, `"Nonce": 1700000000000001`)
	assert.Contains(t, out, `"chainId": 97`)
	assert.Contains(t, out, "digest: 0x")
}

func TestTypedDataCommandUnknownAction(t *testing.T) {
	_, err := run(t, "typed-data", "Withdraw", "--user", "0x1E6d9bC5a3cD4b2e7F8a9B0c1D2E3f4A5b6C7d8E")
	assert.Error(t, err)
}

func TestNonceCommand(t *testing.T) {
	out, err := run(t, "nonce", "-n", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Less(t, lines[0], lines[2])
}
