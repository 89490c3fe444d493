package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/signature"
)

func execute(args ...string) (string, error) {
	evidenceByKey = false
	customKey = ""
	evidenceLog = ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--config", "./testdata/attestor-config.yaml"}, args...))

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSchemaCommands(t *testing.T) {
	out, err := execute("schema", "create", "./testdata/degree-schema.json")
	require.NoError(t, err)
	require.Contains(t, out, "registered schema 1001")

	_, err = execute("schema", "create", "./testdata/missing.json")
	require.Error(t, err)

	out, err = execute("schema", "list")
	require.NoError(t, err)
	require.Contains(t, out, `"count": 0`)

	_, err = execute("schema", "get", "abc")
	require.Error(t, err)

	_, err = execute("schema", "get", "1001")
	require.True(t, errcode.Is(err, errcode.ErrSchemaNotFound))
}

func TestEvidenceCommands(t *testing.T) {
	hash := signature.Keccak256Hex("transcript")

	out, err := execute("evidence", "create", hash, "--log", "issued")
	require.NoError(t, err)
	require.Contains(t, out, "created evidence "+hash)

	_, err = execute("evidence", "get", hash)
	require.True(t, errcode.Is(err, errcode.ErrEvidenceNotFound))

	_, err = execute("evidence", "get", "0x1234")
	require.True(t, errcode.Is(err, errcode.ErrInputIllegal))

	_, err = execute("evidence", "get", "--key", "unknown")
	require.True(t, errcode.Is(err, errcode.ErrEvidenceNotFound))
}

func TestCredentialVerifyCommand(t *testing.T) {
	_, err := execute("credential", "verify", "./testdata/missing.json")
	require.Error(t, err)

	_, err = execute("credential", "verify", "./testdata/empty-bundle.json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "holds no credential")
}
