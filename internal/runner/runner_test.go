package runner

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilderDoesNotAlias(t *testing.T) {
	base := New("unring.py").Arg("in.nii.gz")
	a := base.Arg("a")
	b := base.Arg("b")

	assert.Equal(t, []string{"in.nii.gz", "a"}, a.Args)
	assert.Equal(t, []string{"in.nii.gz", "b"}, b.Args)
	assert.Equal(t, []string{"in.nii.gz"}, base.Args)
}

func TestCommandFlags(t *testing.T) {
	cmd := New("pnl_eddy.py").
		Flag("-i", "/d/in.nii.gz").
		FlagIf(true, "-d").
		FlagIf(false, "-n", "4").
		Writing("/d/out.nii.gz")

	assert.Equal(t, []string{"-i", "/d/in.nii.gz", "-d"}, cmd.Args)
	assert.Equal(t, []string{"/d/out.nii.gz"}, cmd.Writes)
	assert.Equal(t, "pnl_eddy.py -i /d/in.nii.gz -d", cmd.String())
}

func TestCommandStringQuotes(t *testing.T) {
	cmd := New("ukf.py").Flag("--params", "--a 1,--b 2").Arg("")
	assert.Equal(t, `ukf.py --params "--a 1,--b 2" ""`, cmd.String())
}

func TestExecExitCodes(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var stdout bytes.Buffer
	r := NewExec(&stdout, &stdout)
	ctx := context.Background()

	code, err := r.Execute(ctx, New("sh").Flag("-c", "echo hi"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hi\n", stdout.String())

	code, err = r.Execute(ctx, New("sh").Flag("-c", "exit 3"))
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	_, err = r.Execute(ctx, New("/definitely/not/a/tool"))
	assert.Error(t, err)
}
