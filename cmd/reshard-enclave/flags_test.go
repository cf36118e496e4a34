package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func buildTestContext(t *testing.T, values map[string]string) *cli.Context {
	t.Helper()
	app := &cli.App{Flags: CLIFlags()}
	set := flag.NewFlagSet(app.Name, flag.ContinueOnError)
	for _, f := range app.Flags {
		require.NoError(t, f.Apply(set))
	}
	ctx := cli.NewContext(app, set, nil)
	for name, value := range values {
		require.NoError(t, ctx.Set(name, value))
	}
	return ctx
}

func TestShareSetInputs_JSONForm(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		NewShareSetFlagName: `{"threshold":2,"members":[]}`,
	})
	jsonForm, threshold, members, err := shareSetInputs(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, jsonForm)
	require.Zero(t, threshold)
	require.Empty(t, members)
}

func TestShareSetInputs_SplitForm(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		ThresholdFlagName: "3",
		MembersFlagName:   "aa;bb;cc",
	})
	jsonForm, threshold, members, err := shareSetInputs(ctx)
	require.NoError(t, err)
	require.Empty(t, jsonForm)
	require.Equal(t, 3, threshold)
	require.Equal(t, "aa;bb;cc", members)
}

func TestShareSetInputs_BothFormsRejected(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		NewShareSetFlagName: `{"threshold":2,"members":[]}`,
		ThresholdFlagName:   "3",
		MembersFlagName:     "aa;bb;cc",
	})
	_, _, _, err := shareSetInputs(ctx)
	require.Error(t, err)
}

func TestShareSetInputs_NeitherFormGiven(t *testing.T) {
	ctx := buildTestContext(t, nil)
	_, _, _, err := shareSetInputs(ctx)
	require.Error(t, err)
}

func TestShareSetInputs_PartialSplitForm(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		ThresholdFlagName: "3",
	})
	_, _, _, err := shareSetInputs(ctx)
	require.Error(t, err)
}

func TestListenTarget_UsockForm(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		UsockFlagName: "/tmp/ers.sock",
	})
	network, address, err := listenTarget(ctx)
	require.NoError(t, err)
	require.Equal(t, "unix", network)
	require.Equal(t, "/tmp/ers.sock", address)
}

func TestListenTarget_VsockForm(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		CIDFlagName:  "3",
		PortFlagName: "7",
	})
	network, address, err := listenTarget(ctx)
	require.NoError(t, err)
	require.Equal(t, "tcp", network)
	require.Equal(t, "127.0.0.1:40307", address)
}

func TestListenTarget_BothFormsRejected(t *testing.T) {
	ctx := buildTestContext(t, map[string]string{
		UsockFlagName: "/tmp/ers.sock",
		CIDFlagName:   "3",
		PortFlagName:  "7",
	})
	_, _, err := listenTarget(ctx)
	require.Error(t, err)
}

func TestListenTarget_NeitherFormGiven(t *testing.T) {
	ctx := buildTestContext(t, nil)
	_, _, err := listenTarget(ctx)
	require.Error(t, err)
}
