package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/condohub/condohub/internal/billing"
	"github.com/condohub/condohub/internal/shared"
)

type stubPreviewer struct {
	preview billing.Preview
	err     error
}

func (s stubPreviewer) CampaignPreview(ctx context.Context, communityID, campaignID int64) (billing.Preview, error) {
	return s.preview, s.err
}

func samplePreview() billing.Preview {
	return billing.Preview{
		CommunityID: 1,
		Fingerprint: "abc",
		Campaign:    billing.Campaign{ID: 4, Title: "Roof", GoalAmount: 300},
		Lines: []billing.Line{
			{UnitID: 10, UnitNumber: "1A", BlockPath: "Portal 1 / Stair A", Coefficient: 0.25, Fee: 100},
			{UnitID: 11, UnitNumber: "1B, rear", BlockPath: "Portal 1 / Stair A", Coefficient: 0.5, Fee: 200},
		},
	}
}

func TestExportCommandCSV(t *testing.T) {
	cli, err := NewPreviewCLI(stubPreviewer{preview: samplePreview()})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ExportCommand(context.Background(), ExportOptions{CommunityID: 1, CampaignID: 4, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitOK, exitCode)
	require.Equal(t,
		"unit_id,unit_number,block_path,coefficient,fee\n"+
			"10,1A,Portal 1 / Stair A,0.25,100.00\n"+
			"11,\"1B, rear\",Portal 1 / Stair A,0.5,200.00\n",
		stdout.String())
}

func TestExportCommandJSON(t *testing.T) {
	cli, err := NewPreviewCLI(stubPreviewer{preview: samplePreview()})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	exitCode := cli.ExportCommand(context.Background(), ExportOptions{CommunityID: 1, CampaignID: 4, JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitOK, exitCode)

	var decoded billing.Preview
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.Len(t, decoded.Lines, 2)
	require.Equal(t, "abc", decoded.Fingerprint)
}

func TestExportCommandErrors(t *testing.T) {
	cli, err := NewPreviewCLI(stubPreviewer{err: &shared.NotFoundError{Kind: "campaign", ID: 4}})
	require.NoError(t, err)

	stderr := new(bytes.Buffer)
	require.Equal(t, ExitFailure, cli.ExportCommand(context.Background(), ExportOptions{CommunityID: 1, Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "--campaign")

	stderr.Reset()
	require.Equal(t, ExitFailure, cli.ExportCommand(context.Background(), ExportOptions{CommunityID: 1, CampaignID: 4, Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "campaign")
}
