package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/condohub/condohub/internal/billing"
)

// CampaignPreviewer computes fee tables for stored campaigns.
type CampaignPreviewer interface {
	CampaignPreview(ctx context.Context, communityID, campaignID int64) (billing.Preview, error)
}

// PreviewCLI exports fee tables for offline review.
type PreviewCLI struct {
	previews CampaignPreviewer
}

// NewPreviewCLI constructs the helper.
func NewPreviewCLI(previews CampaignPreviewer) (*PreviewCLI, error) {
	if previews == nil {
		return nil, errors.New("preview cli: previewer required")
	}
	return &PreviewCLI{previews: previews}, nil
}

// ExportOptions controls the preview export command.
type ExportOptions struct {
	CommunityID int64
	CampaignID  int64
	JSONOutput  bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// ExportCommand writes the fee table as CSV, or the full preview as JSON.
func (c *PreviewCLI) ExportCommand(ctx context.Context, opts ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.CommunityID <= 0 || opts.CampaignID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "preview export: --community and --campaign are required")
		return ExitFailure
	}
	preview, err := c.previews.CampaignPreview(ctx, opts.CommunityID, opts.CampaignID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "preview export: %v\n", err)
		return ExitFailure
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(preview); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "preview export: encode json: %v\n", err)
			return ExitFailure
		}
		return ExitOK
	}
	if err := writeFeeCSV(opts.Stdout, preview); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "preview export: write csv: %v\n", err)
		return ExitFailure
	}
	return ExitOK
}

func writeFeeCSV(w io.Writer, preview billing.Preview) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"unit_id", "unit_number", "block_path", "coefficient", "fee"}); err != nil {
		return err
	}
	for _, line := range preview.Lines {
		row := []string{
			strconv.FormatInt(line.UnitID, 10),
			line.UnitNumber,
			line.BlockPath,
			strconv.FormatFloat(line.Coefficient, 'f', -1, 64),
			strconv.FormatFloat(line.Fee, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
