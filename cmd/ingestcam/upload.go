package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/camera"
	"github.com/rsclarke/ingestcam/internal/capture"
	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/models"
)

var uploadFlags struct {
	apiKey    string
	label     string
	projectID int
	maxSide   int
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload one image under a label",
	Long: `Upload one image file as training data. The image is re-encoded as PNG
and sent the same way the capture loop sends frames.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadFlags.apiKey, "api-key", os.Getenv("INGESTCAM_API_KEY"), "project API key (env: INGESTCAM_API_KEY)")
	uploadCmd.Flags().StringVar(&uploadFlags.label, "label", os.Getenv("INGESTCAM_LABEL"), "label for the image")
	uploadCmd.Flags().IntVar(&uploadFlags.projectID, "project-id", 0, "project id recorded in the upload history")
	uploadCmd.Flags().IntVar(&uploadFlags.maxSide, "max-side", 0, "downscale images whose longer side exceeds this")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if uploadFlags.apiKey == "" {
		return fmt.Errorf("API key required (use --api-key flag or INGESTCAM_API_KEY env var)")
	}
	if uploadFlags.label == "" {
		return client.NewValidationError(capture.MsgNoLabel)
	}
	if cmd.Flags().Changed("max-side") {
		cfg.MaxSide = uploadFlags.maxSide
	}

	f, err := os.Open(args[0])
	if err != nil {
		return &capture.FileError{Path: args[0], Err: err}
	}
	data, err := camera.EncodePNG(f, cfg.MaxSide)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	filename := filepath.Base(cfg.FramePath())
	result, err := c.Upload(ctx, data, filename, uploadFlags.label, uploadFlags.apiKey)

	rec := models.Upload{
		ID:        uuid.NewString(),
		Seq:       1,
		Label:     uploadFlags.label,
		Filename:  filename,
		Size:      len(data),
		ProjectID: uploadFlags.projectID,
		CreatedAt: time.Now().Unix(),
	}
	switch {
	case err != nil:
		rec.Message = err.Error()
	default:
		rec.OK = result.OK
		rec.StatusCode = result.StatusCode
		rec.Message = result.Message
		err = client.UploadError(result)
	}
	recordUpload(cmd, rec)

	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), capture.MsgUploaded)
	return nil
}

func recordUpload(cmd *cobra.Command, rec models.Upload) {
	h, err := openHistory()
	if err != nil {
		logger.Warn("upload history disabled", zap.Error(err))
		return
	}
	if h == nil {
		return
	}
	defer h.Close()
	if err := h.RecordUpload(cmd.Context(), rec); err != nil {
		logger.Warn("record upload failed", zap.Error(err))
	}
}
