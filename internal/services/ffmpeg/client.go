package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"memento/internal/services"
)

var commandContext = exec.CommandContext

// overlayFilter scales the overlay to the base frame and centres it.
const overlayFilter = "[1][0]scale2ref=w=iw:h=ih[overlay][base];[base][overlay]overlay=(W-w)/2:(H-h)/2"

// Tag is a single container metadata key/value pair.
type Tag struct {
	Key   string
	Value string
}

// Client defines the transcoder behaviour used by the pipeline.
type Client interface {
	Overlay(ctx context.Context, videoPath, overlayPath, outputPath string) error
	CopyWithMetadata(ctx context.Context, inputPath, outputPath string, tags []Tag) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = strings.TrimSpace(binary)
		}
	}
}

// CLI runs ffmpeg as a child process.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary reports the executable the client invokes.
func (c *CLI) Binary() string {
	return c.binary
}

// Overlay composites a PNG overlay centred on top of every frame of the video,
// copying audio through untouched.
func (c *CLI) Overlay(ctx context.Context, videoPath, overlayPath, outputPath string) error {
	if videoPath == "" || overlayPath == "" || outputPath == "" {
		return errors.New("overlay requires video, overlay, and output paths")
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", overlayPath,
		"-filter_complex", overlayFilter,
		"-codec:a", "copy",
		outputPath,
	}
	return c.run(ctx, "overlay", args)
}

// CopyWithMetadata remuxes inputPath into outputPath without re-encoding and
// sets the supplied container tags.
func (c *CLI) CopyWithMetadata(ctx context.Context, inputPath, outputPath string, tags []Tag) error {
	if inputPath == "" || outputPath == "" {
		return errors.New("metadata copy requires input and output paths")
	}
	args := []string{"-y", "-i", inputPath}
	for _, tag := range tags {
		if tag.Key == "" {
			continue
		}
		args = append(args, "-metadata", tag.Key+"="+tag.Value)
	}
	args = append(args, "-codec", "copy", outputPath)
	return c.run(ctx, "metadata", args)
}

func (c *CLI) run(ctx context.Context, operation string, args []string) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := lastLine(stderr.String())
		if detail == "" {
			detail = fmt.Sprintf("%s exited unsuccessfully", c.binary)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, detail, err)
	}
	return nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ Client = (*CLI)(nil)
