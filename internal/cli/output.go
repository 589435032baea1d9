// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-shadowshare.
//
// go-shadowshare is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// ShadowInfo describes one cover written by a distribution
type ShadowInfo struct {
	Image       string `json:"image"`
	Participant uint16 `json:"participant"`
	Bytes       int    `json:"bytes"`
}

// DistributionResult is the printable outcome of the distribute command
type DistributionResult struct {
	Secret        string       `json:"secret"`
	Threshold     int          `json:"k"`
	Blocks        int          `json:"blocks"`
	BitWidth      int          `json:"bit_width"`
	CorrelationID string       `json:"correlation_id"`
	Shadows       []ShadowInfo `json:"shadows"`
}

// RecoveryResult is the printable outcome of the recover command
type RecoveryResult struct {
	Output        string   `json:"output"`
	Threshold     int      `json:"k"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Source        string   `json:"source"`
	Images        []string `json:"images"`
	Participants  []uint16 `json:"participants"`
	CorrelationID string   `json:"correlation_id"`
}

// ImageInfo is a summary of one bitmap header
type ImageInfo struct {
	Image        string `json:"image"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	BitsPerPixel uint16 `json:"bits_per_pixel"`
	Participant  uint16 `json:"participant"`
	FileSize     uint32 `json:"file_size"`
	DataOffset   uint32 `json:"data_offset"`
	TopDown      bool   `json:"top_down"`
}

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// validFormat reports whether format is one the Printer understands
func validFormat(format string) bool {
	switch OutputFormat(format) {
	case OutputFormatText, OutputFormatJSON, OutputFormatTable:
		return true
	}
	return false
}

// PrintStatus prints a progress line. JSON output only carries results,
// so status lines are dropped in that format.
func (p *Printer) PrintStatus(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return nil
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintDistribution prints the covers written by a distribution
func (p *Printer) PrintDistribution(result *DistributionResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(result)
	case OutputFormatTable:
		fmt.Fprintf(p.writer, "%-40s %-12s %-10s\n", "IMAGE", "PARTICIPANT", "BYTES")
		fmt.Fprintln(p.writer, strings.Repeat("-", 64))
		for _, s := range result.Shadows {
			fmt.Fprintf(p.writer, "%-40s %-12d %-10d\n", s.Image, s.Participant, s.Bytes)
		}
		return nil
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Embedded %d shadows (k=%d, %d blocks, %d bits per pixel)\n",
			len(result.Shadows), result.Threshold, result.Blocks, result.BitWidth)
		for _, s := range result.Shadows {
			fmt.Fprintf(p.writer, "  - %s (participant %d)\n", s.Image, s.Participant)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintRecovery prints the outcome of a recovery
func (p *Printer) PrintRecovery(result *RecoveryResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(result)
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Recovered %dx%d secret image: %s\n", result.Width, result.Height, result.Output)
		for i, image := range result.Images {
			fmt.Fprintf(p.writer, "  - %s (participant %d)\n", image, result.Participants[i])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintImages prints bitmap header summaries
func (p *Printer) PrintImages(images []ImageInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"images": images,
		})
	case OutputFormatTable:
		if len(images) == 0 {
			fmt.Fprintln(p.writer, "No images found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-40s %-8s %-8s %-6s %-12s\n", "IMAGE", "WIDTH", "HEIGHT", "BPP", "PARTICIPANT")
		fmt.Fprintln(p.writer, strings.Repeat("-", 78))
		for _, img := range images {
			fmt.Fprintf(p.writer, "%-40s %-8d %-8d %-6d %-12d\n",
				img.Image, img.Width, img.Height, img.BitsPerPixel, img.Participant)
		}
		return nil
	case OutputFormatText:
		if len(images) == 0 {
			fmt.Fprintln(p.writer, "No images found")
			return nil
		}
		for _, img := range images {
			fmt.Fprintf(p.writer, "%s:\n", img.Image)
			fmt.Fprintf(p.writer, "  Size:        %dx%d\n", img.Width, img.Height)
			fmt.Fprintf(p.writer, "  Bits/pixel:  %d\n", img.BitsPerPixel)
			fmt.Fprintf(p.writer, "  Participant: %d\n", img.Participant)
			fmt.Fprintf(p.writer, "  File size:   %d\n", img.FileSize)
			fmt.Fprintf(p.writer, "  Data offset: %d\n", img.DataOffset)
			fmt.Fprintf(p.writer, "  Top-down:    %t\n", img.TopDown)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message together with its exit code
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":    "error",
			"error":     err.Error(),
			"exit_code": ExitCode(err),
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
