package cmd

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkwash-dev/inkwash/internal/config"
	"github.com/inkwash-dev/inkwash/internal/editor"
	"github.com/inkwash-dev/inkwash/internal/images"
	"github.com/inkwash-dev/inkwash/internal/models"
	"github.com/inkwash-dev/inkwash/internal/raster"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// strokeScript is a recorded editing session replayed against a page image
type strokeScript struct {
	Viewport *raster.Viewport `json:"viewport,omitempty" yaml:"viewport,omitempty"`
	Steps    []scriptStep     `json:"steps" yaml:"steps"`
}

type scriptStep struct {
	// Action is stroke (default), undo, redo or clear
	Action   string         `json:"action,omitempty" yaml:"action,omitempty"`
	Tool     string         `json:"tool,omitempty" yaml:"tool,omitempty"`
	Diameter int            `json:"diameter,omitempty" yaml:"diameter,omitempty"`
	Color    string         `json:"color,omitempty" yaml:"color,omitempty"`
	Points   []raster.Point `json:"points,omitempty" yaml:"points,omitempty"`
}

func newMaskCmd(opts *rootOptions) *cobra.Command {
	var (
		imagePath   string
		scriptPath  string
		outPath     string
		previewPath string
		diameter    int
	)

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Build an erase mask from a recorded stroke script",
		Long: `Replays a stroke script (JSON or YAML) against a page image in the headless
editor and writes the resulting binary mask PNG: white where the page should
be erased, black everywhere else.

A script is a list of steps. A step without an action is a stroke; the
actions undo, redo and clear behave as in the editor.`,
		Example: `  # Build a mask for a local page
  inkwash mask --image page-03.png --strokes strokes.json --out page-03-mask.png

  # Also write a preview of the markup over the page
  inkwash mask --image https://cdn.example.com/p3.webp --strokes s.yaml --out m.png --preview p.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := loadScript(scriptPath)
			if err != nil {
				return err
			}

			img, err := images.NewLoader().Load(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			session := editor.NewSession(models.Page{ID: filepath.Base(imagePath), OriginalImageURL: imagePath}, img)
			if !cmd.Flags().Changed("diameter") {
				diameter = opts.cfg.Editor.BrushDiameter
			}
			session.SetDiameter(diameter)
			session.SetColor(opts.cfg.BrushColor())

			if err := replayScript(session, script); err != nil {
				return err
			}

			data, err := session.MaskPNG()
			if err != nil {
				return fmt.Errorf("failed to encode mask: %w", err)
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write mask: %w", err)
			}
			slog.Info("Mask written", "path", outPath, "bytes", len(data), "steps", len(script.Steps))

			if previewPath != "" {
				if err := writePreview(previewPath, session); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Page image path or URL")
	cmd.Flags().StringVarP(&scriptPath, "strokes", "s", "", "Stroke script (.json, .yaml or .yml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "mask.png", "Output mask PNG")
	cmd.Flags().StringVar(&previewPath, "preview", "", "Optional composite preview PNG")
	cmd.Flags().IntVarP(&diameter, "diameter", "d", raster.DefaultDiameter, "Initial brush diameter in pixels")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("strokes")

	return cmd
}

func loadScript(path string) (strokeScript, error) {
	var script strokeScript
	data, err := os.ReadFile(path)
	if err != nil {
		return script, fmt.Errorf("failed to read stroke script: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &script)
	default:
		err = json.Unmarshal(data, &script)
	}
	if err != nil {
		return script, fmt.Errorf("failed to parse stroke script: %w", err)
	}
	return script, nil
}

func replayScript(s *editor.Session, script strokeScript) error {
	for i, step := range script.Steps {
		var err error
		switch strings.ToLower(step.Action) {
		case "", "stroke":
			err = replayStroke(s, step, script.Viewport)
		case "undo":
			_, err = s.Undo()
		case "redo":
			_, err = s.Redo()
		case "clear":
			err = s.Clear()
		default:
			err = fmt.Errorf("unknown action %q", step.Action)
		}
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func replayStroke(s *editor.Session, step scriptStep, vp *raster.Viewport) error {
	if len(step.Points) == 0 {
		return fmt.Errorf("stroke has no points")
	}
	if step.Tool != "" {
		tool, err := raster.ParseTool(step.Tool)
		if err != nil {
			return err
		}
		s.SetTool(tool)
	}
	if step.Diameter > 0 {
		s.SetDiameter(step.Diameter)
	}
	if step.Color != "" {
		c, err := config.ParseColor(step.Color)
		if err != nil {
			return err
		}
		s.SetColor(c)
	}

	points := step.Points
	if vp != nil {
		points = make([]raster.Point, len(step.Points))
		for i, p := range step.Points {
			points[i] = vp.ToImage(p)
		}
	}
	return s.Stroke(points)
}

func writePreview(path string, s *editor.Session) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, s.Preview()); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}
