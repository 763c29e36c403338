package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/assetharvest/grfkit/act"
	"github.com/assetharvest/grfkit/spr"
)

var spriteCmd = &cobra.Command{
	Use:   "sprite <file.spr>",
	Short: "Describe a sprite file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := spr.Decode(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version:  %s\n", s.Version)
		fmt.Fprintf(out, "frames:   %d indexed, %d rgba\n", s.IndexedCount, s.RGBACount)
		fmt.Fprintf(out, "palette:  %v\n", s.Palette != nil)
		for i, f := range s.Frames {
			fmt.Fprintf(out, "  frame %3d: %s %dx%d\n", i, f.Type, f.Width, f.Height)
		}
		return nil
	},
}

var actionSprite string

var actionCmd = &cobra.Command{
	Use:   "action <file.act>",
	Short: "Describe an action file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := act.Decode(data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version:  %s\n", s.Version)
		fmt.Fprintf(out, "actions:  %d\n", len(s.Actions))
		fmt.Fprintf(out, "events:   %d\n", len(s.Events))
		for i, a := range s.Actions {
			layers := 0
			for _, f := range a.Frames {
				layers += len(f.Layers)
			}
			fmt.Fprintf(out, "  action %3d: %d frames, %d layers, %.0fms interval\n",
				i, len(a.Frames), layers, a.Interval)
		}

		// With the companion sprite at hand, flag layers pointing at
		// frames the sprite does not have.
		if actionSprite != "" {
			sprData, err := os.ReadFile(actionSprite)
			if err != nil {
				return err
			}
			sp, err := spr.Decode(sprData)
			if err != nil {
				return err
			}
			for _, ref := range s.DanglingLayers(len(sp.Frames)) {
				fmt.Fprintf(out, "dangling: action %d frame %d layer %d -> sprite frame %d (have %d)\n",
					ref.Action, ref.Frame, ref.Layer, ref.SpriteIndex, len(sp.Frames))
			}
		}
		return nil
	},
}

func init() {
	actionCmd.Flags().StringVarP(&actionSprite, "sprite", "s", "", "companion sprite file to validate layer references against")
}
