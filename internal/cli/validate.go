// validate.go implements "greenroom validate": the script boundary check.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greenroom-hq/greenroom/internal/script"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script.yaml>",
	Short: "Validate an interview script file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scr, err := script.LoadFile(args[0])
		if err != nil {
			return err
		}
		total := 0
		for _, sec := range scr.Sections {
			total += sec.TargetDurationSec
		}
		fmt.Printf("ok: %q, %d sections, %dm%02ds total\n",
			scr.Title, len(scr.Sections), total/60, total%60)
		return nil
	},
}
