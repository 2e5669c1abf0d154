package cmds

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var PersonasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the available advisor personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		for _, p := range registry.All() {
			capabilities := []string{}
			if p.Capabilities.Attachments {
				capabilities = append(capabilities, "attachments")
			}
			if p.Capabilities.Actions {
				capabilities = append(capabilities, "actions")
			}
			if p.Capabilities.AudioFirst {
				capabilities = append(capabilities, "audio-first")
			}
			suffix := ""
			if len(capabilities) > 0 {
				suffix = " [" + strings.Join(capabilities, ", ") + "]"
			}
			fmt.Printf("%-10s %s — %s%s\n", p.ID, p.Name, p.Description, suffix)
		}
		return nil
	},
}
