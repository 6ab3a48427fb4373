package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/sink/internal/config"
)

// sampleConfig is written by `sink init`. It must stay loadable by
// config.LoadConfig; the init tests enforce that.
const sampleConfig = `# sink server configuration
listen:
  addr: ":8083"
  # readTimeout: 30s
  # writeTimeout: 30s
  # h2c: true

capture:
  # Number of requests kept in memory, browsable at /_sink/captures
  size: 100
  # Maximum body bytes stored per request
  bodyLimit: 1048576
  # Set to true to drain chunked bodies instead of reading
  # exactly Content-Length bytes
  readFull: false

# Default response for inspected requests
response:
  status: 200
  # delay: 250ms
  # body: "OK"
  # echo: true
  # headers:
  #   X-Inspected-By: sink

# Per-prefix overrides; the longest matching prefix wins
routes:
  - prefix: /push
    response:
      status: 201
    # Bodies on this route are validated and the verdict recorded
    schema: |
      {
        "type": "object",
        "required": ["endpoint"],
        "properties": {
          "endpoint": { "type": "string" },
          "ttl": { "type": "integer", "minimum": 0 }
        }
      }
`

var initCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a sample configuration file",
	Long: `Write a commented sample configuration file. The default file name is
sink.yaml in the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "sink.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
			return fmt.Errorf("error writing %s: %w", path, err)
		}

		// Make sure what we ship actually loads
		if _, err := config.LoadConfig(path); err != nil {
			return fmt.Errorf("generated config failed to load: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
}
