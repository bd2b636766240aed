package standard

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/borderhub/btms-gateway/internal/cli/client"
)

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func clientFromCmd(cmd *cobra.Command) (*client.Client, error) {
	base, err := cmd.Root().PersistentFlags().GetString("api")
	if err != nil {
		base = envOrDefault("BTMS_ADMIN_API", "http://127.0.0.1:8091")
	}
	return client.New(base)
}
