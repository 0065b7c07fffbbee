package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/services"
	"github.com/vvka-141/imdbload/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity and report the server role",
	Long: `Health connects to the target database and prints "connected" with the
server role (primary or standby), or "not connected" with the reason. The
exit code is non-zero when the database cannot be reached.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

type healthFlagValues struct {
	conn    connectionFlags
	timeout time.Duration
}

var healthFlags healthFlagValues

func init() {
	rootCmd.AddCommand(healthCmd)
	addConnectionFlags(healthCmd, &healthFlags.conn)
	healthCmd.Flags().DurationVar(&healthFlags.timeout, "timeout", 30*time.Second, "Give up after this long")
}

func runHealth(cmd *cobra.Command, _ []string) error {
	projectCfg, err := loadProjectConfig(getConfigFlag(cmd))
	if err != nil {
		return err
	}
	connConfig, maintenanceDB, err := resolveConnection(healthFlags.conn, projectCfg)
	if err != nil {
		return err
	}
	if getVerboseFlag(cmd) {
		logConnectionVerbose(connConfig, maintenanceDB)
	}

	ctx, cancel := signalContext(healthFlags.timeout, "health check")
	defer cancel()

	role, err := services.CheckHealth(ctx, db.NewConnector, connConfig)
	ui.NewRenderer(os.Stdout, ui.IsInteractive()).Connection(role, err)
	return err
}
