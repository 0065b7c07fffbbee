package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/db/manager"
	"github.com/vvka-141/imdbload/internal/services"
	"github.com/vvka-141/imdbload/internal/ui"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// errDropNotApproved is returned when schema drop is declined or cannot be
// confirmed.
var errDropNotApproved = errors.New("schema drop not approved")

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or drop the destination schema",
}

var schemaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and all relations",
	Long: `Init creates the destination schema and its thirteen relations with primary
and unique keys. Existing objects are left untouched.

With --create-database the target database is created first, through the
maintenance database (postgres unless the connection string names another).`,
	Args: cobra.NoArgs,
	RunE: runSchemaInit,
}

var schemaDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the schema and everything in it",
	Long: `Drop removes the destination schema with CASCADE.

You are asked to type the schema name to confirm. --force skips the prompt
after a short countdown; without a terminal --force is required.`,
	Args: cobra.NoArgs,
	RunE: runSchemaDrop,
}

type schemaFlagValues struct {
	conn           connectionFlags
	schema         string
	createDatabase bool
	force          bool
}

var schemaFlags schemaFlagValues

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaInitCmd, schemaDropCmd)

	for _, c := range []*cobra.Command{schemaInitCmd, schemaDropCmd} {
		addConnectionFlags(c, &schemaFlags.conn)
		c.Flags().StringVar(&schemaFlags.schema, "schema", imdbload.DefaultSchema, "Destination schema (or $PGSCHEMA)")
	}
	schemaInitCmd.Flags().BoolVar(&schemaFlags.createDatabase, "create-database", false,
		"Create the target database when it does not exist")
	schemaDropCmd.Flags().BoolVar(&schemaFlags.force, "force", false,
		"Skip the confirmation prompt (a countdown is still shown)")
}

func runSchemaInit(cmd *cobra.Command, _ []string) error {
	return withSchemaService(cmd, func(svc *services.SchemaService, target schemaTarget) error {
		ctx, cancel := signalContext(0, "schema init")
		defer cancel()
		if err := svc.Init(ctx, target.conn, target.maintenanceDB, target.schema, schemaFlags.createDatabase); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Schema %s ready in %s\n", target.schema, target.conn.Database)
		return nil
	})
}

func runSchemaDrop(cmd *cobra.Command, _ []string) error {
	return withSchemaService(cmd, func(svc *services.SchemaService, target schemaTarget) error {
		ctx, cancel := signalContext(0, "schema drop")
		defer cancel()

		approver, err := selectApprover(schemaFlags.force, ui.IsInteractive())
		if err != nil {
			return err
		}
		ok, err := approver.RequestApproval(ctx, target.schema)
		if err != nil {
			return err
		}
		if !ok {
			return errDropNotApproved
		}

		if err := svc.Drop(ctx, target.conn, target.schema); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Schema %s dropped from %s\n", target.schema, target.conn.Database)
		return nil
	})
}

func selectApprover(force, interactive bool) (imdbload.Approver, error) {
	switch {
	case force:
		return ui.NewForcedApprover(), nil
	case interactive:
		return ui.NewInteractiveApprover(), nil
	default:
		return nil, fmt.Errorf("%w: not a terminal, use --force", errDropNotApproved)
	}
}

type schemaTarget struct {
	conn          *imdbload.ConnectionConfig
	maintenanceDB string
	schema        string
}

func withSchemaService(cmd *cobra.Command, fn func(*services.SchemaService, schemaTarget) error) error {
	verbose := getVerboseFlag(cmd)
	projectCfg, err := loadProjectConfig(getConfigFlag(cmd))
	if err != nil {
		return err
	}
	connConfig, maintenanceDB, err := resolveConnection(schemaFlags.conn, projectCfg)
	if err != nil {
		return err
	}
	if verbose {
		logConnectionVerbose(connConfig, maintenanceDB)
	}

	fileSchema := ""
	if projectCfg != nil {
		fileSchema = projectCfg.Schema
	}
	target := schemaTarget{
		conn:          connConfig,
		maintenanceDB: maintenanceDB,
		schema:        pickString(cmd, "schema", schemaFlags.schema, "PGSCHEMA", fileSchema, imdbload.DefaultSchema),
	}

	svc := services.NewSchemaService(db.NewConnector, manager.New(), newConsoleLogger(cmd))
	return fn(svc, target)
}
