// Package manager checks for and creates the target database before the
// schema is initialized. Database names are quoted with
// pgx.Identifier.Sanitize().
//
//	mgr := manager.New()
//	exists, err := mgr.Exists(ctx, conn, "bases2_proyectos")
//	if err == nil && !exists {
//	    err = mgr.Create(ctx, conn, "bases2_proyectos")
//	}
package manager
