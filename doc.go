// Package dataconn is the entry point for named, configuration-driven data
// connections.
//
// It registers every built-in backend with a connection.Manager:
//
//	tag        package    native handle
//	sql        sqlconn    *sql.DB (sqlite, postgres, mysql)
//	embedded   embedded   *sql.DB (in-process sqlite)
//	files      files      FileSystem (local, s3, gcs, azure)
//	s3/gcs/azure          files with the protocol preset
//	openai     llm        *llm.Client
//	snowpark   snowpark   *snowpark.Session
//
// Configuration is read from TOML, layered with the environment:
//
//	[connections.pets_db]
//	url = "sqlite:///:memory:"
//
//	m, err := dataconn.New()
//	db, err := dataconn.Open[*sqlconn.Conn](ctx, m, "sql", connection.WithName("pets_db"))
//	tbl, err := db.Query(ctx, "SELECT 1", sqlconn.WithTTL(time.Minute))
//
// Connections are constructed once per (tag, name, options), reused, reset
// when a read fails transiently, and their reads are cached by the
// manager's shared cache.Store.
package dataconn
