package sqlconn_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/sqlconn"
)

func ExampleConn_Query() {
	ctx := context.Background()
	m, err := connection.NewManager(
		connection.WithTypes(sqlconn.Type),
		connection.WithConfig(config.NewMapStore(map[string]config.Section{
			"pets_db": {"url": "sqlite:///:memory:"},
		})),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer m.Clear(ctx)

	db, err := connection.As[*sqlconn.Conn](m.Open(ctx, "sql", connection.WithName("pets_db")))
	if err != nil {
		fmt.Println(err)
		return
	}
	tbl, err := db.Query(ctx, "SELECT 'rex' AS name, 3 AS age", sqlconn.WithTTL(time.Minute))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(tbl.Columns, tbl.Rows)
	// Output:
	// [name age] [[rex 3]]
}
