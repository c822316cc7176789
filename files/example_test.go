package files_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/files"
)

func ExampleConn_ReadCSV() {
	dir, err := os.MkdirTemp("", "files-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)
	if err := os.WriteFile(filepath.Join(dir, "pets.csv"), []byte("name,age\nrex,3\n"), 0o644); err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	m, err := connection.NewManager(
		connection.WithTypes(files.Type),
		connection.WithConfig(config.NewMapStore(map[string]config.Section{
			"files": {"root": dir},
		})),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer m.Clear(ctx)

	fc, err := connection.As[*files.Conn](m.Open(ctx, "files"))
	if err != nil {
		fmt.Println(err)
		return
	}
	tbl, err := fc.ReadCSV(ctx, "pets.csv")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(tbl.Columns, tbl.Rows)
	// Output:
	// [name age] [[rex 3]]
}
