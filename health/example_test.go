package health_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/dataconn/health"
)

func ExampleAggregator() {
	agg := health.NewAggregator()
	agg.Register("db", health.NewCheckerFunc("db", func(context.Context) health.Result {
		return health.Healthy("connection live")
	}))
	agg.Register("cache", health.NewCheckerFunc("cache", func(context.Context) health.Result {
		return health.Unhealthy("ping failed", errors.New("dial tcp: refused"))
	}))

	results := agg.CheckAll(context.Background())
	fmt.Println(results["db"].Status, results["cache"].Status)
	fmt.Println(health.Overall(results))
	// Output:
	// healthy unhealthy
	// unhealthy
}
