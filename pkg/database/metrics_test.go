package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStat struct{}

func (fakeStat) AcquiredConns() int32        { return 3 }
func (fakeStat) IdleConns() int32            { return 2 }
func (fakeStat) TotalConns() int32           { return 5 }
func (fakeStat) MaxConns() int32             { return 20 }
func (fakeStat) AcquireCount() int64         { return 140 }
func (fakeStat) EmptyAcquireCount() int64    { return 4 }
func (fakeStat) CanceledAcquireCount() int64 { return 1 }

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := newPoolStatsCollector(func() poolStat { return fakeStat{} }, "storefront")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP db_pool_acquired_connections Connections currently checked out.
# TYPE db_pool_acquired_connections gauge
db_pool_acquired_connections{service="storefront"} 3
# HELP db_pool_acquire_count_total Successful connection acquires.
# TYPE db_pool_acquire_count_total counter
db_pool_acquire_count_total{service="storefront"} 140
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"db_pool_acquired_connections", "db_pool_acquire_count_total")
	assert.NoError(t, err)
}
