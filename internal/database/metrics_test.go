package database

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestObserveQueryCountsErrorsButNotMisses(t *testing.T) {
	before := testutil.ToFloat64(dbQueryTotal.WithLabelValues("SELECT", "markets_test", "error"))
	beforeOK := testutil.ToFloat64(dbQueryTotal.WithLabelValues("SELECT", "markets_test", "success"))

	observeQuery("SELECT", "markets_test", time.Millisecond, gorm.ErrRecordNotFound)
	observeQuery("SELECT", "markets_test", time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(dbQueryTotal.WithLabelValues("SELECT", "markets_test", "error")))
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(dbQueryTotal.WithLabelValues("SELECT", "markets_test", "success")))
}

func TestObserveQuerySlow(t *testing.T) {
	before := testutil.ToFloat64(dbSlowQueriesTotal.WithLabelValues("UPDATE", "unknown"))

	observeQuery("UPDATE", "", 2*time.Second, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(dbSlowQueriesTotal.WithLabelValues("UPDATE", "unknown")))
}

func TestModelsIncludesMarketTables(t *testing.T) {
	assert.NotEmpty(t, Models())
}
